package floorplan

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/vk/nocforge/internal/design"
)

// InfeasiblePartitionError reports that no assignment satisfying every
// region capacity was found within the iteration budget. The search
// controller treats it as a rejected candidate, never as a fatal error.
type InfeasiblePartitionError struct {
	// Overflow is the total area placed beyond capacity, summed over all
	// overfull regions. Smaller is closer to feasible.
	Overflow float64
}

// Error implements the error interface.
func (e *InfeasiblePartitionError) Error() string {
	return fmt.Sprintf("no feasible partition: %.3f area units over capacity", e.Overflow)
}

// Options tune a single Propose call.
type Options struct {
	// MaxIterations bounds the local-search loop. Zero means the default.
	MaxIterations int
	// Seed varies region scan order between restarts. The result is a
	// deterministic function of (graph, tree, options).
	Seed int64
	// Locked modules keep their assignment from Base and are never moved.
	Locked map[string]bool
	// Base is a partial assignment to start from, typically supplied by
	// the controller to explore a local modification. Nil starts fresh.
	Base Assignment
}

const defaultPartitionIterations = 64

// Propose assigns every module to a leaf region, minimizing total
// cross-region connection length under the region capacity constraints.
// A min-cut style local search moves modules between regions, working a
// worklist of highest-connectivity modules first; exact ties fall to the
// lowest module ID. On infeasibility the best-effort assignment is still
// returned alongside *InfeasiblePartitionError so the controller can rank
// the violation.
func Propose(g *design.Graph, tree *Tree, opts Options) (Assignment, error) {
	leaves := tree.Leaves()
	if len(leaves) == 0 {
		return nil, fmt.Errorf("region tree has no leaf regions")
	}
	maxIter := opts.MaxIterations
	if maxIter <= 0 {
		maxIter = defaultPartitionIterations
	}
	rng := rand.New(rand.NewSource(opts.Seed))

	p := &partitioner{
		g:      g,
		tree:   tree,
		leaves: leaves,
		asg:    make(Assignment, len(g.ModuleIDs())),
		usage:  make(map[int]float64, len(leaves)),
		locked: opts.Locked,
		// The seeded rotation varies which region wins exact-gain ties
		// across restarts without losing per-seed determinism.
		scanOffset: rng.Intn(len(leaves)),
	}

	worklist := p.worklist()

	if err := p.placeFixed(worklist); err != nil {
		return nil, err
	}
	p.placeInitial(worklist, opts.Base)
	p.refine(worklist, maxIter)

	if over := p.overflow(); over > 0 {
		return p.asg, &InfeasiblePartitionError{Overflow: over}
	}
	return p.asg, nil
}

type partitioner struct {
	g          *design.Graph
	tree       *Tree
	leaves     []int
	asg        Assignment
	usage      map[int]float64
	locked     map[string]bool
	scanOffset int
}

// worklist orders module IDs by connectivity descending, ID ascending.
func (p *partitioner) worklist() []string {
	ids := p.g.ModuleIDs()
	sort.SliceStable(ids, func(i, j int) bool {
		ci, cj := p.g.Connectivity(ids[i]), p.g.Connectivity(ids[j])
		if ci != cj {
			return ci > cj
		}
		return ids[i] < ids[j]
	})
	return ids
}

// placeFixed pins modules carrying a fixed-region constraint. An unknown
// region name is a structural input error, not a search-time rejection.
func (p *partitioner) placeFixed(worklist []string) error {
	for _, id := range worklist {
		m := p.g.Module(id)
		if m.FixedRegion == "" {
			continue
		}
		idx, ok := p.tree.Index(m.FixedRegion)
		if !ok {
			return fmt.Errorf("module %q pinned to unknown region %q", id, m.FixedRegion)
		}
		p.place(id, idx)
	}
	return nil
}

// placeInitial seeds the remaining modules, reusing the base assignment
// where one is given and falling back to the best-fitting region.
func (p *partitioner) placeInitial(worklist []string, base Assignment) {
	for _, id := range worklist {
		if _, done := p.asg[id]; done {
			continue
		}
		if r, ok := base[id]; ok {
			p.place(id, r)
			continue
		}
		p.place(id, p.bestRegion(id, -1))
	}
}

// bestRegion picks the leaf that minimizes added cut length for the
// module, preferring regions with room. exclude skips the module's
// current region during refinement.
func (p *partitioner) bestRegion(id string, exclude int) int {
	m := p.g.Module(id)
	best, bestCost := -1, 0.0
	bestFits := false
	for i := range p.leaves {
		r := p.leaves[(i+p.scanOffset)%len(p.leaves)]
		if r == exclude {
			continue
		}
		fits := p.usage[r]+m.Area <= p.tree.Region(r).Capacity
		cost := p.cutDelta(id, r)
		switch {
		case best == -1,
			fits && !bestFits,
			fits == bestFits && cost < bestCost:
			best, bestCost, bestFits = r, cost, fits
		}
	}
	return best
}

// cutDelta is the cross-region length the module's connections would
// contribute if it sat in region r, given current placements. Unplaced
// neighbors contribute nothing.
func (p *partitioner) cutDelta(id string, r int) float64 {
	var cost float64
	for _, c := range p.g.Connections() {
		a, b := p.g.ModuleOf(c.Src), p.g.ModuleOf(c.Dst)
		var other string
		switch {
		case a == id && b != id:
			other = b
		case b == id && a != id:
			other = a
		default:
			continue
		}
		or, ok := p.asg[other]
		if !ok {
			continue
		}
		cost += float64(p.tree.Hops(r, or))
	}
	return cost
}

func (p *partitioner) place(id string, r int) {
	if prev, ok := p.asg[id]; ok {
		p.usage[prev] -= p.g.Module(id).Area
	}
	p.asg[id] = r
	p.usage[r] += p.g.Module(id).Area
}

// refine runs the bounded local search: each pass applies the single best
// improving move over the worklist; feasibility repairs (moves that cut
// overflow) always outrank pure cut-length gains.
func (p *partitioner) refine(worklist []string, maxIter int) {
	for iter := 0; iter < maxIter; iter++ {
		moved := false
		for _, id := range worklist {
			if p.locked[id] || p.g.Module(id).FixedRegion != "" {
				continue
			}
			cur := p.asg[id]
			target := p.bestMove(id, cur)
			if target == -1 {
				continue
			}
			p.place(id, target)
			moved = true
		}
		if !moved {
			return
		}
	}
}

// bestMove returns the region the module should move to, or -1 to stay.
func (p *partitioner) bestMove(id string, cur int) int {
	m := p.g.Module(id)
	curCost := p.cutDelta(id, cur)
	curOver := overAmount(p.usage[cur], p.tree.Region(cur).Capacity)

	best := -1
	bestCost := curCost
	for i := range p.leaves {
		r := p.leaves[(i+p.scanOffset)%len(p.leaves)]
		if r == cur {
			continue
		}
		newOver := overAmount(p.usage[r]+m.Area, p.tree.Region(r).Capacity)
		if curOver > 0 {
			// Region is overfull: any move that shrinks total overflow
			// is taken regardless of cut cost.
			relieved := overAmount(p.usage[cur]-m.Area, p.tree.Region(cur).Capacity)
			if relieved+newOver < curOver {
				return r
			}
			continue
		}
		if newOver > 0 {
			continue
		}
		if cost := p.cutDelta(id, r); cost < bestCost {
			best, bestCost = r, cost
		}
	}
	return best
}

// overflow sums the area beyond capacity over all leaf regions.
func (p *partitioner) overflow() float64 {
	var sum float64
	for _, r := range p.leaves {
		sum += overAmount(p.usage[r], p.tree.Region(r).Capacity)
	}
	return sum
}

func overAmount(used, capacity float64) float64 {
	if used > capacity {
		return used - capacity
	}
	return 0
}
