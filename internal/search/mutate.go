package search

import (
	"context"
	"math/rand"

	"github.com/vk/nocforge/internal/candidate"
	"github.com/vk/nocforge/internal/evaluate"
	"github.com/vk/nocforge/internal/floorplan"
)

// Sampling bounds per iteration. A mutation set has to stay small enough
// that one iteration remains cheap, yet varied enough that the beam does
// not tunnel on a single move kind.
const (
	moveSample  = 4
	stageSample = 4
)

// mutation lazily builds one candidate variation. Workers execute the
// closure, so the expensive re-partition/re-synthesize work runs inside
// the evaluation pool.
type mutation func(ctx context.Context) *candidate.Candidate

// mutations derives the local variations of a base candidate: move one
// module to a different region (locked re-partition around it, then a
// fresh topology and retiming), and nudge one connection's pipeline
// depth by one stage. Deterministic per (seed, iteration).
func (c *Controller) mutations(base *candidate.Candidate, iteration int) []mutation {
	rng := rand.New(rand.NewSource(c.cfg.Seed ^ int64(iteration)*7919))
	muts := c.moveMutations(base, rng)
	return append(muts, c.stageMutations(base, rng)...)
}

func (c *Controller) moveMutations(base *candidate.Candidate, rng *rand.Rand) []mutation {
	if base.Assignment == nil {
		return nil
	}
	leaves := c.tree.Leaves()
	if len(leaves) < 2 {
		return nil
	}

	var movable []string
	for _, id := range c.graph.ModuleIDs() {
		if c.graph.Module(id).FixedRegion == "" {
			movable = append(movable, id)
		}
	}
	rng.Shuffle(len(movable), func(i, j int) { movable[i], movable[j] = movable[j], movable[i] })
	if len(movable) > moveSample {
		movable = movable[:moveSample]
	}

	var muts []mutation
	for _, id := range movable {
		target := leaves[rng.Intn(len(leaves))]
		if target == base.Assignment[id] {
			target = leaves[(indexOf(leaves, target)+1)%len(leaves)]
		}
		moved := base.WithMove(id, target)
		lockedID := id
		muts = append(muts, func(ctx context.Context) *candidate.Candidate {
			// Re-partition around the forced move so the rest of the
			// design can follow it, then rebuild topology and retiming.
			asg, err := floorplan.Propose(c.graph, c.tree, floorplan.Options{
				MaxIterations: c.cfg.PartitionIterations,
				Seed:          c.cfg.Seed,
				Base:          moved.Assignment,
				Locked:        map[string]bool{lockedID: true},
			})
			if err != nil {
				return &candidate.Candidate{Assignment: asg, Reject: err, Score: evaluate.ScoreReject(err)}
			}
			return c.build(ctx, asg, nil)
		})
	}
	return muts
}

func (c *Controller) stageMutations(base *candidate.Candidate, rng *rand.Rand) []mutation {
	if base.Stages == nil || base.Plan == nil {
		return nil
	}
	conns := c.graph.Connections()
	var muts []mutation
	for _, i := range rng.Perm(len(conns)) {
		if len(muts) >= stageSample {
			break
		}
		conn := conns[i]
		if sink := c.graph.Port(conn.Dst); sink != nil && sink.FixedLatency() {
			continue // clamped, never mutated
		}
		delta := +1
		if base.Stages[conn.ID] > 0 && rng.Intn(2) == 0 {
			delta = -1
		}
		next := base.WithStageDelta(conn.ID, delta)
		muts = append(muts, func(ctx context.Context) *candidate.Candidate {
			return c.score(ctx, next)
		})
	}
	return muts
}

func indexOf(s []int, v int) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return 0
}
