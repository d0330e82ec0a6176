// Package topology derives the NoC interconnect plan for a partitioned
// design: one routed channel per cross-region connection, with widths
// quantized to the supported channel sizes and compatible connections
// multiplexed onto shared channels.
package topology

import (
	"fmt"
	"sort"

	"github.com/vk/nocforge/internal/design"
	"github.com/vk/nocforge/internal/floorplan"
)

// Table describes the channel resources the target device offers.
type Table struct {
	// Widths lists the supported channel data widths in bits, ascending.
	Widths []int
	// CapacityMBps is the bandwidth one channel can carry. Zero disables
	// multiplexing capacity checks (every connection gets its own channel).
	CapacityMBps float64
	// ClockMHz converts a connection's width into its bandwidth demand.
	ClockMHz float64
	// EndpointLimit caps how many channels may originate from or
	// terminate in one region. Zero means unlimited.
	EndpointLimit int
}

// UnroutableError reports a plan that over-subscribes the channel
// resources. Like partition infeasibility it rejects one candidate and
// never aborts the search.
type UnroutableError struct {
	Reason string
}

// Error implements the error interface.
func (e *UnroutableError) Error() string {
	return "unroutable topology: " + e.Reason
}

// Channel is one NoC channel in a plan. Connections share a channel only
// when their combined bandwidth fits and their latency classes agree.
type Channel struct {
	ID       string
	Src, Dst int   // region arena indices
	Route    []int // region index path through the hierarchy
	Hops     int
	Width    int // quantized, bits
	LoadMBps float64
	Conns    []string // connection IDs carried, deterministic order

	// fixedLatency is the single exact stage count required by any
	// fixed-latency sink on this channel, or design.UnboundedLatency.
	fixedLatency int
}

// Plan maps every cross-region connection to its channel.
type Plan struct {
	Channels []*Channel
	ByConn   map[string]*Channel
}

// Hops returns the hop count for a connection, zero for same-region ones.
func (p *Plan) Hops(connID string) int {
	if ch, ok := p.ByConn[connID]; ok {
		return ch.Hops
	}
	return 0
}

// Utilization returns each channel's load over capacity. With capacity
// checks disabled it reports zero for every channel.
func (p *Plan) Utilization(table Table) []float64 {
	out := make([]float64, len(p.Channels))
	if table.CapacityMBps <= 0 {
		return out
	}
	for i, ch := range p.Channels {
		out[i] = ch.LoadMBps / table.CapacityMBps
	}
	return out
}

// RoundUpWidth quantizes a connection width to the nearest supported
// channel width. Widths beyond the largest entry are unroutable.
func RoundUpWidth(width int, table Table) (int, error) {
	for _, w := range table.Widths {
		if width <= w {
			return w, nil
		}
	}
	return 0, &UnroutableError{Reason: fmt.Sprintf(
		"width %d exceeds largest channel width %d", width, maxWidth(table))}
}

func maxWidth(table Table) int {
	if len(table.Widths) == 0 {
		return 0
	}
	return table.Widths[len(table.Widths)-1]
}

// Synthesize builds the interconnect plan for one region assignment. The
// result is a pure function of (graph, tree, assignment, table): channels
// are packed in connection-ID order per region pair, so the same inputs
// always produce the same plan.
func Synthesize(g *design.Graph, tree *floorplan.Tree, asg floorplan.Assignment, table Table) (*Plan, error) {
	// Group cross-region connections by ordered region pair.
	type pair struct{ src, dst int }
	groups := make(map[pair][]*design.Connection)
	for _, c := range g.Connections() {
		src, srcOK := asg[g.ModuleOf(c.Src)]
		dst, dstOK := asg[g.ModuleOf(c.Dst)]
		if !srcOK || !dstOK {
			return nil, fmt.Errorf("connection %q endpoint missing from assignment", c.ID)
		}
		if src == dst {
			continue
		}
		groups[pair{src, dst}] = append(groups[pair{src, dst}], c)
	}

	pairs := make([]pair, 0, len(groups))
	for pr := range groups {
		pairs = append(pairs, pr)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].src != pairs[j].src {
			return pairs[i].src < pairs[j].src
		}
		return pairs[i].dst < pairs[j].dst
	})

	plan := &Plan{ByConn: make(map[string]*Channel)}
	for _, pr := range pairs {
		conns := groups[pr]
		sort.Slice(conns, func(i, j int) bool { return conns[i].ID < conns[j].ID })

		route := tree.Route(pr.src, pr.dst)
		hops := tree.Hops(pr.src, pr.dst)

		var open []*Channel
		for _, c := range conns {
			w, err := RoundUpWidth(c.Width, table)
			if err != nil {
				return nil, err
			}
			demand := bandwidthMBps(w, table.ClockMHz)
			lat := sinkLatency(g, c)

			ch := firstFit(open, table, demand, lat)
			if ch == nil {
				ch = &Channel{
					ID:           fmt.Sprintf("%s->%s#%d", tree.Region(pr.src).Name, tree.Region(pr.dst).Name, len(open)),
					Src:          pr.src,
					Dst:          pr.dst,
					Route:        route,
					Hops:         hops,
					fixedLatency: design.UnboundedLatency,
				}
				open = append(open, ch)
				plan.Channels = append(plan.Channels, ch)
			}
			ch.Conns = append(ch.Conns, c.ID)
			ch.LoadMBps += demand
			if w > ch.Width {
				ch.Width = w
			}
			if lat != design.UnboundedLatency {
				ch.fixedLatency = lat
			}
			plan.ByConn[c.ID] = ch
		}
	}

	if err := checkEndpoints(plan, tree, table); err != nil {
		return nil, err
	}
	return plan, nil
}

// firstFit returns the first open channel that can absorb the connection,
// or nil when a fresh channel is needed. Sharing is refused when capacity
// would overflow or when two fixed-latency sinks disagree on the exact
// stage count a shared ordered channel must provide.
func firstFit(open []*Channel, table Table, demand float64, lat int) *Channel {
	if table.CapacityMBps <= 0 {
		return nil
	}
	for _, ch := range open {
		if ch.LoadMBps+demand > table.CapacityMBps {
			continue
		}
		if lat != design.UnboundedLatency &&
			ch.fixedLatency != design.UnboundedLatency &&
			ch.fixedLatency != lat {
			continue
		}
		return ch
	}
	return nil
}

// checkEndpoints enforces the per-region channel endpoint budget, the
// analogue of a slot's limited NoC master/slave units.
func checkEndpoints(plan *Plan, tree *floorplan.Tree, table Table) error {
	if table.EndpointLimit <= 0 {
		return nil
	}
	egress := make(map[int]int)
	ingress := make(map[int]int)
	for _, ch := range plan.Channels {
		egress[ch.Src]++
		ingress[ch.Dst]++
	}
	for r, n := range egress {
		if n > table.EndpointLimit {
			return &UnroutableError{Reason: fmt.Sprintf(
				"region %s needs %d egress endpoints, limit %d", tree.Region(r).Name, n, table.EndpointLimit)}
		}
	}
	for r, n := range ingress {
		if n > table.EndpointLimit {
			return &UnroutableError{Reason: fmt.Sprintf(
				"region %s needs %d ingress endpoints, limit %d", tree.Region(r).Name, n, table.EndpointLimit)}
		}
	}
	return nil
}

// sinkLatency returns the exact stage count the connection's sink port
// demands, or design.UnboundedLatency.
func sinkLatency(g *design.Graph, c *design.Connection) int {
	if p := g.Port(c.Dst); p != nil && p.FixedLatency() {
		return p.MaxLatency
	}
	return design.UnboundedLatency
}

// bandwidthMBps converts a channel width at the given clock into MB/s.
func bandwidthMBps(widthBits int, clockMHz float64) float64 {
	return float64(widthBits) / 8 * clockMHz
}
