// Package evaluate scores complete candidates with analytic models: area
// utilization, an estimated clock frequency from the critical path, and
// channel congestion. Evaluation is a pure function of the candidate, so
// results are cached behind a content-hash key in an injected store.
package evaluate

import (
	"context"
	"errors"

	"github.com/vk/nocforge/internal/candidate"
	"github.com/vk/nocforge/internal/design"
	"github.com/vk/nocforge/internal/floorplan"
	"github.com/vk/nocforge/internal/retime"
	"github.com/vk/nocforge/internal/scorecache"
	"github.com/vk/nocforge/internal/topology"
)

// Params holds the analytic delay and bandwidth model.
type Params struct {
	// PerHopDelayNs is the routing delay one unabsorbed NoC hop adds.
	PerHopDelayNs float64
	// BasePeriodNs is the intra-module critical path, the clock period
	// floor even when every route is fully pipelined.
	BasePeriodNs float64
	// Table is the channel capacity table used for congestion ratios.
	Table topology.Table
}

// Evaluate scores a fully constructed candidate. Deterministic and pure:
// the same (assignment, stages) pair always yields a bit-identical score.
func Evaluate(g *design.Graph, tree *floorplan.Tree, cand *candidate.Candidate, p Params) candidate.Score {
	return candidate.Score{
		Feasible:     true,
		FrequencyMHz: estimateFrequency(g, cand, p),
		AreaUtil:     areaUtil(g, tree),
		Congestion:   congestion(cand.Plan, p.Table),
	}
}

// ScoreReject converts a candidate-construction failure into an
// infeasible score whose violation magnitude ranks how far from legal
// the candidate was. Least violation wins among infeasible candidates.
func ScoreReject(err error) candidate.Score {
	s := candidate.Score{Feasible: false, Violation: 1}
	var part *floorplan.InfeasiblePartitionError
	if errors.As(err, &part) {
		s.Violation = part.Overflow
		return s
	}
	var timing *retime.TimingInfeasibleError
	if errors.As(err, &timing) {
		s.Violation = float64(timing.Need - timing.Limit)
		return s
	}
	return s
}

// Cached wraps Evaluate with the injected store under a get-or-compute
// discipline. Concurrent misses for the same key may both compute; the
// redundant Put writes an identical value, so no locking is needed
// around the compute itself.
func Cached(ctx context.Context, store scorecache.Store, g *design.Graph, tree *floorplan.Tree, cand *candidate.Candidate, p Params) (candidate.Score, error) {
	key := cand.Key()
	if score, ok, err := store.Get(ctx, key); err != nil {
		return candidate.Score{}, err
	} else if ok {
		return score, nil
	}
	score := Evaluate(g, tree, cand, p)
	if err := store.Put(ctx, key, score); err != nil {
		return candidate.Score{}, err
	}
	return score, nil
}

// areaUtil is the sum of placed module areas over total leaf capacity.
func areaUtil(g *design.Graph, tree *floorplan.Tree) float64 {
	capacity := tree.LeafCapacity()
	if capacity <= 0 {
		return 0
	}
	var used float64
	for _, id := range g.ModuleIDs() {
		used += g.Module(id).Area
	}
	return used / capacity
}

// estimateFrequency derives the clock estimate from the slowest
// register-to-register segment: each connection contributes its hop count
// minus inserted stages (clamped at zero, since stages absorb delay)
// times the per-hop delay on top of the base period.
func estimateFrequency(g *design.Graph, cand *candidate.Candidate, p Params) float64 {
	worst := 0.0
	for _, c := range g.Connections() {
		hops := cand.Plan.Hops(c.ID)
		net := hops - cand.Stages[c.ID]
		if net < 0 {
			net = 0
		}
		if d := float64(net) * p.PerHopDelayNs; d > worst {
			worst = d
		}
	}
	period := p.BasePeriodNs + worst
	if period <= 0 {
		return 0
	}
	return 1000 / period
}

// congestion is the highest channel utilization ratio in the plan.
func congestion(plan *topology.Plan, table topology.Table) float64 {
	worst := 0.0
	for _, u := range plan.Utilization(table) {
		if u > worst {
			worst = u
		}
	}
	return worst
}
