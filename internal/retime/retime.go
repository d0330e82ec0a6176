// Package retime computes per-connection pipeline stage counts for a
// topology plan. Stages absorb routing delay on long or cross-region
// connections; ports that need fixed-cycle responses clamp their
// connection to an exact depth.
package retime

import (
	"fmt"
	"math"

	"github.com/vk/nocforge/internal/design"
	"github.com/vk/nocforge/internal/topology"
)

// Config holds the empirical delay model. Stage counts are derived from
// hop counts, so both constants stay configurable rather than baked in.
type Config struct {
	// PerHopDelayNs is the routing delay one NoC hop contributes.
	PerHopDelayNs float64
	// TargetPeriodNs is the clock period the plan must close.
	TargetPeriodNs float64
}

// TimingInfeasibleError reports a connection whose sink port clamps the
// stage count below the computed minimum. It marks one candidate
// infeasible; the search continues with alternative assignments.
type TimingInfeasibleError struct {
	Connection string
	Need       int // minimum stages the route demands
	Limit      int // exact stages the sink port allows
}

// Error implements the error interface.
func (e *TimingInfeasibleError) Error() string {
	return fmt.Sprintf("connection %q needs %d pipeline stages but its sink allows exactly %d",
		e.Connection, e.Need, e.Limit)
}

// MinStages returns the stage count a route of the given hop count
// requires under the delay model.
func MinStages(hops int, cfg Config) int {
	if hops <= 0 || cfg.TargetPeriodNs <= 0 {
		return 0
	}
	return int(math.Ceil(float64(hops) * cfg.PerHopDelayNs / cfg.TargetPeriodNs))
}

// Retime assigns a stage count to every connection in the graph. Cross-
// region connections get the minimum their hop count demands; same-region
// connections stay at zero. extra carries incremental stages requested by
// the evaluator feedback loop (or a search mutation) on top of the
// minimum; it never overrides a clamp and never drives a count negative.
func Retime(g *design.Graph, plan *topology.Plan, cfg Config, extra map[string]int) (map[string]int, error) {
	stages := make(map[string]int, len(g.Connections()))
	for _, c := range g.Connections() {
		min := MinStages(plan.Hops(c.ID), cfg)
		n := min + extra[c.ID]
		if n < min {
			n = min
		}
		if n < 0 {
			n = 0
		}

		if sink := g.Port(c.Dst); sink != nil && sink.FixedLatency() {
			if min > sink.MaxLatency {
				return nil, &TimingInfeasibleError{Connection: c.ID, Need: min, Limit: sink.MaxLatency}
			}
			n = sink.MaxLatency
		}
		stages[c.ID] = n
	}
	return stages, nil
}
