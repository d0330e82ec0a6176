// Package candidate defines the immutable configuration snapshots the
// search explores: a region assignment plus a pipeline plan, with the
// derived score. Candidates are never mutated in place; every variation
// is produced by copy-with-modification, which keeps concurrent
// evaluation safe and runs reproducible.
package candidate

import (
	"fmt"
	"hash/fnv"
	"sort"

	"github.com/vk/nocforge/internal/floorplan"
	"github.com/vk/nocforge/internal/topology"
)

// Candidate is one complete, scorable configuration. Reject is non-nil
// when construction itself failed (partition or timing infeasibility);
// such candidates are logged and kept out of the frontier.
type Candidate struct {
	Assignment floorplan.Assignment
	Stages     map[string]int // connection ID -> pipeline stage count
	Plan       *topology.Plan // nil when topology synthesis was rejected
	Score      Score
	Reject     error
}

// WithScore returns a copy carrying the given score.
func (c *Candidate) WithScore(s Score) *Candidate {
	out := *c
	out.Score = s
	return &out
}

// WithMove returns a copy with one module reassigned. Plan, stages and
// score are cleared: the controller re-synthesizes them for the new
// assignment.
func (c *Candidate) WithMove(moduleID string, region int) *Candidate {
	asg := c.Assignment.Clone()
	asg[moduleID] = region
	return &Candidate{Assignment: asg}
}

// WithStageDelta returns a copy with one connection's stage count nudged
// by delta, floored at zero. The assignment and plan are shared; only the
// stages map is copied.
func (c *Candidate) WithStageDelta(connID string, delta int) *Candidate {
	stages := make(map[string]int, len(c.Stages))
	for k, v := range c.Stages {
		stages[k] = v
	}
	if n := stages[connID] + delta; n >= 0 {
		stages[connID] = n
	}
	return &Candidate{Assignment: c.Assignment, Stages: stages, Plan: c.Plan}
}

// Key is the content hash of the (assignment, pipeline-plan) pair, used
// to cache evaluation results. Identical configurations always hash to
// the same key regardless of construction order.
func (c *Candidate) Key() uint64 {
	h := fnv.New64a()
	for _, id := range c.Assignment.ModuleIDs() {
		fmt.Fprintf(h, "m:%s=%d;", id, c.Assignment[id])
	}
	connIDs := make([]string, 0, len(c.Stages))
	for id := range c.Stages {
		connIDs = append(connIDs, id)
	}
	sort.Strings(connIDs)
	for _, id := range connIDs {
		fmt.Fprintf(h, "c:%s=%d;", id, c.Stages[id])
	}
	return h.Sum64()
}
