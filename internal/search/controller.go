// Package search drives the design-space exploration: it seeds a first
// candidate through the full partition-topology-retime pipeline, then
// iterates local mutations over a bounded beam frontier until the best
// candidate converges, the budget runs out, or the caller cancels.
package search

import (
	"context"
	"fmt"
	"time"

	"github.com/vk/nocforge/internal/candidate"
	"github.com/vk/nocforge/internal/ctxlog"
	"github.com/vk/nocforge/internal/design"
	"github.com/vk/nocforge/internal/evaluate"
	"github.com/vk/nocforge/internal/floorplan"
	"github.com/vk/nocforge/internal/retime"
	"github.com/vk/nocforge/internal/scorecache"
	"github.com/vk/nocforge/internal/topology"
)

// Config tunes one search run. The zero value of MaxIterations is a
// literal zero budget: the seed candidate is scored and returned as
// Exhausted without any exploration.
type Config struct {
	Workers         int // evaluator pool size, default 4
	BeamWidth       int // frontier bound, default 4
	StagnationLimit int // non-improving iterations before a lineage stops, default 8

	MaxIterations int           // iteration budget
	TimeBudget    time.Duration // wall-clock budget, 0 = unlimited
	TargetMHz     float64       // explicit frequency target, 0 = none
	Seed          int64

	PartitionIterations int // per-Propose local search bound
	PartitionRestarts   int // reseeded restarts on infeasibility, default 3

	Retime retime.Config
	Eval   evaluate.Params
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.BeamWidth <= 0 {
		c.BeamWidth = 4
	}
	if c.StagnationLimit <= 0 {
		c.StagnationLimit = 8
	}
	if c.PartitionRestarts <= 0 {
		c.PartitionRestarts = 3
	}
	return c
}

// TraceRecorder persists per-iteration trace rows. The sqlite cache
// implements it; a nil recorder keeps the trace in memory only.
type TraceRecorder interface {
	RecordIteration(ctx context.Context, runID string, iteration int, best candidate.Score, evaluated, rejected int) error
}

// Controller owns the frontier and runs the search loop. The frontier is
// an explicit value threaded through iterations and is only ever touched
// by Run's goroutine; workers see nothing but immutable candidates.
type Controller struct {
	graph *design.Graph
	tree  *floorplan.Tree
	cfg   Config
	cache scorecache.Store

	trace TraceRecorder
	runID string
}

// New builds a controller over an immutable graph and region tree. The
// cache is injected so callers choose between the in-memory and the
// persistent implementation.
func New(g *design.Graph, tree *floorplan.Tree, cfg Config, cache scorecache.Store) *Controller {
	return &Controller{graph: g, tree: tree, cfg: cfg.withDefaults(), cache: cache}
}

// SetTrace attaches a trace recorder for the given run identifier.
func (c *Controller) SetTrace(rec TraceRecorder, runID string) {
	c.trace = rec
	c.runID = runID
}

// lineage is one frontier entry: a candidate plus how many of its
// expansions failed to improve on it.
type lineage struct {
	cand  *candidate.Candidate
	stale int
}

// Run executes the state machine Init -> Exploring -> terminal state.
// The returned error is non-nil only for malfunctions; every search-time
// infeasibility is carried in the result's score.
func (c *Controller) Run(ctx context.Context) (*Result, error) {
	logger := ctxlog.FromContext(ctx)
	start := time.Now()

	logger.Info("Seeding initial candidate.", "seed", c.cfg.Seed)
	seed := c.seedCandidate(ctx)
	if seed.Reject != nil {
		logger.Warn("Seed candidate infeasible.", "reason", seed.Reject)
	}

	res := &Result{Best: seed, State: Exploring}
	frontier := []*lineage{{cand: seed}}
	bestStale := 0

	for {
		switch {
		case ctx.Err() != nil:
			res.State = Aborted
			res.StagnationReason = "cancellation requested"
			logger.Warn("Search aborted, returning best so far.", "iterations", res.Iterations)
			return res, nil
		case res.Iterations >= c.cfg.MaxIterations:
			res.State = Exhausted
			res.StagnationReason = "iteration budget spent"
			return res, nil
		case c.cfg.TimeBudget > 0 && time.Since(start) >= c.cfg.TimeBudget:
			res.State = Exhausted
			res.StagnationReason = "time budget spent"
			return res, nil
		case c.targetMet(res.Best):
			res.State = Converged
			res.StagnationReason = "frequency target met"
			return res, nil
		case res.Best.Score.Feasible && bestStale >= c.cfg.StagnationLimit:
			res.State = Converged
			res.StagnationReason = fmt.Sprintf("no improvement for %d iterations", bestStale)
			return res, nil
		case len(frontier) == 0:
			// Every lineage stagnated before the budget ran out.
			if res.Best.Score.Feasible {
				res.State = Converged
				res.StagnationReason = "all lineages stagnated"
			} else {
				res.State = Exhausted
				res.StagnationReason = "all lineages stagnated without feasibility"
			}
			return res, nil
		}

		base := pickLineage(frontier)
		muts := c.mutations(base.cand, res.Iterations)
		scored := c.evaluateAll(ctx, muts)

		evaluated, rejectedCount := len(scored), 0
		improvedBase := false
		for _, m := range scored {
			if m.Reject != nil {
				rejectedCount++
				logger.Debug("Candidate rejected.", "reason", m.Reject)
				continue
			}
			if m.Score.Better(base.cand.Score) {
				improvedBase = true
			}
			frontier = fold(frontier, m, c.cfg.BeamWidth)
		}
		if !improvedBase {
			base.stale++
		}
		frontier = prune(frontier, c.cfg.StagnationLimit)

		if top := frontierBest(frontier); top != nil && top.Score.Better(res.Best.Score) {
			res.Best = top
			bestStale = 0
			logger.Info("New best candidate.", "iteration", res.Iterations, "score", top.Score.String())
		} else {
			bestStale++
		}

		res.Iterations++
		res.Trace = append(res.Trace, IterationStats{
			Iteration: res.Iterations,
			Best:      res.Best.Score,
			Evaluated: evaluated,
			Rejected:  rejectedCount,
		})
		if c.trace != nil {
			if err := c.trace.RecordIteration(ctx, c.runID, res.Iterations, res.Best.Score, evaluated, rejectedCount); err != nil {
				logger.Warn("Failed to record search trace.", "error", err)
			}
		}
	}
}

func (c *Controller) targetMet(best *candidate.Candidate) bool {
	return c.cfg.TargetMHz > 0 && best.Score.Feasible && best.Score.FrequencyMHz >= c.cfg.TargetMHz
}

// seedCandidate runs the full partition -> topology -> retime pipeline,
// restarting the partitioner with derived seeds while it reports
// infeasibility. The last best-effort assignment still becomes a scored
// (infeasible) candidate so the run always has something to return.
func (c *Controller) seedCandidate(ctx context.Context) *candidate.Candidate {
	var (
		asg floorplan.Assignment
		err error
	)
	for attempt := 0; attempt < c.cfg.PartitionRestarts; attempt++ {
		asg, err = floorplan.Propose(c.graph, c.tree, floorplan.Options{
			MaxIterations: c.cfg.PartitionIterations,
			Seed:          c.cfg.Seed + int64(attempt)*1009,
		})
		if err == nil {
			break
		}
		if asg == nil {
			// Structural failure (no leaf regions, unknown pinned
			// region): nothing to explore from.
			return &candidate.Candidate{Reject: err, Score: evaluate.ScoreReject(err)}
		}
	}
	if err != nil {
		return &candidate.Candidate{Assignment: asg, Reject: err, Score: evaluate.ScoreReject(err)}
	}
	return c.build(ctx, asg, nil)
}

// build completes a candidate from an assignment: synthesize the
// interconnect, retime it, evaluate through the cache. Construction
// failures become rejected candidates, not errors.
func (c *Controller) build(ctx context.Context, asg floorplan.Assignment, extraStages map[string]int) *candidate.Candidate {
	plan, err := topology.Synthesize(c.graph, c.tree, asg, c.cfg.Eval.Table)
	if err != nil {
		return &candidate.Candidate{Assignment: asg, Reject: err, Score: evaluate.ScoreReject(err)}
	}
	stages, err := retime.Retime(c.graph, plan, c.cfg.Retime, extraStages)
	if err != nil {
		return &candidate.Candidate{Assignment: asg, Plan: plan, Reject: err, Score: evaluate.ScoreReject(err)}
	}
	cand := &candidate.Candidate{Assignment: asg, Stages: stages, Plan: plan}
	return c.score(ctx, cand)
}

// score evaluates a complete candidate through the cache, falling back
// to a direct evaluation when the store misbehaves.
func (c *Controller) score(ctx context.Context, cand *candidate.Candidate) *candidate.Candidate {
	s, err := evaluate.Cached(ctx, c.cache, c.graph, c.tree, cand, c.cfg.Eval)
	if err != nil {
		ctxlog.FromContext(ctx).Warn("Score cache unavailable, evaluating directly.", "error", err)
		s = evaluate.Evaluate(c.graph, c.tree, cand, c.cfg.Eval)
	}
	return cand.WithScore(s)
}

// pickLineage returns the best-scoring frontier entry.
func pickLineage(frontier []*lineage) *lineage {
	best := frontier[0]
	for _, l := range frontier[1:] {
		if l.cand.Score.Better(best.cand.Score) {
			best = l
		}
	}
	return best
}

// fold inserts a candidate into the frontier, keeping it bounded by the
// beam width and sorted-by-construction: the worst entry falls off.
func fold(frontier []*lineage, cand *candidate.Candidate, beam int) []*lineage {
	for _, l := range frontier {
		if l.cand.Key() == cand.Key() {
			return frontier // already represented
		}
	}
	frontier = append(frontier, &lineage{cand: cand})
	if len(frontier) <= beam {
		return frontier
	}
	worst := 0
	for i, l := range frontier {
		if frontier[worst].cand.Score.Better(l.cand.Score) {
			worst = i
		}
	}
	return append(frontier[:worst], frontier[worst+1:]...)
}

// prune drops lineages that stopped improving.
func prune(frontier []*lineage, stagnationLimit int) []*lineage {
	out := frontier[:0]
	for _, l := range frontier {
		if l.stale < stagnationLimit {
			out = append(out, l)
		}
	}
	return out
}

func frontierBest(frontier []*lineage) *candidate.Candidate {
	if len(frontier) == 0 {
		return nil
	}
	return pickLineage(frontier).cand
}
