package app

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/vk/nocforge/internal/ctxlog"
	"github.com/vk/nocforge/internal/design"
	"github.com/vk/nocforge/internal/hclcfg"
	"github.com/vk/nocforge/internal/memcache"
	"github.com/vk/nocforge/internal/scorecache"
	"github.com/vk/nocforge/internal/search"
	"github.com/vk/nocforge/internal/sqlitecache"
	"github.com/vk/nocforge/internal/vendortool"
)

// Run loads the inputs, executes the search, renders the result, and
// optionally validates the winner with the vendor tool. Only input
// loading and graph construction errors are fatal; every search-time
// infeasibility comes back inside the result.
func (a *App) Run(ctx context.Context) (*search.Result, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	logger := a.logger

	paths := []string{a.config.DesignPath}
	if a.config.ConstraintsPath != "" {
		paths = append(paths, a.config.ConstraintsPath)
	}
	model, err := hclcfg.NewLoader().Load(ctx, paths...)
	if err != nil {
		return nil, fmt.Errorf("failed to load inputs: %w", err)
	}

	graph, err := design.Load(model.Modules, model.Connections)
	if err != nil {
		// The one fatal error kind: a malformed design aborts the run.
		return nil, err
	}
	logger.Info("Design graph loaded.",
		"modules", len(model.Modules),
		"connections", len(graph.Connections()),
		"regions", model.Tree.Len())

	cfg := model.Search
	if a.config.WorkerCount > 0 {
		cfg.Workers = a.config.WorkerCount
	}

	cache, closeCache, traceRec, err := a.openCache()
	if err != nil {
		return nil, err
	}
	defer closeCache()

	ctrl := search.New(graph, model.Tree, cfg, cache)
	if traceRec != nil {
		ctrl.SetTrace(traceRec, newRunID())
	}

	logger.Info("🚀 Starting design space exploration.",
		"iterations", cfg.MaxIterations, "target_mhz", cfg.TargetMHz)
	result, err := ctrl.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	logger.Info("🏁 Search finished.",
		"state", result.State.String(), "iterations", result.Iterations)

	a.render(model, result)

	if a.config.ValidateCmd != "" && result.Best != nil && result.Best.Reject == nil {
		oracle := vendortool.NewExecOracle(strings.Fields(a.config.ValidateCmd))
		report, err := oracle.Validate(ctx, model.Tree, result.Best)
		if err != nil {
			logger.Warn("Vendor validation failed.", "error", err)
		} else {
			fmt.Fprintf(a.outW, "vendor report: ok=%v achieved=%.1f MHz area=%.2f\n",
				report.OK, report.AchievedMHz, report.AreaUsed)
		}
	}
	return result, nil
}

// openCache picks the cache implementation: in-memory by default, the
// persistent sqlite store (which also records the search trace) when a
// path is configured.
func (a *App) openCache() (scorecache.Store, func(), search.TraceRecorder, error) {
	if a.config.CachePath == "" {
		return memcache.New(), func() {}, nil, nil
	}
	store, err := sqlitecache.Open(a.config.CachePath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open score cache: %w", err)
	}
	return store, func() { store.Close() }, store, nil
}

// render prints the human-readable result summary.
func (a *App) render(model *hclcfg.Model, result *search.Result) {
	fmt.Fprintf(a.outW, "state: %s (%s)\n", result.State, result.StagnationReason)
	fmt.Fprintf(a.outW, "iterations: %d\n", result.Iterations)
	best := result.Best
	if best == nil {
		return
	}
	fmt.Fprintf(a.outW, "score: %s\n", best.Score)
	if best.Reject != nil {
		fmt.Fprintf(a.outW, "rejected: %v\n", best.Reject)
	}
	for _, id := range best.Assignment.ModuleIDs() {
		fmt.Fprintf(a.outW, "  %s -> %s\n", id, model.Tree.Region(best.Assignment[id]).Name)
	}
	for _, c := range sortedStagedConns(best.Stages) {
		fmt.Fprintf(a.outW, "  %s: %d stages\n", c.id, c.stages)
	}
}

type stagedConn struct {
	id     string
	stages int
}

func sortedStagedConns(stages map[string]int) []stagedConn {
	var out []stagedConn
	for id, n := range stages {
		if n > 0 {
			out = append(out, stagedConn{id, n})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

func newRunID() string {
	return time.Now().UTC().Format("20060102T150405.000000000")
}
