// Package hclcfg loads the structural design description and the search
// constraints from HCL files and translates them into the engine's
// native model: design module/connection lists, a region tree, and a
// search configuration.
package hclcfg

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/nocforge/internal/ctxlog"
	"github.com/vk/nocforge/internal/design"
	"github.com/vk/nocforge/internal/evaluate"
	"github.com/vk/nocforge/internal/floorplan"
	"github.com/vk/nocforge/internal/retime"
	"github.com/vk/nocforge/internal/search"
	"github.com/vk/nocforge/internal/topology"
)

// Defaults for parameters the constraints block leaves out. All of them
// are estimates to be tuned per target device, which is why they live in
// configuration at all.
var (
	defaultChannelWidths = []int{32, 64, 128, 256, 512}
)

const (
	defaultPerHopDelayNs = 1.0
	defaultBasePeriodNs  = 2.0
	defaultIterations    = 200
)

// Model is the fully translated input: everything the app needs to load
// the graph and run the search.
type Model struct {
	Modules     []design.Module
	Connections []design.Connection
	Tree        *floorplan.Tree
	Search      search.Config
}

// Loader reads .hcl files from files or directories.
type Loader struct{}

// NewLoader creates an HCL input loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses every .hcl file under the given paths, merges all blocks,
// and translates them. Missing paths are skipped; a design without a
// constraints block or without regions is an error.
func (l *Loader) Load(ctx context.Context, paths ...string) (*Model, error) {
	logger := ctxlog.FromContext(ctx)

	files, err := findHCLFiles(paths)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered input files.", "count", len(files))

	parser := hclparse.NewParser()
	evalCtx := evalContext()
	var merged fileRoot
	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse %s: %w", file, diags)
		}
		var root fileRoot
		if diags := gohcl.DecodeBody(hclFile.Body, evalCtx, &root); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode %s: %w", file, diags)
		}
		merged.Modules = append(merged.Modules, root.Modules...)
		merged.Connections = append(merged.Connections, root.Connections...)
		if root.Constraints != nil {
			if merged.Constraints != nil {
				return nil, fmt.Errorf("duplicate constraints block in %s", file)
			}
			merged.Constraints = root.Constraints
		}
	}

	if len(merged.Modules) == 0 {
		return nil, fmt.Errorf("no module blocks found under %v", paths)
	}
	if merged.Constraints == nil {
		return nil, fmt.Errorf("no constraints block found under %v", paths)
	}

	model, err := translate(&merged)
	if err != nil {
		return nil, err
	}
	logger.Debug("Input model translated.",
		"modules", len(model.Modules),
		"connections", len(model.Connections),
		"regions", model.Tree.Len())
	return model, nil
}

// evalContext exposes the process environment to input files as the
// `env` map, so per-machine values (seeds, budgets, tool paths) can stay
// out of checked-in designs.
func evalContext() *hcl.EvalContext {
	vars := make(map[string]cty.Value)
	for _, kv := range os.Environ() {
		if i := strings.IndexByte(kv, '='); i > 0 {
			vars[kv[:i]] = cty.StringVal(kv[i+1:])
		}
	}
	env := cty.MapValEmpty(cty.String)
	if len(vars) > 0 {
		env = cty.MapVal(vars)
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{"env": env},
	}
}

// findHCLFiles walks the given paths and returns every .hcl file once.
func findHCLFiles(paths []string) ([]string, error) {
	var files []string
	seen := make(map[string]struct{})
	add := func(p string) {
		if _, ok := seen[p]; !ok {
			files = append(files, p)
			seen[p] = struct{}{}
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}
		if !info.IsDir() {
			if filepath.Ext(path) == ".hcl" {
				add(path)
			}
			continue
		}
		err = filepath.Walk(path, func(p string, fi os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !fi.IsDir() && filepath.Ext(p) == ".hcl" {
				add(p)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

// translate converts the decoded blocks into the engine model.
func translate(root *fileRoot) (*Model, error) {
	model := &Model{}

	for _, mb := range root.Modules {
		m := design.Module{
			ID:          mb.Name,
			Area:        mb.Area,
			FixedRegion: mb.FixedRegion,
		}
		for _, pb := range mb.Ports {
			dir, err := parseDir(pb.Dir)
			if err != nil {
				return nil, fmt.Errorf("module %q port %q: %w", mb.Name, pb.Name, err)
			}
			maxLat := design.UnboundedLatency
			if pb.MaxLatency != nil {
				maxLat = *pb.MaxLatency
			}
			m.Ports = append(m.Ports, design.Port{
				ID:           mb.Name + "." + pb.Name,
				Dir:          dir,
				Width:        pb.Width,
				MaxLatency:   maxLat,
				SingleDriver: pb.SingleDriver,
				NoFeedback:   pb.NoFeedback,
			})
		}
		model.Modules = append(model.Modules, m)
	}

	for _, cb := range root.Connections {
		model.Connections = append(model.Connections, design.Connection{
			ID:    cb.Name,
			Src:   cb.Src,
			Dst:   cb.Dst,
			Width: cb.Width,
		})
	}

	tree := floorplan.NewTree()
	for _, rb := range root.Constraints.Regions {
		if _, err := tree.Add(rb.Name, rb.Capacity, rb.Parent); err != nil {
			return nil, fmt.Errorf("constraints: %w", err)
		}
	}
	if len(tree.Leaves()) == 0 {
		return nil, fmt.Errorf("constraints declare no regions")
	}
	model.Tree = tree

	cfg, err := translateSearch(root.Constraints)
	if err != nil {
		return nil, err
	}
	model.Search = cfg
	return model, nil
}

func translateSearch(cb *constraintsBlock) (search.Config, error) {
	widths := cb.ChannelWidths
	if len(widths) == 0 {
		widths = defaultChannelWidths
	}
	perHop := cb.PerHopDelayNs
	if perHop <= 0 {
		perHop = defaultPerHopDelayNs
	}
	basePeriod := cb.BasePeriodNs
	if basePeriod <= 0 {
		basePeriod = defaultBasePeriodNs
	}
	iterations := defaultIterations
	if cb.MaxIterations != nil {
		iterations = *cb.MaxIterations
	}

	var budget time.Duration
	if cb.TimeBudget != "" {
		d, err := time.ParseDuration(cb.TimeBudget)
		if err != nil {
			return search.Config{}, fmt.Errorf("invalid time_budget %q: %w", cb.TimeBudget, err)
		}
		budget = d
	}

	targetPeriod := basePeriod
	if cb.TargetMHz > 0 {
		targetPeriod = 1000 / cb.TargetMHz
	}

	table := topology.Table{
		Widths:        widths,
		CapacityMBps:  cb.ChannelCapacityMBps,
		ClockMHz:      cb.TargetMHz,
		EndpointLimit: cb.EndpointLimit,
	}
	return search.Config{
		Workers:             cb.Workers,
		BeamWidth:           cb.BeamWidth,
		StagnationLimit:     cb.StagnationLimit,
		MaxIterations:       iterations,
		TimeBudget:          budget,
		TargetMHz:           cb.TargetMHz,
		Seed:                cb.Seed,
		PartitionIterations: cb.PartitionIterations,
		Retime: retime.Config{
			PerHopDelayNs:  perHop,
			TargetPeriodNs: targetPeriod,
		},
		Eval: evaluate.Params{
			PerHopDelayNs: perHop,
			BasePeriodNs:  basePeriod,
			Table:         table,
		},
	}, nil
}

func parseDir(s string) (design.PortDir, error) {
	switch s {
	case "source":
		return design.Source, nil
	case "sink":
		return design.Sink, nil
	}
	return 0, fmt.Errorf("invalid port dir %q: must be 'source' or 'sink'", s)
}
