// Package testutil holds helpers shared by the package tests: a silent
// context logger, a thread-safe log buffer, and builders for the small
// reference designs the engine tests exercise.
package testutil

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/nocforge/internal/ctxlog"
	"github.com/vk/nocforge/internal/design"
	"github.com/vk/nocforge/internal/floorplan"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// Context returns a context carrying a logger that records into the
// returned buffer, so tests can assert on log output without noise on
// stderr.
func Context(t *testing.T) (context.Context, *SafeBuffer) {
	t.Helper()
	buf := &SafeBuffer{}
	logger := slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return ctxlog.WithLogger(context.Background(), logger), buf
}

// RingDesign builds the standard four-module ring: each module has one
// source and one sink port, one area unit, connections m0->m1->m2->m3->m0.
func RingDesign(t *testing.T) *design.Graph {
	t.Helper()
	modules := make([]design.Module, 4)
	for i := range modules {
		id := ringName(i)
		modules[i] = design.Module{
			ID:   id,
			Area: 1,
			Ports: []design.Port{
				{ID: id + ".out", Dir: design.Source, Width: 64, MaxLatency: design.UnboundedLatency},
				{ID: id + ".in", Dir: design.Sink, Width: 64, MaxLatency: design.UnboundedLatency, SingleDriver: true},
			},
		}
	}
	conns := make([]design.Connection, 4)
	for i := range conns {
		conns[i] = design.Connection{
			ID:    ringName(i) + "_to_" + ringName((i+1)%4),
			Src:   ringName(i) + ".out",
			Dst:   ringName((i+1)%4) + ".in",
			Width: 64,
		}
	}
	g, err := design.Load(modules, conns)
	require.NoError(t, err)
	return g
}

func ringName(i int) string {
	return string(rune('a'+i)) + "_mod"
}

// TwoRegionTree builds a root with two leaf slots of the given capacity.
func TwoRegionTree(t *testing.T, capacity float64) *floorplan.Tree {
	t.Helper()
	tree := floorplan.NewTree()
	_, err := tree.Add("top", 0, "")
	require.NoError(t, err)
	_, err = tree.Add("SLOT_X0Y0", capacity, "top")
	require.NoError(t, err)
	_, err = tree.Add("SLOT_X1Y0", capacity, "top")
	require.NoError(t, err)
	return tree
}
