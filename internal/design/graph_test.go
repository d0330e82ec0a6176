package design

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoModules() []Module {
	return []Module{
		{
			ID:   "alpha",
			Area: 1,
			Ports: []Port{
				{ID: "alpha.out", Dir: Source, Width: 64, MaxLatency: UnboundedLatency},
				{ID: "alpha.in", Dir: Sink, Width: 64, MaxLatency: UnboundedLatency, SingleDriver: true},
			},
		},
		{
			ID:   "beta",
			Area: 2,
			Ports: []Port{
				{ID: "beta.out", Dir: Source, Width: 32, MaxLatency: UnboundedLatency},
				{ID: "beta.in", Dir: Sink, Width: 64, MaxLatency: UnboundedLatency, SingleDriver: true},
			},
		},
	}
}

func TestLoadValidGraph(t *testing.T) {
	g, err := Load(twoModules(), []Connection{
		{ID: "a_to_b", Src: "alpha.out", Dst: "beta.in", Width: 64},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"alpha", "beta"}, g.ModuleIDs())
	assert.Equal(t, "alpha", g.ModuleOf("alpha.out"))
	assert.Equal(t, []string{"beta"}, g.Neighbors("alpha"))
	assert.Equal(t, 1, g.Connectivity("alpha"))
}

// TestLoadDetachesFromCallerMemory pins the immutability contract: the
// graph must not alias the caller's port slices, in either direction.
func TestLoadDetachesFromCallerMemory(t *testing.T) {
	modules := twoModules()
	g, err := Load(modules, []Connection{
		{ID: "a_to_b", Src: "alpha.out", Dst: "beta.in", Width: 64},
	})
	require.NoError(t, err)

	// Load's bookkeeping never writes back into the caller's slice.
	assert.Empty(t, modules[0].Ports[0].Module)

	// Caller mutations after Load never reach the graph.
	modules[0].Ports[0].Width = 1
	modules[0].Ports[1].SingleDriver = false
	assert.Equal(t, 64, g.Port("alpha.out").Width)
	assert.True(t, g.Port("alpha.in").SingleDriver)
}

func TestLoadRejectsUnknownPort(t *testing.T) {
	_, err := Load(twoModules(), []Connection{
		{ID: "bad", Src: "alpha.out", Dst: "gamma.in", Width: 64},
	})
	require.Error(t, err)

	var malformed *MalformedGraphError
	require.ErrorAs(t, err, &malformed)
	assert.Contains(t, malformed.Reason, "unknown sink port")
}

func TestLoadRejectsDoubleDrivenSingleDriverPort(t *testing.T) {
	_, err := Load(twoModules(), []Connection{
		{ID: "first", Src: "alpha.out", Dst: "beta.in", Width: 64},
		{ID: "second", Src: "beta.out", Dst: "beta.in", Width: 32},
	})
	require.Error(t, err)

	var malformed *MalformedGraphError
	require.ErrorAs(t, err, &malformed)
	assert.Contains(t, malformed.Reason, "single-driver")
}

func TestLoadRejectsNoFeedbackCycle(t *testing.T) {
	modules := twoModules()
	for i := range modules {
		for j := range modules[i].Ports {
			modules[i].Ports[j].NoFeedback = true
		}
	}
	_, err := Load(modules, []Connection{
		{ID: "a_to_b", Src: "alpha.out", Dst: "beta.in", Width: 64},
		{ID: "b_to_a", Src: "beta.out", Dst: "alpha.in", Width: 32},
	})
	require.Error(t, err)

	var malformed *MalformedGraphError
	require.ErrorAs(t, err, &malformed)
	assert.Contains(t, malformed.Reason, "cycle")
}

func TestFeedbackTolerantCycleIsLegal(t *testing.T) {
	// The same ring is fine when the ports tolerate feedback: handshake
	// and credit loops are ordinary hardware.
	_, err := Load(twoModules(), []Connection{
		{ID: "a_to_b", Src: "alpha.out", Dst: "beta.in", Width: 64},
		{ID: "b_to_a", Src: "beta.out", Dst: "alpha.in", Width: 32},
	})
	assert.NoError(t, err)
}

// TestFanOutEnumeratesEachConnectionOnce pins the traversal contract:
// every declared connection appears exactly once in its source port's
// fan-out enumeration.
func TestFanOutEnumeratesEachConnectionOnce(t *testing.T) {
	conns := []Connection{
		{ID: "a_to_b", Src: "alpha.out", Dst: "beta.in", Width: 64},
		{ID: "b_to_a", Src: "beta.out", Dst: "alpha.in", Width: 32},
	}
	g, err := Load(twoModules(), conns)
	require.NoError(t, err)

	seen := make(map[string]int)
	for _, m := range g.ModuleIDs() {
		for _, p := range g.Module(m).Ports {
			for _, c := range g.FanOut(p.ID) {
				seen[c.ID]++
			}
		}
	}
	require.Len(t, seen, len(conns))
	for _, c := range conns {
		assert.Equal(t, 1, seen[c.ID], "connection %s", c.ID)
	}
}

func TestTopoOrder(t *testing.T) {
	g, err := Load(twoModules(), []Connection{
		{ID: "a_to_b", Src: "alpha.out", Dst: "beta.in", Width: 64},
	})
	require.NoError(t, err)

	order, err := g.TopoOrder()
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta"}, order)
}

func TestTopoOrderFailsOnCycle(t *testing.T) {
	g, err := Load(twoModules(), []Connection{
		{ID: "a_to_b", Src: "alpha.out", Dst: "beta.in", Width: 64},
		{ID: "b_to_a", Src: "beta.out", Dst: "alpha.in", Width: 32},
	})
	require.NoError(t, err)

	_, err = g.TopoOrder()
	assert.Error(t, err)
}

func TestLoadRejectsDuplicateModule(t *testing.T) {
	mods := twoModules()
	mods[1].ID = "alpha"
	mods[1].Ports = nil
	_, err := Load(mods, nil)

	var malformed *MalformedGraphError
	require.ErrorAs(t, err, &malformed)
	assert.True(t, errors.As(err, &malformed))
}

func TestLoadRejectsWrongPortDirections(t *testing.T) {
	_, err := Load(twoModules(), []Connection{
		{ID: "bad", Src: "alpha.in", Dst: "beta.in", Width: 64},
	})
	var malformed *MalformedGraphError
	require.ErrorAs(t, err, &malformed)
}
