package topology

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/nocforge/internal/design"
	"github.com/vk/nocforge/internal/floorplan"
	"github.com/vk/nocforge/internal/testutil"
)

func defaultTable() Table {
	return Table{
		Widths:        []int{32, 64, 128, 256, 512},
		CapacityMBps:  16000,
		ClockMHz:      300,
		EndpointLimit: 0,
	}
}

func TestRoundUpWidth(t *testing.T) {
	table := defaultTable()

	tests := []struct {
		in, want int
	}{
		{1, 32},
		{32, 32},
		{33, 64},
		{100, 128},
		{512, 512},
	}
	for _, tt := range tests {
		got, err := RoundUpWidth(tt.in, table)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "width %d", tt.in)
	}

	_, err := RoundUpWidth(513, table)
	require.Error(t, err)
	var unroutable *UnroutableError
	assert.ErrorAs(t, err, &unroutable)
}

func splitRing(t *testing.T) (*design.Graph, *floorplan.Tree, floorplan.Assignment) {
	t.Helper()
	g := testutil.RingDesign(t)
	tree := testutil.TwoRegionTree(t, 2)
	a, _ := tree.Index("SLOT_X0Y0")
	b, _ := tree.Index("SLOT_X1Y0")
	asg := floorplan.Assignment{"a_mod": a, "b_mod": a, "c_mod": b, "d_mod": b}
	return g, tree, asg
}

func TestSynthesizeRoutesCrossRegionConnections(t *testing.T) {
	g, tree, asg := splitRing(t)

	plan, err := Synthesize(g, tree, asg, defaultTable())
	require.NoError(t, err)

	// Ring split into pairs leaves exactly two cross-region connections,
	// one per direction (ordered pairs never share).
	require.Len(t, plan.ByConn, 2)
	assert.Contains(t, plan.ByConn, "b_mod_to_c_mod")
	assert.Contains(t, plan.ByConn, "d_mod_to_a_mod")

	for id, ch := range plan.ByConn {
		assert.Equal(t, 1, ch.Hops, id)
		assert.Equal(t, 64, ch.Width, id)
	}
	// Same-region connections never appear in the plan.
	assert.Equal(t, 0, plan.Hops("a_mod_to_b_mod"))
}

func TestSynthesizeIsDeterministic(t *testing.T) {
	g, tree, asg := splitRing(t)

	first, err := Synthesize(g, tree, asg, defaultTable())
	require.NoError(t, err)
	second, err := Synthesize(g, tree, asg, defaultTable())
	require.NoError(t, err)

	require.Len(t, second.Channels, len(first.Channels))
	for i := range first.Channels {
		assert.Equal(t, first.Channels[i].ID, second.Channels[i].ID)
		assert.Equal(t, first.Channels[i].Conns, second.Channels[i].Conns)
		assert.Equal(t, first.Channels[i].LoadMBps, second.Channels[i].LoadMBps)
	}
}

// parallelLinks builds n connections from src to dst, with the sink
// latency of connection i taken from latencies[i].
func parallelLinks(t *testing.T, latencies []int) *design.Graph {
	t.Helper()
	src := design.Module{ID: "src", Area: 1, FixedRegion: "SLOT_X0Y0"}
	dst := design.Module{ID: "dst", Area: 1, FixedRegion: "SLOT_X1Y0"}
	var conns []design.Connection
	for i, lat := range latencies {
		out := design.Port{ID: portName("src.out", i), Dir: design.Source, Width: 64, MaxLatency: design.UnboundedLatency}
		in := design.Port{ID: portName("dst.in", i), Dir: design.Sink, Width: 64, MaxLatency: lat}
		src.Ports = append(src.Ports, out)
		dst.Ports = append(dst.Ports, in)
		conns = append(conns, design.Connection{
			ID:    portName("link", i),
			Src:   out.ID,
			Dst:   in.ID,
			Width: 64,
		})
	}
	g, err := design.Load([]design.Module{src, dst}, conns)
	require.NoError(t, err)
	return g
}

func portName(prefix string, i int) string {
	return prefix + string(rune('0'+i))
}

func TestMultiplexingSharesCompatibleConnections(t *testing.T) {
	g := parallelLinks(t, []int{design.UnboundedLatency, design.UnboundedLatency})
	tree := testutil.TwoRegionTree(t, 2)
	a, _ := tree.Index("SLOT_X0Y0")
	b, _ := tree.Index("SLOT_X1Y0")
	asg := floorplan.Assignment{"src": a, "dst": b}

	plan, err := Synthesize(g, tree, asg, defaultTable())
	require.NoError(t, err)

	// Both 64-bit links fit one 16 GB/s channel at 300 MHz.
	require.Len(t, plan.Channels, 1)
	assert.Len(t, plan.Channels[0].Conns, 2)
}

func TestMultiplexingRejectsIncompatibleFixedLatencies(t *testing.T) {
	g := parallelLinks(t, []int{1, 3})
	tree := testutil.TwoRegionTree(t, 2)
	a, _ := tree.Index("SLOT_X0Y0")
	b, _ := tree.Index("SLOT_X1Y0")
	asg := floorplan.Assignment{"src": a, "dst": b}

	plan, err := Synthesize(g, tree, asg, defaultTable())
	require.NoError(t, err)

	// Two fixed-latency sinks demanding different depths must not share
	// an ordered channel.
	assert.Len(t, plan.Channels, 2)
}

func TestMultiplexingRespectsCapacity(t *testing.T) {
	g := parallelLinks(t, []int{design.UnboundedLatency, design.UnboundedLatency})
	tree := testutil.TwoRegionTree(t, 2)
	a, _ := tree.Index("SLOT_X0Y0")
	b, _ := tree.Index("SLOT_X1Y0")
	asg := floorplan.Assignment{"src": a, "dst": b}

	table := defaultTable()
	table.CapacityMBps = 3000 // one 64-bit link at 300 MHz is 2400 MB/s

	plan, err := Synthesize(g, tree, asg, table)
	require.NoError(t, err)
	assert.Len(t, plan.Channels, 2)
	for _, ch := range plan.Channels {
		assert.LessOrEqual(t, ch.LoadMBps, table.CapacityMBps)
	}
}

func TestEndpointLimitRejectsOversubscribedRegion(t *testing.T) {
	g := parallelLinks(t, []int{1, 3}) // incompatible, forces two channels
	tree := testutil.TwoRegionTree(t, 2)
	a, _ := tree.Index("SLOT_X0Y0")
	b, _ := tree.Index("SLOT_X1Y0")
	asg := floorplan.Assignment{"src": a, "dst": b}

	table := defaultTable()
	table.EndpointLimit = 1

	_, err := Synthesize(g, tree, asg, table)
	require.Error(t, err)
	var unroutable *UnroutableError
	assert.ErrorAs(t, err, &unroutable)
}
