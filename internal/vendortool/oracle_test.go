package vendortool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/nocforge/internal/candidate"
	"github.com/vk/nocforge/internal/floorplan"
	"github.com/vk/nocforge/internal/testutil"
)

func ringCandidate(t *testing.T) (*floorplan.Tree, *candidate.Candidate) {
	t.Helper()
	tree := testutil.TwoRegionTree(t, 2)
	a, _ := tree.Index("SLOT_X0Y0")
	b, _ := tree.Index("SLOT_X1Y0")
	return tree, &candidate.Candidate{
		Assignment: floorplan.Assignment{"producer": a, "consumer": b},
		Stages:     map[string]int{"stream": 1},
	}
}

func TestValidateParsesToolReport(t *testing.T) {
	ctx, _ := testutil.Context(t)
	tree, cand := ringCandidate(t)

	oracle := NewExecOracle([]string{"sh", "-c",
		`cat > /dev/null; echo '{"ok": true, "achieved_mhz": 487.5, "area_used": 0.9}'`})
	report, err := oracle.Validate(ctx, tree, cand)
	require.NoError(t, err)
	assert.True(t, report.OK)
	assert.InDelta(t, 487.5, report.AchievedMHz, 1e-9)
	assert.InDelta(t, 0.9, report.AreaUsed, 1e-9)
}

func TestValidateFeedsPlanOnStdin(t *testing.T) {
	ctx, _ := testutil.Context(t)
	tree, cand := ringCandidate(t)

	// The wrapper fails unless the plan JSON arrives on stdin with the
	// region names and pipeline depths resolved.
	oracle := NewExecOracle([]string{"sh", "-c", `input=$(cat)
echo "$input" | grep -q '"producer":"SLOT_X0Y0"' || exit 1
echo "$input" | grep -q '"stream":1' || exit 1
echo '{"ok": true, "achieved_mhz": 1, "area_used": 1}'`})
	report, err := oracle.Validate(ctx, tree, cand)
	require.NoError(t, err)
	assert.True(t, report.OK)
}

func TestValidateReportsToolFailure(t *testing.T) {
	ctx, _ := testutil.Context(t)
	tree, cand := ringCandidate(t)

	oracle := NewExecOracle([]string{"sh", "-c", `echo boom >&2; exit 3`})
	_, err := oracle.Validate(ctx, tree, cand)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vendor tool failed")
	assert.Contains(t, err.Error(), "boom")
}

func TestValidateRejectsNonJSONOutput(t *testing.T) {
	ctx, _ := testutil.Context(t)
	tree, cand := ringCandidate(t)

	oracle := NewExecOracle([]string{"sh", "-c", `cat > /dev/null; echo not-json`})
	_, err := oracle.Validate(ctx, tree, cand)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse vendor tool report")
}

func TestValidateRequiresACommand(t *testing.T) {
	ctx, _ := testutil.Context(t)
	tree, cand := ringCandidate(t)

	_, err := NewExecOracle(nil).Validate(ctx, tree, cand)
	require.Error(t, err)
}
