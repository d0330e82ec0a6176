package candidate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// generatedScores spans every ordering criterion: feasibility, frequency,
// area, congestion, and violation magnitude for the infeasible tail.
func generatedScores() []Score {
	return []Score{
		{Feasible: true, FrequencyMHz: 500, AreaUtil: 0.5, Congestion: 0.1},
		{Feasible: true, FrequencyMHz: 500, AreaUtil: 0.5, Congestion: 0.2},
		{Feasible: true, FrequencyMHz: 500, AreaUtil: 0.6, Congestion: 0.1},
		{Feasible: true, FrequencyMHz: 400, AreaUtil: 0.1, Congestion: 0.0},
		{Feasible: true, FrequencyMHz: 300, AreaUtil: 0.9, Congestion: 0.9},
		{Feasible: false, FrequencyMHz: 900, Violation: 0.5},
		{Feasible: false, FrequencyMHz: 100, Violation: 1.5},
		{Feasible: false, FrequencyMHz: 100, Violation: 3.0},
	}
}

// TestCompareIsStrictTotalOrder checks the ordering laws pairwise over
// the generated tuples: antisymmetry, totality, and transitivity.
func TestCompareIsStrictTotalOrder(t *testing.T) {
	scores := generatedScores()

	for i, a := range scores {
		assert.Equal(t, 0, Compare(a, a), "reflexive equality %d", i)
		for j, b := range scores {
			if i == j {
				continue
			}
			ab, ba := Compare(a, b), Compare(b, a)
			assert.Equal(t, -ab, ba, "antisymmetry %d/%d", i, j)
			assert.NotEqual(t, 0, ab, "distinct tuples must order %d/%d", i, j)
		}
	}

	for i, a := range scores {
		for j, b := range scores {
			for k, c := range scores {
				if Compare(a, b) > 0 && Compare(b, c) > 0 {
					assert.Positive(t, Compare(a, c), "transitivity %d/%d/%d", i, j, k)
				}
			}
		}
	}
}

func TestCompareRanksByTheSpecifiedCriteria(t *testing.T) {
	feasible := Score{Feasible: true, FrequencyMHz: 100, AreaUtil: 0.99, Congestion: 0.99}
	infeasible := Score{Feasible: false, FrequencyMHz: 900, AreaUtil: 0.01}
	assert.True(t, feasible.Better(infeasible), "feasible always outranks infeasible")

	fast := Score{Feasible: true, FrequencyMHz: 500, AreaUtil: 0.9}
	slow := Score{Feasible: true, FrequencyMHz: 400, AreaUtil: 0.1}
	assert.True(t, fast.Better(slow), "frequency dominates area")

	lean := Score{Feasible: true, FrequencyMHz: 500, AreaUtil: 0.3, Congestion: 0.9}
	fat := Score{Feasible: true, FrequencyMHz: 500, AreaUtil: 0.4, Congestion: 0.1}
	assert.True(t, lean.Better(fat), "area breaks frequency ties before congestion")

	calm := Score{Feasible: true, FrequencyMHz: 500, AreaUtil: 0.3, Congestion: 0.1}
	busy := Score{Feasible: true, FrequencyMHz: 500, AreaUtil: 0.3, Congestion: 0.2}
	assert.True(t, calm.Better(busy), "congestion is the last tiebreak")

	close_ := Score{Feasible: false, Violation: 0.5}
	far := Score{Feasible: false, Violation: 2.0}
	assert.True(t, close_.Better(far), "least violation wins among infeasible")
}

func TestScoreString(t *testing.T) {
	s := Score{Feasible: true, FrequencyMHz: 312.5, AreaUtil: 0.75, Congestion: 0.25}
	require.Contains(t, s.String(), "312.5 MHz")

	bad := Score{Feasible: false, Violation: 1.25}
	require.Contains(t, bad.String(), "infeasible")
}
