package candidate

import "fmt"

// Score is the evaluated quality of one candidate. Infeasible candidates
// carry a Violation magnitude so the search can still rank them and
// return the least-broken one when the budget runs out.
type Score struct {
	Feasible     bool
	FrequencyMHz float64
	AreaUtil     float64
	Congestion   float64
	// Violation quantifies constraint breakage; zero when feasible.
	Violation float64
}

// String implements fmt.Stringer for log and report output.
func (s Score) String() string {
	if !s.Feasible {
		return fmt.Sprintf("infeasible (violation %.3f, est %.1f MHz)", s.Violation, s.FrequencyMHz)
	}
	return fmt.Sprintf("%.1f MHz, area %.1f%%, congestion %.3f",
		s.FrequencyMHz, s.AreaUtil*100, s.Congestion)
}

// Compare defines the strict total order over scores: feasible beats
// infeasible; among feasible, higher frequency wins, then lower area
// utilization, then lower congestion. Among infeasible, lower violation
// wins before the same criteria apply. It returns >0 when a ranks above b.
func Compare(a, b Score) int {
	if a.Feasible != b.Feasible {
		if a.Feasible {
			return 1
		}
		return -1
	}
	if !a.Feasible {
		if c := cmpFloat(b.Violation, a.Violation); c != 0 {
			return c
		}
	}
	if c := cmpFloat(a.FrequencyMHz, b.FrequencyMHz); c != 0 {
		return c
	}
	if c := cmpFloat(b.AreaUtil, a.AreaUtil); c != 0 {
		return c
	}
	return cmpFloat(b.Congestion, a.Congestion)
}

// Better reports whether s ranks strictly above other.
func (s Score) Better(other Score) bool {
	return Compare(s, other) > 0
}

func cmpFloat(a, b float64) int {
	switch {
	case a > b:
		return 1
	case a < b:
		return -1
	}
	return 0
}
