package search

import "github.com/vk/nocforge/internal/candidate"

// IterationStats is one row of the search trace.
type IterationStats struct {
	Iteration int
	Best      candidate.Score
	Evaluated int
	Rejected  int
}

// Result is what a search run hands back to the surrounding application:
// the best candidate found, how the run ended, and the trace external
// tooling reports from.
type Result struct {
	Best             *candidate.Candidate
	State            State
	Iterations       int
	StagnationReason string
	Trace            []IterationStats
}
