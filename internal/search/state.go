package search

// State is the controller's lifecycle position. Terminal states carry no
// error: search-time infeasibility is data in the returned score, never a
// process failure.
type State int

const (
	// Init covers graph loading and seeding of the first candidate.
	Init State = iota
	// Exploring is the iterative mutate-evaluate-fold loop.
	Exploring
	// Converged means the best candidate is feasible and stopped
	// improving, or the explicit frequency target was met.
	Converged
	// Exhausted means the iteration or wall-clock budget ran out; the
	// best candidate so far is returned, marked infeasible if it is.
	Exhausted
	// Aborted means external cancellation arrived during Exploring; the
	// partial best candidate is returned.
	Aborted
)

// String implements fmt.Stringer for log and report output.
func (s State) String() string {
	switch s {
	case Init:
		return "init"
	case Exploring:
		return "exploring"
	case Converged:
		return "converged"
	case Exhausted:
		return "exhausted"
	case Aborted:
		return "aborted"
	}
	return "unknown"
}
