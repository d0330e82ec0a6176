package floorplan

import "sort"

// Assignment maps module IDs to region arena indices. Assignments inside
// a candidate are treated as immutable; derive modified copies with Clone.
type Assignment map[string]int

// Clone returns an independent copy of the assignment.
func (a Assignment) Clone() Assignment {
	out := make(Assignment, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// ModuleIDs returns the assigned module IDs in lexicographic order, used
// wherever a deterministic iteration over the assignment is needed.
func (a Assignment) ModuleIDs() []string {
	ids := make([]string, 0, len(a))
	for id := range a {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
