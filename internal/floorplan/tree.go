// Package floorplan models physical partition regions and assigns modules
// to them. Regions form a tree (the partition hierarchy), held as an arena
// with parent indices so candidates can share unmodified sub-trees by
// copying only the assignment map.
package floorplan

import (
	"fmt"
)

// NoParent marks a root region in the arena.
const NoParent = -1

// Region is one physical floorplan partition. Capacity applies to leaf
// regions; interior regions exist only for hierarchy and routing.
type Region struct {
	Name     string
	Capacity float64
	Parent   int
}

// Tree is the region arena. Indices are stable after Add and are the
// identifiers used in assignments and topology plans.
type Tree struct {
	regions  []Region
	index    map[string]int
	children [][]int
}

// NewTree returns an empty region tree.
func NewTree() *Tree {
	return &Tree{index: make(map[string]int)}
}

// Add appends a region under the named parent (empty parent = root) and
// returns its arena index. Parents must be added before their children.
func (t *Tree) Add(name string, capacity float64, parent string) (int, error) {
	if _, ok := t.index[name]; ok {
		return 0, fmt.Errorf("duplicate region %q", name)
	}
	parentIdx := NoParent
	if parent != "" {
		idx, ok := t.index[parent]
		if !ok {
			return 0, fmt.Errorf("region %q references unknown parent %q", name, parent)
		}
		parentIdx = idx
	}
	idx := len(t.regions)
	t.regions = append(t.regions, Region{Name: name, Capacity: capacity, Parent: parentIdx})
	t.children = append(t.children, nil)
	t.index[name] = idx
	if parentIdx != NoParent {
		t.children[parentIdx] = append(t.children[parentIdx], idx)
	}
	return idx, nil
}

// Len returns the number of regions in the arena.
func (t *Tree) Len() int { return len(t.regions) }

// Region returns the region at the given arena index.
func (t *Tree) Region(i int) Region { return t.regions[i] }

// Index resolves a region name to its arena index.
func (t *Tree) Index(name string) (int, bool) {
	i, ok := t.index[name]
	return i, ok
}

// Leaves returns the indices of all leaf regions in arena order.
func (t *Tree) Leaves() []int {
	var out []int
	for i := range t.regions {
		if len(t.children[i]) == 0 {
			out = append(out, i)
		}
	}
	return out
}

// LeafCapacity returns the total area capacity over all leaf regions.
func (t *Tree) LeafCapacity() float64 {
	var sum float64
	for _, i := range t.Leaves() {
		sum += t.regions[i].Capacity
	}
	return sum
}

// pathToRoot returns the index path from i up to (and including) its root.
func (t *Tree) pathToRoot(i int) []int {
	var path []int
	for cur := i; cur != NoParent; cur = t.regions[cur].Parent {
		path = append(path, cur)
	}
	return path
}

// Route returns the region index path from a to b through the hierarchy:
// up to the lowest common ancestor, then down. Route(a, a) is [a].
func (t *Tree) Route(a, b int) []int {
	if a == b {
		return []int{a}
	}
	up := t.pathToRoot(a)
	down := t.pathToRoot(b)
	// Trim the shared suffix above the lowest common ancestor.
	for len(up) > 1 && len(down) > 1 && up[len(up)-2] == down[len(down)-2] {
		up = up[:len(up)-1]
		down = down[:len(down)-1]
	}
	route := make([]int, 0, len(up)+len(down)-1)
	route = append(route, up...)
	for i := len(down) - 2; i >= 0; i-- {
		route = append(route, down[i])
	}
	return route
}

// Hops returns the estimated hop count between two regions. Grid-named
// sibling slots use manhattan distance between their coordinates; every
// other pair uses the length of the hierarchy route.
func (t *Tree) Hops(a, b int) int {
	if a == b {
		return 0
	}
	if t.regions[a].Parent == t.regions[b].Parent {
		ax, ay, aok := ParseSlotCoord(t.regions[a].Name)
		bx, by, bok := ParseSlotCoord(t.regions[b].Name)
		if aok && bok {
			return abs(ax-bx) + abs(ay-by)
		}
	}
	return len(t.Route(a, b)) - 1
}

// ParseSlotCoord extracts grid coordinates from a SLOT_XxYy region name.
func ParseSlotCoord(name string) (x, y int, ok bool) {
	var rest string
	n, err := fmt.Sscanf(name, "SLOT_X%dY%d%s", &x, &y, &rest)
	if err == nil && n == 3 {
		return 0, 0, false // trailing garbage
	}
	n, err = fmt.Sscanf(name, "SLOT_X%dY%d", &x, &y)
	if err != nil || n != 2 {
		return 0, 0, false
	}
	return x, y, true
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
