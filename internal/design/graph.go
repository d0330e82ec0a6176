// Package design holds the in-memory model of a hardware design: modules,
// their ports, and the directed connections between them. The graph is
// read-only after Load; every other component derives its state from
// candidates, never by mutating the graph.
package design

import (
	"fmt"
	"sort"
)

// MalformedGraphError reports a structurally invalid design description.
// It is the only fatal error kind in the engine: a run cannot proceed
// without a well-formed graph.
type MalformedGraphError struct {
	Reason string
}

// Error implements the error interface.
func (e *MalformedGraphError) Error() string {
	return "malformed design graph: " + e.Reason
}

func malformed(format string, args ...any) error {
	return &MalformedGraphError{Reason: fmt.Sprintf(format, args...)}
}

// Graph is the immutable connectivity model built by Load.
type Graph struct {
	modules map[string]*Module
	ports   map[string]*Port
	conns   []*Connection // declaration order
	byID    map[string]*Connection
	fanOut  map[string][]*Connection // by source port ID
	fanIn   map[string][]*Connection // by sink port ID
}

// Load validates the module and connection lists and builds the graph.
// It fails with *MalformedGraphError when a connection references an
// unknown port, a single-driver sink is driven twice, or a connectivity
// cycle runs through ports that forbid feedback.
func Load(modules []Module, conns []Connection) (*Graph, error) {
	g := &Graph{
		modules: make(map[string]*Module, len(modules)),
		ports:   make(map[string]*Port),
		byID:    make(map[string]*Connection, len(conns)),
		fanOut:  make(map[string][]*Connection),
		fanIn:   make(map[string][]*Connection),
	}

	for i := range modules {
		m := modules[i]
		if m.ID == "" {
			return nil, malformed("module %d has an empty identifier", i)
		}
		if _, ok := g.modules[m.ID]; ok {
			return nil, malformed("duplicate module %q", m.ID)
		}
		// Copy the ports so the graph never aliases caller-owned
		// memory: the struct copy above still shares the slice's
		// backing array.
		m.Ports = append([]Port(nil), m.Ports...)
		for j := range m.Ports {
			p := &m.Ports[j]
			p.Module = m.ID
			if _, ok := g.ports[p.ID]; ok {
				return nil, malformed("duplicate port %q", p.ID)
			}
			g.ports[p.ID] = p
		}
		g.modules[m.ID] = &m
	}

	for i := range conns {
		c := conns[i]
		src, ok := g.ports[c.Src]
		if !ok {
			return nil, malformed("connection %q references unknown source port %q", c.ID, c.Src)
		}
		dst, ok := g.ports[c.Dst]
		if !ok {
			return nil, malformed("connection %q references unknown sink port %q", c.ID, c.Dst)
		}
		if src.Dir != Source {
			return nil, malformed("connection %q drives from non-source port %q", c.ID, c.Src)
		}
		if dst.Dir != Sink {
			return nil, malformed("connection %q drives into non-sink port %q", c.ID, c.Dst)
		}
		if dst.SingleDriver && len(g.fanIn[c.Dst]) > 0 {
			return nil, malformed("single-driver port %q driven by more than one connection", c.Dst)
		}
		if _, ok := g.byID[c.ID]; ok {
			return nil, malformed("duplicate connection %q", c.ID)
		}
		cc := &c
		g.conns = append(g.conns, cc)
		g.byID[c.ID] = cc
		g.fanOut[c.Src] = append(g.fanOut[c.Src], cc)
		g.fanIn[c.Dst] = append(g.fanIn[c.Dst], cc)
	}

	if err := g.checkFeedback(); err != nil {
		return nil, err
	}
	return g, nil
}

// checkFeedback rejects any connectivity cycle that runs exclusively
// through ports declared no-feedback. Cycles through feedback-tolerant
// ports are legal hardware (handshakes, credit loops) and are kept.
func (g *Graph) checkFeedback() error {
	// Module-level digraph restricted to no-feedback connections.
	next := make(map[string][]string)
	for _, c := range g.conns {
		src, dst := g.ports[c.Src], g.ports[c.Dst]
		if src.NoFeedback && dst.NoFeedback {
			next[src.Module] = append(next[src.Module], dst.Module)
		}
	}

	// Classic three-color depth-first search.
	const (
		white = 0
		grey  = 1
		black = 2
	)
	color := make(map[string]int)
	var visit func(id string) error
	visit = func(id string) error {
		switch color[id] {
		case grey:
			return malformed("feedback-forbidding cycle through module %q", id)
		case black:
			return nil
		}
		color[id] = grey
		for _, succ := range next[id] {
			if err := visit(succ); err != nil {
				return err
			}
		}
		color[id] = black
		return nil
	}
	for _, id := range g.ModuleIDs() {
		if err := visit(id); err != nil {
			return err
		}
	}
	return nil
}

// Module returns the module with the given ID, or nil.
func (g *Graph) Module(id string) *Module { return g.modules[id] }

// Port returns the port with the given ID, or nil.
func (g *Graph) Port(id string) *Port { return g.ports[id] }

// ModuleOf returns the ID of the module owning the given port.
func (g *Graph) ModuleOf(portID string) string {
	if p, ok := g.ports[portID]; ok {
		return p.Module
	}
	return ""
}

// ModuleIDs returns all module IDs in lexicographic order. The stable
// order keeps every downstream heuristic deterministic.
func (g *Graph) ModuleIDs() []string {
	ids := make([]string, 0, len(g.modules))
	for id := range g.modules {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Connections returns every connection in declaration order. Callers must
// not mutate the returned slice.
func (g *Graph) Connections() []*Connection { return g.conns }

// Connection returns the connection with the given ID, or nil.
func (g *Graph) Connection(id string) *Connection { return g.byID[id] }

// FanOut returns the connections driven by the given source port, each
// declared connection exactly once.
func (g *Graph) FanOut(portID string) []*Connection { return g.fanOut[portID] }

// FanIn returns the connections driving the given sink port.
func (g *Graph) FanIn(portID string) []*Connection { return g.fanIn[portID] }

// Neighbors returns the IDs of modules sharing at least one connection
// with the given module, sorted, without duplicates.
func (g *Graph) Neighbors(moduleID string) []string {
	seen := make(map[string]bool)
	for _, c := range g.conns {
		a, b := g.ModuleOf(c.Src), g.ModuleOf(c.Dst)
		if a == moduleID && b != moduleID {
			seen[b] = true
		}
		if b == moduleID && a != moduleID {
			seen[a] = true
		}
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Connectivity returns the number of connections incident to the module,
// counting each declared connection once per incident endpoint.
func (g *Graph) Connectivity(moduleID string) int {
	n := 0
	for _, c := range g.conns {
		if g.ModuleOf(c.Src) == moduleID {
			n++
		}
		if g.ModuleOf(c.Dst) == moduleID {
			n++
		}
	}
	return n
}

// TopoOrder returns the module IDs in a topological order of the
// connection digraph. It fails when the graph is cyclic; callers that
// tolerate cycles should fall back to ModuleIDs.
func (g *Graph) TopoOrder() ([]string, error) {
	inDeg := make(map[string]int, len(g.modules))
	next := make(map[string][]string)
	for id := range g.modules {
		inDeg[id] = 0
	}
	for _, c := range g.conns {
		a, b := g.ModuleOf(c.Src), g.ModuleOf(c.Dst)
		if a == b {
			continue
		}
		next[a] = append(next[a], b)
		inDeg[b]++
	}

	ready := make([]string, 0, len(inDeg))
	for id, d := range inDeg {
		if d == 0 {
			ready = append(ready, id)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(inDeg))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)
		added := false
		for _, succ := range next[id] {
			if inDeg[succ]--; inDeg[succ] == 0 {
				ready = append(ready, succ)
				added = true
			}
		}
		if added {
			sort.Strings(ready)
		}
	}
	if len(order) != len(inDeg) {
		return nil, fmt.Errorf("connection graph is cyclic: no topological order")
	}
	return order, nil
}
