package design

// PortDir distinguishes the two ends of a connection.
type PortDir int

const (
	// Source ports drive data out of a module.
	Source PortDir = iota
	// Sink ports accept data into a module.
	Sink
)

// String implements fmt.Stringer for log output.
func (d PortDir) String() string {
	switch d {
	case Source:
		return "source"
	case Sink:
		return "sink"
	}
	return "unknown"
}

// UnboundedLatency marks a port that tolerates any number of pipeline
// stages on its connection.
const UnboundedLatency = -1

// Port is one typed endpoint of a module. MaxLatency is the exact pipeline
// latency the port requires on its connection: UnboundedLatency means any
// depth is fine, zero means the port needs a fixed-cycle response and no
// stage may ever be inserted.
type Port struct {
	ID           string
	Module       string // set during Load
	Dir          PortDir
	Width        int
	MaxLatency   int
	SingleDriver bool
	NoFeedback   bool
}

// FixedLatency reports whether the port requires an exact stage count.
func (p *Port) FixedLatency() bool {
	return p.MaxLatency != UnboundedLatency
}

// Module is an independently authored hardware unit. Modules are immutable
// once loaded; all placement state lives in candidates.
type Module struct {
	ID          string
	Area        float64
	FixedRegion string // empty when the module may be placed anywhere
	Ports       []Port
}

// Connection is a directed edge between a source port and a sink port.
type Connection struct {
	ID    string
	Src   string // source port ID
	Dst   string // sink port ID
	Width int
}
