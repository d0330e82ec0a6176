package hclcfg

// HCL schema structs. Design files declare module and connection blocks;
// a constraints block carries region capacities, the channel table, and
// the search budgets.

// portBlock is one `port "name" { ... }` block inside a module. The
// global port identifier becomes "<module>.<name>".
type portBlock struct {
	Name         string `hcl:"name,label"`
	Dir          string `hcl:"dir"`
	Width        int    `hcl:"width"`
	MaxLatency   *int   `hcl:"max_latency,optional"` // nil = unbounded
	SingleDriver bool   `hcl:"single_driver,optional"`
	NoFeedback   bool   `hcl:"no_feedback,optional"`
}

// moduleBlock is one `module "name" { ... }` block.
type moduleBlock struct {
	Name        string      `hcl:"name,label"`
	Area        float64     `hcl:"area"`
	FixedRegion string      `hcl:"fixed_region,optional"`
	Ports       []portBlock `hcl:"port,block"`
}

// connectionBlock is one `connection "name" { ... }` block. Src and Dst
// use the "<module>.<port>" form.
type connectionBlock struct {
	Name  string `hcl:"name,label"`
	Src   string `hcl:"src"`
	Dst   string `hcl:"dst"`
	Width int    `hcl:"width"`
}

// regionBlock is one `region "name" { ... }` block inside constraints.
// Regions must be declared before their children.
type regionBlock struct {
	Name     string  `hcl:"name,label"`
	Capacity float64 `hcl:"capacity,optional"`
	Parent   string  `hcl:"parent,optional"`
}

// constraintsBlock is the single `constraints { ... }` block.
type constraintsBlock struct {
	TargetMHz           float64       `hcl:"target_mhz,optional"`
	PerHopDelayNs       float64       `hcl:"per_hop_delay_ns,optional"`
	BasePeriodNs        float64       `hcl:"base_period_ns,optional"`
	ChannelWidths       []int         `hcl:"channel_widths,optional"`
	ChannelCapacityMBps float64       `hcl:"channel_capacity_mbps,optional"`
	EndpointLimit       int           `hcl:"endpoint_limit,optional"`
	MaxIterations       *int          `hcl:"max_iterations,optional"`
	TimeBudget          string        `hcl:"time_budget,optional"`
	StagnationLimit     int           `hcl:"stagnation_limit,optional"`
	BeamWidth           int           `hcl:"beam_width,optional"`
	Seed                int64         `hcl:"seed,optional"`
	Workers             int           `hcl:"workers,optional"`
	PartitionIterations int           `hcl:"partition_iterations,optional"`
	Regions             []regionBlock `hcl:"region,block"`
}

// fileRoot decodes all possible top-level blocks from any input file, so
// designs and constraints may live together or split across files.
type fileRoot struct {
	Modules     []moduleBlock     `hcl:"module,block"`
	Connections []connectionBlock `hcl:"connection,block"`
	Constraints *constraintsBlock `hcl:"constraints,block"`
}
