package app

import "errors"

// Config holds everything an App instance needs to run.
type Config struct {
	DesignPath      string // .hcl design files
	ConstraintsPath string // optional extra .hcl path

	CachePath   string // non-empty enables the persistent sqlite cache
	ValidateCmd string // non-empty enables post-hoc vendor validation

	LogFormat   string
	LogLevel    string
	WorkerCount int // 0 defers to the constraints block
}

// NewConfig validates a config value.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.DesignPath == "" {
		return nil, errors.New("DesignPath is a required configuration field and cannot be empty")
	}
	return &cfg, nil
}
