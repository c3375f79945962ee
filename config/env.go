package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// EnvOverrides are the environment variables that take precedence over
// both the embedded defaults and the user file. Unset variables leave the
// loaded value alone.
type EnvOverrides struct {
	DT         *float64 `env:"SPARKS_DT"`
	Workers    *int     `env:"SPARKS_WORKERS"`
	StreamAddr *string  `env:"SPARKS_STREAM_ADDR"`
	OutputDir  *string  `env:"SPARKS_OUTPUT_DIR"`
	LogLevel   *string  `env:"SPARKS_LOG_LEVEL"`
}

// ApplyEnv reads EnvOverrides from the process environment into c.
func ApplyEnv(c *Config) error {
	return applyEnv(c, env.Options{})
}

func applyEnv(c *Config, opts env.Options) error {
	var o EnvOverrides
	if err := env.ParseWithOptions(&o, opts); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	if o.DT != nil {
		c.Simulation.DT = *o.DT
	}
	if o.Workers != nil {
		c.Simulation.Workers = *o.Workers
	}
	if o.StreamAddr != nil {
		c.Stream.Address = *o.StreamAddr
	}
	if o.OutputDir != nil {
		c.Telemetry.OutputDir = *o.OutputDir
	}
	if o.LogLevel != nil {
		c.Log.Level = *o.LogLevel
	}
	return nil
}
