// Package config provides configuration loading and access for the particle
// simulation and its host.
package config

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	Screen     ScreenConfig     `yaml:"screen"`
	Simulation SimulationConfig `yaml:"simulation"`
	Trails     TrailsConfig     `yaml:"trails"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Stream     StreamConfig     `yaml:"stream"`
	Camera     CameraConfig     `yaml:"camera"`
	Log        LogConfig        `yaml:"log"`
	Nodes      []NodeConfig     `yaml:"nodes"`
	Refs       []RefConfig      `yaml:"refs"`
	Bakes      []BakeConfig     `yaml:"bakes"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ScreenConfig holds display settings.
type ScreenConfig struct {
	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	TargetFPS int `yaml:"target_fps"`
}

// SimulationConfig holds frame stepping parameters.
type SimulationConfig struct {
	DT                float64 `yaml:"dt"`
	Workers           int     `yaml:"workers"`            // 0 = GOMAXPROCS
	ParallelThreshold int     `yaml:"parallel_threshold"` // live particles per level before fanning out
	Seed              int64   `yaml:"seed"`               // added to every node seed
}

// TrailsConfig holds trail recording and geometry parameters.
type TrailsConfig struct {
	MaxSamples  int     `yaml:"max_samples"`  // 0 = unbounded history
	DetachedTTL float64 `yaml:"detached_ttl"` // seconds a detached trail is kept
	Width       float64 `yaml:"width"`
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow float64 `yaml:"stats_window"` // seconds per stats window
	PerfWindow  int     `yaml:"perf_window"`  // ticks averaged by the perf collector
	OutputDir   string  `yaml:"output_dir"`   // empty = no CSV output
}

// StreamConfig holds the websocket row stream settings.
type StreamConfig struct {
	Address string `yaml:"address"` // empty = disabled
	Path    string `yaml:"path"`
}

// CameraConfig holds the orbit camera settings.
type CameraConfig struct {
	Distance float64 `yaml:"distance"`
	Height   float64 `yaml:"height"`
	Speed    float64 `yaml:"speed"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// NodeConfig describes one simulation node.
type NodeConfig struct {
	Name         string    `yaml:"name"`
	Kind         string    `yaml:"kind"`
	Parent       string    `yaml:"parent,omitempty"`
	Capacity     int       `yaml:"capacity"`
	Strategy     string    `yaml:"strategy,omitempty"`     // retain, ring
	Capabilities []string  `yaml:"capabilities,omitempty"` // base, sub, event, trail
	WorldSpace   bool      `yaml:"world_space"`
	Seed         int64     `yaml:"seed"`
	Position     []float64 `yaml:"position,omitempty"` // emitter translation

	Sub           SubPolicyConfig `yaml:"sub,omitempty"`
	Burst         map[string]int  `yaml:"burst,omitempty"` // event kind -> children per event
	RecordExpired bool            `yaml:"record_expired,omitempty"`

	// Params are kind-specific tunables such as rate or life.
	Params map[string]float64 `yaml:"params,omitempty"`
}

// SubPolicyConfig selects how many children each parent particle spawns.
type SubPolicyConfig struct {
	Mode  string  `yaml:"mode,omitempty"` // one, per_parent, rate
	Count int     `yaml:"count,omitempty"`
	Rate  float64 `yaml:"rate,omitempty"`
}

// RefConfig is a render view of a node.
type RefConfig struct {
	Name      string    `yaml:"name"`
	Node      string    `yaml:"node"`
	Billboard bool      `yaml:"billboard,omitempty"`
	Tint      []float64 `yaml:"tint,omitempty"` // RGBA, overrides particle color
	Trails    bool      `yaml:"trails,omitempty"`
}

// BakeConfig is a static population generated once at startup.
type BakeConfig struct {
	Name   string             `yaml:"name"`
	Kind   string             `yaml:"kind"`
	Count  int                `yaml:"count"`
	Seed   int64              `yaml:"seed"`
	Params map[string]float64 `yaml:"params,omitempty"`
}

// Param returns a kind parameter or def when unset.
func (n NodeConfig) Param(key string, def float64) float64 {
	if v, ok := n.Params[key]; ok {
		return v
	}
	return def
}

// Param returns a kind parameter or def when unset.
func (b BakeConfig) Param(key string, def float64) float64 {
	if v, ok := b.Params[key]; ok {
		return v
	}
	return def
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	DT32      float32        // Simulation.DT as float32
	ScreenW32 float32        // Screen.Width as float32
	ScreenH32 float32        // Screen.Height as float32
	LogLevel  slog.Level     // parsed Log.Level
	NodeIndex map[string]int // name -> index into Nodes
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults,
// then applies environment overrides. If path is empty, only embedded
// defaults are used. Lists in the user file replace the default lists.
func Load(path string) (*Config, error) {
	// Start with embedded defaults
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	// Load user config if provided
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.computeDerived(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() error {
	c.Derived.DT32 = float32(c.Simulation.DT)
	c.Derived.ScreenW32 = float32(c.Screen.Width)
	c.Derived.ScreenH32 = float32(c.Screen.Height)

	c.Derived.LogLevel = slog.LevelInfo
	if c.Log.Level != "" {
		if err := c.Derived.LogLevel.UnmarshalText([]byte(c.Log.Level)); err != nil {
			return fmt.Errorf("log level %q: %w", c.Log.Level, err)
		}
	}

	c.Derived.NodeIndex = make(map[string]int, len(c.Nodes))
	for i, n := range c.Nodes {
		c.Derived.NodeIndex[n.Name] = i
	}
	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
