// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all generation, physics and driver parameters.
type Config struct {
	Screen     ScreenConfig     `yaml:"screen"`
	Generation GenerationConfig `yaml:"generation"`
	Noise      NoiseConfig      `yaml:"noise"`
	Placement  PlacementConfig  `yaml:"placement"`
	Synthesis  SynthesisConfig  `yaml:"synthesis"`
	Physics    PhysicsConfig    `yaml:"physics"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Logging    LoggingConfig    `yaml:"logging"`
	Scenario   ScenarioConfig   `yaml:"scenario"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ScreenConfig holds display settings.
type ScreenConfig struct {
	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	TargetFPS int `yaml:"target_fps"`
}

// VolumeConfig is the density grid resolution.
type VolumeConfig struct {
	NX int `yaml:"nx"`
	NY int `yaml:"ny"`
	NZ int `yaml:"nz"`
}

// GenerationConfig holds the universe generator inputs.
type GenerationConfig struct {
	Seed           uint64       `yaml:"seed"`
	Volume         VolumeConfig `yaml:"volume"`
	NumGalaxies    int          `yaml:"num_galaxies"`
	ParticlesMin   int          `yaml:"particles_min"` // per galaxy
	ParticlesMax   int          `yaml:"particles_max"` // per galaxy
	WorldScale     float64      `yaml:"world_scale"`   // world extent spanned by the largest grid axis
	Percentile     float64      `yaml:"percentile"`    // top percent of cells kept as candidates
	FallbackRadius float64      `yaml:"fallback_radius"`
	FallbackShape  string       `yaml:"fallback_shape"`
}

// NoiseConfig holds density field parameters.
type NoiseConfig struct {
	Kind          string  `yaml:"kind"` // perlin or simplex
	Octaves       int     `yaml:"octaves"`
	Persistence   float64 `yaml:"persistence"`
	Lacunarity    float64 `yaml:"lacunarity"`
	Frequency     float64 `yaml:"frequency"`      // cycles per cell at octave 0
	CenterFalloff float64 `yaml:"center_falloff"` // Gaussian sigma as a fraction of the volume; 0 disables
}

// ShapeWeightsConfig holds the relative galaxy shape probabilities.
type ShapeWeightsConfig struct {
	Spiral     float64 `yaml:"spiral"`
	Elliptical float64 `yaml:"elliptical"`
	Irregular  float64 `yaml:"irregular"`
}

// PlacementConfig holds galaxy placement parameters.
type PlacementConfig struct {
	MinSeparation float64            `yaml:"min_separation"` // 0 derives it from world_scale
	RadiusMin     float64            `yaml:"radius_min"`
	RadiusMax     float64            `yaml:"radius_max"`
	ShapeWeights  ShapeWeightsConfig `yaml:"shape_weights"`
	Order         string             `yaml:"order"` // density or random
	MinDensity    float64            `yaml:"min_density"`
}

// TypeWeightsConfig holds the relative particle type probabilities.
type TypeWeightsConfig struct {
	Star      float64 `yaml:"star"`
	Planet    float64 `yaml:"planet"`
	BlackHole float64 `yaml:"black_hole"`
}

// SynthesisConfig holds per-shape particle distribution parameters.
type SynthesisConfig struct {
	SpiralArms           int               `yaml:"spiral_arms"`
	PitchAngleDeg        float64           `yaml:"pitch_angle_deg"`
	ArmScatter           float64           `yaml:"arm_scatter"`
	BulgeFraction        float64           `yaml:"bulge_fraction"`
	BulgeRadius          float64           `yaml:"bulge_radius"`
	CoreRadius           float64           `yaml:"core_radius"`
	DiskThickness        float64           `yaml:"disk_thickness"`
	EllipticalAxisRatio  float64           `yaml:"elliptical_axis_ratio"`
	EllipticalDispersion float64           `yaml:"elliptical_dispersion"`
	IrregularDispersion  float64           `yaml:"irregular_dispersion"`
	IrregularClumpsMin   int               `yaml:"irregular_clumps_min"`
	IrregularClumpsMax   int               `yaml:"irregular_clumps_max"`
	TypeWeights          TypeWeightsConfig `yaml:"type_weights"`
	LuminosityJitter     float64           `yaml:"luminosity_jitter"`
}

// PhysicsConfig holds stepper parameters.
type PhysicsConfig struct {
	DT                float64 `yaml:"dt"`
	MaxDT             float64 `yaml:"max_dt"`
	Gravity           bool    `yaml:"gravity"`
	Collisions        bool    `yaml:"collisions"` // reserved
	Softening         float64 `yaml:"softening"`
	MaxSpeed          float64 `yaml:"max_speed"`
	G                 float64 `yaml:"g"`
	PairwiseThreshold int     `yaml:"pairwise_threshold"`
	WorldBound        float64 `yaml:"world_bound"` // 0 derives it from world_scale
	ParallelThreshold int     `yaml:"parallel_threshold"`
	Workers           int     `yaml:"workers"` // 0 uses GOMAXPROCS
	StepsPerFrame     int     `yaml:"steps_per_frame"`
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow         float64 `yaml:"stats_window"` // seconds of simulated time per window
	PerfCollectorWindow int     `yaml:"perf_collector_window"`
}

// LoggingConfig holds slog settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	JSON  bool   `yaml:"json"`
}

// ScenarioConfig holds scenario persistence settings.
type ScenarioConfig struct {
	Dir string `yaml:"dir"`

	// Timeline snapshots kept in memory while running. An interval of 0
	// disables them.
	SnapshotInterval float64 `yaml:"snapshot_interval"` // simulated seconds
	MaxSnapshots     int     `yaml:"max_snapshots"`

	// ExportLimit caps the particles inlined by a JSON export.
	ExportLimit int `yaml:"export_limit"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	DT32          float32 // Physics.DT as float32
	ScreenW32     float32
	ScreenH32     float32
	MinSeparation float64 // effective placement separation
	WorldBound    float64 // effective repair clamp
	Workers       int     // effective force sweep workers
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

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg, err := Defaults()
	if err != nil {
		return nil, err
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Only fields present in the file are overwritten
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.computeDerived()
	return cfg, nil
}

// Defaults returns the embedded default configuration.
func Defaults() (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}
	cfg.computeDerived()
	return cfg, nil
}

// Recompute refreshes derived values after fields were changed in code.
func (c *Config) Recompute() {
	c.computeDerived()
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.DT32 = float32(c.Physics.DT)
	c.Derived.ScreenW32 = float32(c.Screen.Width)
	c.Derived.ScreenH32 = float32(c.Screen.Height)

	// Separation defaults to 15% of the world, bound to 5x the world
	c.Derived.MinSeparation = c.Placement.MinSeparation
	if c.Derived.MinSeparation == 0 {
		c.Derived.MinSeparation = c.Generation.WorldScale * 0.15
	}
	c.Derived.WorldBound = c.Physics.WorldBound
	if c.Derived.WorldBound == 0 {
		c.Derived.WorldBound = c.Generation.WorldScale * 5
	}

	c.Derived.Workers = c.Physics.Workers
	if c.Derived.Workers <= 0 {
		c.Derived.Workers = runtime.GOMAXPROCS(0)
	}
}

// WriteYAML writes the config to a file.
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
