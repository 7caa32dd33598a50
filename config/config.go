// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Simulation modes.
const (
	ModeAI      = "ai"      // evolved controllers drive motion
	ModeClassic = "classic" // reference policy drives motion
)

// Wrap policies.
const (
	WrapReset  = "reset"  // hard reset to the opposite boundary
	WrapModulo = "modulo" // continue from the opposite edge plus overshoot
)

// Controller input/output normalization conventions.
const (
	NormalizeAffine = "affine" // v/2+0.5 in, 2y-1 out
	NormalizeRaw    = "raw"    // passthrough
)

// Obstacle sources.
const (
	ObstaclePointer = "pointer" // supplied by the host every tick
	ObstacleOrbit   = "orbit"   // synthetic obstacle circling the world centre
	ObstacleNone    = "none"
)

// Config holds all simulation configuration parameters.
type Config struct {
	Mode       string           `yaml:"mode"`
	Screen     ScreenConfig     `yaml:"screen"`
	World      WorldConfig      `yaml:"world"`
	Flocking   FlockingConfig   `yaml:"flocking"`
	Fitness    FitnessConfig    `yaml:"fitness"`
	Controller ControllerConfig `yaml:"controller"`
	Evolution  EvolutionConfig  `yaml:"evolution"`
	Obstacle   ObstacleConfig   `yaml:"obstacle"`
	Classic    ClassicConfig    `yaml:"classic"`
	Parallel   ParallelConfig   `yaml:"parallel"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ScreenConfig holds display settings.
type ScreenConfig struct {
	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	TargetFPS int `yaml:"target_fps"`
}

// WorldConfig holds simulation world dimensions.
type WorldConfig struct {
	Width  float64 `yaml:"width"`  // 0 = use screen width
	Height float64 `yaml:"height"` // 0 = use screen height
	Wrap   string  `yaml:"wrap"`
}

// FlockingConfig holds sensor and reference-policy parameters.
type FlockingConfig struct {
	MaxSpeed           float64 `yaml:"max_speed"`
	MinInitialSpeed    float64 `yaml:"min_initial_speed"`
	PerceptionRadius   float64 `yaml:"perception_radius"`
	AlignmentFactor    float64 `yaml:"alignment_factor"`
	CohesionFactor     float64 `yaml:"cohesion_factor"`
	SeparationFactor   float64 `yaml:"separation_factor"`
	Agility            float64 `yaml:"agility"`
	IgnoreOtherSpecies bool    `yaml:"ignore_other_species"`
	ToroidalOffsets    bool    `yaml:"toroidal_offsets"`   // cohesion/separation across the seam
	SeparationEpsilon  float64 `yaml:"separation_epsilon"` // distance floor for coincident neighbors
	GridCellSize       float64 `yaml:"grid_cell_size"`     // spatial index cell size (0 = perception radius)
}

// FitnessConfig holds the per-tick fitness weights.
type FitnessConfig struct {
	AngleWeight     float64 `yaml:"angle_weight"`
	MagnitudeWeight float64 `yaml:"magnitude_weight"`
	AvoidanceWeight float64 `yaml:"avoidance_weight"`
	Epsilon         float64 `yaml:"epsilon"`
}

// ControllerConfig holds controller adapter settings.
type ControllerConfig struct {
	Normalization string `yaml:"normalization"`
}

// EvolutionConfig holds population and NEAT parameters.
type EvolutionConfig struct {
	PopulationSize int `yaml:"population_size"`
	EpochLength    int `yaml:"epoch_length"` // ticks per generation

	// Initial topology
	InitialConnectionProb float64 `yaml:"initial_connection_prob"`
	WeightInitMin         float64 `yaml:"weight_init_min"`
	WeightInitMax         float64 `yaml:"weight_init_max"`
	HiddenActivation      string  `yaml:"hidden_activation"`

	// Speciation
	ExcessCoeff            float64 `yaml:"c1"`
	DisjointCoeff          float64 `yaml:"c2"`
	WeightDiffCoeff        float64 `yaml:"c3"`
	CompatibilityThreshold float64 `yaml:"compatibility_threshold"`
	InterspeciesMatingRate float64 `yaml:"interspecies_mating_rate"`

	// Mutation
	WeightMutationRate     float64 `yaml:"weight_mutation_rate"`
	AddConnectionRate      float64 `yaml:"add_connection_mutation_rate"`
	AddNodeRate            float64 `yaml:"add_node_mutation_rate"`
	ToggleEnableRate       float64 `yaml:"toggle_enable_rate"`
	MinWeight              float64 `yaml:"min_weight"`
	MaxWeight              float64 `yaml:"max_weight"`
	ReinitializeWeightRate float64 `yaml:"reinitialize_weight_rate"`
	MinPerturb             float64 `yaml:"min_perturb"`
	MaxPerturb             float64 `yaml:"max_perturb"`
	AllowRecurrent         bool    `yaml:"allow_recurrent_connections"`

	// Selection
	SurvivalRate              float64 `yaml:"survival_rate"`
	NumElite                  int     `yaml:"num_elite"`
	DropOffAge                int     `yaml:"drop_off_age"`
	PopulationStagnationLimit int     `yaml:"population_stagnation_limit"`
	KeepDisabledRate          float64 `yaml:"keep_disabled_on_crossover_rate"`
	MutateOnlyProb            float64 `yaml:"mutate_only_prob"`
}

// ObstacleConfig holds the avoidance input settings.
type ObstacleConfig struct {
	Source       string  `yaml:"source"`
	DangerRadius float64 `yaml:"danger_radius"`
	OrbitRadius  float64 `yaml:"orbit_radius"` // orbit source only
	OrbitPeriod  int     `yaml:"orbit_period"` // ticks per revolution
}

// ClassicConfig holds settings for the reference-policy-only mode.
type ClassicConfig struct {
	Count   int `yaml:"count"`
	Species int `yaml:"species"`
}

// ParallelConfig holds worker pool settings for the sensing phase.
type ParallelConfig struct {
	Threshold int `yaml:"threshold"` // minimum roster size for parallel sensing (0 = never)
	Workers   int `yaml:"workers"`   // 0 = GOMAXPROCS
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	PerfWindow int  `yaml:"perf_window"`
	Plot       bool `yaml:"plot"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	WorldW     float64 // effective world width
	WorldH     float64 // effective world height
	MaxWrapped float64 // largest possible toroidal distance
	CellSize   float64 // effective spatial grid cell size
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

// Default returns a fresh copy of the embedded defaults.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults are invalid: %v", err))
	}
	return cfg
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

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

	cfg.computeDerived()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// Recompute refreshes derived values after fields were changed in code.
func (c *Config) Recompute() {
	c.computeDerived()
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	// World dimensions default to screen size if not specified
	c.Derived.WorldW = c.World.Width
	if c.Derived.WorldW == 0 {
		c.Derived.WorldW = float64(c.Screen.Width)
	}
	c.Derived.WorldH = c.World.Height
	if c.Derived.WorldH == 0 {
		c.Derived.WorldH = float64(c.Screen.Height)
	}
	c.Derived.MaxWrapped = math.Hypot(c.Derived.WorldW/2, c.Derived.WorldH/2)

	c.Derived.CellSize = c.Flocking.GridCellSize
	if c.Derived.CellSize <= 0 {
		c.Derived.CellSize = c.Flocking.PerceptionRadius
	}
}

// Validate checks the configuration for values the simulation cannot run with.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeAI, ModeClassic:
	default:
		return fmt.Errorf("config: unknown mode %q", c.Mode)
	}
	switch c.World.Wrap {
	case WrapReset, WrapModulo:
	default:
		return fmt.Errorf("config: unknown wrap policy %q", c.World.Wrap)
	}
	switch c.Controller.Normalization {
	case NormalizeAffine, NormalizeRaw:
	default:
		return fmt.Errorf("config: unknown normalization %q", c.Controller.Normalization)
	}
	switch c.Obstacle.Source {
	case ObstaclePointer, ObstacleOrbit, ObstacleNone:
	default:
		return fmt.Errorf("config: unknown obstacle source %q", c.Obstacle.Source)
	}
	switch c.Evolution.HiddenActivation {
	case "", "tanh", "sigmoid", "gaussian", "sine", "linear", "mixed":
	default:
		return fmt.Errorf("config: unknown hidden activation %q", c.Evolution.HiddenActivation)
	}

	if c.Derived.WorldW <= 0 || c.Derived.WorldH <= 0 {
		return fmt.Errorf("config: world size must be positive, got %gx%g", c.Derived.WorldW, c.Derived.WorldH)
	}
	if c.Flocking.MaxSpeed <= 0 {
		return fmt.Errorf("config: flocking.max_speed must be positive")
	}
	if c.Flocking.MinInitialSpeed <= 0 || c.Flocking.MinInitialSpeed > c.Flocking.MaxSpeed {
		return fmt.Errorf("config: flocking.min_initial_speed must be in (0, max_speed]")
	}
	if c.Flocking.PerceptionRadius <= 0 {
		return fmt.Errorf("config: flocking.perception_radius must be positive")
	}
	if c.Obstacle.DangerRadius <= 0 {
		return fmt.Errorf("config: obstacle.danger_radius must be positive")
	}
	if c.Evolution.PopulationSize <= 0 {
		return fmt.Errorf("config: evolution.population_size must be positive")
	}
	if c.Evolution.EpochLength <= 0 {
		return fmt.Errorf("config: evolution.epoch_length must be positive")
	}
	if c.Evolution.MinWeight >= c.Evolution.MaxWeight {
		return fmt.Errorf("config: evolution.min_weight must be below max_weight")
	}
	if c.Fitness.AngleWeight < 0 || c.Fitness.MagnitudeWeight < 0 || c.Fitness.AvoidanceWeight < 0 {
		return fmt.Errorf("config: fitness weights must be non-negative")
	}
	if c.Classic.Species <= 0 {
		return fmt.Errorf("config: classic.species must be positive")
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
