// Package game owns the simulation state: the agent roster, the per-tick update and
// the epoch boundary where the controller population evolves.
package game

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/flock/components"
	"github.com/pthm-cable/flock/config"
	"github.com/pthm-cable/flock/evo"
	"github.com/pthm-cable/flock/systems"
	"github.com/pthm-cable/flock/telemetry"
)

// ErrEvolution wraps any failure of the population's evolution step. It is fatal to the run.
var ErrEvolution = errors.New("evolution failed")

// Options configures a Simulation beyond the config file.
type Options struct {
	Seed      int64
	OutputDir string // empty disables CSV and plot output
	LogStats  bool   // log perf stats at every epoch boundary
}

// Inputs is the external state sampled once per tick.
type Inputs struct {
	Obstacle    r2.Vec
	HasObstacle bool
}

// AgentView is what a renderer needs to draw one agent.
type AgentView struct {
	Pos     r2.Vec
	Heading float64 // radians, direction of velocity
	Species int     // NEAT species in AI mode, flock group in classic mode
}

// Simulation is the complete simulation state.
type Simulation struct {
	cfg  *config.Config
	opts Options
	rng  *rand.Rand

	world      *ecs.World
	boidMapper *ecs.Map5[
		components.Position,
		components.Velocity,
		components.Boid,
		components.Brain,
		components.FitnessRecord,
	]
	boidFilter *ecs.Filter5[
		components.Position,
		components.Velocity,
		components.Boid,
		components.Brain,
		components.FitnessRecord,
	]

	// Roster in slot order
	entities []ecs.Entity

	// Nil in classic mode
	pop evo.Population

	// Per-tick rules
	flock    systems.FlockParams
	steering systems.SteeringWeights
	fitness  systems.FitnessWeights
	norm     systems.Normalization
	wrap     systems.WrapMode
	bounds   systems.Bounds

	grid     *systems.SpatialGrid
	parallel *parallelState

	// Obstacle used by the last tick
	obstacle    r2.Vec
	hasObstacle bool

	// State
	tick        int
	epoch       int
	epochStart  time.Time
	summary     evo.Summary
	epochErrors int // controller failures this epoch
	totalErrors int

	perf   *telemetry.PerfCollector
	output *telemetry.OutputManager
}

// New creates an AI-mode simulation with one agent per controller of pop.
func New(cfg *config.Config, pop evo.Population, opts Options) (*Simulation, error) {
	if pop == nil {
		return nil, fmt.Errorf("nil population")
	}
	if len(pop.Controllers()) == 0 {
		return nil, fmt.Errorf("empty population")
	}

	s, err := newSimulation(cfg, opts)
	if err != nil {
		return nil, err
	}
	s.pop = pop
	s.summary = evo.Summary{Generation: pop.Generation(), Species: pop.Species()}
	s.spawnGeneration()
	return s, nil
}

// NewClassic creates a simulation driven only by the reference flocking rule.
// classic.count agents are split round-robin into classic.species groups that ignore
// each other.
func NewClassic(cfg *config.Config, opts Options) (*Simulation, error) {
	if cfg.Classic.Count <= 0 {
		return nil, fmt.Errorf("classic.count must be positive, got %d", cfg.Classic.Count)
	}

	s, err := newSimulation(cfg, opts)
	if err != nil {
		return nil, err
	}
	s.flock.IgnoreOtherSpecies = true
	s.spawnClassic()
	return s, nil
}

func newSimulation(cfg *config.Config, opts Options) (*Simulation, error) {
	norm, err := systems.ParseNormalization(cfg.Controller.Normalization)
	if err != nil {
		return nil, err
	}
	wrap, err := systems.ParseWrapMode(cfg.World.Wrap)
	if err != nil {
		return nil, err
	}

	output, err := telemetry.NewOutputManager(opts.OutputDir, cfg.Telemetry.Plot)
	if err != nil {
		return nil, err
	}
	if err := output.WriteConfig(cfg); err != nil {
		output.Close()
		return nil, fmt.Errorf("writing config snapshot: %w", err)
	}

	world := ecs.NewWorld()
	w, h := cfg.Derived.WorldW, cfg.Derived.WorldH

	s := &Simulation{
		cfg:   cfg,
		opts:  opts,
		rng:   rand.New(rand.NewSource(opts.Seed)),
		world: world,
		boidMapper: ecs.NewMap5[
			components.Position,
			components.Velocity,
			components.Boid,
			components.Brain,
			components.FitnessRecord,
		](world),
		boidFilter: ecs.NewFilter5[
			components.Position,
			components.Velocity,
			components.Boid,
			components.Brain,
			components.FitnessRecord,
		](world),
		flock: systems.FlockParams{
			MaxSpeed:           cfg.Flocking.MaxSpeed,
			Width:              w,
			Height:             h,
			IgnoreOtherSpecies: cfg.Flocking.IgnoreOtherSpecies,
			Epsilon:            cfg.Flocking.SeparationEpsilon,
			ToroidalOffsets:    cfg.Flocking.ToroidalOffsets,
		},
		steering:   systems.SteeringWeightsFromConfig(cfg),
		fitness:    systems.FitnessWeightsFromConfig(cfg),
		norm:       norm,
		wrap:       wrap,
		bounds:     systems.Bounds{Width: w, Height: h},
		grid:       systems.NewSpatialGrid(w, h, cfg.Derived.CellSize),
		parallel:   newParallelState(cfg.Parallel.Workers),
		epochStart: time.Now(),
		perf:       telemetry.NewPerfCollector(cfg.Telemetry.PerfWindow),
		output:     output,
	}
	return s, nil
}

// Config returns the configuration the simulation was built with.
func (s *Simulation) Config() *config.Config {
	return s.cfg
}

// Classic reports whether agents follow the reference rule instead of controllers.
func (s *Simulation) Classic() bool {
	return s.pop == nil
}

// Population returns the evolving population, nil in classic mode.
func (s *Simulation) Population() evo.Population {
	return s.pop
}

// Tick returns the number of completed ticks.
func (s *Simulation) Tick() int {
	return s.tick
}

// Epoch returns the number of completed epochs.
func (s *Simulation) Epoch() int {
	return s.epoch
}

// EpochProgress returns how far the current epoch has run, in [0, 1).
func (s *Simulation) EpochProgress() float64 {
	n := s.cfg.Evolution.EpochLength
	return float64(s.tick%n) / float64(n)
}

// Summary returns the summary of the last completed epoch. Before the first
// boundary it only carries the initial generation and species.
func (s *Simulation) Summary() evo.Summary {
	return s.summary
}

// ControllerErrors returns how many controller activations have failed so far.
func (s *Simulation) ControllerErrors() int {
	return s.totalErrors
}

// Obstacle returns the obstacle used by the last tick.
func (s *Simulation) Obstacle() (r2.Vec, bool) {
	return s.obstacle, s.hasObstacle
}

// Perf returns the rolling timing statistics.
func (s *Simulation) Perf() telemetry.PerfStats {
	return s.perf.Stats()
}

// RecordFrame marks a rendered frame for FPS reporting.
func (s *Simulation) RecordFrame() {
	s.perf.RecordFrame()
}

// Len returns the roster size.
func (s *Simulation) Len() int {
	return len(s.entities)
}

// Agents returns the drawable state of every agent in slot order.
func (s *Simulation) Agents() []AgentView {
	views := make([]AgentView, len(s.entities))
	for i, e := range s.entities {
		pos, vel, boid, brain, _ := s.boidMapper.Get(e)
		species := int(boid.Species)
		if sp, ok := brain.Controller.(evo.Speciated); ok {
			species = sp.Species()
		}
		views[i] = AgentView{
			Pos:     pos.Vec,
			Heading: systems.Heading(vel.Vec),
			Species: species,
		}
	}
	return views
}

// Close stops the worker pool and flushes output.
func (s *Simulation) Close() error {
	s.parallel.stopWorkers()
	return s.output.Close()
}
