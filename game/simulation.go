package game

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/flock/config"
	"github.com/pthm-cable/flock/evo"
	"github.com/pthm-cable/flock/systems"
	"github.com/pthm-cable/flock/telemetry"
)

// Step advances the simulation by one tick.
//
// Every agent senses the same pre-tick snapshot of the roster; motion is written back
// only after all agents have been computed. At every epoch_length ticks the population
// evolves and the roster is rebuilt. An evolution failure is returned wrapped in
// ErrEvolution and leaves the simulation unusable.
func (s *Simulation) Step(in Inputs) error {
	s.perf.StartTick()

	s.sampleObstacle(in)

	// Phase A: snapshot
	s.perf.StartPhase(telemetry.PhaseSnapshot)
	s.snapshot()

	// Phase B: sense, steer, score and move into intents
	s.perf.StartPhase(telemetry.PhaseSense)
	s.compute()

	// Phase C: apply in slot order
	s.perf.StartPhase(telemetry.PhaseApply)
	s.applyIntents()

	s.tick++
	if s.pop != nil && s.tick%s.cfg.Evolution.EpochLength == 0 {
		if err := s.endEpoch(); err != nil {
			s.perf.EndTick()
			return err
		}
	}

	s.perf.EndTick()
	return nil
}

// sampleObstacle fixes the obstacle for this tick from the configured source.
func (s *Simulation) sampleObstacle(in Inputs) {
	switch s.cfg.Obstacle.Source {
	case config.ObstaclePointer:
		s.obstacle, s.hasObstacle = in.Obstacle, in.HasObstacle
	case config.ObstacleOrbit:
		period := max(1, s.cfg.Obstacle.OrbitPeriod)
		theta := 2 * math.Pi * float64(s.tick%period) / float64(period)
		r := s.cfg.Obstacle.OrbitRadius
		s.obstacle = r2.Vec{
			X: s.bounds.Width/2 + r*math.Cos(theta),
			Y: s.bounds.Height/2 + r*math.Sin(theta),
		}
		s.hasObstacle = true
	default:
		s.obstacle, s.hasObstacle = r2.Vec{}, false
	}
}

// snapshot captures every agent's pre-tick state and rebuilds the spatial index.
func (s *Simulation) snapshot() {
	p := s.parallel
	p.snapshots = p.snapshots[:0]
	p.controllers = p.controllers[:0]

	for i, e := range s.entities {
		pos, vel, boid, brain, _ := s.boidMapper.Get(e)
		p.snapshots = append(p.snapshots, systems.Snapshot{
			Pos:        pos.Vec,
			Vel:        vel.Vec,
			Species:    boid.Species,
			Perception: boid.PerceptionRadius,
			Slot:       i,
		})
		p.controllers = append(p.controllers, brain.Controller)
	}

	s.grid.Rebuild(p.snapshots)
}

// applyIntents writes the computed motion back and records fitness.
func (s *Simulation) applyIntents() {
	p := s.parallel
	for i, e := range s.entities {
		it := &p.intents[i]
		pos, vel, _, brain, record := s.boidMapper.Get(e)

		pos.Vec = it.Pos
		vel.Vec = it.Vel

		if brain.Controller == nil {
			continue
		}
		if it.Err {
			s.epochErrors++
			s.totalErrors++
		}
		brain.Controller.SetFitness(record.Record(it.Fitness))
	}
}

// endEpoch harvests fitness, evolves the population and reseeds the roster.
func (s *Simulation) endEpoch() error {
	s.perf.StartPhase(telemetry.PhaseEvolve)

	// Fitness was written into every controller during the epoch
	summary := evo.Summarize(s.pop)
	if err := s.pop.Evolve(); err != nil {
		return fmt.Errorf("%w: generation %d: %w", ErrEvolution, summary.Generation, err)
	}
	// Species statistics are only updated by Evolve
	summary.Species = s.pop.Species()
	sort.SliceStable(summary.Species, func(i, j int) bool {
		return summary.Species[i].BestFitness > summary.Species[j].BestFitness
	})

	s.spawnGeneration()
	if n, want := s.liveCount(), len(s.pop.Controllers()); n != want {
		return fmt.Errorf("%w: reseeded %d agents for %d controllers", ErrEvolution, n, want)
	}

	s.perf.StartPhase(telemetry.PhaseTelemetry)
	s.summary = summary
	s.epoch++
	s.recordEpoch()

	s.epochErrors = 0
	s.epochStart = time.Now()
	return nil
}
