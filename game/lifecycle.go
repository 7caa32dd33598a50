package game

import (
	"math"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/flock/components"
	"github.com/pthm-cable/flock/evo"
)

// spawnGeneration destroys the roster and creates one fresh agent per controller of
// the current generation, in population order.
func (s *Simulation) spawnGeneration() {
	s.removeAll()

	ctrls := s.pop.Controllers()
	s.entities = s.entities[:0]
	for i, c := range ctrls {
		s.spawnAgent(i, 0, c)
	}
}

// spawnClassic creates the reference-rule roster.
func (s *Simulation) spawnClassic() {
	groups := max(1, s.cfg.Classic.Species)
	for i := 0; i < s.cfg.Classic.Count; i++ {
		s.spawnAgent(i, uint8(i%groups), nil)
	}
}

// spawnAgent creates an agent at a random position with a random velocity whose
// magnitude lies in [min_initial_speed, max_speed].
func (s *Simulation) spawnAgent(slot int, species uint8, c evo.Controller) {
	fl := &s.cfg.Flocking

	pos := components.Position{Vec: r2.Vec{
		X: s.rng.Float64() * s.bounds.Width,
		Y: s.rng.Float64() * s.bounds.Height,
	}}

	angle := s.rng.Float64() * 2 * math.Pi
	speed := fl.MinInitialSpeed + s.rng.Float64()*(fl.MaxSpeed-fl.MinInitialSpeed)
	vel := components.Velocity{Vec: r2.Vec{X: math.Cos(angle) * speed, Y: math.Sin(angle) * speed}}

	boid := components.Boid{
		Species:          species,
		PerceptionRadius: fl.PerceptionRadius,
		Slot:             slot,
	}
	brain := components.Brain{Controller: c}
	record := components.FitnessRecord{Samples: make([]float64, 0, s.cfg.Evolution.EpochLength)}

	e := s.boidMapper.NewEntity(&pos, &vel, &boid, &brain, &record)
	s.entities = append(s.entities, e)
}

// removeAll destroys every agent.
func (s *Simulation) removeAll() {
	var toRemove []ecs.Entity

	query := s.boidFilter.Query()
	for query.Next() {
		toRemove = append(toRemove, query.Entity())
	}

	for _, e := range toRemove {
		s.world.RemoveEntity(e)
	}
	s.entities = s.entities[:0]
}

// liveCount counts agents in the ECS world.
func (s *Simulation) liveCount() int {
	n := 0
	query := s.boidFilter.Query()
	for query.Next() {
		n++
	}
	return n
}
