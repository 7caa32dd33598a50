// Package components defines ECS components for the simulation.
package components

import (
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/flock/evo"
)

// Position represents an entity's world position.
type Position struct {
	r2.Vec
}

// Velocity represents an entity's velocity.
type Velocity struct {
	r2.Vec
}

// Boid holds per-agent flocking parameters.
type Boid struct {
	Species          uint8
	PerceptionRadius float64
	Slot             int // stable roster index, also the controller index in AI mode
}

// Brain links an agent to its controller. Nil in classic mode.
type Brain struct {
	Controller evo.Controller
}

// FitnessRecord accumulates per-tick fitness samples for the current epoch.
type FitnessRecord struct {
	Samples []float64
	sum     float64
}

// Record appends a sample and returns the mean of all samples so far.
func (r *FitnessRecord) Record(v float64) float64 {
	r.Samples = append(r.Samples, v)
	r.sum += v
	return r.sum / float64(len(r.Samples))
}

// Mean returns the mean of the recorded samples, 0 if there are none.
func (r *FitnessRecord) Mean() float64 {
	if len(r.Samples) == 0 {
		return 0
	}
	return r.sum / float64(len(r.Samples))
}

// Reset clears the record for a new epoch.
func (r *FitnessRecord) Reset() {
	r.Samples = r.Samples[:0]
	r.sum = 0
}
