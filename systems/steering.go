package systems

import (
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/flock/config"
)

// MaxSteering is the magnitude cap applied to every steering vector.
const MaxSteering = 1.0

// SteeringWeights are the reference policy gains.
type SteeringWeights struct {
	Alignment  float64
	Cohesion   float64
	Separation float64
	Agility    float64
}

// SteeringWeightsFromConfig reads the gains from the flocking section.
func SteeringWeightsFromConfig(cfg *config.Config) SteeringWeights {
	return SteeringWeights{
		Alignment:  cfg.Flocking.AlignmentFactor,
		Cohesion:   cfg.Flocking.CohesionFactor,
		Separation: cfg.Flocking.SeparationFactor,
		Agility:    cfg.Flocking.Agility,
	}
}

// ReferenceSteering is the hand-written flocking rule: a weighted sum of the three
// accumulators, scaled by agility and clamped to MaxSteering.
func ReferenceSteering(s FlockSense, w SteeringWeights) r2.Vec {
	sum := r2.Add(
		r2.Add(r2.Scale(w.Alignment, s.Alignment), r2.Scale(w.Cohesion, s.Cohesion)),
		r2.Scale(w.Separation, s.Separation),
	)
	return Limit(r2.Scale(w.Agility, sum), MaxSteering)
}
