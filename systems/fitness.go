package systems

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/flock/config"
)

// FitnessWeights are the coefficients of the per-tick fitness sample.
type FitnessWeights struct {
	Angle     float64
	Magnitude float64
	Avoidance float64
	Epsilon   float64
}

// DefaultFitnessWeights returns w1=0.2, w2=0.2, w3=0.6, ε=1e-4.
func DefaultFitnessWeights() FitnessWeights {
	return FitnessWeights{Angle: 0.2, Magnitude: 0.2, Avoidance: 0.6, Epsilon: 1e-4}
}

// FitnessWeightsFromConfig reads the fitness section.
func FitnessWeightsFromConfig(cfg *config.Config) FitnessWeights {
	return FitnessWeights{
		Angle:     cfg.Fitness.AngleWeight,
		Magnitude: cfg.Fitness.MagnitudeWeight,
		Avoidance: cfg.Fitness.AvoidanceWeight,
		Epsilon:   cfg.Fitness.Epsilon,
	}
}

// FitnessSample is one tick's fitness and its terms.
type FitnessSample struct {
	AngleDifference     float64
	MagnitudeDifference float64
	AvoidancePenalty    float64
	Value               float64
}

// EvaluateFitness scores a controller's steering against the reference steering.
//
// AngleDifference is |ref·ctl|/(|ref||ctl|+ε); it is a similarity proxy, not a cosine,
// and is not clamped. The avoidance penalty is 1-min(|avoid|/2, 1).
func EvaluateFitness(ref, ctl, avoid r2.Vec, w FitnessWeights) FitnessSample {
	refMag := r2.Norm(ref)
	ctlMag := r2.Norm(ctl)

	s := FitnessSample{
		AngleDifference:     math.Abs(r2.Dot(ref, ctl)) / (refMag*ctlMag + w.Epsilon),
		MagnitudeDifference: math.Abs(refMag - ctlMag),
		AvoidancePenalty:    1 - math.Min(r2.Norm(avoid)/2, 1),
	}
	s.Value = 1 - w.Angle*s.AngleDifference - w.Magnitude*s.MagnitudeDifference - w.Avoidance*s.AvoidancePenalty
	return s
}
