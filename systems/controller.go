package systems

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/flock/config"
	"github.com/pthm-cable/flock/evo"
)

// ControllerInputCount is the number of scalars fed to a controller.
const ControllerInputCount = 8

// ControllerOutputCount is the number of scalars read back from a controller.
const ControllerOutputCount = 2

// Normalization selects how inputs and outputs are mapped between the world and a controller.
type Normalization int

const (
	// NormalizeAffine maps inputs with v/2+0.5 and outputs with 2y-1.
	NormalizeAffine Normalization = iota
	// NormalizeRaw passes values through unchanged.
	NormalizeRaw
)

// ParseNormalization converts a config value to a Normalization.
func ParseNormalization(s string) (Normalization, error) {
	switch s {
	case config.NormalizeAffine:
		return NormalizeAffine, nil
	case config.NormalizeRaw:
		return NormalizeRaw, nil
	}
	return 0, fmt.Errorf("unknown normalization %q", s)
}

// ControllerInputs packs the sensor and avoidance vectors into controller order:
// alignment, cohesion, separation, avoidance, x before y.
func ControllerInputs(s FlockSense, avoidance r2.Vec, mode Normalization) [ControllerInputCount]float64 {
	in := [ControllerInputCount]float64{
		s.Alignment.X, s.Alignment.Y,
		s.Cohesion.X, s.Cohesion.Y,
		s.Separation.X, s.Separation.Y,
		avoidance.X, avoidance.Y,
	}
	if mode == NormalizeAffine {
		for i, v := range in {
			in[i] = v/2 + 0.5
		}
	}
	return in
}

// ControllerSteering runs c on inputs and converts its outputs into a steering vector
// scaled by agility and clamped to MaxSteering.
//
// A propagate failure or wrong output arity yields the zero vector and the error.
// Non-finite outputs are read as 0.
func ControllerSteering(c evo.Controller, inputs [ControllerInputCount]float64, mode Normalization, agility float64) (r2.Vec, error) {
	out, err := c.Propagate(inputs[:])
	if err != nil {
		return r2.Vec{}, fmt.Errorf("propagate: %w", err)
	}
	if len(out) != ControllerOutputCount {
		return r2.Vec{}, fmt.Errorf("propagate: expected %d outputs, got %d", ControllerOutputCount, len(out))
	}

	v := r2.Vec{X: decodeOutput(out[0], mode), Y: decodeOutput(out[1], mode)}
	return Limit(r2.Scale(agility, v), MaxSteering), nil
}

func decodeOutput(y float64, mode Normalization) float64 {
	if math.IsNaN(y) || math.IsInf(y, 0) {
		return 0
	}
	if mode == NormalizeAffine {
		return 2*y - 1
	}
	return y
}
