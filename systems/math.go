package systems

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Limit clamps the magnitude of v to max. Non-finite components are zeroed first.
func Limit(v r2.Vec, max float64) r2.Vec {
	v = finite(v)
	n := r2.Norm(v)
	if n <= max || n == 0 {
		return v
	}
	return r2.Scale(max/n, v)
}

// SetMag rescales v to magnitude m. A zero vector stays zero.
func SetMag(v r2.Vec, m float64) r2.Vec {
	v = finite(v)
	n := r2.Norm(v)
	if n == 0 {
		return r2.Vec{}
	}
	return r2.Scale(m/n, v)
}

// finite replaces NaN and infinite components with 0.
func finite(v r2.Vec) r2.Vec {
	if math.IsNaN(v.X) || math.IsInf(v.X, 0) {
		v.X = 0
	}
	if math.IsNaN(v.Y) || math.IsInf(v.Y, 0) {
		v.Y = 0
	}
	return v
}

// isFinite reports whether both components are finite.
func isFinite(v r2.Vec) bool {
	return !math.IsNaN(v.X) && !math.IsInf(v.X, 0) && !math.IsNaN(v.Y) && !math.IsInf(v.Y, 0)
}

// Heading returns the angle of v in radians.
func Heading(v r2.Vec) float64 {
	return math.Atan2(v.Y, v.X)
}
