package systems

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/flock/config"
)

// WrapMode selects how positions leaving the world re-enter it.
type WrapMode int

const (
	// WrapReset sends a coordinate past the upper bound to 0 and one below 0 to
	// just under the upper bound. Overshoot is discarded.
	WrapReset WrapMode = iota
	// WrapModulo continues from the opposite edge plus the overshoot.
	WrapModulo
)

// ParseWrapMode converts a config value to a WrapMode.
func ParseWrapMode(s string) (WrapMode, error) {
	switch s {
	case config.WrapReset:
		return WrapReset, nil
	case config.WrapModulo:
		return WrapModulo, nil
	}
	return 0, fmt.Errorf("unknown wrap policy %q", s)
}

// Bounds represents the simulation bounds.
type Bounds struct {
	Width, Height float64
}

// Integrate applies steering to vel, clamps speed, advances pos and wraps it into bounds.
// If the new velocity is zero or not finite the previous velocity is kept.
func Integrate(pos, vel *r2.Vec, steering r2.Vec, maxSpeed float64, b Bounds, wrap WrapMode) {
	next := Limit(r2.Add(*vel, finite(steering)), maxSpeed)
	if r2.Norm(next) > 0 && isFinite(next) {
		*vel = next
	} else {
		*vel = Limit(*vel, maxSpeed)
	}

	p := r2.Add(*pos, *vel)
	p.X = wrapCoord(p.X, b.Width, wrap)
	p.Y = wrapCoord(p.Y, b.Height, wrap)
	*pos = p
}

// wrapCoord keeps x in [0, dim).
func wrapCoord(x, dim float64, wrap WrapMode) float64 {
	if wrap == WrapModulo {
		return mod(x, dim)
	}
	if x >= dim {
		return 0
	}
	if x < 0 {
		return math.Nextafter(dim, 0)
	}
	return x
}
