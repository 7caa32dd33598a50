package systems

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// ToroidalDelta returns the shortest displacement from a to b on a w×h torus.
// A separation of exactly half the world keeps the raw difference.
func ToroidalDelta(a, b r2.Vec, w, h float64) r2.Vec {
	return r2.Vec{
		X: wrapAxis(b.X-a.X, w),
		Y: wrapAxis(b.Y-a.Y, h),
	}
}

func wrapAxis(d, dim float64) float64 {
	if d > dim/2 {
		return d - dim
	}
	if d < -dim/2 {
		return d + dim
	}
	return d
}

// ToroidalDistance returns the wrapped Euclidean distance between a and b.
func ToroidalDistance(a, b r2.Vec, w, h float64) float64 {
	dx := math.Abs(b.X - a.X)
	dy := math.Abs(b.Y - a.Y)
	dx = math.Min(dx, w-dx)
	dy = math.Min(dy, h-dy)
	return math.Hypot(dx, dy)
}

// MaxToroidalDistance is the largest distance two points on a w×h torus can be apart.
func MaxToroidalDistance(w, h float64) float64 {
	return math.Hypot(w/2, h/2)
}

// mod returns the non-negative remainder of x/m.
func mod(x, m float64) float64 {
	r := math.Mod(x, m)
	if r < 0 {
		r += m
	}
	// math.Mod of a tiny negative value can round up to m
	if r >= m {
		r = 0
	}
	return r
}
