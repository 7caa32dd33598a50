package systems

import "gonum.org/v1/gonum/spatial/r2"

// Avoidance returns the obstacle signal for an agent at pos: the toroidal displacement
// to the obstacle, capped at danger and divided by danger. Its magnitude is 1 for any
// obstacle at or beyond the danger radius and shrinks towards 0 as the obstacle closes in.
func Avoidance(pos, obstacle r2.Vec, danger float64, b Bounds) r2.Vec {
	d := ToroidalDelta(pos, obstacle, b.Width, b.Height)
	return r2.Scale(1/danger, Limit(d, danger))
}
