package systems

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// DefaultSeparationEpsilon is the distance floor applied to coincident neighbors.
const DefaultSeparationEpsilon = 1e-6

// Snapshot is the pre-tick state of one agent as seen by every other agent.
type Snapshot struct {
	Pos        r2.Vec
	Vel        r2.Vec
	Species    uint8
	Perception float64
	Slot       int
}

// FlockSense holds the three flocking accumulators and the neighbor count.
type FlockSense struct {
	Alignment  r2.Vec
	Cohesion   r2.Vec
	Separation r2.Vec
	Count      int
}

// FlockParams configures SenseFlock.
type FlockParams struct {
	MaxSpeed           float64
	Width, Height      float64
	IgnoreOtherSpecies bool
	Epsilon            float64 // 0 = DefaultSeparationEpsilon
	// ToroidalOffsets makes cohesion and separation use the shortest toroidal
	// displacement instead of the raw position difference.
	ToroidalOffsets bool
}

// SenseFlock computes alignment, cohesion and separation for self over the given candidates.
//
// Candidates may include self (matched by Slot) and agents outside the perception radius;
// both are skipped. Membership and the separation divisor use the toroidal distance.
// Cohesion is the mean neighbor position minus self and separation averages
// (self-neighbor)/distance, both on raw positions unless ToroidalOffsets is set.
// Each non-zero accumulator is rescaled to MaxSpeed.
func SenseFlock(self Snapshot, candidates []Snapshot, p FlockParams) FlockSense {
	eps := p.Epsilon
	if eps <= 0 {
		eps = DefaultSeparationEpsilon
	}
	radiusSq := self.Perception * self.Perception

	var velSum, posSum, awaySum r2.Vec
	count := 0

	for i := range candidates {
		other := &candidates[i]
		if other.Slot == self.Slot {
			continue
		}
		if p.IgnoreOtherSpecies && other.Species != self.Species {
			continue
		}

		d := ToroidalDelta(self.Pos, other.Pos, p.Width, p.Height)
		distSq := r2.Dot(d, d)
		if distSq > radiusSq {
			continue
		}

		// Seen from self, the neighbor sits at self+d
		seen := other.Pos
		if p.ToroidalOffsets {
			seen = r2.Add(self.Pos, d)
		}

		velSum = r2.Add(velSum, other.Vel)
		posSum = r2.Add(posSum, seen)

		dist := math.Max(math.Sqrt(distSq), eps)
		awaySum = r2.Add(awaySum, r2.Scale(1/dist, r2.Sub(self.Pos, seen)))
		count++
	}

	if count == 0 {
		return FlockSense{}
	}

	n := float64(count)
	return FlockSense{
		Alignment:  SetMag(r2.Scale(1/n, velSum), p.MaxSpeed),
		Cohesion:   SetMag(r2.Sub(r2.Scale(1/n, posSum), self.Pos), p.MaxSpeed),
		Separation: SetMag(r2.Scale(1/n, awaySum), p.MaxSpeed),
		Count:      count,
	}
}
