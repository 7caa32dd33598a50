package systems

import (
	"math"
	"math/rand"
	"sort"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"
)

func flockParams() FlockParams {
	return FlockParams{MaxSpeed: 4, Width: 800, Height: 800}
}

func vecNear(a, b r2.Vec, tol float64) bool {
	return math.Abs(a.X-b.X) <= tol && math.Abs(a.Y-b.Y) <= tol
}

func TestSenseFlockNoNeighbors(t *testing.T) {
	self := Snapshot{Pos: r2.Vec{X: 100, Y: 100}, Vel: r2.Vec{X: 1, Y: 0}, Perception: 50, Slot: 0}

	got := SenseFlock(self, []Snapshot{self}, flockParams())

	if got.Count != 0 {
		t.Errorf("Count = %d, want 0", got.Count)
	}
	if got.Alignment != (r2.Vec{}) || got.Cohesion != (r2.Vec{}) || got.Separation != (r2.Vec{}) {
		t.Errorf("expected all zero accumulators, got %+v", got)
	}
}

func TestSenseFlockSingleNeighbor(t *testing.T) {
	tests := []struct {
		name     string
		self     r2.Vec
		other    r2.Vec
		vel      r2.Vec
		toroidal bool
		align    r2.Vec
		coh      r2.Vec
		sep      r2.Vec
	}{
		{
			name:  "direct",
			self:  r2.Vec{X: 100, Y: 100},
			other: r2.Vec{X: 110, Y: 100},
			vel:   r2.Vec{X: 0, Y: 2},
			align: r2.Vec{X: 0, Y: 4},
			coh:   r2.Vec{X: 4, Y: 0},
			sep:   r2.Vec{X: -4, Y: 0},
		},
		{
			name:     "direct with toroidal offsets",
			self:     r2.Vec{X: 100, Y: 100},
			other:    r2.Vec{X: 110, Y: 100},
			vel:      r2.Vec{X: 0, Y: 2},
			toroidal: true,
			align:    r2.Vec{X: 0, Y: 4},
			coh:      r2.Vec{X: 4, Y: 0},
			sep:      r2.Vec{X: -4, Y: 0},
		},
		{
			// Membership wraps but the vectors use raw positions
			name:  "across seam right edge",
			self:  r2.Vec{X: 795, Y: 400},
			other: r2.Vec{X: 5, Y: 400},
			vel:   r2.Vec{X: 1, Y: 0},
			align: r2.Vec{X: 4, Y: 0},
			coh:   r2.Vec{X: -4, Y: 0},
			sep:   r2.Vec{X: 4, Y: 0},
		},
		{
			name:  "across seam left edge",
			self:  r2.Vec{X: 5, Y: 100},
			other: r2.Vec{X: 795, Y: 100},
			vel:   r2.Vec{X: -1, Y: 0},
			align: r2.Vec{X: -4, Y: 0},
			coh:   r2.Vec{X: 4, Y: 0},
			sep:   r2.Vec{X: -4, Y: 0},
		},
		{
			name:  "across vertical seam",
			self:  r2.Vec{X: 300, Y: 2},
			other: r2.Vec{X: 300, Y: 790},
			vel:   r2.Vec{X: 0, Y: 3},
			align: r2.Vec{X: 0, Y: 4},
			coh:   r2.Vec{X: 0, Y: 4},
			sep:   r2.Vec{X: 0, Y: -4},
		},
		{
			name:     "across seam with toroidal offsets",
			self:     r2.Vec{X: 795, Y: 400},
			other:    r2.Vec{X: 5, Y: 400},
			vel:      r2.Vec{X: 1, Y: 0},
			toroidal: true,
			align:    r2.Vec{X: 4, Y: 0},
			coh:      r2.Vec{X: 4, Y: 0},
			sep:      r2.Vec{X: -4, Y: 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			self := Snapshot{Pos: tt.self, Vel: r2.Vec{X: 1}, Perception: 50, Slot: 0}
			other := Snapshot{Pos: tt.other, Vel: tt.vel, Perception: 50, Slot: 1}
			p := flockParams()
			p.ToroidalOffsets = tt.toroidal

			got := SenseFlock(self, []Snapshot{self, other}, p)

			if got.Count != 1 {
				t.Fatalf("Count = %d, want 1", got.Count)
			}
			if !vecNear(got.Alignment, tt.align, 1e-9) {
				t.Errorf("Alignment = %v, want %v", got.Alignment, tt.align)
			}
			if !vecNear(got.Cohesion, tt.coh, 1e-9) {
				t.Errorf("Cohesion = %v, want %v", got.Cohesion, tt.coh)
			}
			if !vecNear(got.Separation, tt.sep, 1e-9) {
				t.Errorf("Separation = %v, want %v", got.Separation, tt.sep)
			}
		})
	}
}

func TestSenseFlockSeamSeparationUsesWrappedDistance(t *testing.T) {
	// Raw offset 790, wrapped distance 10: the divisor is the wrapped distance
	self := Snapshot{Pos: r2.Vec{X: 795, Y: 400}, Perception: 50, Slot: 0}
	near := Snapshot{Pos: r2.Vec{X: 5, Y: 400}, Slot: 1}
	p := flockParams()
	p.MaxSpeed = 1000

	got := SenseFlock(self, []Snapshot{self, near}, p)

	// (795-5)/10 = 79, rescaled to MaxSpeed keeps the direction only
	if !vecNear(got.Separation, r2.Vec{X: 1000}, 1e-6) {
		t.Errorf("Separation = %v, want (1000, 0)", got.Separation)
	}
}

func TestSenseFlockPerceptionBoundary(t *testing.T) {
	self := Snapshot{Pos: r2.Vec{X: 100, Y: 100}, Perception: 50, Slot: 0}
	onEdge := Snapshot{Pos: r2.Vec{X: 150, Y: 100}, Vel: r2.Vec{X: 1}, Slot: 1}
	beyond := Snapshot{Pos: r2.Vec{X: 100, Y: 150.001}, Vel: r2.Vec{X: 1}, Slot: 2}

	got := SenseFlock(self, []Snapshot{self, onEdge, beyond}, flockParams())

	if got.Count != 1 {
		t.Errorf("Count = %d, want 1 (neighbor at exactly the radius counts, beyond does not)", got.Count)
	}
}

func TestSenseFlockSpeciesFilter(t *testing.T) {
	self := Snapshot{Pos: r2.Vec{X: 100, Y: 100}, Species: 0, Perception: 50, Slot: 0}
	kin := Snapshot{Pos: r2.Vec{X: 110, Y: 100}, Vel: r2.Vec{X: 1}, Species: 0, Slot: 1}
	other := Snapshot{Pos: r2.Vec{X: 90, Y: 100}, Vel: r2.Vec{X: 1}, Species: 2, Slot: 2}
	roster := []Snapshot{self, kin, other}

	p := flockParams()
	if got := SenseFlock(self, roster, p); got.Count != 2 {
		t.Errorf("without filter: Count = %d, want 2", got.Count)
	}

	p.IgnoreOtherSpecies = true
	got := SenseFlock(self, roster, p)
	if got.Count != 1 {
		t.Errorf("with filter: Count = %d, want 1", got.Count)
	}
	if !vecNear(got.Cohesion, r2.Vec{X: 4}, 1e-9) {
		t.Errorf("with filter: Cohesion = %v, want (4, 0)", got.Cohesion)
	}
}

func TestSenseFlockCoincidentNeighbor(t *testing.T) {
	self := Snapshot{Pos: r2.Vec{X: 100, Y: 100}, Perception: 50, Slot: 0}
	twin := Snapshot{Pos: r2.Vec{X: 100, Y: 100}, Vel: r2.Vec{X: 0, Y: 3}, Slot: 1}

	got := SenseFlock(self, []Snapshot{self, twin}, flockParams())

	for name, v := range map[string]r2.Vec{
		"alignment":  got.Alignment,
		"cohesion":   got.Cohesion,
		"separation": got.Separation,
	} {
		if !isFinite(v) {
			t.Errorf("%s is not finite: %v", name, v)
		}
	}
	if got.Separation != (r2.Vec{}) {
		t.Errorf("coincident neighbor should not push, got %v", got.Separation)
	}
	if !vecNear(got.Alignment, r2.Vec{Y: 4}, 1e-9) {
		t.Errorf("Alignment = %v, want (0, 4)", got.Alignment)
	}
}

func TestSenseFlockNearlyCoincident(t *testing.T) {
	self := Snapshot{Pos: r2.Vec{X: 100, Y: 100}, Perception: 50, Slot: 0}
	close := Snapshot{Pos: r2.Vec{X: 100 + 1e-12, Y: 100}, Slot: 1}

	got := SenseFlock(self, []Snapshot{self, close}, flockParams())

	if !isFinite(got.Separation) {
		t.Fatalf("separation is not finite: %v", got.Separation)
	}
	if n := r2.Norm(got.Separation); n > 4+1e-9 {
		t.Errorf("|separation| = %f, want <= 4", n)
	}
}

func TestSpatialGridMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	const n = 300
	p := FlockParams{MaxSpeed: 4, Width: 800, Height: 600}

	roster := make([]Snapshot, n)
	for i := range roster {
		roster[i] = Snapshot{
			Pos:        r2.Vec{X: rng.Float64() * p.Width, Y: rng.Float64() * p.Height},
			Vel:        r2.Vec{X: rng.Float64()*8 - 4, Y: rng.Float64()*8 - 4},
			Species:    uint8(rng.Intn(3)),
			Perception: 50,
			Slot:       i,
		}
	}

	grid := NewSpatialGrid(p.Width, p.Height, 50)
	grid.Rebuild(roster)

	var idx []int
	var cands []Snapshot
	for i := range roster {
		idx = grid.CandidatesInto(idx[:0], roster[i].Pos, roster[i].Perception)
		sort.Ints(idx)
		cands = cands[:0]
		for _, j := range idx {
			cands = append(cands, roster[j])
		}

		want := SenseFlock(roster[i], roster, p)
		got := SenseFlock(roster[i], cands, p)

		if got.Count != want.Count {
			t.Fatalf("agent %d: grid Count = %d, brute force %d", i, got.Count, want.Count)
		}
		if !vecNear(got.Alignment, want.Alignment, 1e-12) ||
			!vecNear(got.Cohesion, want.Cohesion, 1e-12) ||
			!vecNear(got.Separation, want.Separation, 1e-12) {
			t.Fatalf("agent %d: grid sense %+v differs from brute force %+v", i, got, want)
		}
	}
}

func TestSpatialGridNoDuplicates(t *testing.T) {
	// Radius larger than the world forces the window to cover every cell.
	grid := NewSpatialGrid(100, 100, 30)
	roster := []Snapshot{
		{Pos: r2.Vec{X: 10, Y: 10}},
		{Pos: r2.Vec{X: 90, Y: 90}},
		{Pos: r2.Vec{X: 50, Y: 50}},
	}
	grid.Rebuild(roster)

	got := grid.CandidatesInto(nil, r2.Vec{X: 0, Y: 0}, 200)
	seen := make(map[int]bool)
	for _, i := range got {
		if seen[i] {
			t.Errorf("index %d returned twice", i)
		}
		seen[i] = true
	}
	if len(seen) != len(roster) {
		t.Errorf("expected %d candidates, got %d", len(roster), len(seen))
	}
}
