package systems

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"
)

func defaultWeights() SteeringWeights {
	return SteeringWeights{Alignment: 0.2, Cohesion: 1.2, Separation: 1.2, Agility: 0.1}
}

func TestReferenceSteering(t *testing.T) {
	tests := []struct {
		name  string
		sense FlockSense
		want  r2.Vec
	}{
		{"no neighbors", FlockSense{}, r2.Vec{}},
		{"alignment only", FlockSense{Alignment: r2.Vec{X: 4}, Count: 1}, r2.Vec{X: 0.08}},
		{"cohesion only", FlockSense{Cohesion: r2.Vec{Y: -4}, Count: 1}, r2.Vec{Y: -0.48}},
		{
			"separation cancels cohesion",
			FlockSense{Cohesion: r2.Vec{X: 4}, Separation: r2.Vec{X: -4}, Count: 1},
			r2.Vec{},
		},
		{
			"clamped to unit magnitude",
			FlockSense{Alignment: r2.Vec{X: 4}, Cohesion: r2.Vec{X: 4}, Separation: r2.Vec{X: 4}, Count: 1},
			r2.Vec{X: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ReferenceSteering(tt.sense, defaultWeights())
			if !vecNear(got, tt.want, 1e-12) {
				t.Errorf("ReferenceSteering = %v, want %v", got, tt.want)
			}
			if r2.Norm(got) > MaxSteering+1e-12 {
				t.Errorf("|steering| = %f exceeds %f", r2.Norm(got), MaxSteering)
			}
		})
	}
}

func TestLimit(t *testing.T) {
	tests := []struct {
		name string
		in   r2.Vec
		max  float64
		want r2.Vec
	}{
		{"below", r2.Vec{X: 0.3, Y: 0.4}, 1, r2.Vec{X: 0.3, Y: 0.4}},
		{"above", r2.Vec{X: 3, Y: 4}, 1, r2.Vec{X: 0.6, Y: 0.8}},
		{"zero", r2.Vec{}, 1, r2.Vec{}},
		{"nan", r2.Vec{X: math.NaN(), Y: 2}, 1, r2.Vec{Y: 1}},
		{"inf", r2.Vec{X: math.Inf(1), Y: 0}, 1, r2.Vec{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Limit(tt.in, tt.max)
			if !vecNear(got, tt.want, 1e-12) {
				t.Errorf("Limit(%v, %f) = %v, want %v", tt.in, tt.max, got, tt.want)
			}
		})
	}
}

// stubController returns fixed outputs.
type stubController struct {
	out     []float64
	err     error
	fitness float64
	lastIn  []float64
}

func (c *stubController) Propagate(in []float64) ([]float64, error) {
	c.lastIn = append(c.lastIn[:0], in...)
	return c.out, c.err
}
func (c *stubController) Fitness() float64     { return c.fitness }
func (c *stubController) SetFitness(f float64) { c.fitness = f }

func TestControllerInputs(t *testing.T) {
	s := FlockSense{
		Alignment:  r2.Vec{X: 1, Y: -1},
		Cohesion:   r2.Vec{X: 0.5, Y: 0},
		Separation: r2.Vec{X: -0.5, Y: 0.25},
	}
	avoid := r2.Vec{X: 0.2, Y: -0.2}

	raw := ControllerInputs(s, avoid, NormalizeRaw)
	wantRaw := [ControllerInputCount]float64{1, -1, 0.5, 0, -0.5, 0.25, 0.2, -0.2}
	if raw != wantRaw {
		t.Errorf("raw inputs = %v, want %v", raw, wantRaw)
	}

	affine := ControllerInputs(s, avoid, NormalizeAffine)
	for i := range affine {
		want := wantRaw[i]/2 + 0.5
		if math.Abs(affine[i]-want) > 1e-12 {
			t.Errorf("affine input %d = %f, want %f", i, affine[i], want)
		}
	}
}

func TestControllerSteering(t *testing.T) {
	tests := []struct {
		name    string
		out     []float64
		mode    Normalization
		agility float64
		want    r2.Vec
	}{
		{"affine neutral", []float64{0.5, 0.5}, NormalizeAffine, 0.1, r2.Vec{}},
		{"affine full right", []float64{1, 0.5}, NormalizeAffine, 0.1, r2.Vec{X: 0.1}},
		{"affine full down-left", []float64{0, 0}, NormalizeAffine, 0.1, r2.Vec{X: -0.1, Y: -0.1}},
		{"raw clamped", []float64{3, 4}, NormalizeRaw, 1, r2.Vec{X: 0.6, Y: 0.8}},
		{"nan output is neutral", []float64{math.NaN(), 1}, NormalizeAffine, 0.5, r2.Vec{Y: 0.5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &stubController{out: tt.out}
			got, err := ControllerSteering(c, [ControllerInputCount]float64{}, tt.mode, tt.agility)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !vecNear(got, tt.want, 1e-12) {
				t.Errorf("ControllerSteering = %v, want %v", got, tt.want)
			}
			if len(c.lastIn) != ControllerInputCount {
				t.Errorf("controller received %d inputs, want %d", len(c.lastIn), ControllerInputCount)
			}
		})
	}
}

func TestControllerSteeringErrors(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name string
		c    *stubController
	}{
		{"propagate error", &stubController{err: boom}},
		{"too few outputs", &stubController{out: []float64{1}}},
		{"too many outputs", &stubController{out: []float64{1, 2, 3}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ControllerSteering(tt.c, [ControllerInputCount]float64{}, NormalizeAffine, 0.1)
			if err == nil {
				t.Fatal("expected an error")
			}
			if got != (r2.Vec{}) {
				t.Errorf("steering on error = %v, want zero", got)
			}
		})
	}

	_, err := ControllerSteering(&stubController{err: boom}, [ControllerInputCount]float64{}, NormalizeAffine, 0.1)
	if !errors.Is(err, boom) {
		t.Errorf("error should wrap the controller error, got %v", err)
	}
}

func TestParseNormalization(t *testing.T) {
	if m, err := ParseNormalization("affine"); err != nil || m != NormalizeAffine {
		t.Errorf("ParseNormalization(affine) = %v, %v", m, err)
	}
	if m, err := ParseNormalization("raw"); err != nil || m != NormalizeRaw {
		t.Errorf("ParseNormalization(raw) = %v, %v", m, err)
	}
	if _, err := ParseNormalization("tanh"); err == nil {
		t.Error("expected error for unknown normalization")
	}
}
