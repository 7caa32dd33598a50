package telemetry

import (
	"log/slog"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/flock/evo"
)

// EpochStats summarizes one generation at the epoch boundary, before evolution.
type EpochStats struct {
	Generation int `csv:"generation"`
	Tick       int `csv:"tick"`
	Population int `csv:"population"`

	// Fitness distribution over the population
	BestFitness float64 `csv:"best"`
	MeanFitness float64 `csv:"mean"`
	StdFitness  float64 `csv:"std"`
	MinFitness  float64 `csv:"min"`
	P10         float64 `csv:"p10"`
	P50         float64 `csv:"p50"`
	P90         float64 `csv:"p90"`

	Species          int   `csv:"species"`
	ControllerErrors int   `csv:"controller_errors"`
	WallMS           int64 `csv:"wall_ms"`
}

// NewEpochStats computes fitness statistics from an epoch summary.
func NewEpochStats(s evo.Summary, tick, controllerErrors int, wall time.Duration) EpochStats {
	es := EpochStats{
		Generation:       s.Generation,
		Tick:             tick,
		Population:       len(s.Fitnesses),
		BestFitness:      s.BestFitness,
		Species:          len(s.Species),
		ControllerErrors: controllerErrors,
		WallMS:           wall.Milliseconds(),
	}
	if len(s.Fitnesses) == 0 {
		return es
	}

	es.MeanFitness, es.StdFitness = stat.PopMeanStdDev(s.Fitnesses, nil)
	es.MinFitness = floats.Min(s.Fitnesses)

	sorted := make([]float64, len(s.Fitnesses))
	copy(sorted, s.Fitnesses)
	sort.Float64s(sorted)
	es.P10 = Percentile(sorted, 0.10)
	es.P50 = Percentile(sorted, 0.50)
	es.P90 = Percentile(sorted, 0.90)

	return es
}

// Percentile calculates the p-th percentile of a sorted slice with linear interpolation.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	idx := p * float64(n-1)
	lo := int(idx)
	if lo+1 >= n {
		return sorted[n-1]
	}
	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[lo+1]*frac
}

// LogValue implements slog.LogValuer for structured logging.
func (s EpochStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("generation", s.Generation),
		slog.Int("tick", s.Tick),
		slog.Int("population", s.Population),
		slog.Float64("best", s.BestFitness),
		slog.Float64("mean", s.MeanFitness),
		slog.Float64("std", s.StdFitness),
		slog.Float64("p10", s.P10),
		slog.Float64("p50", s.P50),
		slog.Float64("p90", s.P90),
		slog.Int("species", s.Species),
		slog.Int("controller_errors", s.ControllerErrors),
		slog.Int64("wall_ms", s.WallMS),
	)
}

// SpeciesRow is one species at one epoch boundary.
type SpeciesRow struct {
	Generation  int     `csv:"generation"`
	SpeciesID   int     `csv:"species_id"`
	Size        int     `csv:"size"`
	BestFitness float64 `csv:"best"`
	Staleness   int     `csv:"staleness"`
}

// SpeciesRows flattens the species list of a summary.
func SpeciesRows(s evo.Summary) []SpeciesRow {
	rows := make([]SpeciesRow, len(s.Species))
	for i, sp := range s.Species {
		rows[i] = SpeciesRow{
			Generation:  s.Generation,
			SpeciesID:   sp.ID,
			Size:        sp.Size,
			BestFitness: sp.BestFitness,
			Staleness:   sp.Staleness,
		}
	}
	return rows
}
