package main

import (
	"github.com/pthm-cable/flock/config"
)

// ParamSpec defines a single tunable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
}

// ParamVector holds the set of all tunable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the standard set of evolution hyperparameters.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			{Name: "weight_mutation_rate", Path: "evolution.weight_mutation_rate", Min: 0.1, Max: 1.0, Default: 0.8},
			{Name: "add_node_rate", Path: "evolution.add_node_mutation_rate", Min: 0.0, Max: 0.5, Default: 0.3},
			{Name: "add_link_rate", Path: "evolution.add_connection_mutation_rate", Min: 0.0, Max: 0.8, Default: 0.5},
			{Name: "compatibility_threshold", Path: "evolution.compatibility_threshold", Min: 0.5, Max: 6.0, Default: 3.0},
			{Name: "survival_rate", Path: "evolution.survival_rate", Min: 0.05, Max: 0.6, Default: 0.2},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		clamped[i] = min(max(v[i], spec.Min), spec.Max)
	}
	return clamped
}

// ApplyToConfig writes parameter values into cfg. Order matches Specs.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	clamped := pv.Clamp(values)

	ev := &cfg.Evolution
	ev.WeightMutationRate = clamped[0]
	ev.AddNodeRate = clamped[1]
	ev.AddConnectionRate = clamped[2]
	ev.CompatibilityThreshold = clamped[3]
	ev.SurvivalRate = clamped[4]
}

// ExtractFromConfig reads the current parameter values from cfg.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	ev := &cfg.Evolution
	return []float64{
		ev.WeightMutationRate,
		ev.AddNodeRate,
		ev.AddConnectionRate,
		ev.CompatibilityThreshold,
		ev.SurvivalRate,
	}
}
