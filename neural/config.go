package neural

import (
	"fmt"

	"github.com/yaricom/goNEAT/v4/neat"
	neatmath "github.com/yaricom/goNEAT/v4/neat/math"

	"github.com/pthm-cable/flock/config"
)

// BrainInputs is the number of sensory inputs to the brain network, excluding bias.
const BrainInputs = 8

// BrainOutputs is the number of outputs from the brain network.
const BrainOutputs = 2

// Node ID layout of a fresh brain genome.
const (
	biasNodeID      = BrainInputs + 1
	firstOutputID   = biasNodeID + 1
	firstFreeNodeID = firstOutputID + BrainOutputs
)

// Options holds all evolution parameters. NEAT carries the coefficients goNEAT
// already has fields for; the rest are specific to this population.
type Options struct {
	NEAT *neat.Options

	PopulationSize        int
	InitialConnectionProb float64
	WeightInitMin         float64
	WeightInitMax         float64
	HiddenActivations     []neatmath.NodeActivationType

	InterspeciesMatingRate float64
	ReinitializeWeightRate float64
	MinPerturb             float64
	MaxPerturb             float64
	MinWeight              float64
	MaxWeight              float64
	AllowRecurrent         bool

	NumElite                  int
	PopulationStagnationLimit int
	KeepDisabledRate          float64
}

// OptionsFromConfig builds evolution options from the evolution section.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	e := cfg.Evolution
	acts, err := parseActivations(e.HiddenActivation)
	if err != nil {
		return Options{}, err
	}

	return Options{
		NEAT: &neat.Options{
			// Weight mutation
			WeightMutPower:        e.MaxPerturb,
			MutateLinkWeightsProb: e.WeightMutationRate,

			// Structural mutation rates
			MutateAddNodeProb:      e.AddNodeRate,
			MutateAddLinkProb:      e.AddConnectionRate,
			MutateToggleEnableProb: e.ToggleEnableRate,
			MutateOnlyProb:         e.MutateOnlyProb,

			// Speciation
			CompatThreshold: e.CompatibilityThreshold,
			ExcessCoeff:     e.ExcessCoeff,
			DisjointCoeff:   e.DisjointCoeff,
			MutdiffCoeff:    e.WeightDiffCoeff,

			// Species management
			DropOffAge:     e.DropOffAge,
			SurvivalThresh: e.SurvivalRate,

			PopSize: e.PopulationSize,
		},
		PopulationSize:            e.PopulationSize,
		InitialConnectionProb:     e.InitialConnectionProb,
		WeightInitMin:             e.WeightInitMin,
		WeightInitMax:             e.WeightInitMax,
		HiddenActivations:         acts,
		InterspeciesMatingRate:    e.InterspeciesMatingRate,
		ReinitializeWeightRate:    e.ReinitializeWeightRate,
		MinPerturb:                e.MinPerturb,
		MaxPerturb:                e.MaxPerturb,
		MinWeight:                 e.MinWeight,
		MaxWeight:                 e.MaxWeight,
		AllowRecurrent:            e.AllowRecurrent,
		NumElite:                  e.NumElite,
		PopulationStagnationLimit: e.PopulationStagnationLimit,
		KeepDisabledRate:          e.KeepDisabledRate,
	}, nil
}

// DefaultOptions returns the options from the embedded default configuration.
func DefaultOptions() Options {
	opts, err := OptionsFromConfig(config.Default())
	if err != nil {
		panic(fmt.Sprintf("neural: default options: %v", err))
	}
	return opts
}

// parseActivations maps a hidden_activation setting to goNEAT activation types.
// "mixed" draws from the full set used for CPPN-style nodes.
func parseActivations(name string) ([]neatmath.NodeActivationType, error) {
	switch name {
	case "tanh", "":
		return []neatmath.NodeActivationType{neatmath.TanhActivation}, nil
	case "sigmoid":
		return []neatmath.NodeActivationType{neatmath.SigmoidSteepenedActivation}, nil
	case "gaussian":
		return []neatmath.NodeActivationType{neatmath.GaussianBipolarActivation}, nil
	case "sine":
		return []neatmath.NodeActivationType{neatmath.SineActivation}, nil
	case "linear":
		return []neatmath.NodeActivationType{neatmath.LinearActivation}, nil
	case "mixed":
		return []neatmath.NodeActivationType{
			neatmath.SigmoidSteepenedActivation,
			neatmath.TanhActivation,
			neatmath.GaussianBipolarActivation,
			neatmath.SineActivation,
			neatmath.LinearActivation,
		}, nil
	}
	return nil, fmt.Errorf("unknown hidden activation %q", name)
}
