// Package evo declares the contracts between the simulation and an evolving
// population of controllers.
package evo

import "sort"

// Controller maps a fixed-length input vector to a fixed-length output vector
// and carries a fitness value written by the simulation.
type Controller interface {
	Propagate(inputs []float64) ([]float64, error)
	Fitness() float64
	SetFitness(f float64)
}

// Population is an evolving set of controllers.
//
// Controllers returns the current generation in a stable order. Evolve reads
// the fitness of every controller, replaces the generation with offspring of
// the same size and advances Generation by one.
type Population interface {
	Controllers() []Controller
	Evolve() error
	Generation() int
	Best() (Controller, float64)
	Species() []SpeciesInfo
}

// Speciated is implemented by controllers that know which species they belong to.
type Speciated interface {
	Species() int
}

// SpeciesInfo describes one species for display and telemetry.
type SpeciesInfo struct {
	ID          int
	Size        int
	BestFitness float64
	Staleness   int
}

// Summary is the harvested state of a generation just before it is replaced.
type Summary struct {
	Generation  int
	BestFitness float64
	MeanFitness float64
	Best        Controller
	Species     []SpeciesInfo
	Fitnesses   []float64
}

// Summarize reads the current fitness of every controller in pop.
func Summarize(pop Population) Summary {
	ctrls := pop.Controllers()
	s := Summary{
		Generation: pop.Generation(),
		Species:    pop.Species(),
		Fitnesses:  make([]float64, len(ctrls)),
	}
	if len(ctrls) == 0 {
		return s
	}

	total := 0.0
	for i, c := range ctrls {
		f := c.Fitness()
		s.Fitnesses[i] = f
		total += f
		if s.Best == nil || f > s.BestFitness {
			s.Best = c
			s.BestFitness = f
		}
	}
	s.MeanFitness = total / float64(len(ctrls))

	sort.Slice(s.Species, func(i, j int) bool {
		return s.Species[i].BestFitness > s.Species[j].BestFitness
	})
	return s
}
