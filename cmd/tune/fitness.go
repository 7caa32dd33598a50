package main

import (
	"fmt"
	"math/rand"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/flock/config"
	"github.com/pthm-cable/flock/game"
	"github.com/pthm-cable/flock/neural"
)

// failedScore is returned for runs that could not finish. Valid scores lie in [-1, 0].
const failedScore = 1.0

// FitnessEvaluator runs headless simulations and scores a parameter vector.
type FitnessEvaluator struct {
	params     *ParamVector
	epochs     int
	lastGens   int
	seeds      []int64
	baseConfig *config.Config

	mu       sync.Mutex
	lastMean float64 // mean fitness of the final generation, averaged over seeds
	failures int
}

// NewFitnessEvaluator creates an evaluator running epochs generations per seed
// and scoring the best fitness of the last lastGens generations.
func NewFitnessEvaluator(params *ParamVector, epochs, lastGens int, seeds []int64, baseCfg *config.Config) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:     params,
		epochs:     epochs,
		lastGens:   max(1, min(lastGens, epochs)),
		seeds:      seeds,
		baseConfig: baseCfg,
	}
}

// LastMean returns the final-generation mean fitness from the most recent evaluation.
func (fe *FitnessEvaluator) LastMean() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastMean
}

// Failures returns how many runs failed so far.
func (fe *FitnessEvaluator) Failures() int {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.failures
}

// runResult holds the results from a single simulation run.
type runResult struct {
	best []float64 // best fitness per generation
	mean float64   // mean fitness of the final generation
	err  error
}

// Evaluate scores a raw parameter vector (lower = better): the negated mean,
// over seeds, of the per-run best fitness over the last generations.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	cfg := fe.copyConfig()
	fe.params.ApplyToConfig(cfg, x)
	if err := cfg.Validate(); err != nil {
		fe.recordFailure()
		return failedScore
	}

	// Seeds run in parallel; each simulation steps serially
	results := make([]runResult, len(fe.seeds))
	var wg sync.WaitGroup
	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			results[idx] = fe.runSimulation(cfg, s)
		}(i, seed)
	}
	wg.Wait()

	scores := make([]float64, 0, len(results))
	means := make([]float64, 0, len(results))
	for _, r := range results {
		if r.err != nil {
			fe.recordFailure()
			return failedScore
		}
		tail := r.best[len(r.best)-fe.lastGens:]
		scores = append(scores, stat.Mean(tail, nil))
		means = append(means, r.mean)
	}

	fe.mu.Lock()
	fe.lastMean = stat.Mean(means, nil)
	fe.mu.Unlock()

	return -stat.Mean(scores, nil)
}

func (fe *FitnessEvaluator) recordFailure() {
	fe.mu.Lock()
	fe.failures++
	fe.mu.Unlock()
}

// runSimulation executes one headless AI-mode run for fe.epochs generations.
func (fe *FitnessEvaluator) runSimulation(base *config.Config, seed int64) runResult {
	cfg := base.Clone()

	opts, err := neural.OptionsFromConfig(cfg)
	if err != nil {
		return runResult{err: err}
	}
	pop, err := neural.NewPopulation(opts, rand.New(rand.NewSource(seed)))
	if err != nil {
		return runResult{err: err}
	}
	sim, err := game.New(cfg, pop, game.Options{Seed: seed})
	if err != nil {
		return runResult{err: err}
	}
	defer sim.Close()

	result := runResult{best: make([]float64, 0, fe.epochs)}
	for sim.Epoch() < fe.epochs {
		epoch := sim.Epoch()
		if err := sim.Step(game.Inputs{}); err != nil {
			return runResult{err: fmt.Errorf("seed %d: %w", seed, err)}
		}
		if sim.Epoch() != epoch {
			summary := sim.Summary()
			result.best = append(result.best, summary.BestFitness)
			result.mean = summary.MeanFitness
		}
	}
	return result
}

// copyConfig returns a copy of the base config prepared for headless tuning.
func (fe *FitnessEvaluator) copyConfig() *config.Config {
	cfg := fe.baseConfig.Clone()
	cfg.Mode = config.ModeAI

	// There is no pointer to follow without a window
	if cfg.Obstacle.Source == config.ObstaclePointer {
		cfg.Obstacle.Source = config.ObstacleOrbit
	}

	// Seeds are already spread across cores
	cfg.Parallel.Threshold = 0
	cfg.Recompute()
	return cfg
}
