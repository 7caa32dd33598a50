// Package main runs a CMA-ES search over the evolution hyperparameters,
// scoring each candidate by the fitness its populations reach headless.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/optimize"

	"github.com/pthm-cable/flock/config"
)

// formatDuration formats a duration as HH:MM:SS or MM:SS for shorter durations.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}

// LogRow is one line of tune_log.csv.
type LogRow struct {
	Eval                   int     `csv:"eval"`
	Score                  float64 `csv:"score"`
	FinalMean              float64 `csv:"final_mean"`
	WeightMutationRate     float64 `csv:"weight_mutation_rate"`
	AddNodeRate            float64 `csv:"add_node_rate"`
	AddLinkRate            float64 `csv:"add_link_rate"`
	CompatibilityThreshold float64 `csv:"compatibility_threshold"`
	SurvivalRate           float64 `csv:"survival_rate"`
	WallMS                 int64   `csv:"wall_ms"`
}

func newLogRow(eval int, score, finalMean float64, values []float64, wall time.Duration) LogRow {
	return LogRow{
		Eval:                   eval,
		Score:                  score,
		FinalMean:              finalMean,
		WeightMutationRate:     values[0],
		AddNodeRate:            values[1],
		AddLinkRate:            values[2],
		CompatibilityThreshold: values[3],
		SurvivalRate:           values[4],
		WallMS:                 wall.Milliseconds(),
	}
}

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Base config YAML file (empty = use defaults)")
	epochs := flag.Int("epochs", 20, "Generations per run")
	lastGens := flag.Int("last-gens", 5, "Generations at the end of each run that are scored")
	seeds := flag.Int("seeds", 3, "Number of seeds per evaluation")
	maxEvals := flag.Int("max-evals", 100, "Maximum number of evaluations")
	population := flag.Int("population", 0, "CMA-ES population size (0 = auto)")
	outputDir := flag.String("output", "", "Output directory for results")
	flag.Parse()

	if *outputDir == "" {
		log.Fatal("--output is required")
	}

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		log.Fatalf("failed to create output directory: %v", err)
	}

	if err := config.Init(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	baseCfg := config.Cfg()

	params := NewParamVector()

	evalSeeds := make([]int64, *seeds)
	for i := range evalSeeds {
		evalSeeds[i] = int64(i*1000 + 42)
	}

	evaluator := NewFitnessEvaluator(params, *epochs, *lastGens, evalSeeds, baseCfg)

	dim := params.Dim()
	initX := params.Normalize(params.ExtractFromConfig(baseCfg))

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			return evaluator.Evaluate(params.Denormalize(x))
		},
	}

	settings := &optimize.Settings{
		FuncEvaluations: *maxEvals,
		Concurrent:      0, // Sequential evaluation
	}

	popSize := *population
	if popSize == 0 {
		popSize = 4 + int(3.0*float64(dim)/2.0)
	}

	method := &optimize.CmaEsChol{
		InitStepSize: 0.3,
		Population:   popSize,
	}

	logPath := filepath.Join(*outputDir, "tune_log.csv")
	logFile, err := os.Create(logPath)
	if err != nil {
		log.Fatalf("failed to create log file: %v", err)
	}
	defer logFile.Close()

	evalCount := 0
	bestScore := failedScore
	var bestParams []float64
	startTime := time.Now()

	// Wrap the function to log evaluations
	originalFunc := problem.Func
	problem.Func = func(x []float64) float64 {
		evalStart := time.Now()
		score := originalFunc(x)
		evalCount++

		// Logged values are the clamped ones actually used
		clamped := params.Clamp(params.Denormalize(x))
		if score < bestScore {
			bestScore = score
			bestParams = clamped
		}

		row := []LogRow{newLogRow(evalCount, score, evaluator.LastMean(), clamped, time.Since(evalStart))}
		var werr error
		if evalCount == 1 {
			werr = gocsv.Marshal(row, logFile)
		} else {
			werr = gocsv.MarshalWithoutHeaders(row, logFile)
		}
		if werr != nil {
			log.Printf("failed to write log row: %v", werr)
		}

		elapsed := time.Since(startTime)
		avgPerEval := elapsed / time.Duration(evalCount)
		remaining := time.Duration(*maxEvals-evalCount) * avgPerEval

		fmt.Printf("Eval %d/%d: best_fit=%.4f mean=%.4f (best=%.4f, failed=%d) | elapsed: %s, ETA: %s\n",
			evalCount, *maxEvals, -score, evaluator.LastMean(), -bestScore, evaluator.Failures(),
			formatDuration(elapsed), formatDuration(remaining))

		return score
	}

	fmt.Printf("Starting CMA-ES tuning with %d parameters, population=%d, max_evals=%d\n",
		dim, popSize, *maxEvals)
	fmt.Printf("Seeds per evaluation: %d, epochs per run: %d (%d ticks each)\n",
		*seeds, *epochs, baseCfg.Evolution.EpochLength)

	result, err := optimize.Minimize(problem, initX, settings, method)
	if err != nil {
		log.Printf("optimization ended: %v", err)
	}

	// Use best params found (may be from any evaluation, not just final)
	if bestParams == nil && result != nil {
		bestParams = params.Clamp(params.Denormalize(result.X))
	}
	if bestParams == nil {
		log.Fatal("no evaluation completed")
	}

	totalTime := time.Since(startTime)
	fmt.Printf("\nTuning complete after %d evaluations in %s\n", evalCount, formatDuration(totalTime))
	fmt.Printf("Best score: %.4f\n", -bestScore)

	fmt.Println("\nBest parameters:")
	for i, spec := range params.Specs {
		fmt.Printf("  %s (%s): %.6f\n", spec.Name, spec.Path, bestParams[i])
	}

	bestCfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to reload config: %v", err)
	}
	params.ApplyToConfig(bestCfg, bestParams)

	configOutPath := filepath.Join(*outputDir, "best_config.yaml")
	if err := bestCfg.WriteYAML(configOutPath); err != nil {
		log.Printf("failed to write best config: %v", err)
	} else {
		fmt.Printf("\nBest config saved to: %s\n", configOutPath)
	}
}
