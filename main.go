package main

import (
	"errors"
	"flag"
	"log/slog"
	"math/rand"
	"os"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/flock/config"
	"github.com/pthm-cable/flock/game"
	"github.com/pthm-cable/flock/neural"
	"github.com/pthm-cable/flock/ui"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	headless := flag.Bool("headless", false, "Run without graphics")
	mode := flag.String("mode", "", "Simulation mode: ai or classic (empty = use config)")
	logStats := flag.Bool("log-stats", false, "Log perf stats at every epoch boundary")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs, config snapshot and fitness plot")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	maxTicks := flag.Int("max-ticks", 0, "Stop after N ticks (0 = unlimited)")
	maxEpochs := flag.Int("max-epochs", 0, "Stop after N epochs (0 = unlimited)")
	stepsPerUpdate := flag.Int("steps-per-update", 1, "Simulation ticks per frame in graphical mode")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()
	if *mode != "" {
		cfg.Mode = *mode
		if err := cfg.Validate(); err != nil {
			slog.Error("invalid mode", "error", err)
			os.Exit(1)
		}
	}

	// Set up seed
	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	opts := game.Options{
		Seed:      rngSeed,
		OutputDir: *outputDir,
		LogStats:  *logStats,
	}

	if *headless {
		sim, err := newSimulation(cfg, opts)
		if err != nil {
			slog.Error("failed to create simulation", "error", err)
			os.Exit(1)
		}

		slog.Info("starting headless simulation",
			"mode", cfg.Mode,
			"seed", rngSeed,
			"max_ticks", *maxTicks,
			"max_epochs", *maxEpochs,
			"obstacle", cfg.Obstacle.Source,
		)

		if cfg.Obstacle.Source == config.ObstaclePointer {
			slog.Warn("pointer obstacle has no pointer in headless mode; use obstacle.source orbit")
		}

		code := runHeadless(sim, *maxTicks, *maxEpochs)
		if err := sim.Close(); err != nil {
			slog.Error("failed to close output", "error", err)
		}
		os.Exit(code)
	}

	// Graphical mode
	rl.SetConfigFlags(rl.FlagWindowResizable)
	rl.InitWindow(int32(cfg.Screen.Width), int32(cfg.Screen.Height), "Flock")
	defer rl.CloseWindow()

	rl.SetTargetFPS(int32(cfg.Screen.TargetFPS))

	sim, err := newSimulation(cfg, opts)
	if err != nil {
		slog.Error("failed to create simulation", "error", err)
		return
	}
	defer sim.Close()

	app := ui.NewApp(sim, *stepsPerUpdate, max(10, *stepsPerUpdate))
	for !rl.WindowShouldClose() {
		if err := app.Update(); err != nil {
			slog.Error("simulation stopped", "tick", sim.Tick(), "error", err)
			return
		}
		app.Draw()

		if done(sim, *maxTicks, *maxEpochs) {
			break
		}
	}
}

// newSimulation builds the simulation for the configured mode.
func newSimulation(cfg *config.Config, opts game.Options) (*game.Simulation, error) {
	if cfg.Mode == config.ModeClassic {
		return game.NewClassic(cfg, opts)
	}

	popOpts, err := neural.OptionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	pop, err := neural.NewPopulation(popOpts, rand.New(rand.NewSource(opts.Seed)))
	if err != nil {
		return nil, err
	}
	return game.New(cfg, pop, opts)
}

// runHeadless steps until a limit is reached and returns the exit code.
func runHeadless(sim *game.Simulation, maxTicks, maxEpochs int) int {
	for {
		if err := sim.Step(game.Inputs{}); err != nil {
			if errors.Is(err, game.ErrEvolution) {
				slog.Error("evolution failed", "tick", sim.Tick(), "error", err)
			} else {
				slog.Error("simulation stopped", "tick", sim.Tick(), "error", err)
			}
			return 1
		}

		if done(sim, maxTicks, maxEpochs) {
			slog.Info("run complete",
				"tick", sim.Tick(),
				"epoch", sim.Epoch(),
				"best_fitness", sim.Summary().BestFitness,
				"controller_errors", sim.ControllerErrors(),
			)
			return 0
		}
	}
}

// done reports whether a tick or epoch limit has been reached.
func done(sim *game.Simulation, maxTicks, maxEpochs int) bool {
	if maxTicks > 0 && sim.Tick() >= maxTicks {
		return true
	}
	return maxEpochs > 0 && sim.Epoch() >= maxEpochs
}
