package game

import (
	"log/slog"
	"time"

	"github.com/pthm-cable/flock/telemetry"
)

// recordEpoch logs and writes the statistics of the epoch that just ended.
func (s *Simulation) recordEpoch() {
	stats := telemetry.NewEpochStats(s.summary, s.tick, s.epochErrors, time.Since(s.epochStart))
	slog.Info("epoch", "stats", stats)

	if err := s.output.WriteEpoch(stats, telemetry.SpeciesRows(s.summary)); err != nil {
		slog.Error("failed to write epoch", "error", err)
	}

	perfStats := s.perf.Stats()

	// Log stats if enabled (console output)
	if s.opts.LogStats {
		perfStats.LogStats()
	}
	if err := s.output.WritePerf(perfStats, s.summary.Generation); err != nil {
		slog.Error("failed to write perf", "error", err)
	}
}
