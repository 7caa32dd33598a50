package telemetry

import (
	"log/slog"
	"time"
)

// Phase identifies one timed part of a simulation step.
type Phase int

const (
	PhaseSnapshot  Phase = iota // roster snapshot and spatial index rebuild
	PhaseSense                  // sensing, steering, fitness and motion per agent
	PhaseApply                  // writing intents back to the roster
	PhaseEvolve                 // epoch boundary: evolution and reseed
	PhaseTelemetry              // epoch statistics and output
	phaseCount
)

var phaseNames = [phaseCount]string{"snapshot", "sense", "apply", "evolve", "telemetry"}

func (p Phase) String() string {
	if p < 0 || p >= phaseCount {
		return "unknown"
	}
	return phaseNames[p]
}

// Phases returns every phase in run order.
func Phases() []Phase {
	out := make([]Phase, phaseCount)
	for i := range out {
		out[i] = Phase(i)
	}
	return out
}

type tickSample struct {
	total  time.Duration
	phases [phaseCount]time.Duration
}

// PerfCollector keeps running sums of step timings over a ring of recent ticks.
// Evicted samples are subtracted, so Stats is constant time.
type PerfCollector struct {
	ring  []tickSample
	next  int
	count int
	sum   tickSample

	current    tickSample
	tickStart  time.Time
	phaseStart time.Time
	phase      Phase
	inPhase    bool

	lastFrame time.Time
	frame     time.Duration
}

// NewPerfCollector creates a collector averaging over the last window ticks.
func NewPerfCollector(window int) *PerfCollector {
	if window < 1 {
		window = 60
	}
	return &PerfCollector{ring: make([]tickSample, window)}
}

// StartTick begins timing a step.
func (p *PerfCollector) StartTick() {
	p.tickStart = time.Now()
	p.current = tickSample{}
	p.inPhase = false
}

// StartPhase closes the running phase, if any, and opens ph.
func (p *PerfCollector) StartPhase(ph Phase) {
	now := time.Now()
	p.closePhase(now)
	p.phase = ph
	p.phaseStart = now
	p.inPhase = true
}

func (p *PerfCollector) closePhase(now time.Time) {
	if p.inPhase && p.phase >= 0 && p.phase < phaseCount {
		p.current.phases[p.phase] += now.Sub(p.phaseStart)
	}
	p.inPhase = false
}

// EndTick closes the step and pushes it into the window.
func (p *PerfCollector) EndTick() {
	now := time.Now()
	p.closePhase(now)
	p.current.total = now.Sub(p.tickStart)

	if p.count == len(p.ring) {
		old := &p.ring[p.next]
		p.sum.total -= old.total
		for i := range old.phases {
			p.sum.phases[i] -= old.phases[i]
		}
	} else {
		p.count++
	}

	p.ring[p.next] = p.current
	p.sum.total += p.current.total
	for i := range p.current.phases {
		p.sum.phases[i] += p.current.phases[i]
	}
	p.next = (p.next + 1) % len(p.ring)
}

// RecordFrame marks a rendered frame.
func (p *PerfCollector) RecordFrame() {
	now := time.Now()
	if !p.lastFrame.IsZero() {
		p.frame = now.Sub(p.lastFrame)
	}
	p.lastFrame = now
}

// PerfStats is the windowed average of recent steps.
type PerfStats struct {
	Ticks          int
	AvgTick        time.Duration
	TicksPerSecond float64
	PhaseAvg       [phaseCount]time.Duration
	PhasePct       [phaseCount]float64
	FPS            float64
}

// Stats averages the current window.
func (p *PerfCollector) Stats() PerfStats {
	s := PerfStats{Ticks: p.count}
	if p.frame > 0 {
		s.FPS = float64(time.Second) / float64(p.frame)
	}
	if p.count == 0 {
		return s
	}

	n := time.Duration(p.count)
	s.AvgTick = p.sum.total / n
	if s.AvgTick > 0 {
		s.TicksPerSecond = float64(time.Second) / float64(s.AvgTick)
	}
	for i := range s.PhaseAvg {
		s.PhaseAvg[i] = p.sum.phases[i] / n
		if p.sum.total > 0 {
			s.PhasePct[i] = float64(p.sum.phases[i]) / float64(p.sum.total) * 100
		}
	}
	return s
}

// LogStats writes the stats as one "perf" record.
func (s PerfStats) LogStats() {
	attrs := []any{
		"avg_tick_us", s.AvgTick.Microseconds(),
		"ticks_per_sec", int(s.TicksPerSecond),
	}
	if s.FPS > 0 {
		attrs = append(attrs, "fps", int(s.FPS))
	}
	for _, ph := range Phases() {
		if pct := s.PhasePct[ph]; pct > 0.1 {
			attrs = append(attrs, ph.String()+"_pct", int(pct*10)/10.0)
		}
	}
	slog.Info("perf", attrs...)
}

// PerfRow is one line of perf.csv.
type PerfRow struct {
	Generation   int     `csv:"generation"`
	Ticks        int     `csv:"window_ticks"`
	AvgTickUS    int64   `csv:"avg_tick_us"`
	TicksPerSec  float64 `csv:"ticks_per_sec"`
	FPS          float64 `csv:"fps"`
	SnapshotPct  float64 `csv:"snapshot_pct"`
	SensePct     float64 `csv:"sense_pct"`
	ApplyPct     float64 `csv:"apply_pct"`
	EvolvePct    float64 `csv:"evolve_pct"`
	TelemetryPct float64 `csv:"telemetry_pct"`
}

// Row flattens the stats for perf.csv.
func (s PerfStats) Row(generation int) PerfRow {
	return PerfRow{
		Generation:   generation,
		Ticks:        s.Ticks,
		AvgTickUS:    s.AvgTick.Microseconds(),
		TicksPerSec:  s.TicksPerSecond,
		FPS:          s.FPS,
		SnapshotPct:  s.PhasePct[PhaseSnapshot],
		SensePct:     s.PhasePct[PhaseSense],
		ApplyPct:     s.PhasePct[PhaseApply],
		EvolvePct:    s.PhasePct[PhaseEvolve],
		TelemetryPct: s.PhasePct[PhaseTelemetry],
	}
}
