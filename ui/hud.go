package ui

import (
	"fmt"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/flock/telemetry"
)

// HUDData holds all the data needed to render the main HUD.
type HUDData struct {
	Title            string
	Classic          bool
	Generation       int
	Tick             int
	EpochProgress    float64
	Agents           int
	BestFitness      float64
	MeanFitness      float64
	ControllerErrors int
	Speed            int
	FPS              int32
	Paused           bool
}

// HUD renders the main heads-up display.
type HUD struct {
	renderer *Renderer
}

// NewHUD creates a new HUD renderer.
func NewHUD() *HUD {
	return &HUD{
		renderer: NewRenderer(),
	}
}

// Draw renders the HUD in the top-left corner.
func (h *HUD) Draw(data HUDData) {
	r := h.renderer
	x, y := int32(10), int32(10)
	width := int32(240)

	height := r.Theme.LineHeight*6 + r.Theme.Padding*2 + 24
	if data.Classic {
		height = r.Theme.LineHeight*3 + r.Theme.Padding*2 + 24
	}
	r.DrawPanel(x, y, width, height)

	x += r.Theme.Padding
	y += r.Theme.Padding

	rl.DrawText(data.Title, x, y, 18, rl.White)
	y += 24

	if !data.Classic {
		y = r.DrawLabelValue(x, y, "Generation", fmt.Sprintf("%d", data.Generation))
		y = r.DrawLabelValue(x, y, "Best fitness", fmt.Sprintf("%.4f", data.BestFitness))
		y = r.DrawLabelValue(x, y, "Mean fitness", fmt.Sprintf("%.4f", data.MeanFitness))
		y = r.DrawBar(x, y, "Epoch", float32(data.EpochProgress), width-r.Theme.Padding*2)
	}

	y = r.DrawLabelValue(x, y, "Agents", fmt.Sprintf("%d", data.Agents))
	y = r.DrawLabelValue(x, y, "Tick", fmt.Sprintf("%d | %dx | %d fps", data.Tick, data.Speed, data.FPS))

	status, color := "Running", rl.Green
	if data.Paused {
		status, color = "PAUSED", rl.Yellow
	}
	if data.ControllerErrors > 0 {
		status = fmt.Sprintf("%s | %d ctrl errors", status, data.ControllerErrors)
	}
	rl.DrawText(status, x, y, r.Theme.FontSize, color)
}

// DrawControls renders the control legend at the bottom of the screen.
func (h *HUD) DrawControls(screenHeight int32, controls string) {
	rl.DrawText(controls, 10, screenHeight-25, 14, rl.DarkGray)
}

// SpeciesLine is one row of the species panel.
type SpeciesLine struct {
	ID          int
	Size        int
	BestFitness float64
	Staleness   int
	Color       rl.Color
}

// SpeciesPanel lists the species of the last generation.
type SpeciesPanel struct {
	renderer *Renderer
	x, y     int32
	width    int32
	maxRows  int
}

// NewSpeciesPanel creates a species panel showing at most maxRows species.
func NewSpeciesPanel(x, y, width int32, maxRows int) *SpeciesPanel {
	return &SpeciesPanel{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
		width:    width,
		maxRows:  maxRows,
	}
}

// SetPosition updates the panel position.
func (s *SpeciesPanel) SetPosition(x, y int32) {
	s.x = x
	s.y = y
}

// Draw renders the species list, best first.
func (s *SpeciesPanel) Draw(lines []SpeciesLine) {
	r := s.renderer
	rows := min(len(lines), s.maxRows)
	height := r.Theme.Padding*2 + r.Theme.LineHeight*int32(rows+2)

	r.DrawPanel(s.x, s.y, s.width, height)

	x := s.x + r.Theme.Padding
	y := s.y + r.Theme.Padding
	y = r.DrawSectionHeader(x, y, fmt.Sprintf("Species (%d)", len(lines)))
	rl.DrawText("id     size   best     stale", x, y, r.Theme.FontSize, rl.Gray)
	y += r.Theme.LineHeight

	for _, sp := range lines[:rows] {
		text := fmt.Sprintf("#%-4d  %-5d  %.4f  %d", sp.ID, sp.Size, sp.BestFitness, sp.Staleness)
		y = r.DrawColorSwatch(x, y, sp.Color, text)
	}
}

// PerfPanel renders rolling phase timings.
type PerfPanel struct {
	renderer *Renderer
	x, y     int32
}

// NewPerfPanel creates a new performance panel.
func NewPerfPanel(x, y int32) *PerfPanel {
	return &PerfPanel{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
	}
}

// SetPosition updates the panel position.
func (p *PerfPanel) SetPosition(x, y int32) {
	p.x = x
	p.y = y
}

// Draw renders the performance panel.
func (p *PerfPanel) Draw(stats telemetry.PerfStats) {
	r := p.renderer
	phases := telemetry.Phases()
	width := int32(230)
	height := r.Theme.Padding*2 + 36 + int32(len(phases))*14

	r.DrawPanel(p.x, p.y, width, height)

	x := p.x + r.Theme.Padding
	y := p.y + r.Theme.Padding

	rl.DrawText(fmt.Sprintf("Tick: %s  TPS: %.0f", stats.AvgTick.Round(time.Microsecond), stats.TicksPerSecond), x, y, 14, rl.Yellow)
	y += 20

	for _, ph := range phases {
		avg := stats.PhaseAvg[ph]
		pct := stats.PhasePct[ph]

		color := rl.LightGray
		if pct > 50 {
			color = rl.Red
		} else if pct > 20 {
			color = rl.Orange
		}

		rl.DrawText(
			fmt.Sprintf("%-10s %8s %5.1f%%", ph, avg.Round(time.Microsecond), pct),
			x, y, 12, color,
		)
		y += 14
	}
}
