package ui

import (
	"fmt"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"
)

// ControlsState is what the controls panel can change.
type ControlsState struct {
	Paused   bool
	Speed    int // ticks per frame
	MaxSpeed int
}

// ControlsPanel renders the raygui pause button, speed slider and overlay legend.
type ControlsPanel struct {
	renderer *Renderer
	x, y     int32
	width    int32
}

// NewControlsPanel creates a new controls panel.
func NewControlsPanel(x, y, width int32) *ControlsPanel {
	return &ControlsPanel{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
		width:    width,
	}
}

// SetPosition updates the panel position.
func (c *ControlsPanel) SetPosition(x, y int32) {
	c.x = x
	c.y = y
}

// Bounds returns the panel rectangle for the given overlay registry.
func (c *ControlsPanel) Bounds(overlays *OverlayRegistry) rl.Rectangle {
	return rl.Rectangle{X: float32(c.x), Y: float32(c.y), Width: float32(c.width), Height: float32(c.height(overlays))}
}

func (c *ControlsPanel) height(overlays *OverlayRegistry) int32 {
	r := c.renderer
	return r.Theme.Padding*2 + 30 + 40 + r.Theme.LineHeight*int32(len(overlays.All())+1)
}

// Draw renders the panel and returns the updated state.
func (c *ControlsPanel) Draw(state ControlsState, overlays *OverlayRegistry) ControlsState {
	r := c.renderer
	padding := r.Theme.Padding

	r.DrawPanel(c.x, c.y, c.width, c.height(overlays))

	x := float32(c.x + padding)
	y := float32(c.y + padding)
	inner := float32(c.width - padding*2)

	label := "Pause"
	if state.Paused {
		label = "Resume"
	}
	if gui.Button(rl.Rectangle{X: x, Y: y, Width: inner, Height: 24}, label) {
		state.Paused = !state.Paused
	}
	y += 30

	rl.DrawText(fmt.Sprintf("Speed: %dx", state.Speed), int32(x), int32(y), r.Theme.FontSize, r.Theme.LabelColor)
	y += 14
	speed := gui.SliderBar(
		rl.Rectangle{X: x, Y: y, Width: inner, Height: 16},
		"", "",
		float32(state.Speed), 1, float32(state.MaxSpeed),
	)
	state.Speed = clampSpeed(int(speed+0.5), state.MaxSpeed)
	y += 26

	iy := r.DrawSectionHeader(int32(x), int32(y), "Overlays")
	for _, desc := range overlays.All() {
		iy = c.drawToggle(int32(x), iy, desc, overlays.IsEnabled(desc.ID), int32(inner))
	}

	return state
}

// drawToggle draws a single overlay toggle line.
func (c *ControlsPanel) drawToggle(x, y int32, desc OverlayDescriptor, enabled bool, width int32) int32 {
	r := c.renderer

	statusColor := rl.Color{R: 80, G: 80, B: 80, A: 255}
	nameColor := r.Theme.LabelColor
	if enabled {
		statusColor = rl.Color{R: 100, G: 200, B: 100, A: 255}
		nameColor = rl.White
	}
	rl.DrawRectangle(x, y+2, 8, 8, statusColor)
	rl.DrawText(desc.Name, x+14, y, r.Theme.FontSize, nameColor)

	if desc.KeyLabel != "" {
		keyText := fmt.Sprintf("[%s]", desc.KeyLabel)
		keyWidth := rl.MeasureText(keyText, r.Theme.FontSize)
		rl.DrawText(keyText, x+width-keyWidth, y, r.Theme.FontSize, rl.Color{R: 150, G: 150, B: 150, A: 255})
	}
	return y + r.Theme.LineHeight
}

// clampSpeed keeps the tick multiplier in [1, max].
func clampSpeed(speed, max int) int {
	if max < 1 {
		max = 1
	}
	if speed < 1 {
		return 1
	}
	if speed > max {
		return max
	}
	return speed
}
