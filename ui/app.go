package ui

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/flock/camera"
	"github.com/pthm-cable/flock/evo"
	"github.com/pthm-cable/flock/game"
)

const controlsLegend = "[Space] Pause  [<][>] Speed  [Wheel] Zoom  [RMB] Pan  [Home] Reset view"

// App is the interactive host around a Simulation: input, stepping and drawing.
// The window must be open before NewApp is called.
type App struct {
	sim *game.Simulation
	cam *camera.Camera

	overlays *OverlayRegistry
	hud      *HUD
	controls *ControlsPanel
	species  *SpeciesPanel
	perf     *PerfPanel
	painter  *worldPainter
	theme    Theme

	state ControlsState
}

// NewApp creates the host for sim. speed is the initial number of ticks per frame.
func NewApp(sim *game.Simulation, speed, maxSpeed int) *App {
	cfg := sim.Config()
	screenW, screenH := float64(rl.GetScreenWidth()), float64(rl.GetScreenHeight())

	a := &App{
		sim:      sim,
		cam:      camera.New(screenW, screenH, cfg.Derived.WorldW, cfg.Derived.WorldH),
		overlays: NewOverlayRegistry(),
		hud:      NewHUD(),
		controls: NewControlsPanel(0, 0, 170),
		species:  NewSpeciesPanel(0, 0, 220, 12),
		perf:     NewPerfPanel(10, 170),
		theme:    DefaultTheme(),
		state:    ControlsState{Speed: clampSpeed(speed, maxSpeed), MaxSpeed: max(1, maxSpeed)},
	}
	a.painter = &worldPainter{theme: a.theme, cam: a.cam, overlays: a.overlays}
	a.layout()
	return a
}

// layout places the right-hand panels for the current screen size.
func (a *App) layout() {
	w := int32(rl.GetScreenWidth())
	a.controls.SetPosition(w-180, 10)
	a.species.SetPosition(w-230, 20+int32(a.controls.Bounds(a.overlays).Height))
}

// Paused reports whether stepping is suspended.
func (a *App) Paused() bool {
	return a.state.Paused
}

// Update handles input and advances the simulation by the current speed.
// It returns the first error from Simulation.Step.
func (a *App) Update() error {
	a.handleInput()

	if a.state.Paused {
		return nil
	}
	in := a.sampleInputs()
	for i := 0; i < a.state.Speed; i++ {
		if err := a.sim.Step(in); err != nil {
			return err
		}
	}
	return nil
}

// sampleInputs reads the pointer as the obstacle. The pointer counts only
// while it is inside the window and not over a panel.
func (a *App) sampleInputs() game.Inputs {
	if !rl.IsCursorOnScreen() {
		return game.Inputs{}
	}
	mouse := rl.GetMousePosition()
	if rl.CheckCollisionPointRec(mouse, a.controls.Bounds(a.overlays)) {
		return game.Inputs{}
	}
	return game.Inputs{
		Obstacle:    a.cam.ScreenToWorld(mouse.X, mouse.Y),
		HasObstacle: true,
	}
}

// handleInput processes keyboard and mouse input.
func (a *App) handleInput() {
	if rl.IsWindowResized() {
		a.cam.Resize(float64(rl.GetScreenWidth()), float64(rl.GetScreenHeight()))
		a.layout()
	}

	if rl.IsKeyPressed(rl.KeySpace) {
		a.state.Paused = !a.state.Paused
	}
	if rl.IsKeyPressed(rl.KeyComma) {
		a.state.Speed = clampSpeed(a.state.Speed-1, a.state.MaxSpeed)
	}
	if rl.IsKeyPressed(rl.KeyPeriod) {
		a.state.Speed = clampSpeed(a.state.Speed+1, a.state.MaxSpeed)
	}
	if key := rl.GetKeyPressed(); key != 0 {
		if _, _, ok := a.overlays.HandleKeyPress(key); ok {
			a.layout()
		}
	}

	if wheel := rl.GetMouseWheelMove(); wheel != 0 {
		a.cam.ZoomBy(1 + 0.1*float64(wheel))
	}
	if rl.IsMouseButtonDown(rl.MouseButtonRight) {
		d := rl.GetMouseDelta()
		a.cam.Pan(-float64(d.X), -float64(d.Y))
	}
	if rl.IsKeyPressed(rl.KeyHome) {
		a.cam.Reset()
	}
}

// Draw renders one frame.
func (a *App) Draw() {
	rl.BeginDrawing()
	rl.ClearBackground(a.theme.Background)

	cfg := a.sim.Config()
	if pos, ok := a.sim.Obstacle(); ok {
		a.painter.drawObstacle(pos, cfg.Obstacle.DangerRadius, a.sim.EpochProgress(), !a.sim.Classic())
	}
	a.painter.drawBoids(a.sim.Agents(), cfg.Flocking.PerceptionRadius)

	a.drawPanels()

	rl.EndDrawing()
	a.sim.RecordFrame()
}

func (a *App) drawPanels() {
	summary := a.sim.Summary()
	screenH := int32(rl.GetScreenHeight())

	title := "Neuroevolved Boids"
	if a.sim.Classic() {
		title = "Classic Boids"
	}
	a.hud.Draw(HUDData{
		Title:            title,
		Classic:          a.sim.Classic(),
		Generation:       summary.Generation,
		Tick:             a.sim.Tick(),
		EpochProgress:    a.sim.EpochProgress(),
		Agents:           a.sim.Len(),
		BestFitness:      summary.BestFitness,
		MeanFitness:      summary.MeanFitness,
		ControllerErrors: a.sim.ControllerErrors(),
		Speed:            a.state.Speed,
		FPS:              rl.GetFPS(),
		Paused:           a.state.Paused,
	})
	a.hud.DrawControls(screenH, controlsLegend)

	a.state = a.controls.Draw(a.state, a.overlays)

	if !a.sim.Classic() && a.overlays.IsEnabled(OverlaySpeciesPanel) {
		a.species.Draw(speciesLines(summary.Species))
	}
	if a.overlays.IsEnabled(OverlayPerf) {
		a.perf.Draw(a.sim.Perf())
	}
}

// speciesLines converts species statistics into panel rows.
func speciesLines(species []evo.SpeciesInfo) []SpeciesLine {
	lines := make([]SpeciesLine, len(species))
	for i, sp := range species {
		lines[i] = SpeciesLine{
			ID:          sp.ID,
			Size:        sp.Size,
			BestFitness: sp.BestFitness,
			Staleness:   sp.Staleness,
			Color:       speciesColor(sp.ID),
		}
	}
	return lines
}
