package ui

import (
	"math"

	rl "github.com/gen2brain/raylib-go/raylib"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/flock/camera"
	"github.com/pthm-cable/flock/game"
	"github.com/pthm-cable/flock/neural"
)

// boidSize is the half-length of a boid triangle in world units.
const boidSize = 5.0

// speciesColor returns the display color for a species or flock group.
func speciesColor(id int) rl.Color {
	c := neural.SpeciesColorFor(id)
	return rl.Color{R: c.R, G: c.G, B: c.B, A: 255}
}

// boidTriangle returns the vertices of a triangle at (x, y) pointing along
// heading, in counter-clockwise order for rl.DrawTriangle.
func boidTriangle(x, y, heading, radius float32) (front, backRight, backLeft rl.Vector2) {
	h := float64(heading)

	front = rl.Vector2{
		X: x + float32(math.Cos(h))*radius*1.5,
		Y: y + float32(math.Sin(h))*radius*1.5,
	}
	backLeft = rl.Vector2{
		X: x + float32(math.Cos(h+math.Pi*0.8))*radius,
		Y: y + float32(math.Sin(h+math.Pi*0.8))*radius,
	}
	backRight = rl.Vector2{
		X: x + float32(math.Cos(h-math.Pi*0.8))*radius,
		Y: y + float32(math.Sin(h-math.Pi*0.8))*radius,
	}
	return front, backRight, backLeft
}

// countdownRadius is the radius of the epoch countdown circle. It shrinks
// linearly from danger to 0 over an epoch.
func countdownRadius(danger, progress float64) float64 {
	progress = math.Max(0, math.Min(1, progress))
	return danger * (1 - progress)
}

// worldPainter draws simulation state through the camera.
type worldPainter struct {
	theme    Theme
	cam      *camera.Camera
	overlays *OverlayRegistry
}

// drawBoids draws every agent as an oriented triangle.
func (w *worldPainter) drawBoids(agents []game.AgentView, perception float64) {
	ghosts := w.overlays.IsEnabled(OverlayWrapGhosts)
	colored := w.overlays.IsEnabled(OverlaySpeciesColors)
	showPerception := w.overlays.IsEnabled(OverlayPerception)
	size := w.cam.Scale(boidSize)

	for _, a := range agents {
		if !w.cam.IsVisible(a.Pos, boidSize*1.5) {
			continue
		}
		color := rl.Gray
		if colored {
			color = speciesColor(a.Species)
		}

		sx, sy := w.cam.WorldToScreen(a.Pos)
		w.drawBoid(sx, sy, float32(a.Heading), size, color)
		if showPerception {
			rl.DrawCircleLines(int32(sx), int32(sy), w.cam.Scale(perception), rl.Fade(color, 0.3))
		}

		if ghosts {
			for _, g := range w.cam.Ghosts(a.Pos, boidSize*1.5) {
				w.drawBoid(g[0], g[1], float32(a.Heading), size, color)
			}
		}
	}
}

func (w *worldPainter) drawBoid(x, y, heading, size float32, color rl.Color) {
	v1, v2, v3 := boidTriangle(x, y, heading, size)
	rl.DrawTriangle(v1, v2, v3, color)
	rl.DrawTriangleLines(v1, v2, v3, w.theme.BoidOutline)
}

// drawObstacle draws the danger zone and the shrinking epoch countdown
// around the obstacle. The danger zone wraps like the world does.
func (w *worldPainter) drawObstacle(pos r2.Vec, danger, progress float64, countdown bool) {
	centers := [][2]float32{}
	sx, sy := w.cam.WorldToScreen(pos)
	centers = append(centers, [2]float32{sx, sy})
	centers = append(centers, w.cam.Ghosts(pos, danger)...)

	for _, c := range centers {
		center := rl.Vector2{X: c[0], Y: c[1]}
		if w.overlays.IsEnabled(OverlayDangerZone) {
			r := w.cam.Scale(danger)
			rl.DrawRing(center, r-2, r, 0, 360, 64, w.theme.DangerZone)
		}
		if countdown && w.overlays.IsEnabled(OverlayCountdown) {
			rl.DrawCircleLinesV(center, w.cam.Scale(countdownRadius(danger, progress)), w.theme.Countdown)
		}
	}
}
