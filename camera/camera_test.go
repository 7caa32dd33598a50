package camera

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"
)

func TestNewFitsWorld(t *testing.T) {
	cam := New(800, 800, 1600, 800)

	// min(800/1600, 800/800)
	if cam.Zoom != 0.5 || cam.MinZoom != 0.5 {
		t.Errorf("expected zoom 0.5, got zoom %f min %f", cam.Zoom, cam.MinZoom)
	}
	if cam.Center != (r2.Vec{X: 800, Y: 400}) {
		t.Errorf("expected camera centered on world, got %v", cam.Center)
	}
}

func TestWorldToScreenCentered(t *testing.T) {
	cam := New(800, 800, 800, 800)

	sx, sy := cam.WorldToScreen(r2.Vec{X: 400, Y: 400})
	if math.Abs(float64(sx-400)) > 0.01 || math.Abs(float64(sy-400)) > 0.01 {
		t.Errorf("expected screen center (400, 400), got (%f, %f)", sx, sy)
	}

	// At 1:1 with the world fitted, screen and world coincide
	sx, sy = cam.WorldToScreen(r2.Vec{X: 120, Y: 650})
	if math.Abs(float64(sx-120)) > 0.01 || math.Abs(float64(sy-650)) > 0.01 {
		t.Errorf("expected (120, 650), got (%f, %f)", sx, sy)
	}
}

func TestScreenToWorldRoundtrip(t *testing.T) {
	cam := New(1280, 720, 2560, 1440)
	cam.SetZoom(1)

	testCases := []struct{ sx, sy float32 }{
		{640, 360},
		{100, 100},
		{1200, 600},
	}

	for _, tc := range testCases {
		w := cam.ScreenToWorld(tc.sx, tc.sy)
		sx, sy := cam.WorldToScreen(w)
		if math.Abs(float64(sx-tc.sx)) > 0.01 || math.Abs(float64(sy-tc.sy)) > 0.01 {
			t.Errorf("roundtrip failed: (%f,%f) -> %v -> (%f,%f)", tc.sx, tc.sy, w, sx, sy)
		}
	}
}

func TestScreenToWorldStaysInBounds(t *testing.T) {
	cam := New(800, 800, 800, 800)
	cam.Center = r2.Vec{X: 10, Y: 10}

	w := cam.ScreenToWorld(0, 0)
	if w.X < 0 || w.X >= 800 || w.Y < 0 || w.Y >= 800 {
		t.Errorf("expected world point in bounds, got %v", w)
	}
	if math.Abs(w.X-410) > 1e-9 || math.Abs(w.Y-410) > 1e-9 {
		t.Errorf("expected (410, 410), got %v", w)
	}
}

func TestToroidalWrap(t *testing.T) {
	cam := New(800, 800, 800, 800)
	cam.Center = r2.Vec{X: 100, Y: 400}

	// The right edge is closer going left
	sx, _ := cam.WorldToScreen(r2.Vec{X: 780, Y: 400})
	if sx >= 400 {
		t.Errorf("expected point on left of screen, got x=%f", sx)
	}
}

func TestPanWraps(t *testing.T) {
	cam := New(800, 800, 800, 800)
	cam.Center.X = 100

	cam.Pan(-200, 0)

	if math.Abs(cam.Center.X-700) > 1e-9 {
		t.Errorf("expected X to wrap to 700, got %f", cam.Center.X)
	}
}

func TestZoomClamp(t *testing.T) {
	cam := New(800, 800, 800, 800)

	cam.SetZoom(0.1)
	if cam.Zoom != 1 {
		t.Errorf("expected zoom clamped to 1, got %f", cam.Zoom)
	}

	cam.SetZoom(10)
	if cam.Zoom != 4 {
		t.Errorf("expected zoom clamped to 4, got %f", cam.Zoom)
	}

	cam.ZoomBy(0.5)
	if cam.Zoom != 2 {
		t.Errorf("expected zoom 2, got %f", cam.Zoom)
	}
}

func TestResizeKeepsZoomInRange(t *testing.T) {
	cam := New(800, 800, 800, 800)
	cam.Resize(1600, 1600)

	if cam.MinZoom != 2 {
		t.Errorf("expected MinZoom 2, got %f", cam.MinZoom)
	}
	if cam.Zoom != 2 {
		t.Errorf("expected zoom raised to 2, got %f", cam.Zoom)
	}
}

func TestIsVisible(t *testing.T) {
	cam := New(800, 800, 1600, 1600)
	cam.SetZoom(1)

	// Visible range is [400, 1200] on both axes
	if !cam.IsVisible(r2.Vec{X: 800, Y: 800}, 10) {
		t.Error("center should be visible")
	}
	if cam.IsVisible(r2.Vec{X: 100, Y: 100}, 10) {
		t.Error("far point should not be visible")
	}
	if !cam.IsVisible(r2.Vec{X: 350, Y: 800}, 100) {
		t.Error("edge point with large radius should be visible")
	}
}

func TestGhosts(t *testing.T) {
	cam := New(800, 800, 800, 800)

	tests := []struct {
		name  string
		pos   r2.Vec
		count int
	}{
		{"interior", r2.Vec{X: 400, Y: 400}, 0},
		{"left edge", r2.Vec{X: 20, Y: 400}, 1},
		{"bottom edge", r2.Vec{X: 400, Y: 790}, 1},
		{"corner", r2.Vec{X: 5, Y: 5}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ghosts := cam.Ghosts(tt.pos, 50)
			if len(ghosts) != tt.count {
				t.Errorf("expected %d ghosts, got %d", tt.count, len(ghosts))
			}
		})
	}

	// A circle on the left edge is repeated one world width to the right
	ghosts := cam.Ghosts(r2.Vec{X: 20, Y: 400}, 50)
	if len(ghosts) == 1 && math.Abs(float64(ghosts[0][0]-820)) > 0.01 {
		t.Errorf("expected ghost at x=820, got %f", ghosts[0][0])
	}
}

func TestReset(t *testing.T) {
	cam := New(800, 800, 800, 800)
	cam.Center = r2.Vec{X: 10, Y: 20}
	cam.Zoom = 3

	cam.Reset()

	if cam.Center != (r2.Vec{X: 400, Y: 400}) || cam.Zoom != 1 {
		t.Errorf("expected reset to center at zoom 1, got %v zoom %f", cam.Center, cam.Zoom)
	}
}
