// Package camera maps the toroidal simulation world onto the window.
package camera

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/flock/systems"
)

// Camera is a pan/zoom view over a toroidal world.
type Camera struct {
	// Center is the world point shown at the middle of the viewport
	Center r2.Vec

	// Zoom is pixels per world unit
	Zoom float64

	ViewportW, ViewportH float64
	WorldW, WorldH       float64

	MinZoom, MaxZoom float64
}

// New creates a camera that fits the whole world into the viewport.
func New(viewportW, viewportH, worldW, worldH float64) *Camera {
	c := &Camera{
		ViewportW: viewportW,
		ViewportH: viewportH,
		WorldW:    worldW,
		WorldH:    worldH,
		MaxZoom:   4.0,
	}
	c.MinZoom = c.fitZoom()
	c.Reset()
	return c
}

// fitZoom is the zoom at which the whole world is visible.
func (c *Camera) fitZoom() float64 {
	return math.Min(c.ViewportW/c.WorldW, c.ViewportH/c.WorldH)
}

// WorldToScreen converts a world point to screen pixels, taking the shortest
// toroidal path from the view center.
func (c *Camera) WorldToScreen(p r2.Vec) (sx, sy float32) {
	d := systems.ToroidalDelta(c.Center, p, c.WorldW, c.WorldH)
	return float32(c.ViewportW/2 + d.X*c.Zoom), float32(c.ViewportH/2 + d.Y*c.Zoom)
}

// ScreenToWorld converts screen pixels to a world point inside [0,W)×[0,H).
func (c *Camera) ScreenToWorld(sx, sy float32) r2.Vec {
	dx := (float64(sx) - c.ViewportW/2) / c.Zoom
	dy := (float64(sy) - c.ViewportH/2) / c.Zoom
	return r2.Vec{
		X: mod(c.Center.X+dx, c.WorldW),
		Y: mod(c.Center.Y+dy, c.WorldH),
	}
}

// Scale converts a world length to pixels.
func (c *Camera) Scale(length float64) float32 {
	return float32(length * c.Zoom)
}

// IsVisible reports whether a circle of the given world radius may be on screen.
func (c *Camera) IsVisible(p r2.Vec, radius float64) bool {
	d := systems.ToroidalDelta(c.Center, p, c.WorldW, c.WorldH)
	halfW := c.ViewportW/(2*c.Zoom) + radius
	halfH := c.ViewportH/(2*c.Zoom) + radius
	return math.Abs(d.X) <= halfW && math.Abs(d.Y) <= halfH
}

// Ghosts returns the extra screen positions at which a circle of the given
// world radius must be drawn so it shows on both sides of a wrapped edge.
// At most three positions are returned.
func (c *Camera) Ghosts(p r2.Vec, radius float64) [][2]float32 {
	halfW := c.ViewportW / (2 * c.Zoom)
	halfH := c.ViewportH / (2 * c.Zoom)
	d := systems.ToroidalDelta(c.Center, p, c.WorldW, c.WorldH)

	var gx, gy float64
	hasX, hasY := false, false
	switch {
	case d.X+radius > halfW:
		gx, hasX = d.X-c.WorldW, true
	case d.X-radius < -halfW:
		gx, hasX = d.X+c.WorldW, true
	}
	switch {
	case d.Y+radius > halfH:
		gy, hasY = d.Y-c.WorldH, true
	case d.Y-radius < -halfH:
		gy, hasY = d.Y+c.WorldH, true
	}

	screen := func(x, y float64) [2]float32 {
		return [2]float32{float32(c.ViewportW/2 + x*c.Zoom), float32(c.ViewportH/2 + y*c.Zoom)}
	}

	var ghosts [][2]float32
	if hasX {
		ghosts = append(ghosts, screen(gx, d.Y))
	}
	if hasY {
		ghosts = append(ghosts, screen(d.X, gy))
	}
	if hasX && hasY {
		ghosts = append(ghosts, screen(gx, gy))
	}
	return ghosts
}

// Resize updates the viewport and keeps the zoom within the new limits.
func (c *Camera) Resize(viewportW, viewportH float64) {
	if viewportW == c.ViewportW && viewportH == c.ViewportH {
		return
	}
	c.ViewportW = viewportW
	c.ViewportH = viewportH
	c.MinZoom = c.fitZoom()
	c.SetZoom(c.Zoom)
}

// Pan moves the view by a screen-pixel delta, wrapping around the world.
func (c *Camera) Pan(dx, dy float64) {
	c.Center.X = mod(c.Center.X+dx/c.Zoom, c.WorldW)
	c.Center.Y = mod(c.Center.Y+dy/c.Zoom, c.WorldH)
}

// SetZoom sets the zoom, clamped to [MinZoom, MaxZoom].
func (c *Camera) SetZoom(zoom float64) {
	c.Zoom = math.Max(c.MinZoom, math.Min(c.MaxZoom, zoom))
}

// ZoomBy multiplies the current zoom by factor.
func (c *Camera) ZoomBy(factor float64) {
	c.SetZoom(c.Zoom * factor)
}

// Reset centers the view and fits the world to the viewport.
func (c *Camera) Reset() {
	c.Center = r2.Vec{X: c.WorldW / 2, Y: c.WorldH / 2}
	c.Zoom = c.MinZoom
}

// mod computes the positive modulo.
func mod(x, m float64) float64 {
	r := math.Mod(x, m)
	if r < 0 {
		r += m
	}
	return r
}
