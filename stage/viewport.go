// Package stage maps a slide onto an interactive 2D surface. It hit-tests
// pointer input, turns drags on elements and handles into update messages and
// renders the surface as SVG. The stage never changes a slide; it reports
// intended changes to whoever owns the document.
package stage

import (
	"math"

	"carousel-studio/core"
)

const (
	MinZoom = 0.25
	MaxZoom = 3.0

	// maxFit caps the fitted scale so the canvas never touches the container edges.
	maxFit = 0.9
)

// Viewport converts between screen pixels and logical canvas units.
type Viewport struct {
	ContainerWidth  float64
	ContainerHeight float64
	Zoom            float64
}

// NewViewport returns a viewport at zoom 1 for the given container.
func NewViewport(w, h float64) Viewport {
	return Viewport{ContainerWidth: w, ContainerHeight: h, Zoom: 1}
}

// Scale is min(containerWidth/1080, containerHeight/1080, 0.9) times zoom.
// A container without area yields 0.
func (v Viewport) Scale() float64 {
	if v.ContainerWidth <= 0 || v.ContainerHeight <= 0 {
		return 0
	}
	fit := math.Min(math.Min(v.ContainerWidth/core.CanvasSize, v.ContainerHeight/core.CanvasSize), maxFit)
	return fit * clampZoom(v.Zoom)
}

// Offset is the screen position of the canvas origin; the canvas is centred.
func (v Viewport) Offset() (float64, float64) {
	side := core.CanvasSize * v.Scale()
	return (v.ContainerWidth - side) / 2, (v.ContainerHeight - side) / 2
}

// ToCanvas maps a screen point to canvas units.
func (v Viewport) ToCanvas(px, py float64) (float64, float64) {
	s := v.Scale()
	if s == 0 {
		return 0, 0
	}
	ox, oy := v.Offset()
	return (px - ox) / s, (py - oy) / s
}

// ToScreen maps a canvas point to screen pixels.
func (v Viewport) ToScreen(cx, cy float64) (float64, float64) {
	s := v.Scale()
	ox, oy := v.Offset()
	return cx*s + ox, cy*s + oy
}

// Resize returns the viewport for a new container size.
func (v Viewport) Resize(w, h float64) Viewport {
	v.ContainerWidth, v.ContainerHeight = w, h
	return v
}

// SetZoom returns the viewport at zoom z, clamped to [MinZoom, MaxZoom].
func (v Viewport) SetZoom(z float64) Viewport {
	v.Zoom = clampZoom(z)
	return v
}

func clampZoom(z float64) float64 {
	if z == 0 || math.IsNaN(z) {
		return 1
	}
	return math.Max(MinZoom, math.Min(MaxZoom, z))
}
