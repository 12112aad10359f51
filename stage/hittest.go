package stage

import (
	"math"

	"carousel-studio/core"
)

// lineSlop is the minimum half-thickness, in canvas units, of a line's hit area.
const lineSlop = 6.0

func radians(deg float64) float64 { return deg * math.Pi / 180 }

// rotate turns (x, y) about the origin by deg degrees, clockwise on screen.
func rotate(x, y, deg float64) (float64, float64) {
	if deg == 0 {
		return x, y
	}
	sin, cos := math.Sincos(radians(deg))
	return x*cos - y*sin, x*sin + y*cos
}

// toLocal maps a canvas point into the element's unrotated frame, centred on
// the element.
func toLocal(el core.Element, x, y float64) (float64, float64) {
	cx, cy := el.Bounds().Center()
	return rotate(x-cx, y-cy, -el.Angle())
}

// fromLocal is the inverse of toLocal.
func fromLocal(b core.Rect, angle, lx, ly float64) (float64, float64) {
	cx, cy := b.Center()
	rx, ry := rotate(lx, ly, angle)
	return rx + cx, ry + cy
}

// Contains reports whether the canvas point lies inside el, honouring its
// rotation and geometry.
func Contains(el core.Element, x, y float64) bool {
	b := el.Bounds()
	lx, ly := toLocal(el, x, y)
	hw, hh := b.Width/2, b.Height/2
	inBox := math.Abs(lx) <= hw && math.Abs(ly) <= hh

	return core.Match(el,
		func(*core.TextElement) bool { return inBox },
		func(s *core.ShapeElement) bool {
			switch s.ShapeType {
			case core.ShapeCircle, core.ShapeEllipse:
				if hw == 0 || hh == 0 {
					return false
				}
				nx, ny := lx/hw, ly/hh
				return nx*nx+ny*ny <= 1
			case core.ShapeTriangle:
				return inTriangle(lx, ly, hw, hh)
			case core.ShapeLine:
				slop := math.Max(lineSlop, s.StrokeWidth/2)
				return math.Abs(lx) <= hw && math.Abs(ly) <= math.Max(hh, slop)
			default:
				return inBox
			}
		},
		func(*core.ImageElement) bool { return inBox },
	)
}

// inTriangle tests against the isosceles triangle with its apex at the top
// centre of the box and its base along the bottom edge.
func inTriangle(lx, ly, hw, hh float64) bool {
	if ly < -hh || ly > hh || hh == 0 {
		return false
	}
	// Half-width grows linearly from 0 at the apex to hw at the base.
	half := hw * (ly + hh) / (2 * hh)
	return math.Abs(lx) <= half
}

// HitTest returns the id of the topmost element under the canvas point.
// Later elements are on top, so the slide is walked back to front.
func HitTest(slide core.Slide, x, y float64) (string, bool) {
	for i := len(slide.Elements) - 1; i >= 0; i-- {
		el := slide.Elements[i]
		if Contains(el, x, y) {
			return el.ElementID(), true
		}
	}
	return "", false
}
