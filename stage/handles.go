package stage

import (
	"math"

	"carousel-studio/core"
)

// Handle identifies what a pointer gesture manipulates.
type Handle int

const (
	HandleNone Handle = iota
	HandleMove
	HandleNW
	HandleN
	HandleNE
	HandleE
	HandleSE
	HandleS
	HandleSW
	HandleW
	HandleRotate
)

const (
	// HandleTolerance is the pick radius of a handle in screen pixels.
	HandleTolerance = 12.0
	// RotateHandleOffset is the distance of the rotate handle above the top edge, in screen pixels.
	RotateHandleOffset = 40.0
)

var handleNames = map[Handle]string{
	HandleNone:   "none",
	HandleMove:   "move",
	HandleNW:     "nw",
	HandleN:      "n",
	HandleNE:     "ne",
	HandleE:      "e",
	HandleSE:     "se",
	HandleS:      "s",
	HandleSW:     "sw",
	HandleW:      "w",
	HandleRotate: "rotate",
}

func (h Handle) String() string { return handleNames[h] }

// resizeHandles in the order they are drawn.
var resizeHandles = []Handle{HandleNW, HandleN, HandleNE, HandleE, HandleSE, HandleS, HandleSW, HandleW}

// edges reports which sides of the box a resize handle drags: -1 for the
// left/top side, 1 for the right/bottom side, 0 for neither.
func (h Handle) edges() (sx, sy int) {
	switch h {
	case HandleNW:
		return -1, -1
	case HandleN:
		return 0, -1
	case HandleNE:
		return 1, -1
	case HandleE:
		return 1, 0
	case HandleSE:
		return 1, 1
	case HandleS:
		return 0, 1
	case HandleSW:
		return -1, 1
	case HandleW:
		return -1, 0
	}
	return 0, 0
}

func (h Handle) isResize() bool {
	sx, sy := h.edges()
	return sx != 0 || sy != 0
}

func (h Handle) isCorner() bool {
	sx, sy := h.edges()
	return sx != 0 && sy != 0
}

// handleLocal is the position of h in the element's centred local frame.
func handleLocal(h Handle, b core.Rect, scale float64) (float64, float64) {
	if h == HandleRotate {
		off := RotateHandleOffset
		if scale > 0 {
			off /= scale
		}
		return 0, -b.Height/2 - off
	}
	sx, sy := h.edges()
	return float64(sx) * b.Width / 2, float64(sy) * b.Height / 2
}

// HandlePosition returns the canvas position of a handle of el.
func HandlePosition(el core.Element, h Handle, scale float64) (float64, float64) {
	b := el.Bounds()
	lx, ly := handleLocal(h, b, scale)
	return fromLocal(b, el.Angle(), lx, ly)
}

// HandleAt returns the handle of el under the canvas point, if any. The pick
// radius is HandleTolerance screen pixels at the given scale.
func HandleAt(el core.Element, x, y, scale float64) Handle {
	tol := HandleTolerance
	if scale > 0 {
		tol /= scale
	}
	candidates := append([]Handle{HandleRotate}, resizeHandles...)
	for _, h := range candidates {
		hx, hy := HandlePosition(el, h, scale)
		if math.Hypot(x-hx, y-hy) <= tol {
			return h
		}
	}
	return HandleNone
}
