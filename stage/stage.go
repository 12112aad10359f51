package stage

import (
	"math"
	"reflect"

	"carousel-studio/core"
)

// MinElementSize is the smallest width or height a resize gesture produces.
const MinElementSize = 10.0

// RotationSnap is the step, in degrees, rotation snaps to when SnapRotation is set.
const RotationSnap = 15.0

// Message is an intent reported by the stage to the document owner.
type Message interface{ message() }

// SelectionChanged reports a new selection. An empty ElementID clears it.
type SelectionChanged struct {
	ElementID string
}

// ElementUpdateRequested asks the owner to apply Updates to an element.
type ElementUpdateRequested struct {
	ElementID string
	Updates   core.ElementUpdate
}

func (SelectionChanged) message()       {}
func (ElementUpdateRequested) message() {}

type gesture struct {
	handle     Handle
	elementID  string
	origin     core.Rect
	angle      float64
	startX     float64
	startY     float64
	keepAspect bool
	moved      bool
	last       core.ElementUpdate
}

// Stage tracks pointer gestures over one slide. It holds a read-only snapshot
// of the slide; call SetSlide after the owner applies updates.
type Stage struct {
	Viewport Viewport
	// KeepAspect locks the aspect ratio of every resize, e.g. while shift is held.
	// Images and circles always keep their ratio.
	KeepAspect   bool
	SnapRotation bool
	ShowGrid     bool

	slide    core.Slide
	selected string
	drag     *gesture
}

// New creates a stage for the given viewport.
func New(vp Viewport) *Stage {
	return &Stage{Viewport: vp, SnapRotation: true}
}

// SetSlide replaces the slide snapshot. A selection that no longer exists on
// the slide is dropped, as is any gesture on a removed element.
func (s *Stage) SetSlide(slide core.Slide) {
	s.slide = slide
	if _, ok := slide.Element(s.selected); !ok {
		s.selected = ""
	}
	if s.drag != nil {
		if _, ok := slide.Element(s.drag.elementID); !ok {
			s.drag = nil
		}
	}
}

// Slide returns the current snapshot.
func (s *Stage) Slide() core.Slide { return s.slide }

// SetSelected mirrors the owner's selection onto the stage.
func (s *Stage) SetSelected(id string) {
	if _, ok := s.slide.Element(id); ok {
		s.selected = id
		return
	}
	s.selected = ""
}

func (s *Stage) Selected() string { return s.selected }

// Active returns the handle of the gesture in progress, or HandleNone.
func (s *Stage) Active() Handle {
	if s.drag == nil {
		return HandleNone
	}
	return s.drag.handle
}

// PointerDown starts a gesture at a screen point. A press on a handle of the
// selected element starts a resize or rotation; a press on an element selects
// it and starts a move; a press on the background clears the selection.
func (s *Stage) PointerDown(px, py float64) []Message {
	x, y := s.Viewport.ToCanvas(px, py)
	s.drag = nil

	if el, ok := s.slide.Element(s.selected); ok {
		if h := HandleAt(el, x, y, s.Viewport.Scale()); h != HandleNone {
			s.begin(h, el, x, y)
			return nil
		}
	}

	id, ok := HitTest(s.slide, x, y)
	if !ok {
		if s.selected == "" {
			return nil
		}
		s.selected = ""
		return []Message{SelectionChanged{}}
	}

	var msgs []Message
	if id != s.selected {
		s.selected = id
		msgs = append(msgs, SelectionChanged{ElementID: id})
	}
	el, _ := s.slide.Element(id)
	s.begin(HandleMove, el, x, y)
	return msgs
}

// PointerMove advances the active gesture and reports the resulting update.
func (s *Stage) PointerMove(px, py float64) []Message {
	if s.drag == nil {
		return nil
	}
	x, y := s.Viewport.ToCanvas(px, py)
	g := s.drag
	if !g.moved && x == g.startX && y == g.startY {
		return nil
	}
	g.moved = true

	var upd core.ElementUpdate
	switch {
	case g.handle == HandleMove:
		upd = core.MoveTo(g.origin.X+x-g.startX, g.origin.Y+y-g.startY)
	case g.handle == HandleRotate:
		upd = core.ElementUpdate{Rotation: core.Float(rotationAt(g.origin, x, y, s.SnapRotation))}
	case g.handle.isResize():
		upd = boxUpdate(resize(g.origin, g.angle, g.handle, x, y, g.keepAspect))
	default:
		return nil
	}

	if reflect.DeepEqual(upd, g.last) {
		return nil
	}
	g.last = upd
	return []Message{ElementUpdateRequested{ElementID: g.elementID, Updates: upd}}
}

// PointerUp finishes the active gesture.
func (s *Stage) PointerUp(px, py float64) []Message {
	msgs := s.PointerMove(px, py)
	s.drag = nil
	return msgs
}

// Cancel abandons the active gesture and asks the owner to restore the
// element's geometry from before it started.
func (s *Stage) Cancel() []Message {
	g := s.drag
	s.drag = nil
	if g == nil || !g.moved {
		return nil
	}
	upd := boxUpdate(g.origin)
	upd.Rotation = core.Float(g.angle)
	return []Message{ElementUpdateRequested{ElementID: g.elementID, Updates: upd}}
}

// Nudge moves the selected element by (dx, dy) canvas units.
func (s *Stage) Nudge(dx, dy float64) []Message {
	el, ok := s.slide.Element(s.selected)
	if !ok || (dx == 0 && dy == 0) {
		return nil
	}
	b := el.Bounds()
	return []Message{ElementUpdateRequested{ElementID: el.ElementID(), Updates: core.MoveTo(b.X+dx, b.Y+dy)}}
}

func (s *Stage) begin(h Handle, el core.Element, x, y float64) {
	s.drag = &gesture{
		handle:     h,
		elementID:  el.ElementID(),
		origin:     el.Bounds(),
		angle:      el.Angle(),
		startX:     x,
		startY:     y,
		keepAspect: s.KeepAspect || keepsAspect(el),
	}
}

func keepsAspect(el core.Element) bool {
	return core.Match(el,
		func(*core.TextElement) bool { return false },
		func(sh *core.ShapeElement) bool { return sh.ShapeType == core.ShapeCircle },
		func(*core.ImageElement) bool { return true },
	)
}

func boxUpdate(b core.Rect) core.ElementUpdate {
	return core.ElementUpdate{
		X:      core.Float(b.X),
		Y:      core.Float(b.Y),
		Width:  core.Float(b.Width),
		Height: core.Float(b.Height),
	}
}

// NormalizeAngle maps deg into [0, 360).
func NormalizeAngle(deg float64) float64 {
	a := math.Mod(deg, 360)
	if a < 0 {
		a += 360
	}
	if a >= 360 {
		a = 0
	}
	return a
}

// rotationAt is the element angle that points the rotate handle at (x, y).
func rotationAt(b core.Rect, x, y float64, snap bool) float64 {
	cx, cy := b.Center()
	deg := math.Atan2(y-cy, x-cx)*180/math.Pi + 90
	if snap {
		deg = math.Round(deg/RotationSnap) * RotationSnap
	}
	return NormalizeAngle(deg)
}

// resize computes the box produced by dragging handle h of a box with the
// given rotation to canvas point (x, y). The work happens in the box's
// unrotated frame so the opposite edge or corner stays put on screen.
func resize(b core.Rect, angle float64, h Handle, x, y float64, keepAspect bool) core.Rect {
	cx, cy := b.Center()
	lx, ly := rotate(x-cx, y-cy, -angle)
	sx, sy := h.edges()

	left, right := -b.Width/2, b.Width/2
	top, bottom := -b.Height/2, b.Height/2
	switch sx {
	case 1:
		right = math.Max(lx, left+MinElementSize)
	case -1:
		left = math.Min(lx, right-MinElementSize)
	}
	switch sy {
	case 1:
		bottom = math.Max(ly, top+MinElementSize)
	case -1:
		top = math.Min(ly, bottom-MinElementSize)
	}
	w, hgt := right-left, bottom-top

	if keepAspect && b.Width > 0 && b.Height > 0 {
		ratio := b.Width / b.Height
		switch {
		case h.isCorner():
			f := math.Max(w/b.Width, hgt/b.Height)
			f = math.Max(f, math.Max(MinElementSize/b.Width, MinElementSize/b.Height))
			w, hgt = b.Width*f, b.Height*f
		case sx != 0:
			hgt = w / ratio
			if hgt < MinElementSize {
				hgt, w = MinElementSize, MinElementSize*ratio
			}
			top, bottom = -hgt/2, hgt/2
		default:
			w = hgt * ratio
			if w < MinElementSize {
				w, hgt = MinElementSize, MinElementSize/ratio
			}
			left, right = -w/2, w/2
		}
		// Re-anchor the dragged sides on the fixed ones.
		if sx == 1 {
			right = left + w
		} else if sx == -1 {
			left = right - w
		}
		if sy == 1 {
			bottom = top + hgt
		} else if sy == -1 {
			top = bottom - hgt
		}
	}

	ncx, ncy := fromLocal(b, angle, (left+right)/2, (top+bottom)/2)
	return core.Rect{X: ncx - w/2, Y: ncy - hgt/2, Width: w, Height: hgt}
}
