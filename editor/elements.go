package editor

import (
	"fmt"
	"strings"

	"carousel-studio/core"
)

// SelectElement selects an element on the current slide. An empty id clears
// the selection.
func (s *Session) SelectElement(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id == "" {
		s.selected = ""
		return nil
	}
	if s.slides[s.current].IndexOf(id) < 0 {
		return fmt.Errorf("select %s: %w", id, core.ErrElementNotFound)
	}
	s.selected = id
	return nil
}

// UpdateElement applies a partial update to an element on the current slide.
func (s *Session) UpdateElement(id string, upd core.ElementUpdate) error {
	return s.mutate(func() error {
		slide := &s.slides[s.current]
		i := slide.IndexOf(id)
		if i < 0 {
			return fmt.Errorf("update %s: %w", id, core.ErrElementNotFound)
		}
		if upd.IsEmpty() {
			return nil
		}
		slide.Elements[i] = core.ApplyUpdate(slide.Elements[i], upd)
		return nil
	})
}

// DeleteElement removes an element from the current slide.
func (s *Session) DeleteElement(id string) error {
	return s.mutate(func() error {
		slide := &s.slides[s.current]
		i := slide.IndexOf(id)
		if i < 0 {
			return fmt.Errorf("delete %s: %w", id, core.ErrElementNotFound)
		}
		slide.Elements = append(slide.Elements[:i], slide.Elements[i+1:]...)
		if s.selected == id {
			s.selected = ""
		}
		return nil
	})
}

// BringForward moves an element one step up the z-order.
func (s *Session) BringForward(id string) error { return s.shift(id, 1) }

// SendBackward moves an element one step down the z-order.
func (s *Session) SendBackward(id string) error { return s.shift(id, -1) }

func (s *Session) shift(id string, by int) error {
	return s.mutate(func() error {
		els := s.slides[s.current].Elements
		i := s.slides[s.current].IndexOf(id)
		if i < 0 {
			return fmt.Errorf("reorder %s: %w", id, core.ErrElementNotFound)
		}
		j := i + by
		if j < 0 || j >= len(els) {
			return nil
		}
		els[i], els[j] = els[j], els[i]
		return nil
	})
}

// InsertText adds a text box to the current slide and selects it.
func (s *Session) InsertText(text string, at core.Rect) (string, error) {
	return s.insert(&core.TextElement{
		X: at.X, Y: at.Y, Width: at.Width, Height: at.Height,
		Text:       text,
		FontSize:   48,
		FontWeight: "normal",
		Align:      "left",
		Fill:       "#111827",
		LineHeight: 1.25,
	}, at)
}

// InsertImage adds an image from an asset library URL or data URL.
func (s *Session) InsertImage(src string, at core.Rect) (string, error) {
	if strings.TrimSpace(src) == "" {
		return "", fmt.Errorf("%w: image source is required", core.ErrInvalidInput)
	}
	return s.insert(&core.ImageElement{X: at.X, Y: at.Y, Width: at.Width, Height: at.Height, Src: src}, at)
}

// InsertShape adds a preset shape. svgMarkup is only used with core.ShapeSVG.
func (s *Session) InsertShape(shape core.ShapeType, fill, svgMarkup string, at core.Rect) (string, error) {
	switch shape {
	case core.ShapeRect, core.ShapeCircle, core.ShapeEllipse, core.ShapeTriangle, core.ShapeLine:
	case core.ShapeSVG:
		if !strings.Contains(svgMarkup, "<svg") {
			return "", fmt.Errorf("%w: svg shape needs <svg> markup", core.ErrInvalidInput)
		}
	default:
		return "", fmt.Errorf("%w: unknown shape type %q", core.ErrInvalidInput, shape)
	}
	el := &core.ShapeElement{X: at.X, Y: at.Y, Width: at.Width, Height: at.Height, ShapeType: shape, Fill: fill}
	if shape == core.ShapeSVG {
		el.SVG = svgMarkup
	}
	return s.insert(el, at)
}

func (s *Session) insert(el core.Element, at core.Rect) (string, error) {
	if at.Width <= 0 || at.Height <= 0 {
		return "", fmt.Errorf("%w: element size must be positive", core.ErrInvalidInput)
	}
	id := core.NewID("el")
	el = core.Match(el,
		func(t *core.TextElement) core.Element { t.ID = id; return t },
		func(sh *core.ShapeElement) core.Element { sh.ID = id; return sh },
		func(i *core.ImageElement) core.Element { i.ID = id; return i },
	)
	err := s.mutate(func() error {
		slide := &s.slides[s.current]
		slide.Elements = append(slide.Elements, el)
		s.selected = id
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}
