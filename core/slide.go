package core

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/oklog/ulid/v2"
)

const (
	// MaxSlides is the hard ceiling on slides per carousel.
	MaxSlides = 10

	DefaultBackground = "#ffffff"
)

// Slide is one page of a carousel. Elements are in z-order: later entries
// render on top.
type Slide struct {
	ID              string
	BackgroundColor string
	Elements        []Element
}

type slideJSON struct {
	ID              string            `json:"id"`
	BackgroundColor string            `json:"backgroundColor"`
	Elements        []json.RawMessage `json:"elements"`
}

// NewID returns a fresh identifier with the given prefix, e.g. "el_01j...".
func NewID(prefix string) string {
	return prefix + "_" + strings.ToLower(ulid.Make().String())
}

// NewSlide returns an empty slide with the default background.
func NewSlide() Slide {
	return Slide{ID: NewID("slide"), BackgroundColor: DefaultBackground, Elements: []Element{}}
}

func (s Slide) MarshalJSON() ([]byte, error) {
	out := slideJSON{
		ID:              s.ID,
		BackgroundColor: s.BackgroundColor,
		Elements:        make([]json.RawMessage, 0, len(s.Elements)),
	}
	for _, el := range s.Elements {
		raw, err := MarshalElement(el)
		if err != nil {
			return nil, err
		}
		out.Elements = append(out.Elements, raw)
	}
	return json.Marshal(out)
}

func (s *Slide) UnmarshalJSON(data []byte) error {
	var in slideJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	elements := make([]Element, 0, len(in.Elements))
	for i, raw := range in.Elements {
		el, err := UnmarshalElement(raw)
		if err != nil {
			return fmt.Errorf("slide %s element %d: %w", in.ID, i, err)
		}
		elements = append(elements, el)
	}
	s.ID = in.ID
	s.BackgroundColor = in.BackgroundColor
	s.Elements = elements
	return nil
}

// Clone deep-copies the slide. With freshIDs the copy gets a new slide id and
// new element ids, so it can live next to the original in one document.
func (s Slide) Clone(freshIDs bool) Slide {
	c := Slide{
		ID:              s.ID,
		BackgroundColor: s.BackgroundColor,
		Elements:        make([]Element, len(s.Elements)),
	}
	if freshIDs {
		c.ID = NewID("slide")
	}
	for i, el := range s.Elements {
		if freshIDs {
			c.Elements[i] = el.withID(NewID("el"))
		} else {
			c.Elements[i] = el.Clone()
		}
	}
	return c
}

// IndexOf returns the position of the element with the given id, or -1.
func (s Slide) IndexOf(id string) int {
	for i, el := range s.Elements {
		if el.ElementID() == id {
			return i
		}
	}
	return -1
}

// Element looks up an element by id.
func (s Slide) Element(id string) (Element, bool) {
	if i := s.IndexOf(id); i >= 0 {
		return s.Elements[i], true
	}
	return nil, false
}

// MaxCoordinate bounds every element coordinate and size, in canvas units.
const MaxCoordinate = 10 * CanvasSize

// Validate checks that element ids are present and unique within the slide
// and that element geometry is finite and within MaxCoordinate.
func (s Slide) Validate() error {
	seen := make(map[string]struct{}, len(s.Elements))
	for i, el := range s.Elements {
		if el == nil {
			return fmt.Errorf("slide %s: element %d is nil", s.ID, i)
		}
		id := el.ElementID()
		if id == "" {
			return fmt.Errorf("slide %s: element %d has no id", s.ID, i)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("slide %s: duplicate element id %s", s.ID, id)
		}
		seen[id] = struct{}{}
		if err := validateGeometry(el); err != nil {
			return fmt.Errorf("slide %s: element %s: %w", s.ID, id, err)
		}
	}
	return nil
}

type measure struct {
	name   string
	v      float64
	nonNeg bool
}

func validateGeometry(el Element) error {
	b := el.Bounds()
	checks := []measure{
		{"x", b.X, false},
		{"y", b.Y, false},
		{"width", b.Width, true},
		{"height", b.Height, true},
	}
	checks = append(checks, Match(el,
		func(t *TextElement) []measure {
			return []measure{{"fontSize", t.FontSize, true}, {"lineHeight", t.LineHeight, true}}
		},
		func(sh *ShapeElement) []measure {
			return []measure{{"strokeWidth", sh.StrokeWidth, true}, {"cornerRadius", sh.CornerRadius, true}}
		},
		func(*ImageElement) []measure { return nil },
	)...)

	for _, c := range checks {
		switch {
		case math.IsNaN(c.v) || math.IsInf(c.v, 0):
			return fmt.Errorf("%w: %s is not a finite number", ErrInvalidInput, c.name)
		case math.Abs(c.v) > MaxCoordinate:
			return fmt.Errorf("%w: %s %g is out of range", ErrInvalidInput, c.name, c.v)
		case c.nonNeg && c.v < 0:
			return fmt.Errorf("%w: %s must not be negative", ErrInvalidInput, c.name)
		}
	}
	if r := el.Angle(); math.IsNaN(r) || math.IsInf(r, 0) {
		return fmt.Errorf("%w: rotation is not a finite number", ErrInvalidInput)
	}
	return nil
}

// CloneSlides deep-copies a slide sequence.
func CloneSlides(slides []Slide, freshIDs bool) []Slide {
	out := make([]Slide, len(slides))
	for i, s := range slides {
		out[i] = s.Clone(freshIDs)
	}
	return out
}

// ValidateSlides checks a whole document: between one and MaxSlides slides,
// each individually valid.
func ValidateSlides(slides []Slide) error {
	if len(slides) == 0 {
		return fmt.Errorf("carousel must have at least one slide")
	}
	if len(slides) > MaxSlides {
		return fmt.Errorf("%w: %d slides, at most %d allowed", ErrCapacityExceeded, len(slides), MaxSlides)
	}
	for _, s := range slides {
		if err := s.Validate(); err != nil {
			return err
		}
	}
	return nil
}
