package core

import (
	"encoding/json"
	"fmt"
	"math"
)

// CanvasSize is the logical width and height of every slide.
const CanvasSize = 1080

type (
	// ElementKind discriminates the element variants. It is the `type` field on the wire.
	ElementKind string

	// ShapeType selects the geometry of a ShapeElement.
	ShapeType string

	// Rect is an axis-aligned box in canvas space, before rotation.
	Rect struct {
		X      float64 `json:"x"`
		Y      float64 `json:"y"`
		Width  float64 `json:"width"`
		Height float64 `json:"height"`
	}
)

const (
	KindText  ElementKind = "text"
	KindShape ElementKind = "shape"
	KindImage ElementKind = "image"
)

const (
	ShapeRect     ShapeType = "rect"
	ShapeCircle   ShapeType = "circle"
	ShapeEllipse  ShapeType = "ellipse"
	ShapeTriangle ShapeType = "triangle"
	ShapeLine     ShapeType = "line"
	// ShapeSVG carries raw markup from an icon or shape library in ShapeElement.SVG.
	ShapeSVG ShapeType = "svg"
)

// Center returns the rotation origin of the box.
func (r Rect) Center() (float64, float64) {
	return r.X + r.Width/2, r.Y + r.Height/2
}

// Element is a positioned visual primitive on a slide. The set of
// implementations is closed: TextElement, ShapeElement and ImageElement.
// Use Match to branch on the concrete variant.
type Element interface {
	ElementID() string
	Kind() ElementKind
	Bounds() Rect
	Angle() float64
	Clone() Element

	withID(id string) Element
	sealed()
}

type (
	TextElement struct {
		ID         string  `json:"id"`
		X          float64 `json:"x"`
		Y          float64 `json:"y"`
		Width      float64 `json:"width"`
		Height     float64 `json:"height"`
		Text       string  `json:"text"`
		FontSize   float64 `json:"fontSize"`
		FontWeight string  `json:"fontWeight,omitempty"`
		Align      string  `json:"align,omitempty"`
		Rotation   float64 `json:"rotation"`
		Fill       string  `json:"fill"`
		LineHeight float64 `json:"lineHeight,omitempty"`
	}

	ShapeElement struct {
		ID           string    `json:"id"`
		X            float64   `json:"x"`
		Y            float64   `json:"y"`
		Width        float64   `json:"width"`
		Height       float64   `json:"height"`
		ShapeType    ShapeType `json:"shapeType"`
		Fill         string    `json:"fill"`
		Stroke       string    `json:"stroke,omitempty"`
		StrokeWidth  float64   `json:"strokeWidth,omitempty"`
		CornerRadius float64   `json:"cornerRadius,omitempty"`
		Rotation     float64   `json:"rotation"`
		SVG          string    `json:"svg,omitempty"`
	}

	ImageElement struct {
		ID       string  `json:"id"`
		X        float64 `json:"x"`
		Y        float64 `json:"y"`
		Width    float64 `json:"width"`
		Height   float64 `json:"height"`
		Src      string  `json:"src"`
		Rotation float64 `json:"rotation"`
	}
)

func (e *TextElement) ElementID() string { return e.ID }
func (e *TextElement) Kind() ElementKind { return KindText }
func (e *TextElement) Angle() float64    { return e.Rotation }
func (e *TextElement) Bounds() Rect {
	return Rect{X: e.X, Y: e.Y, Width: e.Width, Height: e.Height}
}
func (e *TextElement) Clone() Element { c := *e; return &c }
func (e *TextElement) withID(id string) Element {
	c := *e
	c.ID = id
	return &c
}
func (*TextElement) sealed() {}

func (e *ShapeElement) ElementID() string { return e.ID }
func (e *ShapeElement) Kind() ElementKind { return KindShape }
func (e *ShapeElement) Angle() float64    { return e.Rotation }
func (e *ShapeElement) Bounds() Rect {
	return Rect{X: e.X, Y: e.Y, Width: e.Width, Height: e.Height}
}
func (e *ShapeElement) Clone() Element { c := *e; return &c }
func (e *ShapeElement) withID(id string) Element {
	c := *e
	c.ID = id
	return &c
}
func (*ShapeElement) sealed() {}

func (e *ImageElement) ElementID() string { return e.ID }
func (e *ImageElement) Kind() ElementKind { return KindImage }
func (e *ImageElement) Angle() float64    { return e.Rotation }
func (e *ImageElement) Bounds() Rect {
	return Rect{X: e.X, Y: e.Y, Width: e.Width, Height: e.Height}
}
func (e *ImageElement) Clone() Element { c := *e; return &c }
func (e *ImageElement) withID(id string) Element {
	c := *e
	c.ID = id
	return &c
}
func (*ImageElement) sealed() {}

// Match dispatches on the concrete element variant. Every caller must supply a
// branch for each variant, so adding a variant breaks every call site at
// compile time instead of falling through silently.
func Match[T any](el Element, text func(*TextElement) T, shape func(*ShapeElement) T, image func(*ImageElement) T) T {
	switch e := el.(type) {
	case *TextElement:
		return text(e)
	case *ShapeElement:
		return shape(e)
	case *ImageElement:
		return image(e)
	}
	panic(fmt.Sprintf("core: unhandled element variant %T", el))
}

// IsText reports whether el is a text element, i.e. a fillable slot.
func IsText(el Element) bool {
	_, ok := el.(*TextElement)
	return ok
}

// ElementUpdate is a partial change to an element. Nil fields are left
// untouched; fields that do not exist on the target variant are ignored.
type ElementUpdate struct {
	X            *float64 `json:"x,omitempty"`
	Y            *float64 `json:"y,omitempty"`
	Width        *float64 `json:"width,omitempty"`
	Height       *float64 `json:"height,omitempty"`
	Rotation     *float64 `json:"rotation,omitempty"`
	Text         *string  `json:"text,omitempty"`
	FontSize     *float64 `json:"fontSize,omitempty"`
	FontWeight   *string  `json:"fontWeight,omitempty"`
	Align        *string  `json:"align,omitempty"`
	Fill         *string  `json:"fill,omitempty"`
	LineHeight   *float64 `json:"lineHeight,omitempty"`
	Stroke       *string  `json:"stroke,omitempty"`
	StrokeWidth  *float64 `json:"strokeWidth,omitempty"`
	CornerRadius *float64 `json:"cornerRadius,omitempty"`
	Src          *string  `json:"src,omitempty"`
}

// Float returns a pointer to v, for building an ElementUpdate.
func Float(v float64) *float64 { return &v }

// String returns a pointer to v, for building an ElementUpdate.
func String(v string) *string { return &v }

// MoveTo is the update produced by a drag.
func MoveTo(x, y float64) ElementUpdate {
	return ElementUpdate{X: Float(x), Y: Float(y)}
}

// IsEmpty reports whether the update changes nothing.
func (u ElementUpdate) IsEmpty() bool {
	return u == ElementUpdate{}
}

func setF(dst *float64, src *float64) {
	if src != nil && !math.IsNaN(*src) && !math.IsInf(*src, 0) {
		*dst = *src
	}
}

func setS(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func minSize(v float64) float64 {
	if v < 1 {
		return 1
	}
	return v
}

// ApplyUpdate returns a copy of el with upd applied. el is never modified.
func ApplyUpdate(el Element, upd ElementUpdate) Element {
	return Match(el,
		func(t *TextElement) Element {
			c := *t
			setF(&c.X, upd.X)
			setF(&c.Y, upd.Y)
			setF(&c.Width, upd.Width)
			setF(&c.Height, upd.Height)
			setF(&c.Rotation, upd.Rotation)
			setS(&c.Text, upd.Text)
			setF(&c.FontSize, upd.FontSize)
			setS(&c.FontWeight, upd.FontWeight)
			setS(&c.Align, upd.Align)
			setS(&c.Fill, upd.Fill)
			setF(&c.LineHeight, upd.LineHeight)
			c.Width, c.Height = minSize(c.Width), minSize(c.Height)
			return &c
		},
		func(s *ShapeElement) Element {
			c := *s
			setF(&c.X, upd.X)
			setF(&c.Y, upd.Y)
			setF(&c.Width, upd.Width)
			setF(&c.Height, upd.Height)
			setF(&c.Rotation, upd.Rotation)
			setS(&c.Fill, upd.Fill)
			setS(&c.Stroke, upd.Stroke)
			setF(&c.StrokeWidth, upd.StrokeWidth)
			setF(&c.CornerRadius, upd.CornerRadius)
			c.Width, c.Height = minSize(c.Width), minSize(c.Height)
			return &c
		},
		func(i *ImageElement) Element {
			c := *i
			setF(&c.X, upd.X)
			setF(&c.Y, upd.Y)
			setF(&c.Width, upd.Width)
			setF(&c.Height, upd.Height)
			setF(&c.Rotation, upd.Rotation)
			setS(&c.Src, upd.Src)
			c.Width, c.Height = minSize(c.Width), minSize(c.Height)
			return &c
		},
	)
}

// MarshalElement encodes el with its `type` discriminator.
func MarshalElement(el Element) ([]byte, error) {
	tagged := Match(el,
		func(t *TextElement) any {
			return struct {
				Type ElementKind `json:"type"`
				*TextElement
			}{KindText, t}
		},
		func(s *ShapeElement) any {
			return struct {
				Type ElementKind `json:"type"`
				*ShapeElement
			}{KindShape, s}
		},
		func(i *ImageElement) any {
			return struct {
				Type ElementKind `json:"type"`
				*ImageElement
			}{KindImage, i}
		},
	)
	return json.Marshal(tagged)
}

// UnmarshalElement decodes a single element by its `type` discriminator.
func UnmarshalElement(data []byte) (Element, error) {
	var head struct {
		Type ElementKind `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("decode element: %w", err)
	}

	var el Element
	switch head.Type {
	case KindText:
		el = &TextElement{}
	case KindShape:
		el = &ShapeElement{}
	case KindImage:
		el = &ImageElement{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownElement, head.Type)
	}
	if err := json.Unmarshal(data, el); err != nil {
		return nil, fmt.Errorf("decode %s element: %w", head.Type, err)
	}
	return el, nil
}
