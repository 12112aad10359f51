package stage

import (
	"encoding/base64"
	"fmt"
	"html"
	"io"
	"math"
	"regexp"
	"strings"

	"carousel-studio/core"

	svg "github.com/ajstarks/svgo/float"
)

// RenderOptions controls the SVG surface. Scale sets the output size as a
// multiple of the 1080 unit canvas; zero means 1.
type RenderOptions struct {
	Scale      float64
	ShowGrid   bool
	SelectedID string
}

const (
	gridStyle      = "stroke:#94a3b8;stroke-opacity:0.35;stroke-width:1"
	selectionColor = "#3b82f6"
	handleSize     = 10.0
	placeholderBg  = "#e2e8f0"
	placeholderFg  = "#94a3b8"
	avgGlyphWidth  = 0.55
)

// RenderSVG writes the slide as an SVG document. Elements are drawn in slice
// order, then the grid and the selection overlay.
func RenderSVG(w io.Writer, slide core.Slide, opts RenderOptions) {
	scale := opts.Scale
	if scale <= 0 {
		scale = 1
	}
	side := core.CanvasSize * scale

	doc := svg.New(w)
	doc.Start(side, side, fmt.Sprintf(`viewBox="0 0 %d %d"`, core.CanvasSize, core.CanvasSize))

	bg := slide.BackgroundColor
	if bg == "" {
		bg = core.DefaultBackground
	}
	doc.Rect(0, 0, core.CanvasSize, core.CanvasSize, "fill:"+bg)

	for _, el := range slide.Elements {
		drawElement(doc, el)
	}

	if opts.ShowGrid {
		doc.Gstyle(gridStyle)
		for _, v := range GridLines(GridSpacing) {
			doc.Line(v, 0, v, core.CanvasSize)
			doc.Line(0, v, core.CanvasSize, v)
		}
		doc.Gend()
	}

	if el, ok := slide.Element(opts.SelectedID); ok {
		drawSelection(doc, el, scale)
	}
	doc.End()
}

// RenderSVG draws the stage's current slide, grid setting and selection at
// the viewport's scale.
func (s *Stage) RenderSVG(w io.Writer) {
	RenderSVG(w, s.slide, RenderOptions{
		Scale:      s.Viewport.Scale(),
		ShowGrid:   s.ShowGrid,
		SelectedID: s.selected,
	})
}

func rotated(doc *svg.SVG, el core.Element, draw func()) {
	if el.Angle() == 0 {
		draw()
		return
	}
	cx, cy := el.Bounds().Center()
	doc.Gtransform(fmt.Sprintf("rotate(%.2f %.2f %.2f)", el.Angle(), cx, cy))
	draw()
	doc.Gend()
}

func drawElement(doc *svg.SVG, el core.Element) {
	rotated(doc, el, func() {
		core.Match(el,
			func(t *core.TextElement) struct{} { drawText(doc, t); return struct{}{} },
			func(s *core.ShapeElement) struct{} { drawShape(doc, s); return struct{}{} },
			func(i *core.ImageElement) struct{} { drawImage(doc, i); return struct{}{} },
		)
	})
}

// cssToken matches colour and keyword values that are safe inside a style
// attribute: hex, names, rgb()/hsl() and numeric weights.
var cssToken = regexp.MustCompile(`^[#A-Za-z0-9(),.% ]+$`)

// cssValue returns v when it is a safe style value and fallback otherwise.
func cssValue(v, fallback string) string {
	if v == "" || !cssToken.MatchString(v) {
		return fallback
	}
	return v
}

func shapeStyle(s *core.ShapeElement) string {
	style := "fill:" + cssValue(s.Fill, "none")
	if stroke := cssValue(s.Stroke, ""); stroke != "" && s.StrokeWidth > 0 {
		style += fmt.Sprintf(";stroke:%s;stroke-width:%.2f", stroke, s.StrokeWidth)
	}
	return style
}

func drawShape(doc *svg.SVG, s *core.ShapeElement) {
	b := s.Bounds()
	cx, cy := b.Center()
	style := shapeStyle(s)

	switch s.ShapeType {
	case core.ShapeCircle:
		doc.Circle(cx, cy, math.Min(b.Width, b.Height)/2, style)
	case core.ShapeEllipse:
		doc.Ellipse(cx, cy, b.Width/2, b.Height/2, style)
	case core.ShapeTriangle:
		doc.Polygon(
			[]float64{cx, b.X + b.Width, b.X},
			[]float64{b.Y, b.Y + b.Height, b.Y + b.Height},
			style,
		)
	case core.ShapeLine:
		stroke := cssValue(s.Stroke, cssValue(s.Fill, "none"))
		width := s.StrokeWidth
		if width <= 0 {
			width = math.Max(1, b.Height)
		}
		doc.Line(b.X, cy, b.X+b.Width, cy, fmt.Sprintf("stroke:%s;stroke-width:%.2f", stroke, width))
	case core.ShapeSVG:
		if s.SVG == "" {
			drawPlaceholder(doc, b)
			return
		}
		href := "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString([]byte(s.SVG))
		doc.Image(b.X, b.Y, int(b.Width), int(b.Height), href)
	default:
		if s.CornerRadius > 0 {
			doc.Roundrect(b.X, b.Y, b.Width, b.Height, s.CornerRadius, s.CornerRadius, style)
			return
		}
		doc.Rect(b.X, b.Y, b.Width, b.Height, style)
	}
}

func drawImage(doc *svg.SVG, i *core.ImageElement) {
	b := i.Bounds()
	if i.Src == "" {
		drawPlaceholder(doc, b)
		return
	}
	doc.Image(b.X, b.Y, int(b.Width), int(b.Height), html.EscapeString(i.Src), `preserveAspectRatio="xMidYMid slice"`)
}

func drawPlaceholder(doc *svg.SVG, b core.Rect) {
	doc.Rect(b.X, b.Y, b.Width, b.Height, "fill:"+placeholderBg)
	doc.Line(b.X, b.Y, b.X+b.Width, b.Y+b.Height, "stroke:"+placeholderFg+";stroke-width:2")
	doc.Line(b.X+b.Width, b.Y, b.X, b.Y+b.Height, "stroke:"+placeholderFg+";stroke-width:2")
}

func textAnchor(align string) string {
	switch align {
	case "center":
		return "middle"
	case "right":
		return "end"
	}
	return "start"
}

func drawText(doc *svg.SVG, t *core.TextElement) {
	fs := t.FontSize
	if fs <= 0 {
		fs = 16
	}
	lh := t.LineHeight
	if lh <= 0 {
		lh = 1.2
	}
	weight := cssValue(t.FontWeight, "normal")

	x := t.X
	switch t.Align {
	case "center":
		x = t.X + t.Width/2
	case "right":
		x = t.X + t.Width
	}

	doc.Gstyle(fmt.Sprintf("fill:%s;font-family:Inter,Helvetica,Arial,sans-serif;font-size:%.2fpx;font-weight:%s;text-anchor:%s",
		cssValue(t.Fill, "none"), fs, weight, textAnchor(t.Align)))
	for i, line := range WrapText(t.Text, int(t.Width/(fs*avgGlyphWidth))) {
		doc.Text(x, t.Y+fs+float64(i)*fs*lh, line, `xml:space="preserve"`)
	}
	doc.Gend()
}

// WrapText breaks s into lines of at most width characters on word
// boundaries. Explicit newlines are kept. Words longer than width get their
// own line.
func WrapText(s string, width int) []string {
	if width < 1 {
		width = 1
	}
	var lines []string
	for _, para := range strings.Split(s, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		line := words[0]
		for _, w := range words[1:] {
			if len(line)+1+len(w) > width {
				lines = append(lines, line)
				line = w
				continue
			}
			line += " " + w
		}
		lines = append(lines, line)
	}
	return lines
}

func drawSelection(doc *svg.SVG, el core.Element, scale float64) {
	b := el.Bounds()
	unit := 1 / scale
	hs := handleSize * unit

	rotated(doc, el, func() {
		doc.Rect(b.X, b.Y, b.Width, b.Height,
			fmt.Sprintf("fill:none;stroke:%s;stroke-width:%.2f;stroke-dasharray:%.2f %.2f", selectionColor, 2*unit, 6*unit, 4*unit))

		cx, _ := b.Center()
		top := b.Y - RotateHandleOffset*unit
		doc.Line(cx, b.Y, cx, top, fmt.Sprintf("stroke:%s;stroke-width:%.2f", selectionColor, unit))
		doc.Circle(cx, top, hs/2, fmt.Sprintf("fill:#ffffff;stroke:%s;stroke-width:%.2f", selectionColor, 2*unit))

		for _, h := range resizeHandles {
			sx, sy := h.edges()
			hx := cx + float64(sx)*b.Width/2
			hy := b.Y + b.Height/2 + float64(sy)*b.Height/2
			doc.Rect(hx-hs/2, hy-hs/2, hs, hs, fmt.Sprintf("fill:#ffffff;stroke:%s;stroke-width:%.2f", selectionColor, 2*unit))
		}
	})
}
