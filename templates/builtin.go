package templates

import (
	"fmt"

	"carousel-studio/core"
)

// Built-in template ids.
const (
	CarouselOutlineID = "carousel-outline"
	ListicleID        = "listicle"
	QuoteCardID       = "quote-card"
	CaseStudyID       = "case-study"
	MinimalTitleID    = "minimal-title"
	BrandShapesID     = "brand-shapes"
)

const (
	navy   = "#0f172a"
	slate  = "#1e293b"
	blue   = "#2563eb"
	sky    = "#38bdf8"
	amber  = "#f59e0b"
	cream  = "#fdf6e3"
	ink    = "#111827"
	muted  = "#64748b"
	white  = "#ffffff"
	margin = 90.0
	inner  = core.CanvasSize - 2*margin
)

func text(id string, y, h, size float64, weight, align, fill, body string) *core.TextElement {
	return &core.TextElement{
		ID:         id,
		X:          margin,
		Y:          y,
		Width:      inner,
		Height:     h,
		Text:       body,
		FontSize:   size,
		FontWeight: weight,
		Align:      align,
		Fill:       fill,
		LineHeight: 1.25,
	}
}

func rect(id string, x, y, w, h float64, fill string, radius float64) *core.ShapeElement {
	return &core.ShapeElement{ID: id, X: x, Y: y, Width: w, Height: h, ShapeType: core.ShapeRect, Fill: fill, CornerRadius: radius}
}

func circle(id string, x, y, d float64, fill string) *core.ShapeElement {
	return &core.ShapeElement{ID: id, X: x, Y: y, Width: d, Height: d, ShapeType: core.ShapeCircle, Fill: fill}
}

func slide(id, bg string, elements ...core.Element) core.Slide {
	return core.Slide{ID: id, BackgroundColor: bg, Elements: elements}
}

func carouselOutline() *core.CanvasTemplate {
	slides := []core.Slide{
		slide("outline-1", navy,
			rect("outline-1-bar", margin, 300, 160, 14, sky, 7),
			text("outline-1-hook", 360, 420, 84, "bold", "left", white, "5 ideas that will change how you work"),
		),
	}
	for i := 2; i <= 6; i++ {
		p := fmt.Sprintf("outline-%d", i)
		slides = append(slides, slide(p, white,
			rect(p+"-accent", 0, 0, 24, core.CanvasSize, blue, 0),
			circle(p+"-dot", margin, 140, 90, sky),
			text(p+"-point", 290, 600, 56, "600", "left", ink, fmt.Sprintf("Point %d: a short, punchy insight", i-1)),
		))
	}
	slides = append(slides, slide("outline-7", blue,
		rect("outline-7-panel", margin, 330, inner, 420, navy, 32),
		text("outline-7-cta", 400, 280, 64, "bold", "center", white, "Follow for more tips like these"),
	))
	return &core.CanvasTemplate{
		ID:            CarouselOutlineID,
		Name:          "Carousel Outline",
		Category:      "educational",
		Description:   "Hook, five key points and a call to action.",
		DefaultSlides: slides,
		DefaultTone:   "professional",
		BuiltIn:       true,
	}
}

func listicle() *core.CanvasTemplate {
	slides := []core.Slide{
		slide("listicle-1", cream,
			text("listicle-1-title", 260, 320, 88, "bold", "left", ink, "The ultimate checklist"),
			text("listicle-1-subtitle", 620, 160, 40, "normal", "left", muted, "Save this for later"),
		),
	}
	for i := 2; i <= 4; i++ {
		p := fmt.Sprintf("listicle-%d", i)
		slides = append(slides, slide(p, cream,
			rect(p+"-tag", margin, 120, 140, 60, amber, 30),
			text(p+"-heading", 230, 200, 64, "bold", "left", ink, fmt.Sprintf("Item %d", i-1)),
			text(p+"-body", 460, 440, 40, "normal", "left", slate, "Explain why it matters in one or two sentences."),
		))
	}
	slides = append(slides, slide("listicle-5", amber,
		text("listicle-5-cta", 380, 320, 64, "bold", "center", ink, "Which one are you trying first?"),
	))
	return &core.CanvasTemplate{
		ID:            ListicleID,
		Name:          "Listicle",
		Category:      "educational",
		Description:   "Numbered items with a heading and short explanation.",
		DefaultSlides: slides,
		DefaultTone:   "casual",
		BuiltIn:       true,
	}
}

func quoteCard() *core.CanvasTemplate {
	var slides []core.Slide
	for i := 1; i <= 3; i++ {
		p := fmt.Sprintf("quote-%d", i)
		slides = append(slides, slide(p, slate,
			rect(p+"-mark", margin, 150, 120, 120, amber, 60),
			text(p+"-quote", 320, 440, 60, "600", "left", white, "“A memorable line goes here.”"),
			text(p+"-author", 800, 100, 36, "normal", "left", sky, "Author name"),
		))
	}
	return &core.CanvasTemplate{
		ID:            QuoteCardID,
		Name:          "Quote Card",
		Category:      "inspirational",
		Description:   "Three quote slides with attribution.",
		DefaultSlides: slides,
		DefaultTone:   "inspirational",
		BuiltIn:       true,
	}
}

func caseStudy() *core.CanvasTemplate {
	sections := []string{"The problem", "Our approach", "The results", "Lessons learned"}
	slides := []core.Slide{
		slide("case-1", navy,
			text("case-1-title", 280, 300, 80, "bold", "left", white, "How we grew 3x in one quarter"),
			text("case-1-subtitle", 620, 140, 40, "normal", "left", sky, "A short case study"),
		),
	}
	for i, heading := range sections {
		p := fmt.Sprintf("case-%d", i+2)
		slides = append(slides, slide(p, white,
			rect(p+"-rule", margin, 250, 200, 10, blue, 5),
			text(p+"-heading", 120, 120, 60, "bold", "left", navy, heading),
			text(p+"-body", 300, 560, 40, "normal", "left", slate, "Describe this part of the story."),
		))
	}
	slides = append(slides, slide("case-6", navy,
		text("case-6-cta", 400, 280, 60, "bold", "center", white, "Want the full breakdown? Comment below"),
	))
	return &core.CanvasTemplate{
		ID:            CaseStudyID,
		Name:          "Case Study",
		Category:      "business",
		Description:   "Problem, approach, results and lessons.",
		DefaultSlides: slides,
		DefaultTone:   "professional",
		BuiltIn:       true,
	}
}

func minimalTitle() *core.CanvasTemplate {
	return &core.CanvasTemplate{
		ID:       MinimalTitleID,
		Name:     "Minimal Title",
		Category: "minimal",
		DefaultSlides: []core.Slide{
			slide("minimal-1", white,
				text("minimal-1-title", 390, 300, 88, "bold", "center", ink, "One big idea"),
			),
		},
		BuiltIn: true,
	}
}

func brandShapes() *core.CanvasTemplate {
	return &core.CanvasTemplate{
		ID:          BrandShapesID,
		Name:        "Brand Shapes",
		Category:    "minimal",
		Description: "Decorative backgrounds with no text.",
		DefaultSlides: []core.Slide{
			slide("shapes-1", blue,
				circle("shapes-1-a", 640, -120, 560, sky),
				rect("shapes-1-b", margin, 700, 420, 200, navy, 40),
			),
			slide("shapes-2", navy,
				circle("shapes-2-a", -160, 600, 640, blue),
				&core.ShapeElement{ID: "shapes-2-b", X: 700, Y: 160, Width: 260, Height: 260, ShapeType: core.ShapeTriangle, Fill: amber},
			),
		},
		BuiltIn: true,
	}
}

var builtins = []*core.CanvasTemplate{
	carouselOutline(),
	listicle(),
	quoteCard(),
	caseStudy(),
	minimalTitle(),
	brandShapes(),
}

// Builtins returns copies of the built-in templates.
func Builtins() []*core.CanvasTemplate {
	out := make([]*core.CanvasTemplate, len(builtins))
	for i, t := range builtins {
		out[i] = t.Clone()
	}
	return out
}

// Categories lists the distinct built-in categories in first-seen order.
func Categories() []string {
	var cats []string
	seen := make(map[string]bool)
	for _, t := range builtins {
		if !seen[t.Category] {
			seen[t.Category] = true
			cats = append(cats, t.Category)
		}
	}
	return cats
}

func builtin(id string) (*core.CanvasTemplate, bool) {
	for _, t := range builtins {
		if t.ID == id {
			return t, true
		}
	}
	return nil, false
}

// BuiltIn returns a copy of the built-in template with the given id.
func BuiltIn(id string) (*core.CanvasTemplate, bool) {
	t, ok := builtin(id)
	if !ok {
		return nil, false
	}
	return t.Clone(), true
}

// MustBuiltIn is BuiltIn for ids known at compile time.
func MustBuiltIn(id string) *core.CanvasTemplate {
	t, ok := BuiltIn(id)
	if !ok {
		panic("templates: no built-in template " + id)
	}
	return t
}
