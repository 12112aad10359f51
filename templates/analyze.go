package templates

import (
	"math"
	"strings"

	"carousel-studio/core"
)

// Slot roles reported in the analysis and used to steer generation.
const (
	RoleHook    = "hook"
	RoleHeading = "heading"
	RoleBody    = "body"
	RoleCTA     = "cta"
)

var defaultColors = map[string]bool{
	"":            true,
	"#fff":        true,
	"#ffffff":     true,
	"white":       true,
	"#000":        true,
	"#000000":     true,
	"black":       true,
	"transparent": true,
}

// Analyze derives slot and colour metadata from a template. Every text element
// is one slot, identified by its element id.
func Analyze(tpl *core.CanvasTemplate) core.TemplateAnalysis {
	a := core.TemplateAnalysis{
		TemplateName: tpl.Name,
		TotalSlides:  len(tpl.DefaultSlides),
		BrandColors:  []string{},
		Slots:        []core.SlotRef{},
	}

	seen := make(map[string]bool)
	addColor := func(c string) {
		c = strings.ToLower(strings.TrimSpace(c))
		if defaultColors[c] || seen[c] {
			return
		}
		seen[c] = true
		a.BrandColors = append(a.BrandColors, c)
	}

	last := len(tpl.DefaultSlides) - 1
	for si, s := range tpl.DefaultSlides {
		addColor(s.BackgroundColor)
		lead := leadText(s)
		for ei, el := range s.Elements {
			fill := core.Match(el,
				func(t *core.TextElement) string { return t.Fill },
				func(sh *core.ShapeElement) string { return sh.Fill },
				func(*core.ImageElement) string { return "" },
			)
			addColor(fill)

			t, ok := el.(*core.TextElement)
			if !ok {
				continue
			}
			a.Slots = append(a.Slots, core.SlotRef{
				SlotID:       t.ID,
				SlideIndex:   si,
				ElementIndex: ei,
				Role:         role(si, last, ei == lead, countText(s)),
				DefaultText:  t.Text,
				MaxChars:     maxChars(t),
				FontSize:     t.FontSize,
			})
		}
	}
	a.TotalSlots = len(a.Slots)
	return a
}

// leadText returns the index of the text element with the largest font on the
// slide, or -1. Ties go to the earlier element.
func leadText(s core.Slide) int {
	lead, size := -1, -1.0
	for i, el := range s.Elements {
		if t, ok := el.(*core.TextElement); ok && t.FontSize > size {
			lead, size = i, t.FontSize
		}
	}
	return lead
}

func countText(s core.Slide) int {
	n := 0
	for _, el := range s.Elements {
		if core.IsText(el) {
			n++
		}
	}
	return n
}

func role(slideIndex, last int, lead bool, texts int) string {
	switch {
	case slideIndex == 0 && lead:
		return RoleHook
	case slideIndex == last && last > 0 && lead:
		return RoleCTA
	case lead && texts > 1:
		return RoleHeading
	default:
		return RoleBody
	}
}

// maxChars estimates how much copy fits in the text box at its font size.
func maxChars(t *core.TextElement) int {
	if t.FontSize <= 0 {
		return 120
	}
	lh := t.LineHeight
	if lh <= 0 {
		lh = 1.2
	}
	perLine := math.Floor(t.Width / (t.FontSize * 0.55))
	lines := math.Max(1, math.Floor(t.Height/(t.FontSize*lh)))
	n := int(perLine * lines)
	if n < 20 {
		n = 20
	}
	return n
}

// Apply returns a fresh slide set for a template. The result never shares
// element identity with the template and carries new ids.
func Apply(tpl *core.CanvasTemplate) []core.Slide {
	if len(tpl.DefaultSlides) == 0 {
		return []core.Slide{core.NewSlide()}
	}
	return core.CloneSlides(tpl.DefaultSlides, true)
}
