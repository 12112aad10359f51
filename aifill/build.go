package aifill

import (
	"fmt"
	"strings"

	"carousel-studio/core"
)

// BuildResult is a freshly built slide set plus fill statistics.
type BuildResult struct {
	Slides      []core.Slide `json:"slides"`
	FilledSlots int          `json:"filledSlots"`
	TotalSlots  int          `json:"totalSlots"`
	Warnings    []string     `json:"warnings"`
}

// Summary is the one-line report shown after a generation.
func (r *BuildResult) Summary() string {
	return fmt.Sprintf("Generated %d/%d content areas", r.FilledSlots, r.TotalSlots)
}

// BuildSlidesFromContent copies the template's slides with fresh ids and
// writes each generated content into the text element its slot id names.
// Only text changes; geometry and style stay as in the template. Unknown
// slots, repeated slots and empty content are reported as warnings. The
// template is never modified.
func BuildSlidesFromContent(tpl *core.CanvasTemplate, analysis core.TemplateAnalysis, content []core.GeneratedSlotContent) *BuildResult {
	res := &BuildResult{
		Slides:     core.CloneSlides(tpl.DefaultSlides, true),
		TotalSlots: analysis.TotalSlots,
		Warnings:   []string{},
	}

	slots := make(map[string]core.SlotRef, len(analysis.Slots))
	for _, s := range analysis.Slots {
		slots[s.SlotID] = s
	}

	filled := make(map[string]bool, len(content))
	for _, c := range content {
		ref, ok := slots[c.SlotID]
		if !ok {
			res.Warnings = append(res.Warnings, fmt.Sprintf("slot %s not found", c.SlotID))
			continue
		}
		if strings.TrimSpace(c.Content) == "" {
			res.Warnings = append(res.Warnings, fmt.Sprintf("slot %s has empty content", c.SlotID))
			continue
		}
		if !inRange(res.Slides, ref) {
			res.Warnings = append(res.Warnings, fmt.Sprintf("slot %s points outside the template", c.SlotID))
			continue
		}

		slide := &res.Slides[ref.SlideIndex]
		el := slide.Elements[ref.ElementIndex]
		if !core.IsText(el) {
			res.Warnings = append(res.Warnings, fmt.Sprintf("slot %s is not a text element", c.SlotID))
			continue
		}
		if filled[c.SlotID] {
			res.Warnings = append(res.Warnings, fmt.Sprintf("slot %s filled more than once, keeping the last", c.SlotID))
		}
		slide.Elements[ref.ElementIndex] = core.ApplyUpdate(el, core.ElementUpdate{Text: core.String(c.Content)})
		filled[c.SlotID] = true
	}

	res.FilledSlots = len(filled)
	return res
}

func inRange(slides []core.Slide, ref core.SlotRef) bool {
	if ref.SlideIndex < 0 || ref.SlideIndex >= len(slides) {
		return false
	}
	n := len(slides[ref.SlideIndex].Elements)
	return ref.ElementIndex >= 0 && ref.ElementIndex < n
}
