package aifill

import (
	"fmt"
	"strings"
)

const systemPrompt = `You write copy for multi-slide social media carousels.

You receive a topic, writing parameters and a list of text slots. Each slot is one text box on one slide.
Write the content for every slot:
- keep each slot under its approximate character limit
- a "hook" slot opens the carousel and must make the reader swipe
- a "heading" slot is a short title for its slide, a "body" slot carries the detail
- a "cta" slot closes the carousel with the requested call to action
- write plain text, no markdown, no hashtags unless asked

Respond ONLY with a JSON array of objects of the form {"slotId": "<id>", "content": "<text>"}, one per slot, using the slot ids exactly as given.`

// BuildPrompt renders the user message for a generation request.
func BuildPrompt(req GenerationRequest) string {
	in := req.Inputs
	a := req.TemplateAnalysis

	var b strings.Builder
	fmt.Fprintf(&b, "Topic: %s\n", in.Topic)
	if in.Audience != "" {
		fmt.Fprintf(&b, "Audience: %s\n", in.Audience)
	}
	if in.Industry != "" {
		fmt.Fprintf(&b, "Industry: %s\n", in.Industry)
	}
	fmt.Fprintf(&b, "Tone: %s\n", in.Tone)
	if len(in.KeyPoints) > 0 {
		b.WriteString("Key points to cover:\n")
		for _, p := range in.KeyPoints {
			fmt.Fprintf(&b, "- %s\n", p)
		}
	}
	fmt.Fprintf(&b, "Call to action: %s\n", in.ctaInstruction())
	if in.AdditionalContext != "" {
		fmt.Fprintf(&b, "Additional context: %s\n", in.AdditionalContext)
	}

	fmt.Fprintf(&b, "\nTemplate %q has %d slides and %d slots.\n", a.TemplateName, a.TotalSlides, a.TotalSlots)
	if len(a.BrandColors) > 0 {
		fmt.Fprintf(&b, "Brand colours: %s\n", strings.Join(a.BrandColors, ", "))
	}
	b.WriteString("Slots:\n")
	for _, s := range a.Slots {
		fmt.Fprintf(&b, "- slotId=%s slide=%d/%d role=%s maxChars=%d default=%q\n",
			s.SlotID, s.SlideIndex+1, a.TotalSlides, s.Role, s.MaxChars, s.DefaultText)
	}
	return b.String()
}
