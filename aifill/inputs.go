// Package aifill fills template slots with generated copy. It composes the
// request for a text-generation backend, validates what comes back and maps
// the generated content onto a fresh copy of the template's slides.
package aifill

import (
	"fmt"
	"strings"

	"carousel-studio/core"
)

// CTA types accepted in Inputs.CTAType.
const (
	CTAFollow  = "follow"
	CTAComment = "comment"
	CTAShare   = "share"
	CTAVisit   = "visit"
	CTACustom  = "custom"
)

const defaultTone = "professional"

var ctaPhrases = map[string]string{
	CTAFollow:  "ask the reader to follow for more",
	CTAComment: "invite the reader to comment with their view",
	CTAShare:   "ask the reader to share with someone who needs it",
	CTAVisit:   "point the reader to the link in the profile",
}

// Inputs are the user-supplied parameters of a generation.
type Inputs struct {
	Topic             string   `json:"topic"`
	Audience          string   `json:"audience,omitempty"`
	Industry          string   `json:"industry,omitempty"`
	KeyPoints         []string `json:"keyPoints,omitempty"`
	Tone              string   `json:"tone"`
	CTAType           string   `json:"ctaType"`
	CustomCTA         string   `json:"customCta,omitempty"`
	AdditionalContext string   `json:"additionalContext,omitempty"`
}

// Normalize trims fields and fills the tone and CTA defaults. templateTone
// is used when no tone is given.
func (in Inputs) Normalize(templateTone string) Inputs {
	in.Topic = strings.TrimSpace(in.Topic)
	in.Audience = strings.TrimSpace(in.Audience)
	in.Industry = strings.TrimSpace(in.Industry)
	in.CustomCTA = strings.TrimSpace(in.CustomCTA)
	in.AdditionalContext = strings.TrimSpace(in.AdditionalContext)
	in.Tone = strings.ToLower(strings.TrimSpace(in.Tone))
	in.CTAType = strings.ToLower(strings.TrimSpace(in.CTAType))

	points := in.KeyPoints[:0:0]
	for _, p := range in.KeyPoints {
		if p = strings.TrimSpace(p); p != "" {
			points = append(points, p)
		}
	}
	in.KeyPoints = points

	if in.Tone == "" {
		in.Tone = templateTone
	}
	if in.Tone == "" {
		in.Tone = defaultTone
	}
	if in.CTAType == "" {
		in.CTAType = CTAFollow
	}
	return in
}

// Validate checks normalized inputs.
func (in Inputs) Validate() error {
	if in.Topic == "" {
		return fmt.Errorf("%w: topic is required", core.ErrInvalidInput)
	}
	switch in.CTAType {
	case CTAFollow, CTAComment, CTAShare, CTAVisit:
	case CTACustom:
		if in.CustomCTA == "" {
			return fmt.Errorf("%w: custom CTA text is required for ctaType %q", core.ErrInvalidInput, CTACustom)
		}
	default:
		return fmt.Errorf("%w: unknown ctaType %q", core.ErrInvalidInput, in.CTAType)
	}
	return nil
}

// ctaInstruction describes the closing call to action for the prompt.
func (in Inputs) ctaInstruction() string {
	if in.CTAType == CTACustom {
		return fmt.Sprintf("end with this call to action: %q", in.CustomCTA)
	}
	if p, ok := ctaPhrases[in.CTAType]; ok {
		return p
	}
	return ctaPhrases[CTAFollow]
}
