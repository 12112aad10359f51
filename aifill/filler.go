package aifill

import (
	"context"
	"errors"
	"fmt"
	"time"

	"carousel-studio/core"
	"carousel-studio/templates"

	"github.com/sirupsen/logrus"
)

// Filler runs a generation against a template and builds the resulting slides.
type Filler struct {
	gen Generator
	log logrus.FieldLogger
}

func NewFiller(gen Generator, log logrus.FieldLogger) *Filler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Filler{gen: gen, log: log}
}

// Fill analyzes tpl, asks the generator for slot content and builds a new
// slide set. It returns core.ErrNoSlots for templates without text elements.
// Failures from the generator, including cancellation, are returned as
// *core.GenerationError and never carry a partial result.
func (f *Filler) Fill(ctx context.Context, tpl *core.CanvasTemplate, in Inputs) (*BuildResult, error) {
	in = in.Normalize(tpl.DefaultTone)
	if err := in.Validate(); err != nil {
		return nil, err
	}

	analysis := templates.Analyze(tpl)
	if analysis.TotalSlots == 0 {
		return nil, fmt.Errorf("%w: %s", core.ErrNoSlots, tpl.Name)
	}

	log := f.log.WithFields(logrus.Fields{
		"template_id": tpl.ID,
		"slots":       analysis.TotalSlots,
	})
	start := time.Now()

	resp, err := f.gen.Generate(ctx, GenerationRequest{Inputs: in, TemplateAnalysis: analysis})
	if ctx.Err() != nil {
		return nil, &core.GenerationError{Message: "generation cancelled", Err: ctx.Err()}
	}
	if err != nil {
		var genErr *core.GenerationError
		if errors.As(err, &genErr) {
			return nil, err
		}
		return nil, &core.GenerationError{Message: err.Error(), Err: err}
	}
	if err := resp.Validate(); err != nil {
		log.WithField("error", err.Error()).Warn("Content generation failed")
		return nil, err
	}

	res := BuildSlidesFromContent(tpl, analysis, resp.Slots)
	log.WithFields(logrus.Fields{
		"filled":   res.FilledSlots,
		"warnings": len(res.Warnings),
		"duration": time.Since(start).String(),
	}).Info(res.Summary())
	return res, nil
}
