package editor

import (
	"context"

	"carousel-studio/aifill"
	"carousel-studio/core"
	"carousel-studio/export"

	"github.com/sirupsen/logrus"
)

// Filler produces a filled slide set from a template.
type Filler interface {
	Fill(ctx context.Context, tpl *core.CanvasTemplate, in aifill.Inputs) (*aifill.BuildResult, error)
}

// Generate fills tpl with generated content and, on success, replaces the
// whole document with the result. The session is busy for the duration; on
// any failure the document is left as it was.
func (s *Session) Generate(ctx context.Context, f Filler, tpl *core.CanvasTemplate, in aifill.Inputs) (*aifill.BuildResult, error) {
	if err := s.Begin("generate"); err != nil {
		return nil, err
	}
	defer s.End()

	res, err := f.Fill(ctx, tpl, in)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, &core.GenerationError{Message: "generation cancelled", Err: err}
	}
	if err := core.ValidateSlides(res.Slides); err != nil {
		return nil, &core.GenerationError{Message: "generated slides are invalid", Err: err}
	}

	s.mu.Lock()
	s.replace(core.CloneSlides(res.Slides, false))
	s.templateID = tpl.ID
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{
		"template_id": tpl.ID,
		"filled":      res.FilledSlots,
		"total":       res.TotalSlots,
	}).Info("Generated content applied")
	return res, nil
}

// Export renders the document as it stands when the call begins. Edits are
// refused until it returns.
func (s *Session) Export(ctx context.Context, r export.Runner, opts export.Options, progress func(float64)) (*export.Artifact, error) {
	if err := s.Begin("export"); err != nil {
		return nil, err
	}
	defer s.End()

	return r.Export(ctx, s.Slides(), opts, progress)
}
