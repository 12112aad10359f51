package aifill

import (
	"context"

	"carousel-studio/core"
)

// GenerationRequest is what a Generator receives: the user's inputs plus the
// analysis of the template being filled.
type GenerationRequest struct {
	Inputs
	TemplateAnalysis core.TemplateAnalysis `json:"templateAnalysis"`
}

// GenerationResponse is the Generator's reply. Slots is nil when absent.
type GenerationResponse struct {
	Success bool                        `json:"success"`
	Slots   []core.GeneratedSlotContent `json:"slots,omitempty"`
	Error   string                      `json:"error,omitempty"`
}

// Validate rejects unsuccessful replies and replies without slots.
func (r *GenerationResponse) Validate() error {
	if r == nil {
		return &core.GenerationError{Message: "empty response"}
	}
	if !r.Success {
		msg := r.Error
		if msg == "" {
			msg = "generator reported failure"
		}
		return &core.GenerationError{Message: msg}
	}
	if r.Slots == nil {
		return &core.GenerationError{Message: "response has no slots"}
	}
	return nil
}

// Generator produces copy for the slots of a template.
type Generator interface {
	Generate(ctx context.Context, req GenerationRequest) (*GenerationResponse, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, req GenerationRequest) (*GenerationResponse, error)

func (f GeneratorFunc) Generate(ctx context.Context, req GenerationRequest) (*GenerationResponse, error) {
	return f(ctx, req)
}
