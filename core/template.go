package core

import (
	"context"
	"time"
)

type (
	// CanvasTemplate is a named preset layout. Templates are value objects:
	// applying one always works on a deep copy of DefaultSlides.
	CanvasTemplate struct {
		ID            string    `json:"id"`
		UserID        string    `json:"-"`
		Name          string    `json:"name"`
		Category      string    `json:"category"`
		Description   string    `json:"description,omitempty"`
		DefaultSlides []Slide   `json:"defaultSlides"`
		DefaultTone   string    `json:"defaultTone,omitempty"`
		BuiltIn       bool      `json:"builtIn"`
		CreatedAt     time.Time `json:"createdAt,omitzero"`
		UpdatedAt     time.Time `json:"updatedAt,omitzero"`
	}

	// SlotRef locates one fillable text element inside a template.
	SlotRef struct {
		SlotID       string  `json:"slotId"`
		SlideIndex   int     `json:"slideIndex"`
		ElementIndex int     `json:"elementIndex"`
		Role         string  `json:"role"`
		DefaultText  string  `json:"defaultText"`
		MaxChars     int     `json:"maxChars"`
		FontSize     float64 `json:"fontSize"`
	}

	// TemplateAnalysis is derived from a template on demand and never stored.
	TemplateAnalysis struct {
		TemplateName string    `json:"templateName"`
		TotalSlides  int       `json:"totalSlides"`
		TotalSlots   int       `json:"totalSlots"`
		BrandColors  []string  `json:"brandColors"`
		Slots        []SlotRef `json:"slots"`
	}

	// GeneratedSlotContent is one unit of generated copy keyed by slot id.
	GeneratedSlotContent struct {
		SlotID  string `json:"slotId"`
		Content string `json:"content"`
	}

	// TemplateStore persists saved and brand templates for a user.
	TemplateStore interface {
		ListTemplates(ctx context.Context, userID string) ([]*CanvasTemplate, error)
		GetTemplate(ctx context.Context, userID, id string) (*CanvasTemplate, error)
		SaveTemplate(ctx context.Context, tpl *CanvasTemplate) error
		DeleteTemplate(ctx context.Context, userID, id string) error
	}
)

// Clone returns a deep copy that keeps element ids, so slot ids stay stable.
func (t *CanvasTemplate) Clone() *CanvasTemplate {
	c := *t
	c.DefaultSlides = CloneSlides(t.DefaultSlides, false)
	return &c
}
