package core

import (
	"context"
	"time"
)

type (
	// Carousel is a saved editor document.
	Carousel struct {
		ID         string    `json:"id"`
		UserID     string    `json:"-"` // Not exposed in JSON responses, used internally.
		Name       string    `json:"name"`
		TemplateID string    `json:"templateId,omitempty"`
		Thumbnail  string    `json:"thumbnail,omitempty"`
		Slides     []Slide   `json:"slides,omitempty"` // Not included in list views.
		SlideCount int       `json:"slideCount"`
		CreatedAt  time.Time `json:"createdAt"`
		UpdatedAt  time.Time `json:"updatedAt"`
	}

	// CarouselStore defines the persistence layer for user-owned carousels.
	// All operations are scoped to a specific user.
	CarouselStore interface {
		// List returns metadata for all carousels owned by a user.
		// The returned values do not carry Slides to keep the response light.
		List(ctx context.Context, userID string) ([]*Carousel, error)

		// Get returns a single carousel by its ID, ensuring it belongs to the user.
		Get(ctx context.Context, userID, id string) (*Carousel, error)

		// Save creates or updates a carousel for a user.
		Save(ctx context.Context, carousel *Carousel) error

		// Delete removes a carousel, ensuring it belongs to the user.
		Delete(ctx context.Context, userID, id string) error
	}
)

// Summary returns a copy without slide data, for list views.
func (c *Carousel) Summary() *Carousel {
	s := *c
	s.SlideCount = len(c.Slides)
	if c.Slides == nil {
		s.SlideCount = c.SlideCount
	}
	s.Slides = nil
	return &s
}
