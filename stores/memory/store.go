package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"carousel-studio/core"

	"github.com/sirupsen/logrus"
)

// memStore keeps carousels and templates in maps keyed by user id, then by
// record id. Values are copied on the way in and out.
type memStore struct {
	mu        sync.RWMutex
	carousels map[string]map[string]*core.Carousel
	templates map[string]map[string]*core.CanvasTemplate
	now       func() time.Time
}

// NewStore creates a new in-memory store.
func NewStore() *memStore {
	return &memStore{
		carousels: make(map[string]map[string]*core.Carousel),
		templates: make(map[string]map[string]*core.CanvasTemplate),
		now:       time.Now,
	}
}

func copyCarousel(c *core.Carousel) *core.Carousel {
	cp := *c
	cp.Slides = core.CloneSlides(c.Slides, false)
	cp.SlideCount = len(c.Slides)
	return &cp
}

// List returns metadata for all carousels owned by a user, newest first.
func (s *memStore) List(ctx context.Context, userID string) ([]*core.Carousel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	userCarousels := s.carousels[userID]
	carousels := make([]*core.Carousel, 0, len(userCarousels))
	for _, c := range userCarousels {
		carousels = append(carousels, c.Summary())
	}
	sort.Slice(carousels, func(i, j int) bool {
		return carousels[i].UpdatedAt.After(carousels[j].UpdatedAt)
	})

	logrus.WithField("user_id", userID).Infof("Listed %d carousels", len(carousels))
	return carousels, nil
}

// Get returns a single carousel by its ID, ensuring it belongs to the user.
func (s *memStore) Get(ctx context.Context, userID, id string) (*core.Carousel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log := logrus.WithFields(logrus.Fields{"user_id": userID, "carousel_id": id})
	c, ok := s.carousels[userID][id]
	if !ok {
		log.Warn("Carousel not found for user")
		return nil, fmt.Errorf("%w: %s", core.ErrCarouselNotFound, id)
	}
	log.Info("Carousel retrieved successfully")
	return copyCarousel(c), nil
}

// Save creates or updates a carousel for a user.
func (s *memStore) Save(ctx context.Context, c *core.Carousel) error {
	if c.UserID == "" {
		return fmt.Errorf("%w: user id cannot be empty", core.ErrInvalidInput)
	}
	if c.ID == "" {
		return fmt.Errorf("%w: carousel id cannot be empty", core.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	userCarousels, ok := s.carousels[c.UserID]
	if !ok {
		userCarousels = make(map[string]*core.Carousel)
		s.carousels[c.UserID] = userCarousels
	}

	now := s.now()
	c.CreatedAt = now
	if existing, exists := userCarousels[c.ID]; exists {
		c.CreatedAt = existing.CreatedAt
	}
	c.UpdatedAt = now
	c.SlideCount = len(c.Slides)

	userCarousels[c.ID] = copyCarousel(c)
	logrus.WithFields(logrus.Fields{
		"user_id":     c.UserID,
		"carousel_id": c.ID,
		"slides":      c.SlideCount,
	}).Info("Carousel saved successfully")
	return nil
}

// Delete removes a carousel, ensuring it belongs to the user.
func (s *memStore) Delete(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := logrus.WithFields(logrus.Fields{"user_id": userID, "carousel_id": id})
	if _, ok := s.carousels[userID][id]; !ok {
		log.Warn("Carousel not found for deletion")
		return fmt.Errorf("%w: %s", core.ErrCarouselNotFound, id)
	}
	delete(s.carousels[userID], id)
	log.Info("Carousel deleted successfully")
	return nil
}

// ListTemplates returns the user's saved templates ordered by name.
func (s *memStore) ListTemplates(ctx context.Context, userID string) ([]*core.CanvasTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*core.CanvasTemplate, 0, len(s.templates[userID]))
	for _, t := range s.templates[userID] {
		out = append(out, t.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *memStore) GetTemplate(ctx context.Context, userID, id string) (*core.CanvasTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.templates[userID][id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrTemplateNotFound, id)
	}
	return t.Clone(), nil
}

func (s *memStore) SaveTemplate(ctx context.Context, tpl *core.CanvasTemplate) error {
	if tpl.UserID == "" || tpl.ID == "" {
		return fmt.Errorf("%w: template needs a user id and an id", core.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	userTemplates, ok := s.templates[tpl.UserID]
	if !ok {
		userTemplates = make(map[string]*core.CanvasTemplate)
		s.templates[tpl.UserID] = userTemplates
	}
	now := s.now()
	tpl.CreatedAt = now
	if existing, exists := userTemplates[tpl.ID]; exists {
		tpl.CreatedAt = existing.CreatedAt
	}
	tpl.UpdatedAt = now
	userTemplates[tpl.ID] = tpl.Clone()

	logrus.WithFields(logrus.Fields{"user_id": tpl.UserID, "template_id": tpl.ID}).Info("Template saved successfully")
	return nil
}

func (s *memStore) DeleteTemplate(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.templates[userID][id]; !ok {
		return fmt.Errorf("%w: %s", core.ErrTemplateNotFound, id)
	}
	delete(s.templates[userID], id)
	logrus.WithFields(logrus.Fields{"user_id": userID, "template_id": id}).Info("Template deleted successfully")
	return nil
}
