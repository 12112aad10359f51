// Package templates holds the built-in carousel presets and the registry that
// merges them with saved and brand templates from a TemplateStore.
package templates

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"carousel-studio/core"

	"github.com/sirupsen/logrus"
)

// Registry lists and resolves templates. Built-ins are always available;
// user templates come from the store when one is configured.
type Registry struct {
	store core.TemplateStore
	log   logrus.FieldLogger
}

// NewRegistry creates a registry. store may be nil, in which case only the
// built-in templates exist.
func NewRegistry(store core.TemplateStore, log logrus.FieldLogger) *Registry {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Registry{store: store, log: log}
}

// List returns copies of every template in category (all when empty).
// Built-ins come first, then the user's saved templates.
func (r *Registry) List(ctx context.Context, userID, category string) ([]*core.CanvasTemplate, error) {
	all := Builtins()
	if r.store != nil && userID != "" {
		saved, err := r.store.ListTemplates(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("list saved templates: %w", err)
		}
		for _, t := range saved {
			all = append(all, t.Clone())
		}
	}

	if category == "" {
		return all, nil
	}
	filtered := make([]*core.CanvasTemplate, 0, len(all))
	for _, t := range all {
		if strings.EqualFold(t.Category, category) {
			filtered = append(filtered, t)
		}
	}
	return filtered, nil
}

// Get resolves a template by id and returns a copy.
func (r *Registry) Get(ctx context.Context, userID, id string) (*core.CanvasTemplate, error) {
	if t, ok := builtin(id); ok {
		return t.Clone(), nil
	}
	if r.store == nil || userID == "" {
		return nil, fmt.Errorf("%w: %s", core.ErrTemplateNotFound, id)
	}

	t, err := r.store.GetTemplate(ctx, userID, id)
	if err != nil {
		if errors.Is(err, core.ErrTemplateNotFound) {
			return nil, fmt.Errorf("%w: %s", core.ErrTemplateNotFound, id)
		}
		return nil, fmt.Errorf("get template %s: %w", id, err)
	}
	return t.Clone(), nil
}

// Save stores a user template. Built-in ids cannot be overwritten.
func (r *Registry) Save(ctx context.Context, userID string, tpl *core.CanvasTemplate) (*core.CanvasTemplate, error) {
	if r.store == nil {
		return nil, fmt.Errorf("template storage is not configured")
	}
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", core.ErrInvalidInput)
	}
	if strings.TrimSpace(tpl.Name) == "" {
		return nil, fmt.Errorf("%w: template name is required", core.ErrInvalidInput)
	}
	if _, ok := builtin(tpl.ID); ok {
		return nil, fmt.Errorf("%w: %s is a built-in template", core.ErrInvalidInput, tpl.ID)
	}
	if err := core.ValidateSlides(tpl.DefaultSlides); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidInput, err)
	}

	saved := tpl.Clone()
	if saved.ID == "" {
		saved.ID = core.NewID("tpl")
	}
	saved.UserID = userID
	saved.BuiltIn = false
	if saved.Category == "" {
		saved.Category = "custom"
	}

	if err := r.store.SaveTemplate(ctx, saved); err != nil {
		return nil, fmt.Errorf("save template %s: %w", saved.ID, err)
	}
	r.log.WithFields(logrus.Fields{
		"template_id": saved.ID,
		"user_id":     userID,
		"slides":      len(saved.DefaultSlides),
	}).Info("Template saved")
	return saved.Clone(), nil
}

// Delete removes a user template.
func (r *Registry) Delete(ctx context.Context, userID, id string) error {
	if _, ok := builtin(id); ok {
		return fmt.Errorf("%w: %s is a built-in template", core.ErrInvalidInput, id)
	}
	if r.store == nil {
		return fmt.Errorf("%w: %s", core.ErrTemplateNotFound, id)
	}
	return r.store.DeleteTemplate(ctx, userID, id)
}
