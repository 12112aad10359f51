package filesystem

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"carousel-studio/core"

	"github.com/sirupsen/logrus"
)

const (
	carouselDir = "carousels"
	templateDir = "templates"
	ext         = ".json"
)

// fsStore writes one JSON file per record under
// <base>/<kind>/<user id>/<record id>.json.
type fsStore struct {
	basePath string
}

// NewStore creates a new filesystem-based store.
func NewStore(basePath string) (*fsStore, error) {
	for _, dir := range []string{carouselDir, templateDir} {
		if err := os.MkdirAll(filepath.Join(basePath, dir), 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}
	return &fsStore{basePath: basePath}, nil
}

// recordPath rejects ids that are not plain file names.
func (s *fsStore) recordPath(kind, userID, id string) (string, error) {
	for _, part := range []string{userID, id} {
		if part == "" || part == "." || part == ".." || filepath.Base(part) != part || strings.ContainsAny(part, `/\`) {
			return "", fmt.Errorf("%w: invalid path segment %q", core.ErrInvalidInput, part)
		}
	}
	return filepath.Join(s.basePath, kind, userID, id+ext), nil
}

func (s *fsStore) userDir(kind, userID string) (string, error) {
	if userID == "" || filepath.Base(userID) != userID || userID == ".." {
		return "", fmt.Errorf("%w: invalid user id %q", core.ErrInvalidInput, userID)
	}
	return filepath.Join(s.basePath, kind, userID), nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// readDir decodes every record file in dir with decode. Unreadable files are
// logged and skipped.
func readDir(dir string, log logrus.FieldLogger, decode func([]byte) error) error {
	files, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != ext {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, file.Name()))
		if err != nil {
			log.WithError(err).Warnf("Failed to read %s, skipping", file.Name())
			continue
		}
		if err := decode(data); err != nil {
			log.WithError(err).Warnf("Failed to unmarshal %s, skipping", file.Name())
		}
	}
	return nil
}

func (s *fsStore) List(ctx context.Context, userID string) ([]*core.Carousel, error) {
	dir, err := s.userDir(carouselDir, userID)
	if err != nil {
		return nil, err
	}
	log := logrus.WithField("user_id", userID).WithField("path", dir)

	carousels := []*core.Carousel{}
	err = readDir(dir, log, func(data []byte) error {
		var c core.Carousel
		if err := json.Unmarshal(data, &c); err != nil {
			return err
		}
		c.UserID = userID
		carousels = append(carousels, c.Summary())
		return nil
	})
	if err != nil {
		log.WithError(err).Error("Failed to read user directory")
		return nil, err
	}
	sort.Slice(carousels, func(i, j int) bool {
		return carousels[i].UpdatedAt.After(carousels[j].UpdatedAt)
	})

	log.Infof("Listed %d carousels", len(carousels))
	return carousels, nil
}

func (s *fsStore) Get(ctx context.Context, userID, id string) (*core.Carousel, error) {
	path, err := s.recordPath(carouselDir, userID, id)
	if err != nil {
		return nil, err
	}
	log := logrus.WithFields(logrus.Fields{"user_id": userID, "carousel_id": id, "path": path})

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Warn("Carousel file not found")
			return nil, fmt.Errorf("%w: %s", core.ErrCarouselNotFound, id)
		}
		log.WithError(err).Error("Failed to read carousel file")
		return nil, err
	}

	var c core.Carousel
	if err := json.Unmarshal(data, &c); err != nil {
		log.WithError(err).Error("Failed to unmarshal carousel data")
		return nil, err
	}
	c.UserID = userID
	c.SlideCount = len(c.Slides)

	log.Info("Carousel retrieved successfully")
	return &c, nil
}

func (s *fsStore) Save(ctx context.Context, c *core.Carousel) error {
	path, err := s.recordPath(carouselDir, c.UserID, c.ID)
	if err != nil {
		return err
	}
	log := logrus.WithFields(logrus.Fields{"user_id": c.UserID, "carousel_id": c.ID, "path": path})

	now := time.Now().UTC()
	c.CreatedAt = now
	if existing, err := s.Get(ctx, c.UserID, c.ID); err == nil {
		c.CreatedAt = existing.CreatedAt
	} else if !errors.Is(err, core.ErrCarouselNotFound) {
		return err
	}
	c.UpdatedAt = now
	c.SlideCount = len(c.Slides)

	if err := writeJSON(path, c); err != nil {
		log.WithError(err).Error("Failed to write carousel file")
		return err
	}
	log.Info("Carousel saved successfully")
	return nil
}

func (s *fsStore) Delete(ctx context.Context, userID, id string) error {
	path, err := s.recordPath(carouselDir, userID, id)
	if err != nil {
		return err
	}
	log := logrus.WithFields(logrus.Fields{"user_id": userID, "carousel_id": id, "path": path})

	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			log.Warn("Carousel file not found for deletion")
			return fmt.Errorf("%w: %s", core.ErrCarouselNotFound, id)
		}
		log.WithError(err).Error("Failed to delete carousel file")
		return err
	}
	log.Info("Carousel deleted successfully")
	return nil
}

func (s *fsStore) ListTemplates(ctx context.Context, userID string) ([]*core.CanvasTemplate, error) {
	dir, err := s.userDir(templateDir, userID)
	if err != nil {
		return nil, err
	}
	log := logrus.WithField("user_id", userID).WithField("path", dir)

	out := []*core.CanvasTemplate{}
	err = readDir(dir, log, func(data []byte) error {
		var t core.CanvasTemplate
		if err := json.Unmarshal(data, &t); err != nil {
			return err
		}
		t.UserID = userID
		out = append(out, &t)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *fsStore) GetTemplate(ctx context.Context, userID, id string) (*core.CanvasTemplate, error) {
	path, err := s.recordPath(templateDir, userID, id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", core.ErrTemplateNotFound, id)
		}
		return nil, err
	}
	var t core.CanvasTemplate
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, err
	}
	t.UserID = userID
	return &t, nil
}

func (s *fsStore) SaveTemplate(ctx context.Context, tpl *core.CanvasTemplate) error {
	path, err := s.recordPath(templateDir, tpl.UserID, tpl.ID)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	tpl.CreatedAt = now
	if existing, err := s.GetTemplate(ctx, tpl.UserID, tpl.ID); err == nil {
		tpl.CreatedAt = existing.CreatedAt
	}
	tpl.UpdatedAt = now

	if err := writeJSON(path, tpl); err != nil {
		logrus.WithError(err).WithField("template_id", tpl.ID).Error("Failed to write template file")
		return err
	}
	logrus.WithFields(logrus.Fields{"user_id": tpl.UserID, "template_id": tpl.ID}).Info("Template saved successfully")
	return nil
}

func (s *fsStore) DeleteTemplate(ctx context.Context, userID, id string) error {
	path, err := s.recordPath(templateDir, userID, id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", core.ErrTemplateNotFound, id)
		}
		return err
	}
	return nil
}
