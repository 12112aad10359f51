package aws

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"carousel-studio/core"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/sirupsen/logrus"
)

const (
	carouselPrefix = "carousels"
	templatePrefix = "templates"
)

// s3Store writes one JSON object per record at <kind>/<user id>/<id>.json.
type s3Store struct {
	s3Client *s3.Client
	bucket   string
}

// NewStore creates an S3 store using the default credential chain.
func NewStore(ctx context.Context, bucketName string) (*s3Store, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewFromClient(s3.NewFromConfig(cfg), bucketName), nil
}

// NewFromClient wraps an existing client.
func NewFromClient(client *s3.Client, bucketName string) *s3Store {
	return &s3Store{s3Client: client, bucket: bucketName}
}

func objectKey(kind, userID, id string) (string, error) {
	for _, part := range []string{userID, id} {
		if path.Base(part) != part || part == "" || part == "." || part == ".." {
			return "", fmt.Errorf("%w: invalid key segment %q", core.ErrInvalidInput, part)
		}
	}
	return path.Join(kind, userID, id+".json"), nil
}

func isNotFound(err error) bool {
	var nsk *s3types.NoSuchKey
	var nf *s3types.NotFound
	return errors.As(err, &nsk) || errors.As(err, &nf)
}

func (s *s3Store) getJSON(ctx context.Context, key string, v any) error {
	resp, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s: %w", key, err)
	}
	return json.Unmarshal(data, v)
}

func (s *s3Store) putJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	return err
}

func (s *s3Store) deleteKey(ctx context.Context, key string) error {
	_, err := s.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return err
}

// listKeys returns every object key under kind/userID/.
func (s *s3Store) listKeys(ctx context.Context, kind, userID string) ([]string, error) {
	if path.Base(userID) != userID || userID == "" {
		return nil, fmt.Errorf("%w: invalid user id %q", core.ErrInvalidInput, userID)
	}
	prefix := kind + "/" + userID + "/"
	p := s3.NewListObjectsV2Paginator(s.s3Client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	var keys []string
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, obj := range page.Contents {
			if k := aws.ToString(obj.Key); strings.HasSuffix(k, ".json") {
				keys = append(keys, k)
			}
		}
	}
	return keys, nil
}

func (s *s3Store) List(ctx context.Context, userID string) ([]*core.Carousel, error) {
	keys, err := s.listKeys(ctx, carouselPrefix, userID)
	if err != nil {
		return nil, fmt.Errorf("list carousels for user %s: %w", userID, err)
	}
	carousels := make([]*core.Carousel, 0, len(keys))
	for _, key := range keys {
		var c core.Carousel
		if err := s.getJSON(ctx, key, &c); err != nil {
			logrus.WithError(err).WithField("key", key).Warn("Failed to load carousel, skipping")
			continue
		}
		c.UserID = userID
		carousels = append(carousels, c.Summary())
	}
	sort.Slice(carousels, func(i, j int) bool {
		return carousels[i].UpdatedAt.After(carousels[j].UpdatedAt)
	})
	return carousels, nil
}

func (s *s3Store) Get(ctx context.Context, userID, id string) (*core.Carousel, error) {
	key, err := objectKey(carouselPrefix, userID, id)
	if err != nil {
		return nil, err
	}
	var c core.Carousel
	if err := s.getJSON(ctx, key, &c); err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", core.ErrCarouselNotFound, id)
		}
		return nil, fmt.Errorf("get carousel %s: %w", id, err)
	}
	c.UserID = userID
	c.SlideCount = len(c.Slides)
	return &c, nil
}

func (s *s3Store) Save(ctx context.Context, c *core.Carousel) error {
	key, err := objectKey(carouselPrefix, c.UserID, c.ID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	c.CreatedAt = now
	if existing, err := s.Get(ctx, c.UserID, c.ID); err == nil {
		c.CreatedAt = existing.CreatedAt
	}
	c.UpdatedAt = now
	c.SlideCount = len(c.Slides)

	if err := s.putJSON(ctx, key, c); err != nil {
		return fmt.Errorf("save carousel %s: %w", c.ID, err)
	}
	logrus.WithFields(logrus.Fields{"user_id": c.UserID, "carousel_id": c.ID}).Info("Carousel saved successfully")
	return nil
}

func (s *s3Store) Delete(ctx context.Context, userID, id string) error {
	key, err := objectKey(carouselPrefix, userID, id)
	if err != nil {
		return err
	}
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	if err := s.deleteKey(ctx, key); err != nil {
		return fmt.Errorf("delete carousel %s: %w", id, err)
	}
	return nil
}

func (s *s3Store) ListTemplates(ctx context.Context, userID string) ([]*core.CanvasTemplate, error) {
	keys, err := s.listKeys(ctx, templatePrefix, userID)
	if err != nil {
		return nil, fmt.Errorf("list templates for user %s: %w", userID, err)
	}
	out := make([]*core.CanvasTemplate, 0, len(keys))
	for _, key := range keys {
		var t core.CanvasTemplate
		if err := s.getJSON(ctx, key, &t); err != nil {
			logrus.WithError(err).WithField("key", key).Warn("Failed to load template, skipping")
			continue
		}
		t.UserID = userID
		out = append(out, &t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *s3Store) GetTemplate(ctx context.Context, userID, id string) (*core.CanvasTemplate, error) {
	key, err := objectKey(templatePrefix, userID, id)
	if err != nil {
		return nil, err
	}
	var t core.CanvasTemplate
	if err := s.getJSON(ctx, key, &t); err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", core.ErrTemplateNotFound, id)
		}
		return nil, fmt.Errorf("get template %s: %w", id, err)
	}
	t.UserID = userID
	return &t, nil
}

func (s *s3Store) SaveTemplate(ctx context.Context, tpl *core.CanvasTemplate) error {
	key, err := objectKey(templatePrefix, tpl.UserID, tpl.ID)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	tpl.CreatedAt = now
	if existing, err := s.GetTemplate(ctx, tpl.UserID, tpl.ID); err == nil {
		tpl.CreatedAt = existing.CreatedAt
	}
	tpl.UpdatedAt = now
	if err := s.putJSON(ctx, key, tpl); err != nil {
		return fmt.Errorf("save template %s: %w", tpl.ID, err)
	}
	return nil
}

func (s *s3Store) DeleteTemplate(ctx context.Context, userID, id string) error {
	key, err := objectKey(templatePrefix, userID, id)
	if err != nil {
		return err
	}
	if _, err := s.GetTemplate(ctx, userID, id); err != nil {
		return err
	}
	if err := s.deleteKey(ctx, key); err != nil {
		return fmt.Errorf("delete template %s: %w", id, err)
	}
	return nil
}
