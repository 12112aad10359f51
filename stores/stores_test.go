package stores

import (
	"context"
	"encoding/xml"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"carousel-studio/config"
	"carousel-studio/core"
	awsstore "carousel-studio/stores/aws"
	"carousel-studio/stores/filesystem"
	"carousel-studio/stores/memory"
	"carousel-studio/stores/sqlite"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 serves the handful of path-style object calls the s3 store makes.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

type listResult struct {
	XMLName     xml.Name `xml:"ListBucketResult"`
	Name        string   `xml:"Name"`
	Prefix      string   `xml:"Prefix"`
	KeyCount    int      `xml:"KeyCount"`
	IsTruncated bool     `xml:"IsTruncated"`
	Contents    []struct {
		Key  string `xml:"Key"`
		Size int    `xml:"Size"`
	} `xml:"Contents"`
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	bucket, key, _ := strings.Cut(strings.TrimPrefix(r.URL.Path, "/"), "/")
	switch {
	case r.Method == http.MethodGet && key == "" && r.URL.Query().Get("list-type") == "2":
		prefix := r.URL.Query().Get("prefix")
		res := listResult{Name: bucket, Prefix: prefix}
		var keys []string
		for k := range f.objects {
			if strings.HasPrefix(k, prefix) {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		for _, k := range keys {
			res.Contents = append(res.Contents, struct {
				Key  string `xml:"Key"`
				Size int    `xml:"Size"`
			}{k, len(f.objects[k])})
		}
		res.KeyCount = len(keys)
		w.Header().Set("Content-Type", "application/xml")
		_ = xml.NewEncoder(w).Encode(res)
	case r.Method == http.MethodPut:
		data, _ := io.ReadAll(r.Body)
		f.objects[key] = data
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodGet:
		data, ok := f.objects[key]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`)
			return
		}
		_, _ = w.Write(data)
	case r.Method == http.MethodDelete:
		delete(f.objects, key)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusNotImplemented)
	}
}

func newS3Store(t *testing.T) Store {
	t.Helper()
	srv := httptest.NewServer(&fakeS3{objects: make(map[string][]byte)})
	t.Cleanup(srv.Close)

	client := s3.New(s3.Options{
		Region:       "us-east-1",
		BaseEndpoint: aws.String(srv.URL),
		UsePathStyle: true,
		Credentials:  aws.AnonymousCredentials{},
	})
	return awsstore.NewFromClient(client, "carousels")
}

func backends(t *testing.T) map[string]func(t *testing.T) Store {
	return map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store { return memory.NewStore() },
		"filesystem": func(t *testing.T) Store {
			s, err := filesystem.NewStore(t.TempDir())
			require.NoError(t, err)
			return s
		},
		"sqlite": func(t *testing.T) Store {
			s, err := sqlite.NewStore(filepath.Join(t.TempDir(), "test.db"))
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })
			return s
		},
		"s3": newS3Store,
	}
}

func sampleCarousel(user, id string) *core.Carousel {
	return &core.Carousel{
		ID:         id,
		UserID:     user,
		Name:       "Launch " + id,
		TemplateID: "carousel-outline",
		Slides: []core.Slide{
			{ID: "s1", BackgroundColor: "#fff", Elements: []core.Element{
				&core.TextElement{ID: "t1", X: 10, Y: 20, Width: 300, Height: 80, Text: "Hello", FontSize: 48, Fill: "#000"},
				&core.ShapeElement{ID: "r1", Width: 100, Height: 100, ShapeType: core.ShapeRect, Fill: "#f00", Rotation: 30},
			}},
			{ID: "s2", BackgroundColor: "#000", Elements: []core.Element{
				&core.ImageElement{ID: "i1", Width: 200, Height: 200, Src: "https://cdn.example.com/a.png"},
			}},
		},
	}
}

func TestStores_Carousels(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t)

			list, err := s.List(ctx, "alice")
			require.NoError(t, err)
			assert.Empty(t, list)

			c := sampleCarousel("alice", "c1")
			require.NoError(t, s.Save(ctx, c))
			assert.False(t, c.CreatedAt.IsZero())
			assert.Equal(t, 2, c.SlideCount)
			created := c.CreatedAt

			got, err := s.Get(ctx, "alice", "c1")
			require.NoError(t, err)
			assert.Equal(t, "alice", got.UserID)
			assert.Equal(t, "Launch c1", got.Name)
			assert.Equal(t, "carousel-outline", got.TemplateID)
			require.Len(t, got.Slides, 2)
			assert.Equal(t, c.Slides[0].Elements, got.Slides[0].Elements)
			assert.Equal(t, c.Slides[1].Elements, got.Slides[1].Elements)

			_, err = s.Get(ctx, "bob", "c1")
			assert.ErrorIs(t, err, core.ErrCarouselNotFound)

			time.Sleep(5 * time.Millisecond)
			c.Name = "Renamed"
			c.Slides = c.Slides[:1]
			require.NoError(t, s.Save(ctx, c))
			assert.True(t, c.CreatedAt.Equal(created), "created time kept on update")

			require.NoError(t, s.Save(ctx, sampleCarousel("alice", "c2")))
			list, err = s.List(ctx, "alice")
			require.NoError(t, err)
			require.Len(t, list, 2)
			for _, item := range list {
				assert.Nil(t, item.Slides)
				if item.ID == "c1" {
					assert.Equal(t, "Renamed", item.Name)
					assert.Equal(t, 1, item.SlideCount)
				}
			}

			require.NoError(t, s.Delete(ctx, "alice", "c1"))
			_, err = s.Get(ctx, "alice", "c1")
			assert.ErrorIs(t, err, core.ErrCarouselNotFound)
			assert.ErrorIs(t, s.Delete(ctx, "alice", "c1"), core.ErrCarouselNotFound)
		})
	}
}

func TestStores_Templates(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t)

			tpl := &core.CanvasTemplate{
				ID:          "brand",
				UserID:      "alice",
				Name:        "Brand kit",
				Category:    "business",
				DefaultTone: "bold",
				DefaultSlides: []core.Slide{{ID: "s1", BackgroundColor: "#123456", Elements: []core.Element{
					&core.TextElement{ID: "h", Width: 900, Height: 120, Text: "Headline", FontSize: 80, Fill: "#fff"},
				}}},
			}
			require.NoError(t, s.SaveTemplate(ctx, tpl))

			got, err := s.GetTemplate(ctx, "alice", "brand")
			require.NoError(t, err)
			assert.Equal(t, "Brand kit", got.Name)
			assert.Equal(t, "bold", got.DefaultTone)
			assert.Equal(t, tpl.DefaultSlides[0].Elements, got.DefaultSlides[0].Elements)

			_, err = s.GetTemplate(ctx, "bob", "brand")
			assert.ErrorIs(t, err, core.ErrTemplateNotFound)

			list, err := s.ListTemplates(ctx, "alice")
			require.NoError(t, err)
			require.Len(t, list, 1)
			assert.Equal(t, "brand", list[0].ID)

			require.NoError(t, s.DeleteTemplate(ctx, "alice", "brand"))
			_, err = s.GetTemplate(ctx, "alice", "brand")
			assert.ErrorIs(t, err, core.ErrTemplateNotFound)
			assert.ErrorIs(t, s.DeleteTemplate(ctx, "alice", "brand"), core.ErrTemplateNotFound)
		})
	}
}

func TestStores_RejectPathLikeIDs(t *testing.T) {
	ctx := context.Background()
	fs, err := filesystem.NewStore(t.TempDir())
	require.NoError(t, err)
	for _, s := range []Store{fs, newS3Store(t)} {
		err := s.Save(ctx, sampleCarousel("alice", "../escape"))
		assert.ErrorIs(t, err, core.ErrInvalidInput)
		_, err = s.Get(ctx, "../alice", "c1")
		assert.ErrorIs(t, err, core.ErrInvalidInput)
	}
}

func TestGetStore(t *testing.T) {
	ctx := context.Background()

	s, err := GetStore(ctx, config.StorageConfig{Type: "memory"})
	require.NoError(t, err)
	assert.NotNil(t, s)

	s, err = GetStore(ctx, config.StorageConfig{Type: "sqlite", DSN: filepath.Join(t.TempDir(), "x.db")})
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, sampleCarousel("u", "c")))

	_, err = GetStore(ctx, config.StorageConfig{Type: "redis"})
	assert.Error(t, err)

	_, err = GetStore(ctx, config.StorageConfig{Type: "s3"})
	assert.Error(t, err)
}
