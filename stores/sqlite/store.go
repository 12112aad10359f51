package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"carousel-studio/core"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS carousels (
	id TEXT NOT NULL,
	user_id TEXT NOT NULL,
	name TEXT NOT NULL DEFAULT '',
	template_id TEXT NOT NULL DEFAULT '',
	thumbnail TEXT NOT NULL DEFAULT '',
	slides BLOB,
	slide_count INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME,
	updated_at DATETIME,
	PRIMARY KEY (user_id, id)
);
CREATE TABLE IF NOT EXISTS templates (
	id TEXT NOT NULL,
	user_id TEXT NOT NULL,
	name TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL DEFAULT '',
	data BLOB,
	created_at DATETIME,
	updated_at DATETIME,
	PRIMARY KEY (user_id, id)
);`

type sqliteStore struct {
	db *sql.DB
}

// NewStore opens the database and creates the tables if needed.
func NewStore(dataSourceName string) (*sqliteStore, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single connection keeps :memory: databases shared and serialises writers.
	db.SetMaxOpenConns(1)
	if _, err = db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return &sqliteStore{db}, nil
}

func (s *sqliteStore) Close() error { return s.db.Close() }

func (s *sqliteStore) List(ctx context.Context, userID string) ([]*core.Carousel, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, template_id, thumbnail, slide_count, created_at, updated_at FROM carousels WHERE user_id = ? ORDER BY updated_at DESC",
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	carousels := []*core.Carousel{}
	for rows.Next() {
		c := core.Carousel{UserID: userID}
		if err := rows.Scan(&c.ID, &c.Name, &c.TemplateID, &c.Thumbnail, &c.SlideCount, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		carousels = append(carousels, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	logrus.WithField("user_id", userID).Debugf("Listed %d carousels", len(carousels))
	return carousels, nil
}

func (s *sqliteStore) Get(ctx context.Context, userID, id string) (*core.Carousel, error) {
	c := core.Carousel{UserID: userID, ID: id}
	var slides []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT name, template_id, thumbnail, slides, created_at, updated_at FROM carousels WHERE user_id = ? AND id = ?",
		userID, id).Scan(&c.Name, &c.TemplateID, &c.Thumbnail, &slides, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", core.ErrCarouselNotFound, id)
		}
		return nil, err
	}
	if len(slides) > 0 {
		if err := json.Unmarshal(slides, &c.Slides); err != nil {
			return nil, fmt.Errorf("decode slides of carousel %s: %w", id, err)
		}
	}
	c.SlideCount = len(c.Slides)
	return &c, nil
}

func (s *sqliteStore) Save(ctx context.Context, c *core.Carousel) error {
	if c.UserID == "" || c.ID == "" {
		return fmt.Errorf("%w: carousel needs a user id and an id", core.ErrInvalidInput)
	}
	slides, err := json.Marshal(c.Slides)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	c.SlideCount = len(c.Slides)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO carousels (id, user_id, name, template_id, thumbnail, slides, slide_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, id) DO UPDATE SET
			name = excluded.name,
			template_id = excluded.template_id,
			thumbnail = excluded.thumbnail,
			slides = excluded.slides,
			slide_count = excluded.slide_count,
			updated_at = excluded.updated_at`,
		c.ID, c.UserID, c.Name, c.TemplateID, c.Thumbnail, slides, c.SlideCount, now, now)
	if err != nil {
		return err
	}
	if err := tx.QueryRowContext(ctx, "SELECT created_at FROM carousels WHERE user_id = ? AND id = ?", c.UserID, c.ID).Scan(&c.CreatedAt); err != nil {
		return err
	}
	c.UpdatedAt = now

	logrus.WithFields(logrus.Fields{"user_id": c.UserID, "carousel_id": c.ID}).Info("Carousel saved successfully")
	return tx.Commit()
}

func (s *sqliteStore) Delete(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM carousels WHERE user_id = ? AND id = ?", userID, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", core.ErrCarouselNotFound, id)
	}
	return nil
}

func (s *sqliteStore) ListTemplates(ctx context.Context, userID string) ([]*core.CanvasTemplate, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT data, created_at, updated_at FROM templates WHERE user_id = ? ORDER BY name", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*core.CanvasTemplate{}
	for rows.Next() {
		t, err := scanTemplate(rows, userID)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *sqliteStore) GetTemplate(ctx context.Context, userID, id string) (*core.CanvasTemplate, error) {
	row := s.db.QueryRowContext(ctx, "SELECT data, created_at, updated_at FROM templates WHERE user_id = ? AND id = ?", userID, id)
	t, err := scanTemplate(row, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", core.ErrTemplateNotFound, id)
	}
	return t, err
}

func (s *sqliteStore) SaveTemplate(ctx context.Context, tpl *core.CanvasTemplate) error {
	if tpl.UserID == "" || tpl.ID == "" {
		return fmt.Errorf("%w: template needs a user id and an id", core.ErrInvalidInput)
	}
	data, err := json.Marshal(tpl)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO templates (id, user_id, name, category, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, id) DO UPDATE SET
			name = excluded.name,
			category = excluded.category,
			data = excluded.data,
			updated_at = excluded.updated_at`,
		tpl.ID, tpl.UserID, tpl.Name, tpl.Category, data, now, now)
	if err != nil {
		return err
	}
	tpl.UpdatedAt = now
	return s.db.QueryRowContext(ctx, "SELECT created_at FROM templates WHERE user_id = ? AND id = ?", tpl.UserID, tpl.ID).Scan(&tpl.CreatedAt)
}

func (s *sqliteStore) DeleteTemplate(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM templates WHERE user_id = ? AND id = ?", userID, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", core.ErrTemplateNotFound, id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTemplate(row scanner, userID string) (*core.CanvasTemplate, error) {
	var data []byte
	var created, updated time.Time
	if err := row.Scan(&data, &created, &updated); err != nil {
		return nil, err
	}
	var t core.CanvasTemplate
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("decode template: %w", err)
	}
	t.UserID = userID
	t.CreatedAt, t.UpdatedAt = created, updated
	return &t, nil
}
