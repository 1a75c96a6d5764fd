package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"bereal/internal/domain"
)

const postColumns = "id, author_id, username, caption, image_ref, created_at, captured_at, lat, lon"

// CreatePost inserts a post.
func (d *DB) CreatePost(ctx context.Context, p domain.Post) error {
	var capturedAt sql.NullTime
	if p.CapturedAt != nil {
		capturedAt = sql.NullTime{Time: p.CapturedAt.UTC(), Valid: true}
	}
	var lat, lon sql.NullFloat64
	if p.Location != nil {
		lat = sql.NullFloat64{Float64: p.Location.Lat, Valid: true}
		lon = sql.NullFloat64{Float64: p.Location.Lon, Valid: true}
	}
	_, err := d.sql.ExecContext(ctx,
		"INSERT INTO posts ("+postColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)",
		p.ID, p.AuthorID, p.Username, p.Caption, p.ImageRef, p.CreatedAt.UTC(), capturedAt, lat, lon,
	)
	return err
}

// GetPost retrieves a post by ID.
func (d *DB) GetPost(ctx context.Context, id string) (*domain.Post, error) {
	p, err := scanPost(d.sql.QueryRowContext(ctx,
		"SELECT "+postColumns+" FROM posts WHERE id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListPosts lists all posts, newest first. Ties keep insertion order.
func (d *DB) ListPosts(ctx context.Context) ([]domain.Post, error) {
	rows, err := d.sql.QueryContext(ctx,
		"SELECT "+postColumns+" FROM posts ORDER BY created_at DESC, seq ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	out := []domain.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// HasPostSince reports whether authorID has a post with photo time after since.
func (d *DB) HasPostSince(ctx context.Context, authorID string, since time.Time) (bool, error) {
	var ok bool
	err := d.sql.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM posts WHERE author_id = $1 AND COALESCE(captured_at, created_at) > $2)",
		authorID, since.UTC(),
	).Scan(&ok)
	return ok, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (domain.Post, error) {
	var (
		p          domain.Post
		capturedAt sql.NullTime
		lat, lon   sql.NullFloat64
	)
	if err := row.Scan(&p.ID, &p.AuthorID, &p.Username, &p.Caption, &p.ImageRef,
		&p.CreatedAt, &capturedAt, &lat, &lon); err != nil {
		return domain.Post{}, err
	}
	if capturedAt.Valid {
		t := capturedAt.Time
		p.CapturedAt = &t
	}
	if lat.Valid && lon.Valid {
		p.Location = &domain.Location{Lat: lat.Float64, Lon: lon.Float64}
	}
	return p, nil
}
