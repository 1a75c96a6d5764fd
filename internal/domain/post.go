package domain

import (
	"context"
	"time"
)

// Location is a latitude/longitude pair in degrees.
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether both coordinates are in range.
func (l Location) Valid() bool {
	return l.Lat >= -90 && l.Lat <= 90 && l.Lon >= -180 && l.Lon <= 180
}

// Post is a single photo submission. Posts are never edited.
type Post struct {
	ID         string     `json:"postId"`
	AuthorID   string     `json:"authorId"`
	Username   string     `json:"username"`
	Caption    string     `json:"caption"`
	ImageRef   string     `json:"imageRef"`
	CreatedAt  time.Time  `json:"createdAt"`
	CapturedAt *time.Time `json:"capturedAt,omitempty"`
	Location   *Location  `json:"location,omitempty"`
}

// PhotoTime is the capture time when the client supplied one, otherwise the
// server receipt time.
func (p Post) PhotoTime() time.Time {
	if p.CapturedAt != nil {
		return *p.CapturedAt
	}
	return p.CreatedAt
}

// PostRepository is the port for post persistence.
type PostRepository interface {
	// CreatePost stores p. p.ID must already be set.
	CreatePost(ctx context.Context, p Post) error
	// GetPost returns (nil, nil) when the post does not exist.
	GetPost(ctx context.Context, id string) (*Post, error)
	// ListPosts returns every post, newest CreatedAt first. Equal CreatedAt
	// values keep insertion order.
	ListPosts(ctx context.Context) ([]Post, error)
	// HasPostSince reports whether authorID has a post whose photo time is
	// strictly after since.
	HasPostSince(ctx context.Context, authorID string, since time.Time) (bool, error)
}
