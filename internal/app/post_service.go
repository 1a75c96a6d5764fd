package app

import (
	"context"
	"errors"
	"time"

	"bereal/internal/domain"

	"github.com/google/uuid"
)

// SessionValidator resolves a session token to its user.
type SessionValidator interface {
	ValidateSession(ctx context.Context, token string) (*domain.User, error)
}

// SubmitPostInput carries one photo submission. CapturedAt and Location are
// optional.
type SubmitPostInput struct {
	Image      []byte
	Caption    string
	CapturedAt *time.Time
	Location   *domain.Location
}

// PostService encapsulates photo submission use cases.
type PostService struct {
	sessions  SessionValidator
	posts     domain.PostRepository
	blobs     domain.BlobStore
	maxPixels int
	now       func() time.Time
}

// NewPostService creates a PostService.
func NewPostService(sessions SessionValidator, posts domain.PostRepository, blobs domain.BlobStore) *PostService {
	return &PostService{
		sessions:  sessions,
		posts:     posts,
		blobs:     blobs,
		maxPixels: DefaultMaxImagePixels,
		now:       time.Now,
	}
}

// WithMaxImagePixels sets the largest accepted width*height. n <= 0 keeps
// the current limit.
func (s *PostService) WithMaxImagePixels(n int) *PostService {
	if n > 0 {
		s.maxPixels = n
	}
	return s
}

// WithClock replaces the time source.
func (s *PostService) WithClock(now func() time.Time) *PostService {
	s.now = now
	return s
}

// Submit stores the image and the post record for the session's user.
// Submitting does not check for an earlier post in the window.
func (s *PostService) Submit(ctx context.Context, sessionToken string, in SubmitPostInput) (domain.Post, error) {
	user, err := s.sessions.ValidateSession(ctx, sessionToken)
	if err != nil {
		return domain.Post{}, err
	}

	info, err := decodeImage(in.Image, s.maxPixels)
	if err != nil {
		return domain.Post{}, err
	}
	if in.Location != nil && !in.Location.Valid() {
		return domain.Post{}, ErrInvalidLocation
	}

	ref := uuid.NewString() + "." + info.Format
	if err := s.blobs.PutBlob(ctx, ref, "image/"+info.Format, in.Image); err != nil {
		return domain.Post{}, err
	}

	post := domain.Post{
		ID:        uuid.NewString(),
		AuthorID:  user.ID,
		Username:  user.Username,
		Caption:   in.Caption,
		ImageRef:  ref,
		CreatedAt: s.now().UTC(),
	}
	if in.CapturedAt != nil {
		captured := in.CapturedAt.UTC()
		post.CapturedAt = &captured
	}
	if in.Location != nil {
		loc := *in.Location
		post.Location = &loc
	}

	if err := s.posts.CreatePost(ctx, post); err != nil {
		return domain.Post{}, err
	}
	return post, nil
}

// Get returns a single post.
func (s *PostService) Get(ctx context.Context, id string) (domain.Post, error) {
	p, err := s.posts.GetPost(ctx, id)
	if err != nil {
		return domain.Post{}, err
	}
	if p == nil {
		return domain.Post{}, ErrNotFound
	}
	return *p, nil
}

// HasPostedToday reports whether userID has a post whose photo time is
// inside the visibility window.
func (s *PostService) HasPostedToday(ctx context.Context, userID string) (bool, error) {
	return s.posts.HasPostSince(ctx, userID, domain.WindowStart(s.now()))
}

// Blob returns the stored image for ref.
func (s *PostService) Blob(ctx context.Context, ref string) (*domain.Blob, error) {
	b, err := s.blobs.GetBlob(ctx, ref)
	if errors.Is(err, domain.ErrBlobNotFound) {
		return nil, ErrNotFound
	}
	return b, err
}
