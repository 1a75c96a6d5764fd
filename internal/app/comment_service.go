package app

import (
	"context"
	"time"

	"bereal/internal/domain"

	"github.com/google/uuid"
)

// CommentService encapsulates comment use cases.
type CommentService struct {
	posts    domain.PostRepository
	comments domain.CommentRepository
	now      func() time.Time
}

// NewCommentService creates a CommentService.
func NewCommentService(posts domain.PostRepository, comments domain.CommentRepository) *CommentService {
	return &CommentService{posts: posts, comments: comments, now: time.Now}
}

// WithClock replaces the time source.
func (s *CommentService) WithClock(now func() time.Time) *CommentService {
	s.now = now
	return s
}

// Add appends a comment to postID. Text is stored verbatim; only empty
// content is rejected, so whitespace-only content is accepted.
func (s *CommentService) Add(ctx context.Context, postID, authorLabel, content string) (domain.Comment, error) {
	if content == "" {
		return domain.Comment{}, ErrEmptyContent
	}
	if err := s.requirePost(ctx, postID); err != nil {
		return domain.Comment{}, err
	}

	c := domain.Comment{
		ID:          uuid.NewString(),
		PostID:      postID,
		AuthorLabel: authorLabel,
		Content:     content,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.comments.AddComment(ctx, c); err != nil {
		return domain.Comment{}, err
	}
	return c, nil
}

// List returns the comments of postID, newest first.
func (s *CommentService) List(ctx context.Context, postID string) ([]domain.Comment, error) {
	if err := s.requirePost(ctx, postID); err != nil {
		return nil, err
	}
	return s.comments.ListComments(ctx, postID)
}

func (s *CommentService) requirePost(ctx context.Context, postID string) error {
	p, err := s.posts.GetPost(ctx, postID)
	if err != nil {
		return err
	}
	if p == nil {
		return ErrNotFound
	}
	return nil
}
