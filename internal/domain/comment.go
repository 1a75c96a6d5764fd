package domain

import (
	"context"
	"time"
)

// Comment is an append-only remark on a post. AuthorLabel is a display
// label captured at write time, not a reference to a User.
type Comment struct {
	ID          string    `json:"commentId"`
	PostID      string    `json:"postId"`
	AuthorLabel string    `json:"authorLabel"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"createdAt"`
}

// CommentRepository is the port for comment persistence.
type CommentRepository interface {
	AddComment(ctx context.Context, c Comment) error
	// ListComments returns the comments of postID, newest first. Equal
	// CreatedAt values keep insertion order.
	ListComments(ctx context.Context, postID string) ([]Comment, error)
}
