package postgres

import (
	"context"

	"bereal/internal/domain"
)

// AddComment inserts a comment.
func (d *DB) AddComment(ctx context.Context, c domain.Comment) error {
	_, err := d.sql.ExecContext(ctx,
		"INSERT INTO comments (id, post_id, author_label, content, created_at) VALUES ($1, $2, $3, $4, $5)",
		c.ID, c.PostID, c.AuthorLabel, c.Content, c.CreatedAt.UTC(),
	)
	return err
}

// ListComments lists the comments of a post, newest first.
func (d *DB) ListComments(ctx context.Context, postID string) ([]domain.Comment, error) {
	rows, err := d.sql.QueryContext(ctx,
		"SELECT id, post_id, author_label, content, created_at FROM comments WHERE post_id = $1 ORDER BY created_at DESC, seq ASC",
		postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	out := []domain.Comment{}
	for rows.Next() {
		var c domain.Comment
		if err := rows.Scan(&c.ID, &c.PostID, &c.AuthorLabel, &c.Content, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
