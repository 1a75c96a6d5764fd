package postgres

import (
	"context"
	"database/sql"
	"errors"

	"bereal/internal/domain"
)

// PutBlob stores data under ref, replacing any previous content.
func (d *DB) PutBlob(ctx context.Context, ref, contentType string, data []byte) error {
	_, err := d.sql.ExecContext(ctx,
		`INSERT INTO blobs (ref, content_type, data) VALUES ($1, $2, $3)
		 ON CONFLICT (ref) DO UPDATE SET content_type = EXCLUDED.content_type, data = EXCLUDED.data`,
		ref, contentType, data,
	)
	return err
}

// GetBlob returns the blob stored under ref.
func (d *DB) GetBlob(ctx context.Context, ref string) (*domain.Blob, error) {
	b := domain.Blob{Ref: ref}
	err := d.sql.QueryRowContext(ctx,
		"SELECT content_type, data FROM blobs WHERE ref = $1", ref,
	).Scan(&b.ContentType, &b.Data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrBlobNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}
