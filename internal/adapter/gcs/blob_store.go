// Package gcs stores photo blobs as objects in a Google Cloud Storage bucket.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"

	"bereal/internal/domain"

	"cloud.google.com/go/storage"
)

// BlobStore implements domain.BlobStore on a bucket.
type BlobStore struct {
	*storage.BucketHandle
	prefix string
}

var _ domain.BlobStore = (*BlobStore)(nil)

// Open creates a client with application default credentials and returns
// a store for bucketName.
func Open(ctx context.Context, bucketName string) (*BlobStore, *storage.Client, error) {
	if bucketName == "" {
		return nil, nil, errors.New("gcs: bucket name is required")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("gcs: new client: %w", err)
	}
	return New(client.Bucket(bucketName)), client, nil
}

// New wraps an existing bucket handle.
func New(bucket *storage.BucketHandle) *BlobStore {
	return &BlobStore{BucketHandle: bucket, prefix: "photos/"}
}

// ObjectName returns the object name a ref is stored under.
func (s *BlobStore) ObjectName(ref string) string {
	return s.prefix + ref
}

// PutBlob uploads data under ref.
func (s *BlobStore) PutBlob(ctx context.Context, ref, contentType string, data []byte) error {
	w := s.Object(s.ObjectName(ref)).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("gcs: write %s: %w", ref, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("gcs: close %s: %w", ref, err)
	}
	return nil
}

// GetBlob downloads the object stored under ref.
func (s *BlobStore) GetBlob(ctx context.Context, ref string) (*domain.Blob, error) {
	r, err := s.Object(s.ObjectName(ref)).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, domain.ErrBlobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("gcs: open %s: %w", ref, err)
	}
	defer r.Close() //nolint:errcheck

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("gcs: read %s: %w", ref, err)
	}
	return &domain.Blob{Ref: ref, ContentType: r.Attrs.ContentType, Data: data}, nil
}
