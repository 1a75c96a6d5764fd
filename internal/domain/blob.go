package domain

import (
	"context"
	"errors"
)

// ErrBlobNotFound is returned by BlobStore.GetBlob for unknown refs.
var ErrBlobNotFound = errors.New("blob not found")

// Blob is a stored binary object addressed by an opaque ref.
type Blob struct {
	Ref         string
	ContentType string
	Data        []byte
}

// BlobStore is the port for image storage.
type BlobStore interface {
	PutBlob(ctx context.Context, ref, contentType string, data []byte) error
	GetBlob(ctx context.Context, ref string) (*Blob, error)
}
