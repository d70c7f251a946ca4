package storage

import (
	"context"
	"errors"
	"io"
)

var ErrNotFound = errors.New("blob not found")

// BlobStore keeps uploaded question images.
type BlobStore interface {
	// Put writes r under key and returns the canonical key.
	Put(ctx context.Context, key, contentType string, r io.Reader) (string, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// PublicURL is the address clients use as an <img> source.
	PublicURL(key string) string
}
