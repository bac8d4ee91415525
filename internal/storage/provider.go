package storage

import (
	"context"
	"io"
)

type Object struct {
	Name string
	Size int64
}

// Provider abstracts where policy documents live. The retrieval index
// reads the corpus through this interface so a local directory and an
// S3 bucket are interchangeable.
type Provider interface {
	CreateBucket(ctx context.Context, bucket string) error

	GetObject(ctx context.Context, bucket, key string) ([]byte, error)

	PutObject(ctx context.Context, bucket, key string, data io.Reader) error

	ListObjects(ctx context.Context, bucket, prefix string) ([]Object, error)
}
