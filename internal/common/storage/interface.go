package storage

import (
	"context"
	"io"
)

// ObjectReader is a readable object stream.
type ObjectReader interface {
	io.Reader
	io.Closer
}

// ObjectStat describes object metadata.
type ObjectStat struct {
	SizeBytes   int64
	ETag        string
	ContentType string
}

// ObjectStorage abstracts the object store holding problem test data packs.
// The judge worker only ever reads packs, so the surface is read-only.
type ObjectStorage interface {
	// GetObject opens an object for reading. The caller must close the reader.
	GetObject(ctx context.Context, bucket, objectKey string) (ObjectReader, error)

	// StatObject fetches object metadata without reading the body.
	StatObject(ctx context.Context, bucket, objectKey string) (ObjectStat, error)
}
