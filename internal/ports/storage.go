package ports

import (
	"context"
	"io"
)

// PutObjectInput describes one object upload.
type PutObjectInput struct {
	ObjectKey   string
	ContentType string
	Reader      io.Reader
	Size        int64
}

// PutObjectOutput reports the stored key. For localfs it equals the input
// key; for gdrive it is the Drive fileId so later reads/deletes work.
type PutObjectOutput struct {
	ObjectKey string
	Size      int64
}

// StorageProvider abstracts where finished renders are archived
// (localfs, gdrive).
type StorageProvider interface {
	Provider() string

	PutObject(ctx context.Context, in PutObjectInput) (PutObjectOutput, error)
	GetObject(ctx context.Context, objectKey string) (rc io.ReadCloser, contentType string, size int64, err error)
	DeleteObject(ctx context.Context, objectKey string) error
}
