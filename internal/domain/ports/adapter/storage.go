package adapter

import (
	"context"
	"io"
)

// FileStorage stores uploaded blobs and returns a retrievable URL.
type FileStorage interface {
	Upload(ctx context.Context, path, contentType string, body io.Reader) (url string, err error)
}
