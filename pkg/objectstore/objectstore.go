// Package objectstore holds uploaded binaries (startup logos, post images)
// and hands out URLs a browser can fetch them from.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// MaxObjectSize caps a single upload.
const MaxObjectSize = 10 << 20

var (
	ErrNotFound = errors.New("object not found")
	ErrTooLarge = fmt.Errorf("object exceeds %d MiB", MaxObjectSize>>20)
)

type Store interface {
	Upload(ctx context.Context, path, contentType string, body io.Reader) error
	// ResolveDownloadURL returns ErrNotFound when nothing was uploaded under
	// path.
	ResolveDownloadURL(ctx context.Context, path string) (string, error)
}

// ReadAll reads body up to MaxObjectSize and returns ErrTooLarge past it.
func ReadAll(body io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(body, MaxObjectSize+1))
	if err != nil {
		return nil, fmt.Errorf("read upload body: %w", err)
	}
	if len(data) > MaxObjectSize {
		return nil, ErrTooLarge
	}
	return data, nil
}
