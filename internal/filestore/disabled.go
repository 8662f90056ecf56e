package filestore

import (
	"context"
	"io"

	errs "github.com/evonota/evonota/internal/pkg/errors"
)

// disabledStore drops every write. Used for local and test runs where no
// object storage is reachable; Save reports success with an empty
// locator so pipelines keep their shape without durable raw objects.
type disabledStore struct{}

func init() {
	Register("disabled", func(args interface{}) (Store, error) {
		return disabledStore{}, nil
	})
}

func (disabledStore) Save(ctx context.Context, key string, content []byte, contentType string) (string, error) {
	return "", nil
}

func (disabledStore) Open(ctx context.Context, locator string) (io.ReadCloser, error) {
	return nil, errs.ErrNotFound
}
