package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"product-media/internal/mediatypes"
)

// BlobStore is the object storage surface the pipeline writes to. The body
// is an io.ReadSeeker because failed writes are retried from the start of
// the payload.
type BlobStore interface {
	Put(ctx context.Context, key, contentType string, body io.ReadSeeker, size int64) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
}

// ErrObjectNotFound is returned by Get for a missing key.
var ErrObjectNotFound = errors.New("object not found")

// OriginalKey returns the storage key for an entity's original upload.
// Keys are deterministic per entity and kind, so a re-upload overwrites the
// previous object in place.
func OriginalKey(entityID string, kind mediatypes.Kind, ext string) string {
	return fmt.Sprintf("products/%s/%s/original%s", entityID, kind, ext)
}

// DerivedKey returns the storage key for the derived asset, a sibling of
// the original under the same prefix.
func DerivedKey(entityID string, kind mediatypes.Kind, ext string) string {
	return fmt.Sprintf("products/%s/%s/derived%s", entityID, kind, ext)
}
