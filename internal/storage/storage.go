// Package storage provides the object stores behind the media relay.
package storage

import (
	"context"
	"errors"
)

var ErrObjectNotFound = errors.New("object not found")

// ObjectStore persists binary assets under a key and reports the URL the
// asset is served from.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
	Delete(ctx context.Context, key string) error
}
