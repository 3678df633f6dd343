// Package storage persists whole JSON documents. Each store owns exactly one
// document that is read and rewritten in full on every mutation; there is no
// partial update. Readers of a missing or corrupt document observe the zero
// value instead of an error, so callers never fail on an unreadable file.
package storage

import (
	"context"
	"errors"
)

// ErrMissingPath indicates a file store was constructed without a path.
var ErrMissingPath = errors.New("storage: document path is required")

// DocumentStore loads and saves one JSON document as a whole.
type DocumentStore interface {
	// Load unmarshals the document into the provided value. A missing or
	// unreadable document leaves the value untouched and returns nil.
	Load(ctx context.Context, document any) error
	// Save marshals the value and replaces the stored document.
	Save(ctx context.Context, document any) error
}
