package blobstore

import (
	"context"
	"errors"
	"time"
)

// Blob-store error conditions.
var (
	// ErrNotExist is returned by Get for a key with no stored blob.
	ErrNotExist = errors.New("blobstore: blob does not exist")

	// ErrPrecondition is returned by PutIf when the stored bytes no
	// longer match what the caller observed.
	ErrPrecondition = errors.New("blobstore: stored value changed since read")
)

// An Object describes one stored blob, as returned by List.
type Object struct {
	// Key is the blob's full key, relative to the store root.
	Key string

	// ModTime is the time the blob was last written. Stores with no
	// usable modification times may leave it zero.
	ModTime time.Time
}

// Store is a namespaced blob store. Keys are slash-separated paths;
// the hierarchy carries no semantics beyond prefix listing.
//
// Implementations must be safe for concurrent use.
type Store interface {
	// Put writes data under key, overwriting any previous blob.
	Put(ctx context.Context, key string, data []byte) error

	// Get returns the blob stored under key, or ErrNotExist.
	Get(ctx context.Context, key string) ([]byte, error)

	// List returns the objects whose keys start with prefix, in
	// lexicographic key order.
	List(ctx context.Context, prefix string) ([]Object, error)
}

// A ConditionalPutter supports writes preconditioned on the previously
// observed blob content. A nil expect means the key must not yet
// exist. Stores that can do this make read-compare-write sequences
// safe against concurrent writers; stores that cannot (such as
// Bucket) simply don't implement the interface, and callers fall back
// to unconditioned writes.
type ConditionalPutter interface {
	PutIf(ctx context.Context, key string, data, expect []byte) error
}
