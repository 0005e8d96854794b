// Package packstore persists uploaded packfiles as immutable,
// uniquely-named blobs. Packs are opaque: nothing here parses,
// verifies, or composes them.
//
// Retrieval always yields the single most recently stored pack. This
// is only a faithful copy of the repository if every push uploaded a
// self-contained pack; incremental packs from earlier pushes are not
// combined.
package packstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hairyhenderson/go-gitsmart/blobstore"
)

// ErrNoPacks is returned by Latest for a repository with no stored
// packs.
var ErrNoPacks = errors.New("packstore: no packs stored")

// Store persists packs for repositories held in a blob store.
type Store struct {
	blobs blobstore.Store
}

// New returns a Store keeping packs in blobs.
func New(blobs blobstore.Store) *Store {
	return &Store{blobs: blobs}
}

func packPrefix(org, repo string) string {
	return "repos/" + org + "/" + repo + "/objects/pack/"
}

func packKey(org, repo, id string) string {
	return packPrefix(org, repo) + "pack-" + id + ".pack"
}

// Store writes data as a new pack under a freshly generated
// identifier, and returns the identifier. Packs are never overwritten
// or deleted; successive pushes accumulate.
func (s *Store) Store(ctx context.Context, org, repo string, data []byte) (string, error) {
	id := uuid.NewString()

	if err := s.blobs.Put(ctx, packKey(org, repo, id), data); err != nil {
		return "", fmt.Errorf("store pack %s: %w", id, err)
	}

	return id, nil
}

// Latest returns the content of the repository's most recently
// uploaded pack, or ErrNoPacks. "Most recent" is the greatest
// (upload time, key) pair, so timestamp ties resolve
// deterministically.
func (s *Store) Latest(ctx context.Context, org, repo string) ([]byte, error) {
	objs, err := s.blobs.List(ctx, packPrefix(org, repo))
	if err != nil {
		return nil, fmt.Errorf("list packs %s/%s: %w", org, repo, err)
	}

	var (
		key string
		mod time.Time
	)

	for _, obj := range objs {
		if !strings.HasSuffix(obj.Key, ".pack") {
			continue
		}

		if key == "" || obj.ModTime.After(mod) || (obj.ModTime.Equal(mod) && obj.Key > key) {
			key, mod = obj.Key, obj.ModTime
		}
	}

	if key == "" {
		return nil, fmt.Errorf("%s/%s: %w", org, repo, ErrNoPacks)
	}

	data, err := s.blobs.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("read pack %s: %w", key, err)
	}

	return data, nil
}
