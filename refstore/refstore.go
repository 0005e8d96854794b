// Package refstore reads and writes Git branch refs and HEAD as small
// text records in a blob store. A ref record is a 40-hex object id
// plus a trailing newline; a missing or empty record reads as the
// all-zero id. HEAD is a symbolic ref of the form
// "ref: refs/heads/<name>".
//
// Records live under the key layout
//
//	repos/<org>/<repo>/HEAD
//	repos/<org>/<repo>/refs/heads/<name>
//
// A repository "exists" when its namespace holds at least one object;
// there is no separate marker.
package refstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hairyhenderson/go-gitsmart/blobstore"
)

// ZeroOID is the all-zero object id, the sentinel for "no object".
const ZeroOID = "0000000000000000000000000000000000000000"

// DefaultBranch is the branch HEAD points at in a fresh repository.
const DefaultBranch = "main"

const headsPrefix = "refs/heads/"

// Ref store error conditions.
var (
	// ErrConflict is returned by CompareAndWrite when the stored
	// record changed after the caller read it.
	ErrConflict = errors.New("refstore: ref changed since read")

	// ErrInvalidRef is returned for malformed ref names.
	ErrInvalidRef = errors.New("refstore: malformed ref name")

	// ErrInvalidOID is returned for ids that are not 40 hex digits.
	ErrInvalidOID = errors.New("refstore: malformed object id")
)

// ValidOID reports whether s is a syntactically valid 40-hex object
// id. The zero id is valid.
func ValidOID(s string) bool {
	if len(s) != 40 {
		return false
	}

	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}

	return true
}

// ValidRefName reports whether name is an acceptable ref name. This is
// a subset of the git-check-ref-format(1) rules; enough to keep
// records from escaping the repository namespace.
func ValidRefName(name string) bool {
	return strings.HasPrefix(name, "refs/") &&
		!strings.Contains(name, "..") &&
		!strings.Contains(name, "//") &&
		!strings.Contains(name, "/.") &&
		!strings.HasSuffix(name, "/") &&
		!strings.ContainsAny(name, " \t\n\\~^:?*[") &&
		!strings.HasSuffix(name, ".lock")
}

// A Ref pairs a ref name with the object id it points at.
type Ref struct {
	Name string
	OID  string
}

// A Token captures the raw record bytes observed by Read, for use with
// CompareAndWrite. A nil Token means the record did not exist.
type Token []byte

// Store provides ref operations for repositories held in a blob store.
type Store struct {
	blobs blobstore.Store
}

// New returns a Store reading and writing refs in blobs.
func New(blobs blobstore.Store) *Store {
	return &Store{blobs: blobs}
}

func repoPrefix(org, repo string) string {
	return "repos/" + org + "/" + repo
}

func refKey(org, repo, name string) string {
	return repoPrefix(org, repo) + "/" + name
}

// Exists reports whether the repository's namespace holds any object.
func (s *Store) Exists(ctx context.Context, org, repo string) (bool, error) {
	objs, err := s.blobs.List(ctx, repoPrefix(org, repo)+"/")
	if err != nil {
		return false, fmt.Errorf("list %s/%s: %w", org, repo, err)
	}

	return len(objs) > 0, nil
}

// Init writes the initial repository records: HEAD pointing at the
// default branch, and an unborn (zero-id) default branch ref. It is
// idempotent; re-initializing an existing repository rewrites the same
// records.
func (s *Store) Init(ctx context.Context, org, repo string) error {
	head := "ref: " + headsPrefix + DefaultBranch + "\n"
	if err := s.blobs.Put(ctx, refKey(org, repo, "HEAD"), []byte(head)); err != nil {
		return fmt.Errorf("init %s/%s: %w", org, repo, err)
	}

	return s.Write(ctx, org, repo, headsPrefix+DefaultBranch, ZeroOID)
}

// EnsureRepository initializes the repository iff it does not already
// exist. It is the deliberate auto-creation point for the push paths;
// read paths never create anything.
func (s *Store) EnsureRepository(ctx context.Context, org, repo string) error {
	exists, err := s.Exists(ctx, org, repo)
	if err != nil || exists {
		return err
	}

	return s.Init(ctx, org, repo)
}

// List returns the repository's branch refs in lexicographic name
// order. Records whose content trims to empty are skipped.
func (s *Store) List(ctx context.Context, org, repo string) ([]Ref, error) {
	prefix := refKey(org, repo, headsPrefix)

	objs, err := s.blobs.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list refs %s/%s: %w", org, repo, err)
	}

	var refs []Ref

	for _, obj := range objs {
		data, err := s.blobs.Get(ctx, obj.Key)
		if err != nil {
			return nil, fmt.Errorf("read ref %s: %w", obj.Key, err)
		}

		oid := string(bytes.TrimSpace(data))
		if oid == "" {
			continue
		}

		name := strings.TrimPrefix(obj.Key, repoPrefix(org, repo)+"/")
		refs = append(refs, Ref{Name: name, OID: oid})
	}

	return refs, nil
}

// Read returns the id a ref points at, plus a Token for a later
// CompareAndWrite. A missing or empty record reads as ZeroOID.
func (s *Store) Read(ctx context.Context, org, repo, name string) (string, Token, error) {
	if !ValidRefName(name) {
		return "", nil, fmt.Errorf("%w: %q", ErrInvalidRef, name)
	}

	data, err := s.blobs.Get(ctx, refKey(org, repo, name))
	if errors.Is(err, blobstore.ErrNotExist) {
		return ZeroOID, nil, nil
	}

	if err != nil {
		return "", nil, fmt.Errorf("read ref %s: %w", name, err)
	}

	oid := string(bytes.TrimSpace(data))
	if oid == "" {
		oid = ZeroOID
	}

	return oid, Token(data), nil
}

// Write overwrites the ref record unconditionally.
func (s *Store) Write(ctx context.Context, org, repo, name, oid string) error {
	data, err := record(name, oid)
	if err != nil {
		return err
	}

	if err := s.blobs.Put(ctx, refKey(org, repo, name), data); err != nil {
		return fmt.Errorf("write ref %s: %w", name, err)
	}

	return nil
}

// CompareAndWrite overwrites the ref record only if it is unchanged
// since the Read that produced token; otherwise it returns
// ErrConflict.
//
// When the blob store implements [blobstore.ConditionalPutter] the
// comparison is done by the store and is safe against concurrent
// writers. Otherwise the record is re-read and compared here, which
// narrows the race window but cannot close it; such stores can still
// lose one of two overlapping updates.
func (s *Store) CompareAndWrite(ctx context.Context, org, repo, name, oid string, token Token) error {
	data, err := record(name, oid)
	if err != nil {
		return err
	}

	key := refKey(org, repo, name)

	if cp, ok := s.blobs.(blobstore.ConditionalPutter); ok {
		err := cp.PutIf(ctx, key, data, token)
		if errors.Is(err, blobstore.ErrPrecondition) {
			return fmt.Errorf("%w: %s", ErrConflict, name)
		}

		if err != nil {
			return fmt.Errorf("write ref %s: %w", name, err)
		}

		return nil
	}

	cur, err := s.blobs.Get(ctx, key)
	if err != nil && !errors.Is(err, blobstore.ErrNotExist) {
		return fmt.Errorf("write ref %s: %w", name, err)
	}

	if errors.Is(err, blobstore.ErrNotExist) {
		cur = nil
	}

	if !bytes.Equal(cur, token) {
		return fmt.Errorf("%w: %s", ErrConflict, name)
	}

	if err := s.blobs.Put(ctx, key, data); err != nil {
		return fmt.Errorf("write ref %s: %w", name, err)
	}

	return nil
}

func record(name, oid string) ([]byte, error) {
	if !ValidRefName(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRef, name)
	}

	if !ValidOID(oid) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidOID, oid)
	}

	return []byte(oid + "\n"), nil
}
