package protocol

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/hairyhenderson/go-gitsmart/pktline"
	"github.com/hairyhenderson/go-gitsmart/refstore"
)

// ErrRepoNotFound is returned when a fetch addresses a repository
// whose namespace holds no objects.
var ErrRepoNotFound = errors.New("protocol: repository does not exist")

// AdvertiseRefs writes the ref advertisement for the given service to
// w: the service announcement line, a flush, one pkt-line per branch
// ref in lexicographic order - the first carrying the service's
// capability string after a NUL - and a terminating flush.
//
// A repository that does not exist yet is created when the client is
// about to push (git-receive-pack); a fetch against it fails with
// ErrRepoNotFound. When no refs exist at all, a placeholder
// capabilities^{} line with the zero id is emitted so the client can
// still discover the server's capabilities.
func AdvertiseRefs(ctx context.Context, refs *refstore.Store, service Service, org, repo string, w io.Writer) error {
	exists, err := refs.Exists(ctx, org, repo)
	if err != nil {
		return err
	}

	if !exists {
		if service != ServiceReceivePack {
			return fmt.Errorf("%s/%s: %w", org, repo, ErrRepoNotFound)
		}

		if err := refs.EnsureRepository(ctx, org, repo); err != nil {
			return err
		}
	}

	list, err := refs.List(ctx, org, repo)
	if err != nil {
		return err
	}

	pktw := pktline.NewWriter(w)

	if err := pktw.Writef("# service=%s\n", service); err != nil {
		return err
	}

	if err := pktw.Flush(); err != nil {
		return err
	}

	if len(list) == 0 {
		err := pktw.Writef("%s capabilities^{}\x00%s\n", refstore.ZeroOID, service.Capabilities())
		if err != nil {
			return err
		}
	}

	for i, ref := range list {
		var err error
		if i == 0 {
			err = pktw.Writef("%s %s\x00%s\n", ref.OID, ref.Name, service.Capabilities())
		} else {
			err = pktw.Writef("%s %s\n", ref.OID, ref.Name)
		}

		if err != nil {
			return err
		}
	}

	return pktw.Flush()
}
