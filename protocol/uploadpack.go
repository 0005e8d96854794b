package protocol

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/hairyhenderson/go-gitsmart/packstore"
	"github.com/hairyhenderson/go-gitsmart/pktline"
)

// UploadPack serves a fetch. The client's want/have negotiation is not
// parsed; the single most recently stored pack is served
// unconditionally, split into side-band data frames and terminated
// with a flush. A repository with no packs yields just the flush,
// which a client reads as a valid empty result.
func UploadPack(ctx context.Context, packs *packstore.Store, org, repo string, w io.Writer) error {
	pktw := pktline.NewWriter(w)

	pack, err := packs.Latest(ctx, org, repo)
	if errors.Is(err, packstore.ErrNoPacks) {
		return pktw.Flush()
	}

	if err != nil {
		return err
	}

	if _, err := pktline.CopySideBand(w, pktline.ChannelData, bytes.NewReader(pack)); err != nil {
		return err
	}

	return pktw.Flush()
}
