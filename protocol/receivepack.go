package protocol

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/hairyhenderson/go-gitsmart/packstore"
	"github.com/hairyhenderson/go-gitsmart/pktline"
	"github.com/hairyhenderson/go-gitsmart/refstore"
)

var packMagic = []byte("PACK")

// ReceivePack handles a push. It decodes the flush-terminated command
// section from r, applies each command against the ref store, persists
// the trailing packfile (if any) as an opaque blob, and writes a
// report-status response to w: an "unpack ok" line, then one "ok" or
// "ng" line per command, each side-band data framed, closed by one
// flush.
//
// A command whose declared old id is non-zero and does not equal the
// stored id is rejected with "ng <ref> non-fast-forward" and the
// stored value is left untouched; so is a command that loses a
// concurrent write race. Commands are applied in order with no
// cross-ref atomicity - updates that succeeded before a later
// rejection stand.
//
// The pack bytes are never parsed or verified; "unpack ok" only
// acknowledges that they were received.
func ReceivePack(ctx context.Context, refs *refstore.Store, packs *packstore.Store, org, repo string, r io.Reader, w io.Writer) error {
	if err := refs.EnsureRepository(ctx, org, repo); err != nil {
		return err
	}

	cmds, err := readCommands(r)
	if err != nil {
		return err
	}

	// The packfile follows the command section. Clients do not always
	// delimit it cleanly, so locate it by its magic rather than
	// trusting the pkt-line boundary.
	rest, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("protocol: reading pack data: %w", err)
	}

	var pack []byte
	if i := bytes.Index(rest, packMagic); i >= 0 {
		pack = rest[i:]
	}

	pktw := pktline.NewWriter(w)

	if err := pktw.WriteSideBand(pktline.ChannelData, []byte("unpack ok\n")); err != nil {
		return err
	}

	for _, cmd := range cmds {
		line, err := applyCommand(ctx, refs, org, repo, cmd)
		if err != nil {
			return err
		}

		if err := pktw.WriteSideBand(pktline.ChannelData, []byte(line)); err != nil {
			return err
		}
	}

	if len(pack) > 0 {
		if _, err := packs.Store(ctx, org, repo, pack); err != nil {
			return err
		}
	}

	return pktw.Flush()
}

// readCommands decodes the flush-terminated command section. Client
// capability choices on the first line are tolerated and dropped.
func readCommands(r io.Reader) ([]Command, error) {
	pktr := pktline.NewReader(r)

	var cmds []Command

	for {
		line, err := pktr.ReadPacket()
		if errors.Is(err, pktline.ErrFlush) {
			return cmds, nil
		}

		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("protocol: command section not flush-terminated: %w", io.ErrUnexpectedEOF)
		}

		if err != nil {
			return nil, err
		}

		cmd, _, err := parseCommand(line)
		if err != nil {
			return nil, err
		}

		cmds = append(cmds, cmd)
	}
}

// applyCommand runs one command against the ref store and returns its
// report line.
func applyCommand(ctx context.Context, refs *refstore.Store, org, repo string, cmd Command) (string, error) {
	cur, token, err := refs.Read(ctx, org, repo, cmd.Ref)
	if err != nil {
		return "", err
	}

	// "fast-forward" here is exact equality with the declared prior
	// id; there is no ancestry to check without an object model.
	if cmd.Old != refstore.ZeroOID && cmd.Old != cur {
		return fmt.Sprintf("ng %s non-fast-forward\n", cmd.Ref), nil
	}

	err = refs.CompareAndWrite(ctx, org, repo, cmd.Ref, cmd.New, token)
	if errors.Is(err, refstore.ErrConflict) {
		return fmt.Sprintf("ng %s non-fast-forward\n", cmd.Ref), nil
	}

	if err != nil {
		return "", err
	}

	return fmt.Sprintf("ok %s\n", cmd.Ref), nil
}
