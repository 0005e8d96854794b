package protocol

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hairyhenderson/go-gitsmart/blobstore"
	"github.com/hairyhenderson/go-gitsmart/internal/tests"
	"github.com/hairyhenderson/go-gitsmart/pktline"
	"github.com/hairyhenderson/go-gitsmart/refstore"
)

func TestParseService(t *testing.T) {
	svc, ok := ParseService("git-upload-pack")
	assert.True(t, ok)
	assert.Equal(t, ServiceUploadPack, svc)

	svc, ok = ParseService("git-receive-pack")
	assert.True(t, ok)
	assert.Equal(t, ServiceReceivePack, svc)

	_, ok = ParseService("")
	assert.False(t, ok)

	_, ok = ParseService("git-shell")
	assert.False(t, ok)
}

// readLines decodes all pkt-line payloads from buf, marking flush-pkts
// as "FLUSH".
func readLines(t *testing.T, buf *bytes.Buffer) []string {
	t.Helper()

	r := pktline.NewReader(buf)

	var lines []string

	for {
		p, err := r.ReadPacket()

		switch {
		case errors.Is(err, pktline.ErrFlush):
			lines = append(lines, "FLUSH")
		case errors.Is(err, io.EOF):
			return lines
		default:
			require.NoError(t, err)

			lines = append(lines, string(p))
		}
	}
}

func TestAdvertiseRefs(t *testing.T) {
	ctx := context.Background()
	refs := refstore.New(blobstore.NewMem())

	require.NoError(t, refs.Write(ctx, "org", "repo", "refs/heads/main", tests.OID('a')))
	require.NoError(t, refs.Write(ctx, "org", "repo", "refs/heads/dev", tests.OID('b')))

	var buf bytes.Buffer

	require.NoError(t, AdvertiseRefs(ctx, refs, ServiceUploadPack, "org", "repo", &buf))

	lines := readLines(t, &buf)

	require.Len(t, lines, 5)
	assert.Equal(t, "# service=git-upload-pack\n", lines[0])
	assert.Equal(t, "FLUSH", lines[1])

	// lexicographic order: dev first, carrying the capabilities
	assert.Equal(t, tests.OID('b')+" refs/heads/dev\x00"+uploadPackCaps+"\n", lines[2])
	assert.Equal(t, tests.OID('a')+" refs/heads/main\n", lines[3])
	assert.Equal(t, "FLUSH", lines[4])
}

func TestAdvertiseRefs_FetchMissingRepo(t *testing.T) {
	ctx := context.Background()
	refs := refstore.New(blobstore.NewMem())

	var buf bytes.Buffer

	err := AdvertiseRefs(ctx, refs, ServiceUploadPack, "org", "nope", &buf)
	assert.ErrorIs(t, err, ErrRepoNotFound)
	assert.Empty(t, buf.Bytes())
}

func TestAdvertiseRefs_PushCreatesRepo(t *testing.T) {
	ctx := context.Background()
	refs := refstore.New(blobstore.NewMem())

	var buf bytes.Buffer

	require.NoError(t, AdvertiseRefs(ctx, refs, ServiceReceivePack, "org", "fresh", &buf))

	exists, err := refs.Exists(ctx, "org", "fresh")
	require.NoError(t, err)
	assert.True(t, exists)

	lines := readLines(t, &buf)

	require.Len(t, lines, 4)
	assert.Equal(t, "# service=git-receive-pack\n", lines[0])

	// init leaves an unborn main, advertised with the zero id
	assert.Equal(t, refstore.ZeroOID+" refs/heads/main\x00"+receivePackCaps+"\n", lines[2])
	assert.Equal(t, "FLUSH", lines[3])
}

func TestAdvertiseRefs_NoRefsPlaceholder(t *testing.T) {
	ctx := context.Background()
	blobs := blobstore.NewMem()
	refs := refstore.New(blobs)

	// the namespace holds an object, but no branch records at all
	require.NoError(t, blobs.Put(ctx, "repos/org/repo/objects/pack/pack-x.pack", []byte("PACK")))

	var buf bytes.Buffer

	require.NoError(t, AdvertiseRefs(ctx, refs, ServiceUploadPack, "org", "repo", &buf))

	lines := readLines(t, &buf)

	require.Len(t, lines, 4)
	assert.Equal(t, refstore.ZeroOID+" capabilities^{}\x00"+uploadPackCaps+"\n", lines[2])
	assert.Equal(t, "FLUSH", lines[3])
}
