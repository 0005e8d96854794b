package pktline

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	testdata := []struct {
		payload  string
		expected string
	}{
		{"", "0004"},
		{"a", "0005a"},
		{"hello\n", "000ahello\n"},
		{strings.Repeat("x", 255), "0103" + strings.Repeat("x", 255)},
	}

	for _, d := range testdata {
		frame, err := Encode([]byte(d.payload))
		require.NoError(t, err)
		assert.Equal(t, d.expected, string(frame))
	}
}

func TestEncode_TooLong(t *testing.T) {
	_, err := Encode(make([]byte, MaxFramePayload+1))
	assert.ErrorIs(t, err, ErrTooLong)
}

func TestEncode_RoundTrip(t *testing.T) {
	// cover the boundaries rather than the whole 0-65531 range
	for _, n := range []int{0, 1, 2, 3, 4, 255, 256, 65519, 65520, MaxFramePayload} {
		payload := bytes.Repeat([]byte{'p'}, n)

		frame, err := Encode(payload)
		require.NoError(t, err)

		got, err := NewReader(bytes.NewReader(frame)).ReadPacket()
		require.NoError(t, err, "payload length %d", n)
		assert.Equal(t, payload, got, "payload length %d", n)
	}
}

func TestFlush(t *testing.T) {
	assert.Equal(t, []byte("0000"), Flush())

	// a flush-pkt must decode to the sentinel, never to a payload
	_, err := NewReader(bytes.NewReader(Flush())).ReadPacket()
	assert.ErrorIs(t, err, ErrFlush)
}

func TestReader_ReadPacket(t *testing.T) {
	in := "000ahello\n" + "0006hi" + "0000" + "0005!"
	r := NewReader(strings.NewReader(in))

	p, err := r.ReadPacket()
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(p))

	p, err = r.ReadPacket()
	require.NoError(t, err)
	assert.Equal(t, "hi", string(p))

	_, err = r.ReadPacket()
	assert.ErrorIs(t, err, ErrFlush)

	// reading continues past a flush-pkt
	p, err = r.ReadPacket()
	require.NoError(t, err)
	assert.Equal(t, "!", string(p))

	_, err = r.ReadPacket()
	assert.ErrorIs(t, err, io.EOF)
}

// onebyteReader returns a single byte per Read call, forcing the Reader
// to accumulate frames across many short reads.
type onebyteReader struct{ r io.Reader }

func (o onebyteReader) Read(p []byte) (int, error) {
	return o.r.Read(p[:1])
}

func TestReader_ShortReads(t *testing.T) {
	r := NewReader(onebyteReader{strings.NewReader("000ahello\n0000")})

	p, err := r.ReadPacket()
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(p))

	_, err = r.ReadPacket()
	assert.ErrorIs(t, err, ErrFlush)
}

func TestReader_Malformed(t *testing.T) {
	testdata := []struct {
		in       string
		expected error
	}{
		{"zzzz", ErrInvalidLength},
		{"00!0", ErrInvalidLength},
		{"0001", ErrInvalidLength},
		{"0003", ErrInvalidLength},
		{"000ahel", io.ErrUnexpectedEOF},
		{"00", io.ErrUnexpectedEOF},
	}

	for _, d := range testdata {
		_, err := NewReader(strings.NewReader(d.in)).ReadPacket()
		assert.ErrorIs(t, err, d.expected, "input %q", d.in)
	}
}

func TestWriter(t *testing.T) {
	var buf bytes.Buffer

	w := NewWriter(&buf)
	require.NoError(t, w.WriteString("# service=git-upload-pack\n"))
	require.NoError(t, w.Flush())
	require.NoError(t, w.Writef("%s %s\n", "abc", "refs/heads/main"))

	assert.Equal(t,
		"001e# service=git-upload-pack\n"+"0000"+"0018abc refs/heads/main\n",
		buf.String())
}
