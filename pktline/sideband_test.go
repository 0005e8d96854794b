package pktline

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSideBand_SingleFrame(t *testing.T) {
	frames, err := SideBand(ChannelData, []byte("unpack ok\n"))
	require.NoError(t, err)

	assert.Equal(t, "000f\x01unpack ok\n", string(frames))
}

func TestSideBand_Split(t *testing.T) {
	payload := bytes.Repeat([]byte{'p'}, MaxSideBandData+10)

	frames, err := SideBand(ChannelData, payload)
	require.NoError(t, err)

	r := NewReader(bytes.NewReader(frames))

	p, err := r.ReadPacket()
	require.NoError(t, err)
	assert.Len(t, p, 1+MaxSideBandData)
	assert.Equal(t, ChannelData, p[0])

	p, err = r.ReadPacket()
	require.NoError(t, err)
	assert.Len(t, p, 1+10)
	assert.Equal(t, ChannelData, p[0])
}

func TestSideBand_InvalidChannel(t *testing.T) {
	_, err := SideBand(0, []byte("x"))
	assert.Error(t, err)

	_, err = SideBand(4, []byte("x"))
	assert.Error(t, err)
}

func TestCopySideBand(t *testing.T) {
	// two full frames plus a partial third
	data := bytes.Repeat([]byte{'d'}, 2*MaxSideBandData+100)

	var buf bytes.Buffer

	n, err := CopySideBand(&buf, ChannelData, bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), n)

	var got []byte

	r := NewReader(&buf)

	for range 3 {
		p, err := r.ReadPacket()
		require.NoError(t, err)
		require.Equal(t, ChannelData, p[0])

		got = append(got, p[1:]...)
	}

	assert.Equal(t, data, got)
}

func TestCopySideBand_Empty(t *testing.T) {
	var buf bytes.Buffer

	n, err := CopySideBand(&buf, ChannelData, bytes.NewReader(nil))
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, buf.Bytes())
}
