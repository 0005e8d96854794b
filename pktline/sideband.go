package pktline

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

// Side-band channel identifiers. Each side-band frame's payload starts
// with one of these bytes.
const (
	ChannelData     byte = 1
	ChannelProgress byte = 2
	ChannelError    byte = 3
)

// MaxSideBandData is the most data bytes a single side-band frame can
// carry after the channel byte, staying within MaxPayloadLen.
const MaxSideBandData = MaxPayloadLen - 1

func validChannel(ch byte) error {
	if ch < ChannelData || ch > ChannelError {
		return fmt.Errorf("pktline: invalid side-band channel %d", ch)
	}

	return nil
}

// SideBand frames p for the given channel. Payloads larger than
// MaxSideBandData are split across consecutive frames, each carrying
// its own channel byte. No flush-pkt is appended; one flush terminates
// a whole side-band message, not each frame.
func SideBand(ch byte, p []byte) ([]byte, error) {
	if err := validChannel(ch); err != nil {
		return nil, err
	}

	var buf bytes.Buffer

	for first := true; first || len(p) > 0; first = false {
		n := min(len(p), MaxSideBandData)

		frame, err := Encode(append([]byte{ch}, p[:n]...))
		if err != nil {
			return nil, err
		}

		buf.Write(frame)

		p = p[n:]
	}

	return buf.Bytes(), nil
}

// WriteSideBand writes p to the Writer as one side-band message body,
// splitting into as many channel-tagged frames as needed.
func (w *Writer) WriteSideBand(ch byte, p []byte) error {
	frames, err := SideBand(ch, p)
	if err != nil {
		return err
	}

	_, err = w.w.Write(frames)

	return err
}

// CopySideBand streams r onto w as maximally-sized side-band frames for
// the given channel, without materializing r. It returns the number of
// data bytes copied. The caller terminates the message with a
// flush-pkt.
func CopySideBand(w io.Writer, ch byte, r io.Reader) (int64, error) {
	if err := validChannel(ch); err != nil {
		return 0, err
	}

	buf := make([]byte, 1+MaxSideBandData)
	buf[0] = ch

	var copied int64

	for {
		n, err := io.ReadFull(r, buf[1:])
		if errors.Is(err, io.EOF) {
			return copied, nil
		}

		if errors.Is(err, io.ErrUnexpectedEOF) {
			err = nil
		}

		if err != nil {
			return copied, err
		}

		frame, err := Encode(buf[:1+n])
		if err != nil {
			return copied, err
		}

		if _, err := w.Write(frame); err != nil {
			return copied, err
		}

		copied += int64(n)

		if n < MaxSideBandData {
			return copied, nil
		}
	}
}
