// Package pktline implements the pkt-line wire framing used by the Git
// transfer protocols, along with side-band channel multiplexing. See
// https://git-scm.com/docs/protocol-common#_pkt_line_format for the
// format details.
//
// Encoding is done with pure functions on explicit byte slices; there
// is no package-level codec state. Decoding is done with a Reader,
// which accumulates bytes from the underlying stream until a complete
// frame is available.
package pktline

import (
	"errors"
	"fmt"
	"io"
)

const lenDigits = 4

// MaxFramePayload is the most payload bytes a single pkt-line frame can
// carry: the 4 hex digits of the length field cap the total frame at
// 0xffff bytes.
const MaxFramePayload = 0xffff - lenDigits

// MaxPayloadLen is the largest frame payload that side-band-64k
// consumers are guaranteed to accept. Writers that interoperate with
// Git clients should stay within this rather than MaxFramePayload.
const MaxPayloadLen = 65520

// Pkt-line error conditions.
var (
	// ErrTooLong is returned when a payload exceeds MaxFramePayload.
	ErrTooLong = errors.New("pktline: payload too long")

	// ErrInvalidLength is returned when a length field is not valid
	// hex, or declares a length in the impossible 1-3 range.
	ErrInvalidLength = errors.New("pktline: invalid length field")

	// ErrFlush is returned by Reader.ReadPacket at a flush-pkt. It
	// marks the end of a pkt-line message, not a failure.
	ErrFlush = errors.New("pktline: flush-pkt")
)

const hexdigits = "0123456789abcdef"

// Encode frames p as a single pkt-line: a 4-digit lowercase-hex length
// field counting the whole frame, followed by the payload.
func Encode(p []byte) ([]byte, error) {
	if len(p) > MaxFramePayload {
		return nil, ErrTooLong
	}

	n := len(p) + lenDigits
	frame := make([]byte, n)
	frame[0] = hexdigits[n>>12&0xf]
	frame[1] = hexdigits[n>>8&0xf]
	frame[2] = hexdigits[n>>4&0xf]
	frame[3] = hexdigits[n&0xf]
	copy(frame[lenDigits:], p)

	return frame, nil
}

// EncodeString behaves like Encode.
func EncodeString(s string) ([]byte, error) {
	return Encode([]byte(s))
}

// Flush returns the flush-pkt: the fixed 4 bytes "0000". Its declared
// length of zero makes it distinguishable from every real frame, whose
// length field is at least 4.
func Flush() []byte {
	return []byte{'0', '0', '0', '0'}
}

// A Reader decodes pkt-line frames from an underlying stream. Frames
// may arrive split across reads; ReadPacket blocks until a full frame
// is available.
type Reader struct {
	r      io.Reader
	lenbuf [lenDigits]byte
}

// NewReader returns a Reader decoding from r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// ReadPacket returns the payload of the next pkt-line frame. At a
// flush-pkt it returns nil, ErrFlush. A clean end of stream between
// frames returns io.EOF; a frame truncated mid-way returns
// io.ErrUnexpectedEOF.
func (r *Reader) ReadPacket() ([]byte, error) {
	if _, err := io.ReadFull(r.r, r.lenbuf[:]); err != nil {
		return nil, err
	}

	n, err := parseLen(r.lenbuf)
	if err != nil {
		return nil, err
	}

	if n == 0 {
		return nil, ErrFlush
	}

	p := make([]byte, n-lenDigits)
	if _, err := io.ReadFull(r.r, p); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}

		return nil, err
	}

	return p, nil
}

func parseLen(field [lenDigits]byte) (int, error) {
	n := 0

	for _, c := range field {
		var d int

		switch {
		case c >= '0' && c <= '9':
			d = int(c - '0')
		case c >= 'a' && c <= 'f':
			d = int(c-'a') + 10
		case c >= 'A' && c <= 'F':
			d = int(c-'A') + 10
		default:
			return 0, fmt.Errorf("%w: %q", ErrInvalidLength, field[:])
		}

		n = n<<4 | d
	}

	if n > 0 && n < lenDigits {
		return 0, fmt.Errorf("%w: declared length %d", ErrInvalidLength, n)
	}

	return n, nil
}

// A Writer frames payloads onto an underlying writer. It holds no
// buffering of its own; each call produces one complete frame.
type Writer struct {
	w io.Writer
}

// NewWriter returns a Writer framing onto w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WritePacket writes p as a single pkt-line frame.
func (w *Writer) WritePacket(p []byte) error {
	frame, err := Encode(p)
	if err != nil {
		return err
	}

	_, err = w.w.Write(frame)

	return err
}

// WriteString writes s as a single pkt-line frame.
func (w *Writer) WriteString(s string) error {
	return w.WritePacket([]byte(s))
}

// Writef formats its arguments as a single pkt-line frame. The entire
// formatted string lands in one frame, so line boundaries never depend
// on the underlying writer's write granularity.
func (w *Writer) Writef(format string, a ...any) error {
	return w.WriteString(fmt.Sprintf(format, a...))
}

// Flush writes a flush-pkt.
func (w *Writer) Flush() error {
	_, err := w.w.Write(Flush())

	return err
}
