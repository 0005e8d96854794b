package protocol

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/hairyhenderson/go-gitsmart/refstore"
)

// ErrMalformedCommand is returned when a push command line does not
// tokenize as "<old-id> <new-id> <ref-name>".
var ErrMalformedCommand = errors.New("protocol: malformed update command")

// A Command is one decoded push instruction: point Ref from Old to
// New. Old equal to the zero id is a creation, New equal to the zero
// id a deletion, anything else an update. Commands only live for the
// duration of one receive-pack request.
type Command struct {
	Old string
	New string
	Ref string
}

const oidLen = 40

// parseCommand tokenizes one pkt-line command payload. The first
// command line may carry the client's capability choices after a NUL
// byte; they are returned separately. The tokenizer is strict: fixed
// 40-hex id fields, single-space separators, a valid ref name, and
// nothing else.
func parseCommand(line []byte) (Command, string, error) {
	line = bytes.TrimSuffix(line, []byte("\n"))

	var caps string
	if i := bytes.IndexByte(line, 0); i >= 0 {
		caps = string(line[i+1:])
		line = line[:i]
	}

	// 40 + 1 + 40 + 1, plus at least one ref character
	if len(line) < 2*oidLen+3 || line[oidLen] != ' ' || line[2*oidLen+1] != ' ' {
		return Command{}, "", fmt.Errorf("%w: %q", ErrMalformedCommand, line)
	}

	cmd := Command{
		Old: string(line[:oidLen]),
		New: string(line[oidLen+1 : 2*oidLen+1]),
		Ref: string(line[2*oidLen+2:]),
	}

	if !refstore.ValidOID(cmd.Old) || !refstore.ValidOID(cmd.New) {
		return Command{}, "", fmt.Errorf("%w: bad object id in %q", ErrMalformedCommand, line)
	}

	if !refstore.ValidRefName(cmd.Ref) {
		return Command{}, "", fmt.Errorf("%w: bad ref name %q", ErrMalformedCommand, cmd.Ref)
	}

	return cmd, caps, nil
}
