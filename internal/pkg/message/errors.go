package message

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrNotText indicates that a frame expected to carry a protocol envelope
// was not a text frame.
var ErrNotText = errors.New("not a text frame")

// ErrMissingOpcode indicates an envelope without an op field. Without it
// the payload shape is unknowable, so the frame cannot mean anything.
var ErrMissingOpcode = errors.New("envelope missing opcode field")

// ErrMissingPayload indicates an envelope without a d field.
var ErrMissingPayload = errors.New("envelope missing payload field")

// UnexpectedOpcodeError indicates that a frame carried an opcode other than
// the one required, or one not known to the protocol.
type UnexpectedOpcodeError struct {
	Op Opcode
}

func (e *UnexpectedOpcodeError) Error() string {
	return fmt.Sprintf("unexpected opcode (%d)", int(e.Op))
}
