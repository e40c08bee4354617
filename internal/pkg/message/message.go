package message

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/cyradotpink/influencer/internal/pkg/stream"
)

// Opcode tags a frame's role in the protocol. The numbering is part of the
// wire format and is never changed.
type Opcode int

const (
	OpHello                Opcode = 0
	OpIdentify             Opcode = 1
	OpIdentified           Opcode = 2
	OpReidentify           Opcode = 3
	OpEvent                Opcode = 5
	OpRequest              Opcode = 6
	OpRequestResponse      Opcode = 7
	OpRequestBatch         Opcode = 8
	OpRequestBatchResponse Opcode = 9
)

func (o Opcode) String() string {
	switch o {
	case OpHello:
		return "Hello"
	case OpIdentify:
		return "Identify"
	case OpIdentified:
		return "Identified"
	case OpReidentify:
		return "Reidentify"
	case OpEvent:
		return "Event"
	case OpRequest:
		return "Request"
	case OpRequestResponse:
		return "RequestResponse"
	case OpRequestBatch:
		return "RequestBatch"
	case OpRequestBatchResponse:
		return "RequestBatchResponse"
	default:
		return "Unknown"
	}
}

// Raw is the wire envelope with the payload left undecoded.
type Raw struct {
	Op Opcode          `json:"op"`
	D  json.RawMessage `json:"d"`
}

// Data is a payload that knows its own opcode. All client->server payload
// types implement it.
type Data interface {
	Opcode() Opcode
}

// Encode wraps a payload in the wire envelope and renders it as a text frame.
func Encode(d Data) (stream.Frame, error) {
	payload, err := json.Marshal(d)
	if err != nil {
		return stream.Frame{}, errors.Wrap(err, "marshal payload failed")
	}
	envelope, err := json.Marshal(Raw{Op: d.Opcode(), D: payload})
	if err != nil {
		return stream.Frame{}, errors.Wrap(err, "marshal envelope failed")
	}
	return stream.Text(envelope), nil
}

// DecodeRaw decodes a frame into the envelope, leaving the payload opaque.
// Both envelope fields are mandatory; in particular a missing op must not
// fall through as opcode zero, which is a real opcode (Hello).
func DecodeRaw(frame stream.Frame) (Raw, error) {
	if !frame.IsText() {
		return Raw{}, ErrNotText
	}
	var envelope struct {
		Op *Opcode         `json:"op"`
		D  json.RawMessage `json:"d"`
	}
	if err := json.Unmarshal(frame.Payload, &envelope); err != nil {
		return Raw{}, errors.Wrap(err, "unmarshal envelope failed")
	}
	if envelope.Op == nil {
		return Raw{}, ErrMissingOpcode
	}
	if envelope.D == nil {
		return Raw{}, ErrMissingPayload
	}
	return Raw{Op: *envelope.Op, D: envelope.D}, nil
}

// DecodeData decodes a frame strictly: the frame must be text, must carry
// the wanted opcode, and its payload must unmarshal into v. Any violation
// is an error, which during the handshake means the peer broke the protocol.
func DecodeData(frame stream.Frame, want Opcode, v any) error {
	raw, err := DecodeRaw(frame)
	if err != nil {
		return err
	}
	if raw.Op != want {
		return &UnexpectedOpcodeError{Op: raw.Op}
	}
	if err := json.Unmarshal(raw.D, v); err != nil {
		return errors.Wrapf(err, "unmarshal %s payload failed", want)
	}
	return nil
}
