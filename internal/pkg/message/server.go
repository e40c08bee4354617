package message

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/cyradotpink/influencer/internal/pkg/stream"
)

// ServerMessage is a tagged union over the server->client payload shapes.
// Exactly one of the pointer fields is set, according to Op.
type ServerMessage struct {
	Op            Opcode
	Hello         *Hello
	Identified    *Identified
	Event         *Event
	Response      *Response
	BatchResponse *BatchResponse
}

// DecodeServer decodes a frame into the tagged union. Non-text frames,
// malformed JSON and opcodes the server is not supposed to send are all
// errors; the session layer decides whether such a frame is skippable.
func DecodeServer(frame stream.Frame) (*ServerMessage, error) {
	raw, err := DecodeRaw(frame)
	if err != nil {
		return nil, err
	}
	msg := &ServerMessage{Op: raw.Op}
	var dst any
	switch raw.Op {
	case OpHello:
		msg.Hello = &Hello{}
		dst = msg.Hello
	case OpIdentified:
		msg.Identified = &Identified{}
		dst = msg.Identified
	case OpEvent:
		msg.Event = &Event{}
		dst = msg.Event
	case OpRequestResponse:
		msg.Response = &Response{}
		dst = msg.Response
	case OpRequestBatchResponse:
		msg.BatchResponse = &BatchResponse{}
		dst = msg.BatchResponse
	default:
		return nil, &UnexpectedOpcodeError{Op: raw.Op}
	}
	if err := json.Unmarshal(raw.D, dst); err != nil {
		return nil, errors.Wrapf(err, "unmarshal %s payload failed", raw.Op)
	}
	return msg, nil
}
