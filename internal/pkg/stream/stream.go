package stream

import (
	"net"

	"github.com/pkg/errors"
)

// FrameKind identifies the WebSocket frame type carried by a Frame.
type FrameKind int

// Frame kinds. The protocol layer only interprets text frames; everything
// else passes through as an opaque non-text frame.
const (
	FrameText FrameKind = iota + 1
	FrameBinary
	FramePing
	FramePong
	FrameClose
)

// Frame is one WebSocket message as seen by the protocol engine.
type Frame struct {
	Kind    FrameKind
	Payload []byte
}

// Text builds a text frame from the given payload.
func Text(payload []byte) Frame {
	return Frame{Kind: FrameText, Payload: payload}
}

// IsText reports whether the frame carries text, i.e. whether it can hold a
// protocol envelope.
func (f Frame) IsText() bool {
	return f.Kind == FrameText
}

// MessageStream is a duplex message channel. Each method performs at most
// one I/O action and may fail with a would-block condition, in which case
// the caller retries the identical call after waiting for readiness.
type MessageStream interface {
	Read() (Frame, error)
	Write(Frame) error
	Flush() error
}

// IsWouldBlock reports whether err is a transient would-block condition
// that is recoverable by retrying the same operation later.
func IsWouldBlock(err error) bool {
	if errors.Is(err, ErrWouldBlock) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}
