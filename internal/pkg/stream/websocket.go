package stream

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var logger logrus.FieldLogger = logrus.StandardLogger()

// readQueueSize bounds how many frames the read pump buffers ahead of the
// consumer before it blocks on the connection.
const readQueueSize = 16

type readResult struct {
	frame Frame
	err   error
}

// Conn adapts a gorilla/websocket connection to the MessageStream interface.
type Conn struct {
	ws           *websocket.Conn
	id           uuid.UUID
	pollInterval time.Duration
	closed       bool
	reads        chan readResult
	readErr      error
}

// Cfg configures a Conn.
type Cfg func(*Conn) error

// WithPollInterval puts the connection into poll mode: each read waits at
// most the given interval for a frame and reports a would-block condition
// on expiry instead of blocking indefinitely. A frame arriving after an
// expiry is delivered by a later read, never lost.
func WithPollInterval(d time.Duration) Cfg {
	return func(c *Conn) error {
		if d <= 0 {
			return errors.New("poll interval must be positive")
		}
		c.pollInterval = d
		return nil
	}
}

// NewConn wraps an established websocket connection.
func NewConn(ws *websocket.Conn, cfgs ...Cfg) (*Conn, error) {
	conn := &Conn{
		ws: ws,
		id: uuid.New(),
	}
	for _, cfg := range cfgs {
		if err := cfg(conn); err != nil {
			return nil, errors.Wrap(err, "apply Conn cfg failed")
		}
	}
	if conn.pollInterval > 0 {
		conn.reads = make(chan readResult, readQueueSize)
		go conn.pump()
	}
	return conn, nil
}

// pump moves inbound frames from the connection into the read queue. Read
// errors on a gorilla connection are permanent, so the pump owns every
// ReadMessage call and delivers its terminal error through the queue.
func (c *Conn) pump() {
	defer close(c.reads)
	for {
		messageType, payload, err := c.ws.ReadMessage()
		if err != nil {
			c.reads <- readResult{err: err}
			return
		}
		c.reads <- readResult{frame: Frame{Kind: frameKind(messageType), Payload: payload}}
	}
}

// Dial connects to the server at the given host and port and wraps the
// resulting connection.
func Dial(ctx context.Context, host string, port uint16, cfgs ...Cfg) (*Conn, error) {
	url := fmt.Sprintf("ws://%s:%d", host, port)
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s failed", url)
	}
	conn, err := NewConn(ws, cfgs...)
	if err != nil {
		_ = ws.Close()
		return nil, errors.Wrap(err, "wrap connection failed")
	}
	logger.WithFields(logrus.Fields{
		"uuid": conn.id.String(),
		"url":  url,
	}).Debug("connection established")
	return conn, nil
}

// ID returns the connection's identity, used for log correlation.
func (c *Conn) ID() uuid.UUID {
	return c.id
}

// Read reads one frame from the connection. In poll mode the wait is
// bounded by the poll interval and expiry surfaces as a would-block
// condition, retryable without losing frames.
func (c *Conn) Read() (Frame, error) {
	if c.closed {
		return Frame{}, ErrClosed
	}
	if c.pollInterval > 0 {
		return c.pollRead()
	}
	messageType, payload, err := c.ws.ReadMessage()
	if err != nil {
		return Frame{}, errors.Wrap(err, "read message failed")
	}
	return Frame{Kind: frameKind(messageType), Payload: payload}, nil
}

func (c *Conn) pollRead() (Frame, error) {
	if c.readErr != nil {
		return Frame{}, c.readErr
	}
	timer := time.NewTimer(c.pollInterval)
	defer timer.Stop()
	select {
	case result, ok := <-c.reads:
		if !ok {
			return Frame{}, ErrClosed
		}
		if result.err != nil {
			c.readErr = errors.Wrap(result.err, "read message failed")
			return Frame{}, c.readErr
		}
		return result.frame, nil
	case <-timer.C:
		return Frame{}, errors.Wrap(ErrWouldBlock, "read message")
	}
}

// Write writes one frame to the connection.
func (c *Conn) Write(frame Frame) error {
	if c.closed {
		return ErrClosed
	}
	if err := c.ws.WriteMessage(messageType(frame.Kind), frame.Payload); err != nil {
		return errors.Wrap(err, "write message failed")
	}
	return nil
}

// Flush is a no-op: gorilla/websocket flushes each message as it is written.
// It exists to satisfy the MessageStream contract, which transports with
// real write buffering rely on.
func (c *Conn) Flush() error {
	if c.closed {
		return ErrClosed
	}
	return nil
}

// Close closes the underlying connection. Further operations fail with
// ErrClosed.
func (c *Conn) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	message := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	deadline := time.Now().Add(time.Second)
	_ = c.ws.WriteControl(websocket.CloseMessage, message, deadline)
	return errors.Wrap(c.ws.Close(), "close connection failed")
}

func frameKind(messageType int) FrameKind {
	switch messageType {
	case websocket.TextMessage:
		return FrameText
	case websocket.BinaryMessage:
		return FrameBinary
	case websocket.PingMessage:
		return FramePing
	case websocket.PongMessage:
		return FramePong
	default:
		return FrameClose
	}
}

func messageType(kind FrameKind) int {
	switch kind {
	case FrameText:
		return websocket.TextMessage
	case FrameBinary:
		return websocket.BinaryMessage
	case FramePing:
		return websocket.PingMessage
	case FramePong:
		return websocket.PongMessage
	default:
		return websocket.CloseMessage
	}
}
