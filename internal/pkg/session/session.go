package session

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/cyradotpink/influencer/internal/pkg/auth"
	"github.com/cyradotpink/influencer/internal/pkg/log"
	"github.com/cyradotpink/influencer/internal/pkg/message"
	"github.com/cyradotpink/influencer/internal/pkg/squeue"
	"github.com/cyradotpink/influencer/internal/pkg/stream"
)

var logger logrus.FieldLogger = logrus.StandardLogger()

// Session is the client side of one protocol connection.
type Session struct {
	stream             stream.MessageStream
	msgs               *squeue.Queue[stream.Frame]
	state              auth.State
	challenge          *message.HelloAuthentication
	rpcVersion         uint32
	eventSubscriptions *uint32
	unflushed          bool
	nextRequestID      uint64
}

// Cfg configures a Session.
type Cfg func(*Session) error

// WithEventSubscriptions sets the event subscription bitmask negotiated at
// Identify time.
func WithEventSubscriptions(mask uint32) Cfg {
	return func(s *Session) error {
		s.eventSubscriptions = &mask
		return nil
	}
}

// NewSession creates a session over an established connection. The server
// speaks first (Hello), so no I/O happens here.
func NewSession(ms stream.MessageStream, cfgs ...Cfg) (*Session, error) {
	sess := &Session{
		stream: ms,
		msgs:   squeue.New[stream.Frame](),
		state:  auth.StateConnected,
	}
	for _, cfg := range cfgs {
		if err := cfg(sess); err != nil {
			return nil, errors.Wrap(err, "apply Session cfg failed")
		}
	}
	return sess, nil
}

// State returns the session's handshake progress.
func (s *Session) State() auth.State {
	return s.state
}

// RPCVersion returns the negotiated protocol version. Valid once the
// session is ready.
func (s *Session) RPCVersion() uint32 {
	return s.rpcVersion
}

// GenerateID returns the next request id. IDs are monotonically increasing
// and rendered as fixed-width hexadecimal, so lexical and numeric order
// agree.
func (s *Session) GenerateID() string {
	id := s.nextRequestID
	s.nextRequestID++
	return fmt.Sprintf("%016x", id)
}

// Subscribe registers a new cursor on the inbound stream. The cursor sees
// only frames that arrive after this call.
func (s *Session) Subscribe() squeue.Cursor {
	return s.msgs.Subscribe()
}

// Unsubscribe removes a cursor, releasing any frames only it was pinning.
func (s *Session) Unsubscribe(cursor squeue.Cursor) {
	s.msgs.Unsubscribe(cursor)
}

// Ack advances the cursor past the frame it is positioned on.
func (s *Session) Ack(cursor squeue.Cursor) bool {
	return s.msgs.Ack(cursor)
}

// Buffered returns the number of frames currently retained by the queue.
func (s *Session) Buffered() int {
	return s.msgs.Len()
}

// fill ensures the cursor has a frame to look at, reading exactly one frame
// from the transport when the cursor is caught up.
func (s *Session) fill(cursor squeue.Cursor) (stream.Frame, error) {
	if frame, ok := s.msgs.Peek(cursor); ok {
		return frame, nil
	}
	frame, err := s.stream.Read()
	if err != nil {
		return stream.Frame{}, errors.Wrap(err, "read frame failed")
	}
	s.msgs.Write(frame)
	return frame, nil
}

// PeekMatching inspects the cursor's current frame without consuming it.
// It reports a match only when the frame decodes as a server message and
// the predicate accepts it.
func (s *Session) PeekMatching(cursor squeue.Cursor, pred func(*message.ServerMessage) bool) (*message.ServerMessage, bool) {
	frame, ok := s.msgs.Peek(cursor)
	if !ok {
		return nil, false
	}
	msg, err := message.DecodeServer(frame)
	if err != nil {
		return nil, false
	}
	if !pred(msg) {
		return nil, false
	}
	return msg, true
}

// NextMatching positions the cursor on the next frame matching the
// predicate and returns it decoded, without consuming it. Frames that do
// not match, or do not decode, are acked past for this cursor only. The
// cursor is never advanced past a matching frame, so calling NextMatching
// again without an intervening Ack returns the same message.
func (s *Session) NextMatching(cursor squeue.Cursor, pred func(*message.ServerMessage) bool) (*message.ServerMessage, error) {
	for {
		if msg, ok := s.PeekMatching(cursor, pred); ok {
			logger.WithFields(log.ServerMessageToFields(msg)).Trace("message matched")
			return msg, nil
		}
		s.msgs.Ack(cursor)
		if _, err := s.fill(cursor); err != nil {
			return nil, err
		}
	}
}

// NextHello positions the cursor on the next Hello frame.
func (s *Session) NextHello(cursor squeue.Cursor) (*message.Hello, error) {
	msg, err := s.NextMatching(cursor, func(m *message.ServerMessage) bool {
		return m.Hello != nil
	})
	if err != nil {
		return nil, err
	}
	return msg.Hello, nil
}

// NextIdentified positions the cursor on the next Identified frame.
func (s *Session) NextIdentified(cursor squeue.Cursor) (*message.Identified, error) {
	msg, err := s.NextMatching(cursor, func(m *message.ServerMessage) bool {
		return m.Identified != nil
	})
	if err != nil {
		return nil, err
	}
	return msg.Identified, nil
}

// NextEvent positions the cursor on the next Event frame.
func (s *Session) NextEvent(cursor squeue.Cursor) (*message.Event, error) {
	msg, err := s.NextMatching(cursor, func(m *message.ServerMessage) bool {
		return m.Event != nil
	})
	if err != nil {
		return nil, err
	}
	return msg.Event, nil
}

// NextResponse positions the cursor on the response correlated to the
// given request id. Events and responses to other requests encountered on
// the way are skipped for this cursor; an independent cursor still sees
// them.
func (s *Session) NextResponse(cursor squeue.Cursor, requestID string) (*message.Response, error) {
	msg, err := s.NextMatching(cursor, func(m *message.ServerMessage) bool {
		return m.Response != nil && m.Response.RequestID == requestID
	})
	if err != nil {
		return nil, err
	}
	return msg.Response, nil
}

// NextBatchResponse positions the cursor on the batch response correlated
// to the given request id.
func (s *Session) NextBatchResponse(cursor squeue.Cursor, requestID string) (*message.BatchResponse, error) {
	msg, err := s.NextMatching(cursor, func(m *message.ServerMessage) bool {
		return m.BatchResponse != nil && m.BatchResponse.RequestID == requestID
	})
	if err != nil {
		return nil, err
	}
	return msg.BatchResponse, nil
}

// WriteFrame writes a raw frame and marks a flush as owed.
func (s *Session) WriteFrame(frame stream.Frame) error {
	if err := s.stream.Write(frame); err != nil {
		return errors.Wrap(err, "write frame failed")
	}
	s.unflushed = true
	return nil
}

// WriteData encodes a payload into the wire envelope and writes it.
func (s *Session) WriteData(d message.Data) error {
	frame, err := message.Encode(d)
	if err != nil {
		return errors.Wrap(err, "encode message failed")
	}
	return s.WriteFrame(frame)
}

// Flush flushes pending writes and reports whether anything was flushed.
// Redundant flushes are no-ops.
func (s *Session) Flush() (bool, error) {
	if !s.unflushed {
		return false, nil
	}
	if err := s.stream.Flush(); err != nil {
		return false, errors.Wrap(err, "flush failed")
	}
	s.unflushed = false
	return true, nil
}

// SendRequest writes a request with a freshly generated id and returns the
// id for correlation. The caller flushes when it is done writing. Sending
// before the session is ready is a defect in the calling code.
func (s *Session) SendRequest(requestType string, data json.RawMessage) (string, error) {
	s.requireReady()
	id := s.GenerateID()
	err := s.WriteData(message.Request{
		RequestType: requestType,
		RequestID:   id,
		RequestData: data,
	})
	if err != nil {
		return "", err
	}
	logger.WithFields(logrus.Fields{
		"requestType": requestType,
		"requestId":   id,
	}).Debug("request written")
	return id, nil
}

// SendBatch writes a request batch with a freshly generated id and returns
// the id for correlation.
func (s *Session) SendBatch(requests []message.BatchRequest, haltOnFailure *bool, executionType *int) (string, error) {
	s.requireReady()
	id := s.GenerateID()
	err := s.WriteData(message.RequestBatch{
		RequestID:     id,
		HaltOnFailure: haltOnFailure,
		ExecutionType: executionType,
		Requests:      requests,
	})
	if err != nil {
		return "", err
	}
	logger.WithFields(logrus.Fields{
		"requestId": id,
		"requests":  len(requests),
	}).Debug("request batch written")
	return id, nil
}

// Reidentify renegotiates the event subscription bitmask after the
// handshake has completed.
func (s *Session) Reidentify(eventSubscriptions *uint32) error {
	s.requireReady()
	return s.WriteData(message.Reidentify{EventSubscriptions: eventSubscriptions})
}

func (s *Session) requireReady() {
	if s.state != auth.StateReady {
		panic(fmt.Sprintf("session: request issued in state %s", s.state))
	}
}

// StepAuth advances the handshake by one step, reading through the shared
// subscriber queue on the given cursor so the cursor stays usable for
// ordinary traffic afterwards. An owed flush counts as the step. The
// returned state is the progress after the step; would-block errors leave
// the session unchanged for retry.
func (s *Session) StepAuth(cursor squeue.Cursor, password string) (auth.State, error) {
	if s.state == auth.StateReady {
		return s.state, nil
	}
	flushed, err := s.Flush()
	if err != nil {
		return s.state, err
	}
	if flushed {
		return s.state, nil
	}
	switch s.state {
	case auth.StateConnected:
		hello, err := s.NextHello(cursor)
		if err != nil {
			return s.state, errors.Wrap(err, "await hello failed")
		}
		s.challenge = hello.Authentication
		s.state = auth.StateGotHello
	case auth.StateGotHello:
		if err := s.WriteData(auth.IdentifyFor(password, s.challenge, s.eventSubscriptions)); err != nil {
			return s.state, errors.Wrap(err, "write identify failed")
		}
		s.state = auth.StateSentIdentify
	case auth.StateSentIdentify:
		identified, err := s.NextIdentified(cursor)
		if err != nil {
			return s.state, errors.Wrap(err, "await identified failed")
		}
		s.rpcVersion = identified.NegotiatedRPCVersion
		s.state = auth.StateReady
		logger.WithField("negotiatedRpcVersion", s.rpcVersion).Debug("session ready")
	}
	return s.state, nil
}

// Authenticate drives StepAuth until the session is ready. Over a
// non-blocking transport the caller retries after would-block conditions;
// over a blocking one this completes or fails in one call.
func (s *Session) Authenticate(cursor squeue.Cursor, password string) error {
	for s.state != auth.StateReady {
		if _, err := s.StepAuth(cursor, password); err != nil {
			return errors.Wrapf(err, "handshake step in state %s failed", s.state)
		}
	}
	return nil
}
