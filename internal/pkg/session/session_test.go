package session

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cyradotpink/influencer/internal/pkg/auth"
	"github.com/cyradotpink/influencer/internal/pkg/message"
	"github.com/cyradotpink/influencer/internal/pkg/stream"
	"github.com/cyradotpink/influencer/internal/pkg/stream/streamtest"
)

func frameFor(t *testing.T, d message.Data) stream.Frame {
	t.Helper()
	frame, err := message.Encode(d)
	require.NoError(t, err)
	return frame
}

func decodeWritten(t *testing.T, frame stream.Frame) message.Raw {
	t.Helper()
	var raw message.Raw
	require.NoError(t, json.Unmarshal(frame.Payload, &raw))
	return raw
}

func readySession(t *testing.T, fake *streamtest.Fake, cfgs ...Cfg) *Session {
	t.Helper()
	fake.QueueFrame(frameFor(t, message.Hello{}))
	fake.QueueFrame(frameFor(t, message.Identified{NegotiatedRPCVersion: 1}))
	sess, err := NewSession(fake, cfgs...)
	require.NoError(t, err)
	cursor := sess.Subscribe()
	require.NoError(t, sess.Authenticate(cursor, ""))
	sess.Unsubscribe(cursor)
	fake.Written = nil
	fake.Flushes = 0
	return sess
}

func TestHandshakeWithoutChallenge(t *testing.T) {
	// Scenario: Hello carries no challenge; Identify must carry rpcVersion 1
	// and no authentication field at all.
	fake := streamtest.New()
	fake.QueueFrame(frameFor(t, message.Hello{}))
	fake.QueueFrame(frameFor(t, message.Identified{NegotiatedRPCVersion: 1}))

	sess, err := NewSession(fake)
	require.NoError(t, err)
	require.Equal(t, auth.StateConnected, sess.State())

	cursor := sess.Subscribe()
	require.NoError(t, sess.Authenticate(cursor, ""))
	require.Equal(t, auth.StateReady, sess.State())
	require.Equal(t, uint32(1), sess.RPCVersion())

	require.Len(t, fake.Written, 1)
	raw := decodeWritten(t, fake.Written[0])
	require.Equal(t, message.OpIdentify, raw.Op)
	require.NotContains(t, string(raw.D), "authentication")
	require.Contains(t, string(raw.D), `"rpcVersion":1`)
	require.Equal(t, 1, fake.Flushes)
}

func TestHandshakeWithChallengeAndSubscriptions(t *testing.T) {
	fake := streamtest.New()
	fake.QueueFrame(frameFor(t, message.Hello{
		Authentication: &message.HelloAuthentication{Challenge: "c", Salt: "s"},
	}))
	fake.QueueFrame(frameFor(t, message.Identified{NegotiatedRPCVersion: 1}))

	sess, err := NewSession(fake, WithEventSubscriptions(5))
	require.NoError(t, err)
	cursor := sess.Subscribe()
	require.NoError(t, sess.Authenticate(cursor, "p@ss"))

	var identify message.Identify
	raw := decodeWritten(t, fake.Written[0])
	require.NoError(t, json.Unmarshal(raw.D, &identify))
	require.NotNil(t, identify.Authentication)
	require.Equal(t, "s3jpPi/uQYwSM6/0EY5jUC6MaTQSmeV8CeU3W3NaTw4=", *identify.Authentication)
	require.Equal(t, uint32(5), *identify.EventSubscriptions)
}

func TestStepAuthProgression(t *testing.T) {
	fake := streamtest.New()
	fake.QueueFrame(frameFor(t, message.Hello{}))
	fake.QueueFrame(frameFor(t, message.Identified{NegotiatedRPCVersion: 1}))

	sess, err := NewSession(fake)
	require.NoError(t, err)
	cursor := sess.Subscribe()

	state, err := sess.StepAuth(cursor, "")
	require.NoError(t, err)
	require.Equal(t, auth.StateGotHello, state)

	state, err = sess.StepAuth(cursor, "")
	require.NoError(t, err)
	require.Equal(t, auth.StateSentIdentify, state)
	require.Equal(t, 0, fake.Flushes)

	// The owed flush is its own step.
	state, err = sess.StepAuth(cursor, "")
	require.NoError(t, err)
	require.Equal(t, auth.StateSentIdentify, state)
	require.Equal(t, 1, fake.Flushes)

	state, err = sess.StepAuth(cursor, "")
	require.NoError(t, err)
	require.Equal(t, auth.StateReady, state)

	// Stepping a ready session is a no-op.
	state, err = sess.StepAuth(cursor, "")
	require.NoError(t, err)
	require.Equal(t, auth.StateReady, state)
}

func TestHandshakeCursorReusableAfterReady(t *testing.T) {
	fake := streamtest.New()
	fake.QueueFrame(frameFor(t, message.Hello{}))
	fake.QueueFrame(frameFor(t, message.Identified{NegotiatedRPCVersion: 1}))
	fake.QueueFrame(frameFor(t, message.Event{EventType: "StreamStarted", EventIntent: 1}))

	sess, err := NewSession(fake)
	require.NoError(t, err)
	cursor := sess.Subscribe()
	require.NoError(t, sess.Authenticate(cursor, ""))

	event, err := sess.NextEvent(cursor)
	require.NoError(t, err)
	require.Equal(t, "StreamStarted", event.EventType)
}

func TestResponseCorrelationSkipsOtherTraffic(t *testing.T) {
	// Scenario B: an event and a foreign response arrive before the wanted
	// response; the correlating cursor skips them, an independent event
	// cursor still sees the event.
	fake := streamtest.New()
	sess := readySession(t, fake)

	responseCursor := sess.Subscribe()
	eventCursor := sess.Subscribe()

	id, err := sess.SendRequest("GetVersion", nil)
	require.NoError(t, err)
	require.Equal(t, "0000000000000000", id)
	flushed, err := sess.Flush()
	require.NoError(t, err)
	require.True(t, flushed)

	fake.QueueFrame(frameFor(t, message.Event{EventType: "SceneChanged", EventIntent: 4}))
	fake.QueueFrame(frameFor(t, message.Response{
		RequestType:   "GetVersion",
		RequestID:     "unrelated",
		RequestStatus: message.RequestStatus{Result: true, Code: 100},
	}))
	fake.QueueFrame(frameFor(t, message.Response{
		RequestType:   "GetVersion",
		RequestID:     id,
		RequestStatus: message.RequestStatus{Result: true, Code: 100},
		ResponseData:  json.RawMessage(`{"obsVersion":"30.1"}`),
	}))

	response, err := sess.NextResponse(responseCursor, id)
	require.NoError(t, err)
	require.Equal(t, id, response.RequestID)
	require.True(t, response.RequestStatus.Result)
	require.JSONEq(t, `{"obsVersion":"30.1"}`, string(response.ResponseData))

	// The event cursor was not disturbed by the correlation read.
	event, err := sess.NextEvent(eventCursor)
	require.NoError(t, err)
	require.Equal(t, "SceneChanged", event.EventType)
}

func TestNextMatchingIdempotentWithoutAck(t *testing.T) {
	fake := streamtest.New()
	sess := readySession(t, fake)
	cursor := sess.Subscribe()

	fake.QueueFrame(frameFor(t, message.Event{EventType: "First", EventIntent: 1}))

	event, err := sess.NextEvent(cursor)
	require.NoError(t, err)
	require.Equal(t, "First", event.EventType)

	// No intervening ack and no new frames: the same message comes back
	// without touching the transport (the script would fail a second read).
	again, err := sess.NextEvent(cursor)
	require.NoError(t, err)
	require.Equal(t, "First", again.EventType)

	require.True(t, sess.Ack(cursor))
}

func TestUndecodableFramesAreSkipped(t *testing.T) {
	fake := streamtest.New()
	sess := readySession(t, fake)
	cursor := sess.Subscribe()

	fake.QueueFrame(stream.Frame{Kind: stream.FrameBinary, Payload: []byte{0xff}})
	fake.QueueFrame(stream.Text([]byte(`not json`)))
	fake.QueueFrame(stream.Text([]byte(`{"op":4,"d":{}}`)))
	fake.QueueFrame(frameFor(t, message.Event{EventType: "Survived", EventIntent: 1}))

	event, err := sess.NextEvent(cursor)
	require.NoError(t, err)
	require.Equal(t, "Survived", event.EventType)
}

func TestWouldBlockDuringCorrelationIsRetryable(t *testing.T) {
	fake := streamtest.New()
	sess := readySession(t, fake)
	cursor := sess.Subscribe()

	id, err := sess.SendRequest("GetStats", nil)
	require.NoError(t, err)

	fake.QueueFrame(frameFor(t, message.Event{EventType: "Noise", EventIntent: 1}))
	fake.QueueError(stream.ErrWouldBlock)

	_, err = sess.NextResponse(cursor, id)
	require.True(t, stream.IsWouldBlock(err))

	fake.QueueFrame(frameFor(t, message.Response{
		RequestType:   "GetStats",
		RequestID:     id,
		RequestStatus: message.RequestStatus{Result: true, Code: 100},
	}))
	response, err := sess.NextResponse(cursor, id)
	require.NoError(t, err)
	require.Equal(t, id, response.RequestID)
}

func TestBatchCorrelation(t *testing.T) {
	fake := streamtest.New()
	sess := readySession(t, fake)
	cursor := sess.Subscribe()

	halt := true
	id, err := sess.SendBatch([]message.BatchRequest{
		{RequestType: "StartRecord"},
		{RequestType: "StopRecord"},
	}, &halt, nil)
	require.NoError(t, err)

	raw := decodeWritten(t, fake.Written[0])
	require.Equal(t, message.OpRequestBatch, raw.Op)

	fake.QueueFrame(frameFor(t, message.BatchResponse{
		RequestID: id,
		Results: []message.BatchResult{
			{RequestType: "StartRecord", RequestStatus: message.RequestStatus{Result: true, Code: 100}},
			{RequestType: "StopRecord", RequestStatus: message.RequestStatus{Result: true, Code: 100}},
		},
	}))

	batch, err := sess.NextBatchResponse(cursor, id)
	require.NoError(t, err)
	require.Equal(t, id, batch.RequestID)
	require.Len(t, batch.Results, 2)
}

func TestRequestIDsMonotonicFixedWidth(t *testing.T) {
	fake := streamtest.New()
	sess := readySession(t, fake)

	var previous string
	for i := 0; i < 300; i++ {
		id := sess.GenerateID()
		require.Len(t, id, 16)
		require.Equal(t, fmt.Sprintf("%016x", i), id)
		if i > 0 {
			// Lexical order agrees with numeric order.
			require.Greater(t, id, previous)
		}
		previous = id
	}
}

func TestFlushOnlyWhenOwed(t *testing.T) {
	fake := streamtest.New()
	sess := readySession(t, fake)

	flushed, err := sess.Flush()
	require.NoError(t, err)
	require.False(t, flushed)
	require.Equal(t, 0, fake.Flushes)

	_, err = sess.SendRequest("GetVersion", nil)
	require.NoError(t, err)

	flushed, err = sess.Flush()
	require.NoError(t, err)
	require.True(t, flushed)

	flushed, err = sess.Flush()
	require.NoError(t, err)
	require.False(t, flushed)
	require.Equal(t, 1, fake.Flushes)
}

func TestQueueDrainsWhenCursorsKeepPace(t *testing.T) {
	fake := streamtest.New()
	sess := readySession(t, fake)
	cursor := sess.Subscribe()

	for i := 0; i < 5; i++ {
		fake.QueueFrame(frameFor(t, message.Event{
			EventType:   fmt.Sprintf("e%d", i),
			EventIntent: 1,
		}))
	}
	for i := 0; i < 5; i++ {
		event, err := sess.NextEvent(cursor)
		require.NoError(t, err)
		require.Equal(t, fmt.Sprintf("e%d", i), event.EventType)
		sess.Ack(cursor)
	}
	require.Equal(t, 0, sess.Buffered())
}

func TestUnsubscribeReleasesLaggingCursor(t *testing.T) {
	fake := streamtest.New()
	sess := readySession(t, fake)
	active := sess.Subscribe()
	lagging := sess.Subscribe()

	for i := 0; i < 4; i++ {
		fake.QueueFrame(frameFor(t, message.Event{EventType: "e", EventIntent: 1}))
		_, err := sess.NextEvent(active)
		require.NoError(t, err)
		sess.Ack(active)
	}
	// The lagging cursor pins everything the active one consumed.
	require.Equal(t, 4, sess.Buffered())

	sess.Unsubscribe(lagging)
	require.Equal(t, 0, sess.Buffered())
}

func TestRequestBeforeReadyPanics(t *testing.T) {
	sess, err := NewSession(streamtest.New())
	require.NoError(t, err)
	require.Panics(t, func() { _, _ = sess.SendRequest("GetVersion", nil) })
	require.Panics(t, func() { _ = sess.Reidentify(nil) })
}

func TestReidentifyWrite(t *testing.T) {
	fake := streamtest.New()
	sess := readySession(t, fake)

	mask := uint32(9)
	require.NoError(t, sess.Reidentify(&mask))
	raw := decodeWritten(t, fake.Written[0])
	require.Equal(t, message.OpReidentify, raw.Op)
	require.JSONEq(t, `{"eventSubscriptions":9}`, string(raw.D))

	flushed, err := sess.Flush()
	require.NoError(t, err)
	require.True(t, flushed)
}
