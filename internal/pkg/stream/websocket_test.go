package stream

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

var upgrader = websocket.Upgrader{}

// wsServer runs handler for each websocket connection and returns the
// host and port to dial.
func wsServer(t *testing.T, handler func(ws *websocket.Conn)) (string, uint16) {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		handler(ws)
	}))
	t.Cleanup(server.Close)

	parsed, err := url.Parse(server.URL)
	require.NoError(t, err)
	host, portStr, err := net.SplitHostPort(parsed.Host)
	require.NoError(t, err)
	port, err := strconv.ParseUint(portStr, 10, 16)
	require.NoError(t, err)
	return host, uint16(port)
}

func TestDialReadWrite(t *testing.T) {
	host, port := wsServer(t, func(ws *websocket.Conn) {
		require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(`{"op":0,"d":{}}`)))
		messageType, payload, err := ws.ReadMessage()
		if err != nil {
			return
		}
		require.Equal(t, websocket.TextMessage, messageType)
		require.Equal(t, []byte("echo"), payload)
	})

	conn, err := Dial(context.Background(), host, port)
	require.NoError(t, err)
	defer conn.Close()

	frame, err := conn.Read()
	require.NoError(t, err)
	require.True(t, frame.IsText())
	require.JSONEq(t, `{"op":0,"d":{}}`, string(frame.Payload))

	require.NoError(t, conn.Write(Text([]byte("echo"))))
	require.NoError(t, conn.Flush())
}

func TestPollModeReportsWouldBlock(t *testing.T) {
	quiet := make(chan struct{})
	host, port := wsServer(t, func(ws *websocket.Conn) {
		// Send nothing until released.
		<-quiet
	})
	defer close(quiet)

	conn, err := Dial(context.Background(), host, port, WithPollInterval(50*time.Millisecond))
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Read()
	require.Error(t, err)
	require.True(t, IsWouldBlock(err))
}

func TestPollModeRecoversAfterWouldBlock(t *testing.T) {
	send := make(chan struct{})
	done := make(chan struct{})
	host, port := wsServer(t, func(ws *websocket.Conn) {
		<-send
		require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(`{"op":5,"d":{}}`)))
		<-done
	})
	defer close(done)

	conn, err := Dial(context.Background(), host, port, WithPollInterval(50*time.Millisecond))
	require.NoError(t, err)
	defer conn.Close()

	// Idle connection: the first reads time out but must stay retryable.
	for i := 0; i < 3; i++ {
		_, err = conn.Read()
		require.True(t, IsWouldBlock(err))
	}

	close(send)
	deadline := time.Now().Add(5 * time.Second)
	var frame Frame
	for {
		frame, err = conn.Read()
		if err == nil {
			break
		}
		require.True(t, IsWouldBlock(err))
		require.True(t, time.Now().Before(deadline), "frame sent after a timeout was never delivered")
	}
	require.True(t, frame.IsText())
	require.JSONEq(t, `{"op":5,"d":{}}`, string(frame.Payload))
}

func TestPollModeSurfacesFatalReadError(t *testing.T) {
	host, port := wsServer(t, func(ws *websocket.Conn) {
		// Close immediately so the read pump dies.
	})

	conn, err := Dial(context.Background(), host, port, WithPollInterval(50*time.Millisecond))
	require.NoError(t, err)
	defer conn.Close()

	deadline := time.Now().Add(5 * time.Second)
	for {
		_, err = conn.Read()
		if !IsWouldBlock(err) {
			break
		}
		require.True(t, time.Now().Before(deadline), "pump error never surfaced")
	}
	require.Error(t, err)
	require.False(t, IsWouldBlock(err))

	// The error is sticky.
	_, again := conn.Read()
	require.Equal(t, err, again)
}

func TestInvalidPollInterval(t *testing.T) {
	host, port := wsServer(t, func(ws *websocket.Conn) {})
	_, err := Dial(context.Background(), host, port, WithPollInterval(0))
	require.Error(t, err)
}

func TestClosedConnRejectsOperations(t *testing.T) {
	host, port := wsServer(t, func(ws *websocket.Conn) {})
	conn, err := Dial(context.Background(), host, port)
	require.NoError(t, err)

	require.NoError(t, conn.Close())
	// Idempotent.
	require.NoError(t, conn.Close())

	_, err = conn.Read()
	require.ErrorIs(t, err, ErrClosed)
	require.ErrorIs(t, conn.Write(Text(nil)), ErrClosed)
	require.ErrorIs(t, conn.Flush(), ErrClosed)
}

func TestConnIDsUnique(t *testing.T) {
	host, port := wsServer(t, func(ws *websocket.Conn) {})
	a, err := Dial(context.Background(), host, port)
	require.NoError(t, err)
	defer a.Close()
	b, err := Dial(context.Background(), host, port)
	require.NoError(t, err)
	defer b.Close()
	require.NotEqual(t, a.ID(), b.ID())
}

func TestWouldBlockClassification(t *testing.T) {
	require.True(t, IsWouldBlock(ErrWouldBlock))
	require.False(t, IsWouldBlock(ErrClosed))
	require.False(t, IsWouldBlock(nil))
}
