package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vellumchat/vellum-go/config"
)

var testWSConfig = config.WebSocketConfig{
	HandshakeTimeout: 2 * time.Second,
	PingInterval:     50 * time.Millisecond,
	PongWait:         2 * time.Second,
	WriteWait:        time.Second,
	MaxMessageSize:   1 << 20,
}

// echoServer upgrades each request and echoes text frames back until the
// client goes away.
type echoServer struct {
	*httptest.Server

	mu    sync.Mutex
	conns []*websocket.Conn
}

func newEchoServer(t *testing.T) *echoServer {
	t.Helper()
	upgrader := websocket.Upgrader{}
	es := &echoServer{}
	es.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		es.mu.Lock()
		es.conns = append(es.conns, conn)
		es.mu.Unlock()

		for {
			mt, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if mt == websocket.TextMessage {
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					return
				}
			}
		}
	}))
	t.Cleanup(es.Close)
	return es
}

func (es *echoServer) wsURL() string {
	return "ws" + strings.TrimPrefix(es.URL, "http")
}

func (es *echoServer) closeConns() {
	es.mu.Lock()
	defer es.mu.Unlock()
	for _, c := range es.conns {
		c.Close()
	}
	es.conns = nil
}

func TestSessionRoundTrip(t *testing.T) {
	es := newEchoServer(t)
	s := NewSession(testWSConfig, zerolog.Nop())
	defer s.Close()

	require.NoError(t, s.Connect(context.Background(), es.wsURL()))
	assert.True(t, s.Connected())

	s.Send([]byte(`{"type":"ping"}`))

	select {
	case frame := <-s.Frames():
		assert.JSONEq(t, `{"type":"ping"}`, string(frame))
	case <-time.After(2 * time.Second):
		t.Fatal("no echo received")
	}
}

func TestSessionPeerCloseEndsStream(t *testing.T) {
	es := newEchoServer(t)
	s := NewSession(testWSConfig, zerolog.Nop())
	defer s.Close()

	require.NoError(t, s.Connect(context.Background(), es.wsURL()))
	frames := s.Frames()

	es.closeConns()

	select {
	case _, ok := <-frames:
		assert.False(t, ok, "stream must close, not deliver")
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not close after peer hangup")
	}
}

func TestSessionCloseIsIdempotent(t *testing.T) {
	es := newEchoServer(t)
	s := NewSession(testWSConfig, zerolog.Nop())

	require.NoError(t, s.Connect(context.Background(), es.wsURL()))
	frames := s.Frames()

	s.Close()
	s.Close()
	assert.False(t, s.Connected())

	select {
	case _, ok := <-frames:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not close")
	}
}

func TestSessionSendWhileDisconnected(t *testing.T) {
	s := NewSession(testWSConfig, zerolog.Nop())
	// Dropped, never queued.
	s.Send([]byte("lost"))
	assert.False(t, s.Connected())
}

func TestSessionReconnectSupersedes(t *testing.T) {
	es := newEchoServer(t)
	s := NewSession(testWSConfig, zerolog.Nop())
	defer s.Close()

	require.NoError(t, s.Connect(context.Background(), es.wsURL()))
	first := s.Frames()

	require.NoError(t, s.Connect(context.Background(), es.wsURL()))
	second := s.Frames()

	// The first connection's stream ends; the second one works.
	select {
	case _, ok := <-first:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("superseded stream did not close")
	}

	s.Send([]byte("hello"))
	select {
	case frame := <-second:
		assert.Equal(t, "hello", string(frame))
	case <-time.After(2 * time.Second):
		t.Fatal("no echo on the new connection")
	}
}

func TestSessionDialFailure(t *testing.T) {
	s := NewSession(testWSConfig, zerolog.Nop())
	err := s.Connect(context.Background(), "ws://127.0.0.1:1/ws")
	assert.Error(t, err)
	assert.False(t, s.Connected())
}
