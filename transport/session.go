// Package transport owns the physical websocket connection: dialing,
// keepalive, outbound writes and a sequential inbound frame stream.
package transport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/vellumchat/vellum-go/config"
	"github.com/vellumchat/vellum-go/pkg/log"
)

// Session is one logical connection slot. A client holds exactly one;
// re-connecting tears down whatever connection was live before.
type Session struct {
	cfg config.WebSocketConfig
	log zerolog.Logger

	mu     sync.Mutex // guards conn, frames, cancel
	conn   *websocket.Conn
	frames chan []byte
	cancel context.CancelFunc

	writeMu sync.Mutex // gorilla allows a single concurrent writer
}

func NewSession(cfg config.WebSocketConfig, logger zerolog.Logger) *Session {
	return &Session{cfg: cfg, log: logger}
}

// Connect dials the endpoint, closing any prior connection first. On
// success the inbound stream is available via Frames until the peer
// closes, an error occurs, or Close is called.
func (s *Session) Connect(ctx context.Context, endpoint string) error {
	s.Close()

	dialer := websocket.Dialer{HandshakeTimeout: s.cfg.HandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return fmt.Errorf("transport: connect %s: %w", endpoint, err)
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	frames := make(chan []byte, 32)

	s.mu.Lock()
	s.conn = conn
	s.frames = frames
	s.cancel = cancel
	s.mu.Unlock()

	go s.readLoop(loopCtx, conn, frames)
	go s.pingLoop(loopCtx, conn)

	s.log.Debug().Str(log.FieldEndpoint, endpoint).Msg("connected")
	return nil
}

// Frames returns the inbound stream of the current connection. Each
// element is one complete logical message; gorilla reassembles fragmented
// websocket frames before ReadMessage returns. The channel is closed when
// the connection ends.
func (s *Session) Frames() <-chan []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

// Send writes one text frame. When no connection is live the frame is
// dropped, not queued.
func (s *Session) Send(data []byte) {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		s.log.Debug().Int(log.FieldFrameSize, len(data)).Msg("send while disconnected, frame dropped")
		return
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteWait))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		s.log.Warn().Err(err).Msg("websocket write failed")
	}
}

// Connected reports whether a connection is currently live.
func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

// Close cancels the receive loop and closes the connection. Safe to call
// at any time, including when no connection is active.
func (s *Session) Close() {
	s.mu.Lock()
	conn := s.conn
	cancel := s.cancel
	s.conn = nil
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		s.writeMu.Lock()
		conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteWait))
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		s.writeMu.Unlock()
		conn.Close()
	}
}

func (s *Session) readLoop(ctx context.Context, conn *websocket.Conn, frames chan<- []byte) {
	defer close(frames)
	defer conn.Close()

	conn.SetReadLimit(s.cfg.MaxMessageSize)
	conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
		return nil
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil &&
				websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn().Err(err).Msg("websocket read failed")
			}
			return
		}
		select {
		case frames <- message:
		case <-ctx.Done():
			return
		}
	}
}

func (s *Session) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.writeMu.Lock()
			conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteWait))
			err := conn.WriteMessage(websocket.PingMessage, nil)
			s.writeMu.Unlock()
			if err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
