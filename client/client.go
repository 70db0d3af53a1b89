// Package client is the session controller: it drives login, register
// and reconnect flows over one transport session, applies every inbound
// event to the state store, and republishes high-level events to
// subscribers.
package client

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vellumchat/vellum-go/config"
	"github.com/vellumchat/vellum-go/creds"
	"github.com/vellumchat/vellum-go/domain"
	"github.com/vellumchat/vellum-go/pkg/log"
	"github.com/vellumchat/vellum-go/protocol"
	"github.com/vellumchat/vellum-go/store"
	"github.com/vellumchat/vellum-go/transport"
	"github.com/vellumchat/vellum-go/upload"
)

// State is the controller's connection state.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateAuthenticating
	StateActive
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateActive:
		return "active"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ErrNotActive is returned by send-side operations before login completes.
var ErrNotActive = errors.New("client: not logged in")

// ErrNoSession is returned when a stored-session reconnect has nothing
// usable to resume from.
var ErrNoSession = errors.New("client: no stored session")

// Transport abstracts the physical connection so tests can drive the
// controller with scripted frames.
type Transport interface {
	Connect(ctx context.Context, endpoint string) error
	Frames() <-chan []byte
	Send(data []byte)
	Connected() bool
	Close()
}

// Client is one logical connection to the messaging service. Share it by
// reference; each consumer manages its own subscriptions.
type Client struct {
	id  string
	cfg *config.Config
	log zerolog.Logger

	transport Transport
	store     *store.Store
	typing    *store.TypingTracker
	creds     creds.Store
	uploader  upload.Uploader

	session sessionState
	events  events

	state atomic.Int32

	mu         sync.Mutex // guards generation across connect/close
	generation int
	closing    bool
}

// New wires a controller from explicit dependencies.
func New(cfg *config.Config, tr Transport, credStore creds.Store, uploader upload.Uploader, logger zerolog.Logger) *Client {
	c := &Client{
		id:        uuid.New().String(),
		cfg:       cfg,
		transport: tr,
		store:     store.NewStore(),
		creds:     credStore,
		uploader:  uploader,
	}
	c.log = logger.With().Str(log.FieldClientID, c.id).Logger()
	c.typing = store.NewTypingTracker(cfg.Typing.TTL, func(chatID, userID string) {
		c.events.userTyping.each(func(fn func(string, string)) { fn(chatID, userID) })
	})
	return c
}

// NewDefault wires a controller with the real websocket transport, a
// file credential store and the HTTP uploader.
func NewDefault(cfg *config.Config, credsPath string, logger zerolog.Logger) *Client {
	c := New(cfg, transport.NewSession(cfg.WebSocket, logger), creds.NewFileStore(credsPath), nil, logger)
	c.uploader = upload.NewHTTPUploader(cfg.Upload,
		func() (string, string) { return c.session.UserID(), c.session.Token() },
		func(fraction float64) {
			c.events.uploadProgress.each(func(fn func(float64)) { fn(fraction) })
		})
	return c
}

// State returns the current connection state.
func (c *Client) State() State { return State(c.state.Load()) }

func (c *Client) setState(s State) {
	c.state.Store(int32(s))
	c.log.Debug().Str(log.FieldState, s.String()).Msg("state changed")
}

// Store exposes the read side of the in-memory mirror.
func (c *Client) Store() *store.Store { return c.store }

// CurrentUserID returns the logged-in user id, empty before login.
func (c *Client) CurrentUserID() string { return c.session.UserID() }

// CurrentUsername returns the logged-in display name.
func (c *Client) CurrentUsername() string { return c.session.Username() }

// CurrentAvatarURL returns the logged-in user's avatar, already
// absolutised.
func (c *Client) CurrentAvatarURL() string { return c.session.AvatarURL() }

// PublicChatID returns the server-assigned id of the public lobby.
func (c *Client) PublicChatID() string { return c.session.PublicChatID() }

// ChatList derives the display rows for the logged-in user.
func (c *Client) ChatList() []store.ChatRow { return c.store.ChatList(c.session.UserID()) }

// TypingUsers returns who is currently typing in a chat.
func (c *Client) TypingUsers(chatID string) []string { return c.typing.Typing(chatID) }

// FullURL absolutises a server-relative path against the service origin.
func (c *Client) FullURL(path string) string {
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "http") {
		return path
	}
	return c.cfg.Server.Origin + path
}

// ConnectAndLogin opens a connection and authenticates with credentials.
// The outcome arrives as a login-succeeded or login-failed event.
func (c *Client) ConnectAndLogin(ctx context.Context, username, password string) error {
	return c.connectAndSend(ctx, protocol.Login(username, password))
}

// ConnectAndRegister opens a connection and registers a new account.
func (c *Client) ConnectAndRegister(ctx context.Context, username, password string) error {
	return c.connectAndSend(ctx, protocol.Register(username, password))
}

// Reconnect resumes a previous session from its token. On auth rejection
// the stored credentials are discarded, forcing an interactive login.
func (c *Client) Reconnect(ctx context.Context, userID, token string) error {
	if tokenExpired(token) {
		c.clearAuth()
		c.emitLog("Session expired, please log in again")
		c.events.loginFailed.each(func(fn func()) { fn() })
		return fmt.Errorf("client: stored token expired")
	}
	return c.connectAndSend(ctx, protocol.Reconnect(userID, token))
}

// ResumeSession reconnects from the credential store.
func (c *Client) ResumeSession(ctx context.Context) error {
	s, err := c.creds.Load()
	if err != nil {
		return err
	}
	if !s.Valid() {
		return ErrNoSession
	}
	return c.Reconnect(ctx, s.UserID, s.Token)
}

// Disconnect closes the connection without touching stored credentials.
// Safe to call when no connection is active.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.closing = true
	c.generation++
	c.mu.Unlock()

	c.transport.Close()
	c.typing.Stop()
	c.setState(StateDisconnected)
}

// Logout closes the connection and discards the session and stored
// credentials.
func (c *Client) Logout() {
	c.Disconnect()
	c.clearAuth()
}

func (c *Client) connectAndSend(ctx context.Context, cmd any) error {
	// Supersede any previous connection's receive loop before dialing.
	c.mu.Lock()
	c.generation++
	gen := c.generation
	c.closing = false
	c.mu.Unlock()

	c.setState(StateConnecting)
	c.emitLog("Connecting...")

	if err := c.transport.Connect(ctx, c.cfg.Server.Endpoint); err != nil {
		c.setState(StateFailed)
		c.emitLog(fmt.Sprintf("Connection failed: %v", err))
		c.events.loginFailed.each(func(fn func()) { fn() })
		c.setState(StateDisconnected)
		return err
	}

	frames := c.transport.Frames()
	c.setState(StateAuthenticating)
	go c.receiveLoop(gen, frames)

	data, err := protocol.Encode(cmd)
	if err != nil {
		return err
	}
	c.transport.Send(data)
	return nil
}

// receiveLoop consumes one connection's inbound stream. Each frame is
// decoded, applied to the store and fanned out to subscribers completely
// before the next frame is read; this total ordering is what makes the
// idempotent applies sufficient without store-wide locking.
func (c *Client) receiveLoop(gen int, frames <-chan []byte) {
	for frame := range frames {
		c.handleFrame(frame)
	}

	// Stream ended. Only the current connection's loop may report a
	// disconnect; superseded loops die silently.
	c.mu.Lock()
	current := gen == c.generation && !c.closing
	c.mu.Unlock()
	if !current {
		return
	}

	c.setState(StateDisconnected)
	c.emitLog("Disconnected")
	c.events.loginFailed.each(func(fn func()) { fn() })
}

func (c *Client) handleFrame(frame []byte) {
	env, err := protocol.Decode(frame)
	if err != nil {
		c.log.Debug().Err(err).Int(log.FieldFrameSize, len(frame)).Msg("dropped malformed frame")
		return
	}

	switch env.Type {
	case protocol.MsgTypeLoginSuccess:
		c.handleLoginSuccess(env)

	case protocol.MsgTypeAuthFailed, protocol.MsgTypeError:
		c.handleServerError(env)

	case protocol.MsgTypeUserListUpdate:
		c.store.ApplyRoster(env.Users, env.OnlineIDs())
		c.events.chatListUpdated.each(func(fn func()) { fn() })

	case protocol.MsgTypeChatHistory:
		c.store.ApplyHistory(env.Chats)
		c.events.chatListUpdated.each(func(fn func()) { fn() })

	case protocol.MsgTypeMessage:
		msg := env.AsMessage()
		c.typing.Clear(msg.ChatID, msg.SenderID)
		if !c.store.ApplyMessage(msg) {
			c.log.Debug().
				Str(log.FieldChatID, msg.ChatID).
				Str(log.FieldMessageID, msg.MessageID).
				Msg("message dropped (unknown chat or duplicate)")
			return
		}
		c.events.messageReceived.each(func(fn func(domain.Message)) { fn(msg) })
		c.events.chatListUpdated.each(func(fn func()) { fn() })

	case protocol.MsgTypeNewChatInfo:
		if env.Chat != nil {
			c.store.UpsertChat(*env.Chat)
			c.events.chatListUpdated.each(func(fn func()) { fn() })
		}

	case protocol.MsgTypeChannelInfo:
		if env.Channel != nil {
			c.store.UpsertChat(*env.Channel)
			c.events.chatListUpdated.each(func(fn func()) { fn() })
		}

	case protocol.MsgTypeMessageDeleted:
		c.store.ApplyDelete(env.ChatID, env.MessageID)
		c.events.messageDeleted.each(func(fn func(string, string)) { fn(env.ChatID, env.MessageID) })
		c.events.chatListUpdated.each(func(fn func()) { fn() })

	case protocol.MsgTypeMessageUpdated:
		if c.store.ApplyEdit(env.MessageID, env.NewContent) {
			c.events.messageUpdated.each(func(fn func(string)) { fn(env.MessageID) })
		}

	case protocol.MsgTypePresenceUpdate:
		online := env.IsOnline()
		c.store.ApplyPresence(env.UserID, online)
		c.events.presenceChanged.each(func(fn func(string, bool)) { fn(env.UserID, online) })
		c.events.chatListUpdated.each(func(fn func()) { fn() })

	case protocol.MsgTypeUserTyping:
		if env.UserID == c.session.UserID() {
			return
		}
		c.typing.Touch(env.ChatID, env.UserID)
		c.events.userTyping.each(func(fn func(string, string)) { fn(env.ChatID, env.UserID) })

	case protocol.MsgTypeMessageSeen:
		if c.store.ApplySeen(env.ChatID, env.MessageID, env.UserID) {
			c.events.messageSeen.each(func(fn func(string, string, string)) {
				fn(env.ChatID, env.MessageID, env.UserID)
			})
		}

	default:
		// Unknown event kinds are dropped for forward compatibility.
		c.log.Debug().Str(log.FieldFrameType, env.Type).Msg("dropped unrecognized frame type")
	}
}

func (c *Client) handleLoginSuccess(env *protocol.Envelope) {
	if env.User == nil {
		c.log.Warn().Msg("login_success without user, ignored")
		return
	}

	c.session.set(env.User.UserID, env.User.Username, c.FullURL(env.User.AvatarURL),
		env.Token, env.PublicChatID)

	if err := c.creds.Save(creds.Session{
		UserID:   env.User.UserID,
		Token:    env.Token,
		Username: env.User.Username,
	}); err != nil {
		c.log.Warn().Err(err).Msg("failed to persist session")
	}

	c.setState(StateActive)
	c.emitLog(fmt.Sprintf("Logged in as %s", env.User.Username))
	c.events.loginSuccess.each(func(fn func()) { fn() })
}

func (c *Client) handleServerError(env *protocol.Envelope) {
	c.emitLog(fmt.Sprintf("Error: %s", env.Message))

	authFlavoured := env.Type == protocol.MsgTypeAuthFailed ||
		strings.Contains(strings.ToLower(env.Message), "auth")
	if !authFlavoured {
		return
	}

	c.clearAuth()
	c.setState(StateDisconnected)
	c.events.loginFailed.each(func(fn func()) { fn() })
}

func (c *Client) clearAuth() {
	c.session.clear()
	if err := c.creds.Clear(); err != nil {
		c.log.Warn().Err(err).Msg("failed to clear stored session")
	}
}
