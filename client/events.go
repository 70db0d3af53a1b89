package client

import (
	"sync"

	"github.com/vellumchat/vellum-go/domain"
)

// registry is an ordered list of subscriber callbacks for one event kind.
// Handlers run synchronously on the receive loop, in subscription order;
// unsubscribing is explicit removal.
type registry[T any] struct {
	mu       sync.Mutex
	nextID   int
	handlers []handlerEntry[T]
}

type handlerEntry[T any] struct {
	id int
	fn T
}

// add registers fn and returns its unsubscribe func. The unsubscribe is
// idempotent and safe to call from any goroutine, so a consumer can tie
// it to its own lifecycle without leaking handlers.
func (r *registry[T]) add(fn T) func() {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextID
	r.nextID++
	r.handlers = append(r.handlers, handlerEntry[T]{id: id, fn: fn})

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		for i, h := range r.handlers {
			if h.id == id {
				r.handlers = append(r.handlers[:i], r.handlers[i+1:]...)
				return
			}
		}
	}
}

// each invokes call for every handler, against a snapshot so a handler
// may unsubscribe itself.
func (r *registry[T]) each(call func(T)) {
	r.mu.Lock()
	snapshot := make([]handlerEntry[T], len(r.handlers))
	copy(snapshot, r.handlers)
	r.mu.Unlock()

	for _, h := range snapshot {
		call(h.fn)
	}
}

// events groups the client's subscriber registries.
type events struct {
	logLine         registry[func(string)]
	loginSuccess    registry[func()]
	loginFailed     registry[func()]
	chatListUpdated registry[func()]
	messageReceived registry[func(domain.Message)]
	messageDeleted  registry[func(chatID, messageID string)]
	messageUpdated  registry[func(messageID string)]
	uploadProgress  registry[func(fraction float64)]
	userTyping      registry[func(chatID, userID string)]
	messageSeen     registry[func(chatID, messageID, userID string)]
	presenceChanged registry[func(userID string, online bool)]
}

// OnLog subscribes to human-readable status text (connection progress,
// server-reported errors).
func (c *Client) OnLog(fn func(string)) func() { return c.events.logLine.add(fn) }

// OnLoginSuccess fires once a login, registration or reconnect reaches
// the active state.
func (c *Client) OnLoginSuccess(fn func()) func() { return c.events.loginSuccess.add(fn) }

// OnLoginFailed fires on auth rejection, connection failure or an
// unexpected close.
func (c *Client) OnLoginFailed(fn func()) func() { return c.events.loginFailed.add(fn) }

// OnChatListUpdated fires whenever the derived chat list may have
// changed (roster, history, new message, presence).
func (c *Client) OnChatListUpdated(fn func()) func() { return c.events.chatListUpdated.add(fn) }

// OnMessageReceived fires for each new message applied to the store.
func (c *Client) OnMessageReceived(fn func(domain.Message)) func() {
	return c.events.messageReceived.add(fn)
}

// OnMessageDeleted fires when the server deletes a message.
func (c *Client) OnMessageDeleted(fn func(chatID, messageID string)) func() {
	return c.events.messageDeleted.add(fn)
}

// OnMessageUpdated fires when a message's content is edited in place.
func (c *Client) OnMessageUpdated(fn func(messageID string)) func() {
	return c.events.messageUpdated.add(fn)
}

// OnUploadProgress reports coarse upload progress in [0,1].
func (c *Client) OnUploadProgress(fn func(float64)) func() {
	return c.events.uploadProgress.add(fn)
}

// OnUserTyping fires when a user's typing flag goes up or expires; read
// TypingUsers for the current set.
func (c *Client) OnUserTyping(fn func(chatID, userID string)) func() {
	return c.events.userTyping.add(fn)
}

// OnMessageSeen fires when a seen set actually grows.
func (c *Client) OnMessageSeen(fn func(chatID, messageID, userID string)) func() {
	return c.events.messageSeen.add(fn)
}

// OnPresenceChanged fires on single-user online/offline transitions.
func (c *Client) OnPresenceChanged(fn func(userID string, online bool)) func() {
	return c.events.presenceChanged.add(fn)
}

func (c *Client) emitLog(line string) {
	c.events.logLine.each(func(fn func(string)) { fn(line) })
}
