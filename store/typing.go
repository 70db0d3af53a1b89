package store

import (
	"sync"
	"time"
)

// TypingTracker keeps per-chat sets of users currently typing. Entries
// expire after a quiet interval unless refreshed. Expiry timers fire on
// their own goroutines, so every mutation funnels through one mutex.
type TypingTracker struct {
	ttl      time.Duration
	onExpire func(chatID, userID string)

	mu     sync.Mutex
	timers map[string]map[string]*time.Timer // chatID -> userID -> timer
}

// NewTypingTracker creates a tracker. onExpire is invoked (outside the
// tracker lock) whenever an entry ages out; it may be nil.
func NewTypingTracker(ttl time.Duration, onExpire func(chatID, userID string)) *TypingTracker {
	return &TypingTracker{
		ttl:      ttl,
		onExpire: onExpire,
		timers:   make(map[string]map[string]*time.Timer),
	}
}

// Touch flags userID as typing in chatID, refreshing the expiry if the
// flag was already up. It reports whether the entry is new.
func (t *TypingTracker) Touch(chatID, userID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	perChat, ok := t.timers[chatID]
	if !ok {
		perChat = make(map[string]*time.Timer)
		t.timers[chatID] = perChat
	}
	if timer, ok := perChat[userID]; ok {
		timer.Reset(t.ttl)
		return false
	}
	perChat[userID] = time.AfterFunc(t.ttl, func() {
		t.expire(chatID, userID)
	})
	return true
}

// Typing returns the users currently flagged as typing in chatID.
func (t *TypingTracker) Typing(chatID string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	perChat := t.timers[chatID]
	if len(perChat) == 0 {
		return nil
	}
	ids := make([]string, 0, len(perChat))
	for id := range perChat {
		ids = append(ids, id)
	}
	return ids
}

// Clear drops userID's flag immediately, e.g. when their message arrives.
func (t *TypingTracker) Clear(chatID, userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.remove(chatID, userID)
}

// Stop cancels all timers and drops every flag, without firing expiry
// callbacks. The tracker stays usable, e.g. across a reconnect.
func (t *TypingTracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for chatID, perChat := range t.timers {
		for userID, timer := range perChat {
			timer.Stop()
			delete(perChat, userID)
		}
		delete(t.timers, chatID)
	}
}

func (t *TypingTracker) expire(chatID, userID string) {
	t.mu.Lock()
	removed := t.remove(chatID, userID)
	t.mu.Unlock()

	if removed && t.onExpire != nil {
		t.onExpire(chatID, userID)
	}
}

func (t *TypingTracker) remove(chatID, userID string) bool {
	perChat, ok := t.timers[chatID]
	if !ok {
		return false
	}
	timer, ok := perChat[userID]
	if !ok {
		return false
	}
	timer.Stop()
	delete(perChat, userID)
	if len(perChat) == 0 {
		delete(t.timers, chatID)
	}
	return true
}
