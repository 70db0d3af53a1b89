// Package store holds the client's in-memory mirror of users, chats and
// messages. All writes arrive through the Apply methods, which are
// idempotent: replays after a reconnect or a racing history load leave
// the mirror unchanged.
package store

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/vellumchat/vellum-go/domain"
)

type Store struct {
	mu    sync.RWMutex
	users map[string]*domain.User
	chats map[string]*domain.Chat
}

func NewStore() *Store {
	return &Store{
		users: make(map[string]*domain.User),
		chats: make(map[string]*domain.Chat),
	}
}

// ApplyRoster upserts every user in the snapshot and sets online flags
// from membership in the online id set. Users absent from the snapshot
// are left untouched.
func (s *Store) ApplyRoster(users []domain.User, online []string) {
	onlineSet := make(map[string]struct{}, len(online))
	for _, id := range online {
		onlineSet[id] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range users {
		if u.UserID == "" {
			continue
		}
		existing, ok := s.users[u.UserID]
		if !ok {
			existing = &domain.User{UserID: u.UserID}
			s.users[u.UserID] = existing
		}
		existing.Username = u.Username
		if u.AvatarURL != "" {
			existing.AvatarURL = u.AvatarURL
		}
		_, existing.IsOnline = onlineSet[u.UserID]
	}
}

// ApplyHistory replaces the chat collection wholesale with the server
// snapshot and derives each chat's last-message timestamp.
func (s *Store) ApplyHistory(chats []domain.Chat) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.chats = make(map[string]*domain.Chat, len(chats))
	for i := range chats {
		c := chats[i]
		if last := c.LastMessage(); last != nil {
			c.LastMessageTimestamp = last.Timestamp
		}
		s.chats[c.ChatID] = &c
	}
}

// UpsertChat adds or overwrites a single chat, keeping any messages the
// mirror already holds if the incoming record carries none.
func (s *Store) UpsertChat(chat domain.Chat) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.chats[chat.ChatID]; ok && len(chat.Messages) == 0 {
		chat.Messages = existing.Messages
		chat.LastMessageTimestamp = existing.LastMessageTimestamp
	}
	if last := chat.LastMessage(); last != nil && chat.LastMessageTimestamp < last.Timestamp {
		chat.LastMessageTimestamp = last.Timestamp
	}
	s.chats[chat.ChatID] = &chat
}

// ApplyMessage appends a message to its chat. It reports false when the
// chat is unknown (the roster/channel-info events are responsible for
// creating chats) or when the message id is already present, which makes
// redelivery after a reconnect a no-op.
func (s *Store) ApplyMessage(msg domain.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	chat, ok := s.chats[msg.ChatID]
	if !ok {
		return false
	}
	if chat.HasMessage(msg.MessageID) {
		return false
	}
	chat.Messages = append(chat.Messages, msg)
	if msg.Timestamp > chat.LastMessageTimestamp {
		chat.LastMessageTimestamp = msg.Timestamp
	}
	return true
}

// ApplyDelete removes every message matching the id from the chat.
// Deleting a missing message is a no-op. Deletion is not sticky: a later
// message event with the same id is accepted again.
func (s *Store) ApplyDelete(chatID, messageID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	chat, ok := s.chats[chatID]
	if !ok {
		return false
	}
	kept := chat.Messages[:0]
	removed := false
	for _, m := range chat.Messages {
		if m.MessageID == messageID {
			removed = true
			continue
		}
		kept = append(kept, m)
	}
	chat.Messages = kept
	return removed
}

// ApplyEdit replaces the content of the matching message in place.
// Timestamps and chat ordering deliberately stay as they were: an edit
// is not new activity. The edit event does not carry a chat id, so all
// chats are searched.
func (s *Store) ApplyEdit(messageID string, newContent json.RawMessage) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, chat := range s.chats {
		for i := range chat.Messages {
			if chat.Messages[i].MessageID == messageID {
				chat.Messages[i].Content = newContent
				return true
			}
		}
	}
	return false
}

// ApplySeen adds userID to the message's seen set. It reports true only
// when the set actually grew, so callers can skip redundant change
// notifications. The set never shrinks.
func (s *Store) ApplySeen(chatID, messageID, userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	chat, ok := s.chats[chatID]
	if !ok {
		return false
	}
	for i := range chat.Messages {
		if chat.Messages[i].MessageID != messageID {
			continue
		}
		if chat.Messages[i].SeenByContains(userID) {
			return false
		}
		chat.Messages[i].SeenBy = append(chat.Messages[i].SeenBy, userID)
		return true
	}
	return false
}

// ApplyPresence flips a single user's online flag. Unknown users get a
// minimal record so a presence event arriving before the roster snapshot
// is not lost.
func (s *Store) ApplyPresence(userID string, online bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		u = &domain.User{UserID: userID}
		s.users[userID] = u
	}
	u.IsOnline = online
}

// User returns a copy of the user record.
func (s *Store) User(userID string) (domain.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[userID]
	if !ok {
		return domain.User{}, false
	}
	return *u, true
}

// Username resolves a user id to a display name, falling back to the id
// itself for users the roster has not delivered yet.
func (s *Store) Username(userID string) string {
	if u, ok := s.User(userID); ok && u.Username != "" {
		return u.Username
	}
	return userID
}

// Chat returns a copy of the chat with its message sequence copied, safe
// to hand to another goroutine.
func (s *Store) Chat(chatID string) (domain.Chat, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chat, ok := s.chats[chatID]
	if !ok {
		return domain.Chat{}, false
	}
	out := *chat
	out.Messages = make([]domain.Message, len(chat.Messages))
	copy(out.Messages, chat.Messages)
	return out, true
}

// FindChannelByHandle returns the channel whose name matches the handle,
// ignoring case.
func (s *Store) FindChannelByHandle(handle string) (domain.Chat, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, chat := range s.chats {
		if chat.ChatType == domain.ChatTypeChannel && strings.EqualFold(chat.ChatName, handle) {
			out := *chat
			out.Messages = append([]domain.Message(nil), chat.Messages...)
			return out, true
		}
	}
	return domain.Chat{}, false
}

// Message looks up a single message.
func (s *Store) Message(chatID, messageID string) (domain.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chat, ok := s.chats[chatID]
	if !ok {
		return domain.Message{}, false
	}
	for i := range chat.Messages {
		if chat.Messages[i].MessageID == messageID {
			return chat.Messages[i], true
		}
	}
	return domain.Message{}, false
}
