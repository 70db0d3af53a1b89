package domain

import (
	"encoding/json"
	"sort"
	"strings"
)

// Chat types.
const (
	ChatTypePrivate = "private"
	ChatTypeChannel = "channel"
	ChatTypePublic  = "public"
)

// User is a roster entry. Users are only ever upserted, never removed;
// a stale entry is superseded by the next roster snapshot.
type User struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	// AvatarURL is usually server-relative; resolve it through the
	// client's FullURL before fetching.
	AvatarURL string `json:"avatarUrl,omitempty"`
	IsOnline  bool   `json:"-"`
}

// FileAttachment describes an uploaded file as the server reports it.
type FileAttachment struct {
	URL  string `json:"url"`
	Name string `json:"name"`
	Type string `json:"type"`
	Size int64  `json:"size,omitempty"`
}

// Message is a single chat message. Content stays raw until resolved by
// the content package so that edits are always reflected.
type Message struct {
	MessageID string          `json:"messageId"`
	ChatID    string          `json:"chatId"`
	SenderID  string          `json:"senderId"`
	Timestamp int64           `json:"timestamp"`
	Content   json.RawMessage `json:"content,omitempty"`
	ReplyToID string          `json:"replyToId,omitempty"`
	SeenBy    []string        `json:"seenBy,omitempty"`
}

// SeenByContains reports whether userID already acknowledged the message.
func (m *Message) SeenByContains(userID string) bool {
	for _, id := range m.SeenBy {
		if id == userID {
			return true
		}
	}
	return false
}

// Chat is one conversation: a DM, a channel, or the public lobby.
type Chat struct {
	ChatID    string    `json:"chatId"`
	ChatName  string    `json:"chatName,omitempty"`
	ChatType  string    `json:"chatType,omitempty"`
	Members   []string  `json:"members,omitempty"`
	OwnerID   string    `json:"ownerId,omitempty"`
	AvatarURL string    `json:"avatarUrl,omitempty"`
	Messages  []Message `json:"messages,omitempty"`

	// LastMessageTimestamp is derived, not wire data.
	LastMessageTimestamp int64 `json:"-"`
}

// LastMessage returns the newest message by arrival order, or nil.
func (c *Chat) LastMessage() *Message {
	if len(c.Messages) == 0 {
		return nil
	}
	return &c.Messages[len(c.Messages)-1]
}

// HasMessage reports whether a message with the given id is present.
func (c *Chat) HasMessage(messageID string) bool {
	for i := range c.Messages {
		if c.Messages[i].MessageID == messageID {
			return true
		}
	}
	return false
}

// OtherMember returns the member that is not selfID. Only meaningful for
// private chats.
func (c *Chat) OtherMember(selfID string) string {
	for _, m := range c.Members {
		if m != selfID {
			return m
		}
	}
	return ""
}

// HasMember reports whether userID is in the member set.
func (c *Chat) HasMember(userID string) bool {
	for _, m := range c.Members {
		if m == userID {
			return true
		}
	}
	return false
}

// CanPost reports whether userID may send into this chat. Channels are
// broadcast-only for everyone but the owner.
func (c *Chat) CanPost(userID string) bool {
	if c.ChatType == ChatTypeChannel {
		return c.OwnerID == userID
	}
	return true
}

// DirectChatID computes the canonical id of a two-party chat: the two
// user ids sorted lexicographically and joined with an underscore, so
// both sides derive the same id no matter who starts the conversation.
func DirectChatID(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	return strings.Join(ids, "_")
}
