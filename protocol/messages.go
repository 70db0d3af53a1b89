package protocol

import (
	"encoding/json"

	"github.com/vellumchat/vellum-go/domain"
)

// Client -> server frame types.
const (
	MsgTypeLoginWithPassword  = "login_with_password"
	MsgTypeRegister           = "register"
	MsgTypeReconnect          = "reconnect"
	MsgTypeMessage            = "message"
	MsgTypeEditMessage        = "edit_message"
	MsgTypeDeleteMessage      = "delete_message"
	MsgTypeUpdateUsername     = "update_username"
	MsgTypeGetChannelByHandle = "get_channel_by_handle"
	MsgTypePinMessage         = "pin_message"
	MsgTypeUnpinMessage       = "unpin_message"
	MsgTypeJoinChannel        = "join_channel"
	MsgTypeCreateChannel      = "create_channel"
	MsgTypeTyping             = "typing"
	MsgTypeMarkSeen           = "mark_seen"
)

// Server -> client frame types.
const (
	MsgTypeLoginSuccess   = "login_success"
	MsgTypeAuthFailed     = "auth_failed"
	MsgTypeError          = "error"
	MsgTypeUserListUpdate = "user_list_update"
	MsgTypeChatHistory    = "chat_history"
	MsgTypeNewChatInfo    = "new_chat_info"
	MsgTypeChannelInfo    = "channel_info"
	MsgTypeMessageDeleted = "message_deleted"
	MsgTypeMessageUpdated = "message_updated"
	MsgTypePresenceUpdate = "presence_update"
	MsgTypeUserTyping     = "typing"
	MsgTypeMessageSeen    = "message_seen"
)

// Theme marks a message that switches the conversation theme.
type Theme struct {
	Name string `json:"name"`
}

// ForwardedInfo records where a forwarded message came from.
type ForwardedInfo struct {
	From       string `json:"from"`
	OriginalTs int64  `json:"originalTs,omitempty"`
}

// MessageContent is the structured content payload of an outbound message.
type MessageContent struct {
	Text          string                 `json:"text"`
	File          *domain.FileAttachment `json:"file,omitempty"`
	Theme         *Theme                 `json:"theme,omitempty"`
	ForwardedInfo *ForwardedInfo         `json:"forwardedInfo,omitempty"`
}

// Client -> server commands. Every command carries its own type tag so a
// frame is self-describing on the wire.

type LoginCommand struct {
	Type     string `json:"type"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type ReconnectCommand struct {
	Type   string `json:"type"`
	UserID string `json:"userId"`
	Token  string `json:"token"`
}

type MessageCommand struct {
	Type    string         `json:"type"`
	ChatID  string         `json:"chatId"`
	Content MessageContent `json:"content"`
	// ReplyToID references another message in the same chat.
	ReplyToID string `json:"replyToId,omitempty"`
	// RecipientID is set on the first message of a fresh DM; the server
	// creates the chat from it.
	RecipientID string `json:"recipientId,omitempty"`
}

type EditMessageCommand struct {
	Type       string         `json:"type"`
	ChatID     string         `json:"chatId"`
	MessageID  string         `json:"messageId"`
	NewContent MessageContent `json:"newContent"`
}

type DeleteMessageCommand struct {
	Type      string `json:"type"`
	ChatID    string `json:"chatId"`
	MessageID string `json:"messageId"`
}

type UpdateUsernameCommand struct {
	Type     string `json:"type"`
	Username string `json:"username"`
}

type GetChannelByHandleCommand struct {
	Type   string `json:"type"`
	Handle string `json:"handle"`
}

type PinMessageCommand struct {
	Type      string `json:"type"`
	ChatID    string `json:"chatId"`
	MessageID string `json:"messageId"`
}

type UnpinMessageCommand struct {
	Type   string `json:"type"`
	ChatID string `json:"chatId"`
}

type JoinChannelCommand struct {
	Type   string `json:"type"`
	ChatID string `json:"chatId"`
}

type CreateChannelCommand struct {
	Type      string `json:"type"`
	Name      string `json:"name"`
	Handle    string `json:"handle"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

type TypingCommand struct {
	Type   string `json:"type"`
	ChatID string `json:"chatId"`
}

type MarkSeenCommand struct {
	Type      string `json:"type"`
	ChatID    string `json:"chatId"`
	MessageID string `json:"messageId"`
}

// Envelope is the inbound frame: one flat superset of every server event,
// keyed by Type. Fields not used by a given type stay zero.
type Envelope struct {
	Type string `json:"type"`

	// login_success
	User         *domain.User `json:"user,omitempty"`
	Token        string       `json:"token,omitempty"`
	PublicChatID string       `json:"publicChatId,omitempty"`

	// auth_failed / error
	Message string `json:"message,omitempty"`

	// user_list_update / presence_update. The wire key "online" is an id
	// list on roster snapshots and a bool on single-user transitions, so
	// it stays raw here; use OnlineIDs or IsOnline.
	Users  []domain.User   `json:"users,omitempty"`
	Online json.RawMessage `json:"online,omitempty"`

	// chat_history
	Chats []domain.Chat `json:"chats,omitempty"`

	// new_chat_info / channel_info
	Chat    *domain.Chat `json:"chat,omitempty"`
	Channel *domain.Chat `json:"channel,omitempty"`

	// message / message_deleted / message_seen / typing
	MessageID string          `json:"messageId,omitempty"`
	ChatID    string          `json:"chatId,omitempty"`
	SenderID  string          `json:"senderId,omitempty"`
	Content   json.RawMessage `json:"content,omitempty"`
	Timestamp int64           `json:"timestamp,omitempty"`
	ReplyToID string          `json:"replyToId,omitempty"`

	// message_updated
	NewContent json.RawMessage `json:"newContent,omitempty"`

	// presence_update / typing / message_seen
	UserID string `json:"userId,omitempty"`
}

// OnlineIDs decodes the "online" field of a roster snapshot.
func (e *Envelope) OnlineIDs() []string {
	if len(e.Online) == 0 {
		return nil
	}
	var ids []string
	if err := json.Unmarshal(e.Online, &ids); err != nil {
		return nil
	}
	return ids
}

// IsOnline decodes the "online" field of a presence transition.
func (e *Envelope) IsOnline() bool {
	var online bool
	if err := json.Unmarshal(e.Online, &online); err != nil {
		return false
	}
	return online
}

// AsMessage converts a "message" envelope into the domain model.
func (e *Envelope) AsMessage() domain.Message {
	return domain.Message{
		MessageID: e.MessageID,
		ChatID:    e.ChatID,
		SenderID:  e.SenderID,
		Timestamp: e.Timestamp,
		Content:   e.Content,
		ReplyToID: e.ReplyToID,
	}
}
