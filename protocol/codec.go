package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMissingType marks an inbound frame without a type discriminator.
// The dispatcher drops such frames instead of failing the stream.
var ErrMissingType = errors.New("protocol: frame has no type")

// Encode serialises an outbound command to its wire frame.
func Encode(cmd any) ([]byte, error) {
	data, err := json.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("protocol: encode: %w", err)
	}
	return data, nil
}

// Decode parses an inbound frame into an Envelope. Structural failures
// and missing type tags come back as errors; recognising the type is the
// dispatcher's job so that unknown event kinds stay forward-compatible.
func Decode(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("protocol: decode: %w", err)
	}
	if env.Type == "" {
		return nil, ErrMissingType
	}
	return &env, nil
}

// Command constructors fill in the type tag so a caller cannot send an
// untagged frame.

func Login(username, password string) *LoginCommand {
	return &LoginCommand{Type: MsgTypeLoginWithPassword, Username: username, Password: password}
}

func Register(username, password string) *LoginCommand {
	return &LoginCommand{Type: MsgTypeRegister, Username: username, Password: password}
}

func Reconnect(userID, token string) *ReconnectCommand {
	return &ReconnectCommand{Type: MsgTypeReconnect, UserID: userID, Token: token}
}

func NewMessage(chatID string, content MessageContent) *MessageCommand {
	return &MessageCommand{Type: MsgTypeMessage, ChatID: chatID, Content: content}
}

func EditMessage(chatID, messageID string, newContent MessageContent) *EditMessageCommand {
	return &EditMessageCommand{Type: MsgTypeEditMessage, ChatID: chatID, MessageID: messageID, NewContent: newContent}
}

func DeleteMessage(chatID, messageID string) *DeleteMessageCommand {
	return &DeleteMessageCommand{Type: MsgTypeDeleteMessage, ChatID: chatID, MessageID: messageID}
}

func UpdateUsername(username string) *UpdateUsernameCommand {
	return &UpdateUsernameCommand{Type: MsgTypeUpdateUsername, Username: username}
}

func GetChannelByHandle(handle string) *GetChannelByHandleCommand {
	return &GetChannelByHandleCommand{Type: MsgTypeGetChannelByHandle, Handle: handle}
}

func PinMessage(chatID, messageID string) *PinMessageCommand {
	return &PinMessageCommand{Type: MsgTypePinMessage, ChatID: chatID, MessageID: messageID}
}

func UnpinMessage(chatID string) *UnpinMessageCommand {
	return &UnpinMessageCommand{Type: MsgTypeUnpinMessage, ChatID: chatID}
}

func JoinChannel(chatID string) *JoinChannelCommand {
	return &JoinChannelCommand{Type: MsgTypeJoinChannel, ChatID: chatID}
}

func CreateChannel(name, handle, avatarURL string) *CreateChannelCommand {
	return &CreateChannelCommand{Type: MsgTypeCreateChannel, Name: name, Handle: handle, AvatarURL: avatarURL}
}

func Typing(chatID string) *TypingCommand {
	return &TypingCommand{Type: MsgTypeTyping, ChatID: chatID}
}

func MarkSeen(chatID, messageID string) *MarkSeenCommand {
	return &MarkSeenCommand{Type: MsgTypeMarkSeen, ChatID: chatID, MessageID: messageID}
}
