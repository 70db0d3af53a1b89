package client

import (
	"context"
	"fmt"

	"github.com/vellumchat/vellum-go/domain"
	"github.com/vellumchat/vellum-go/protocol"
	"github.com/vellumchat/vellum-go/upload"
)

// OutgoingMessage bundles everything a message send can carry beyond the
// chat id. Zero fields are simply omitted on the wire.
type OutgoingMessage struct {
	Text    string
	File    *domain.FileAttachment
	Theme   *protocol.Theme
	Forward *protocol.ForwardedInfo

	// ReplyToID references an earlier message in the same chat.
	ReplyToID string

	// RecipientID must be set on the first message of a DM that does not
	// exist yet; the server creates the chat from it.
	RecipientID string
}

// SendMessage sends into a chat. Channels reject non-owner sends locally
// before anything touches the wire.
func (c *Client) SendMessage(chatID string, out OutgoingMessage) error {
	if c.State() != StateActive {
		return ErrNotActive
	}
	if chat, ok := c.store.Chat(chatID); ok && !chat.CanPost(c.session.UserID()) {
		return fmt.Errorf("client: chat %s is read-only", chatID)
	}

	cmd := protocol.NewMessage(chatID, protocol.MessageContent{
		Text:          out.Text,
		File:          out.File,
		Theme:         out.Theme,
		ForwardedInfo: out.Forward,
	})
	cmd.ReplyToID = out.ReplyToID
	cmd.RecipientID = out.RecipientID
	return c.send(cmd)
}

// SendText sends a plain text message.
func (c *Client) SendText(chatID, text string) error {
	return c.SendMessage(chatID, OutgoingMessage{Text: text})
}

// EditMessage replaces a message's content.
func (c *Client) EditMessage(chatID, messageID string, newContent protocol.MessageContent) error {
	if c.State() != StateActive {
		return ErrNotActive
	}
	return c.send(protocol.EditMessage(chatID, messageID, newContent))
}

// DeleteMessage deletes a message; the removal lands via the
// message_deleted event.
func (c *Client) DeleteMessage(chatID, messageID string) error {
	if c.State() != StateActive {
		return ErrNotActive
	}
	return c.send(protocol.DeleteMessage(chatID, messageID))
}

// PinMessage pins a message in a chat.
func (c *Client) PinMessage(chatID, messageID string) error {
	if c.State() != StateActive {
		return ErrNotActive
	}
	return c.send(protocol.PinMessage(chatID, messageID))
}

// UnpinMessage clears a chat's pin.
func (c *Client) UnpinMessage(chatID string) error {
	if c.State() != StateActive {
		return ErrNotActive
	}
	return c.send(protocol.UnpinMessage(chatID))
}

// JoinChannel joins a channel by id.
func (c *Client) JoinChannel(chatID string) error {
	if c.State() != StateActive {
		return ErrNotActive
	}
	return c.send(protocol.JoinChannel(chatID))
}

// GetChannelByHandle asks the server for a channel's info; the answer
// arrives as a channel_info event.
func (c *Client) GetChannelByHandle(handle string) error {
	if c.State() != StateActive {
		return ErrNotActive
	}
	return c.send(protocol.GetChannelByHandle(handle))
}

// UpdateUsername renames the current user, optimistically updating the
// local session the way the server will.
func (c *Client) UpdateUsername(username string) error {
	if c.State() != StateActive {
		return ErrNotActive
	}
	if err := c.send(protocol.UpdateUsername(username)); err != nil {
		return err
	}
	c.session.setUsername(username)
	return nil
}

// SendTyping pings the server that the current user is typing in a chat.
func (c *Client) SendTyping(chatID string) error {
	if c.State() != StateActive {
		return ErrNotActive
	}
	return c.send(protocol.Typing(chatID))
}

// MarkSeen acknowledges a message; the seen set grows when the server
// echoes a message_seen event back.
func (c *Client) MarkSeen(chatID, messageID string) error {
	if c.State() != StateActive {
		return ErrNotActive
	}
	return c.send(protocol.MarkSeen(chatID, messageID))
}

// UploadFile uploads an attachment and returns its descriptor for use in
// a subsequent SendMessage. A failed upload returns an error and nothing
// must reference it.
func (c *Client) UploadFile(ctx context.Context, data []byte, contentType, filename string) (*domain.FileAttachment, error) {
	if c.uploader == nil {
		return nil, fmt.Errorf("client: no uploader configured")
	}
	att, err := c.uploader.Upload(ctx, data, contentType, filename, upload.EndpointFile)
	if err != nil {
		c.emitLog(fmt.Sprintf("Upload failed: %v", err))
		return nil, err
	}
	return att, nil
}

// UploadAvatar uploads the current user's avatar and updates the local
// session with its resolved URL.
func (c *Client) UploadAvatar(ctx context.Context, data []byte, contentType string) (*domain.FileAttachment, error) {
	if c.uploader == nil {
		return nil, fmt.Errorf("client: no uploader configured")
	}
	att, err := c.uploader.Upload(ctx, data, contentType, "avatar", upload.EndpointAvatar)
	if err != nil {
		c.emitLog(fmt.Sprintf("Upload failed: %v", err))
		return nil, err
	}
	c.session.setAvatarURL(c.FullURL(att.URL))
	return att, nil
}

// CreateChannel creates a channel, uploading its avatar first when one
// is supplied. The upload failing aborts the whole operation.
func (c *Client) CreateChannel(ctx context.Context, name, handle string, avatar []byte, avatarType string) error {
	if c.State() != StateActive {
		return ErrNotActive
	}

	avatarURL := ""
	if len(avatar) > 0 {
		if c.uploader == nil {
			return fmt.Errorf("client: no uploader configured")
		}
		att, err := c.uploader.Upload(ctx, avatar, avatarType, handle, upload.EndpointFile)
		if err != nil {
			c.emitLog(fmt.Sprintf("Upload failed: %v", err))
			return err
		}
		avatarURL = att.URL
	}

	return c.send(protocol.CreateChannel(name, handle, avatarURL))
}

func (c *Client) send(cmd any) error {
	data, err := protocol.Encode(cmd)
	if err != nil {
		return err
	}
	c.transport.Send(data)
	return nil
}
