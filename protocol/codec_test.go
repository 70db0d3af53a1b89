package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vellumchat/vellum-go/domain"
)

func TestEncodeLogin(t *testing.T) {
	data, err := Encode(Login("alice", "x"))
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, "login_with_password", m["type"])
	assert.Equal(t, "alice", m["username"])
	assert.Equal(t, "x", m["password"])
}

func TestEncodeMessageOmitsEmptyOptionals(t *testing.T) {
	data, err := Encode(NewMessage("c1", MessageContent{Text: "hi"}))
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	assert.NotContains(t, m, "replyToId")
	assert.NotContains(t, m, "recipientId")

	c := m["content"].(map[string]any)
	assert.Equal(t, "hi", c["text"])
	assert.NotContains(t, c, "file")
	assert.NotContains(t, c, "theme")
	assert.NotContains(t, c, "forwardedInfo")
}

func TestEncodeMessageWithFileAndReply(t *testing.T) {
	cmd := NewMessage("c1", MessageContent{
		Text: "caption",
		File: &domain.FileAttachment{URL: "/f/a.png", Name: "a.png", Type: "image/png"},
	})
	cmd.ReplyToID = "m7"
	cmd.RecipientID = "u2"

	data, err := Encode(cmd)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, "m7", m["replyToId"])
	assert.Equal(t, "u2", m["recipientId"])
	file := m["content"].(map[string]any)["file"].(map[string]any)
	assert.Equal(t, "/f/a.png", file["url"])
}

func TestEncodeCommandTags(t *testing.T) {
	cases := []struct {
		cmd  any
		want string
	}{
		{Register("a", "b"), MsgTypeRegister},
		{Reconnect("u1", "tok"), MsgTypeReconnect},
		{EditMessage("c1", "m1", MessageContent{Text: "fixed"}), MsgTypeEditMessage},
		{DeleteMessage("c1", "m1"), MsgTypeDeleteMessage},
		{UpdateUsername("neo"), MsgTypeUpdateUsername},
		{GetChannelByHandle("news"), MsgTypeGetChannelByHandle},
		{PinMessage("c1", "m1"), MsgTypePinMessage},
		{UnpinMessage("c1"), MsgTypeUnpinMessage},
		{JoinChannel("c2"), MsgTypeJoinChannel},
		{CreateChannel("News", "news", ""), MsgTypeCreateChannel},
		{Typing("c1"), MsgTypeTyping},
		{MarkSeen("c1", "m1"), MsgTypeMarkSeen},
	}
	for _, tc := range cases {
		data, err := Encode(tc.cmd)
		require.NoError(t, err)
		var m map[string]any
		require.NoError(t, json.Unmarshal(data, &m))
		assert.Equal(t, tc.want, m["type"])
	}
}

func TestDecodeLoginSuccess(t *testing.T) {
	env, err := Decode([]byte(`{
		"type":"login_success",
		"user":{"userId":"u1","username":"alice"},
		"token":"tok1",
		"publicChatId":"pub"
	}`))
	require.NoError(t, err)
	assert.Equal(t, MsgTypeLoginSuccess, env.Type)
	require.NotNil(t, env.User)
	assert.Equal(t, "u1", env.User.UserID)
	assert.Equal(t, "tok1", env.Token)
	assert.Equal(t, "pub", env.PublicChatID)
}

func TestDecodeMissingType(t *testing.T) {
	_, err := Decode([]byte(`{"user":{"userId":"u1"}}`))
	assert.ErrorIs(t, err, ErrMissingType)
}

func TestDecodeMalformed(t *testing.T) {
	_, err := Decode([]byte(`{"type":`))
	assert.Error(t, err)
}

func TestDecodeOnlineOverload(t *testing.T) {
	roster, err := Decode([]byte(`{"type":"user_list_update","users":[{"userId":"u2","username":"bob"}],"online":["u2"]}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"u2"}, roster.OnlineIDs())

	presence, err := Decode([]byte(`{"type":"presence_update","userId":"u2","online":true}`))
	require.NoError(t, err)
	assert.True(t, presence.IsOnline())
	assert.Nil(t, presence.OnlineIDs())
}

func TestAsMessage(t *testing.T) {
	env, err := Decode([]byte(`{
		"type":"message","messageId":"m1","chatId":"c1","senderId":"u2",
		"timestamp":1700000001,"content":{"text":"hi"},"replyToId":"m0"
	}`))
	require.NoError(t, err)

	msg := env.AsMessage()
	assert.Equal(t, "m1", msg.MessageID)
	assert.Equal(t, "c1", msg.ChatID)
	assert.Equal(t, "u2", msg.SenderID)
	assert.Equal(t, int64(1700000001), msg.Timestamp)
	assert.Equal(t, "m0", msg.ReplyToID)
	assert.JSONEq(t, `{"text":"hi"}`, string(msg.Content))
}
