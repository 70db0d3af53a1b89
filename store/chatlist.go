package store

import (
	"sort"

	"github.com/vellumchat/vellum-go/domain"
)

// ChatRow is one entry of the derived chat-list projection.
type ChatRow struct {
	ChatID      string
	DisplayName string
	AvatarURL   string
	ChatType    string

	// OtherUserID is the DM counterpart, empty for channels and the
	// public lobby.
	OtherUserID string

	// Virtual marks a "start a conversation" row: a known user with no
	// persisted chat yet, keyed by the canonical two-party chat id.
	Virtual bool

	Online        bool
	HasMessages   bool
	LastTimestamp int64
	LastMessage   *domain.Message
}

// ChatList derives the display rows for selfID: every real chat, plus a
// virtual row for each known user without an existing DM. Rows with
// message history come first, newest activity on top; the remainder sort
// online users first, then by display name.
func (s *Store) ChatList(selfID string) []ChatRow {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := make([]ChatRow, 0, len(s.chats)+len(s.users))
	covered := make(map[string]struct{}, len(s.chats))

	for _, chat := range s.chats {
		row := ChatRow{
			ChatID:      chat.ChatID,
			DisplayName: chat.ChatName,
			AvatarURL:   chat.AvatarURL,
			ChatType:    chat.ChatType,
		}
		if chat.ChatType == domain.ChatTypePrivate {
			other := chat.OtherMember(selfID)
			row.OtherUserID = other
			if u, ok := s.users[other]; ok {
				row.DisplayName = u.Username
				row.Online = u.IsOnline
				if u.AvatarURL != "" {
					row.AvatarURL = u.AvatarURL
				}
			}
			covered[other] = struct{}{}
		}
		if last := chat.LastMessage(); last != nil {
			m := *last
			row.LastMessage = &m
			row.HasMessages = true
			row.LastTimestamp = chat.LastMessageTimestamp
		}
		rows = append(rows, row)
	}

	for id, u := range s.users {
		if id == selfID {
			continue
		}
		if _, ok := covered[id]; ok {
			continue
		}
		canonical := domain.DirectChatID(selfID, id)
		if _, exists := s.chats[canonical]; exists {
			continue
		}
		rows = append(rows, ChatRow{
			ChatID:      canonical,
			DisplayName: u.Username,
			AvatarURL:   u.AvatarURL,
			ChatType:    domain.ChatTypePrivate,
			OtherUserID: id,
			Virtual:     true,
			Online:      u.IsOnline,
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.HasMessages != b.HasMessages {
			return a.HasMessages
		}
		if a.HasMessages {
			if a.LastTimestamp != b.LastTimestamp {
				return a.LastTimestamp > b.LastTimestamp
			}
			return a.ChatID < b.ChatID
		}
		if a.Online != b.Online {
			return a.Online
		}
		if a.DisplayName != b.DisplayName {
			return a.DisplayName < b.DisplayName
		}
		return a.ChatID < b.ChatID
	})

	return rows
}
