package client

import (
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// sessionState is the live auth session: who we are and the token that
// proves it. Cleared on logout and on unrecoverable auth failure.
type sessionState struct {
	mu           sync.RWMutex
	userID       string
	username     string
	avatarURL    string
	token        string
	publicChatID string
}

func (s *sessionState) set(userID, username, avatarURL, token, publicChatID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = userID
	s.username = username
	s.avatarURL = avatarURL
	s.token = token
	s.publicChatID = publicChatID
}

func (s *sessionState) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = ""
	s.username = ""
	s.avatarURL = ""
	s.token = ""
	s.publicChatID = ""
}

func (s *sessionState) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

func (s *sessionState) Username() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.username
}

func (s *sessionState) setUsername(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.username = name
}

func (s *sessionState) AvatarURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.avatarURL
}

func (s *sessionState) setAvatarURL(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.avatarURL = url
}

func (s *sessionState) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *sessionState) PublicChatID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.publicChatID
}

// tokenExpired inspects a stored token's exp claim without verifying the
// signature (the server is the verifier; we only want to skip a doomed
// reconnect round trip). Tokens that do not parse as JWTs or carry no
// expiry are treated as live and left to the server to judge.
func tokenExpired(token string) bool {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(time.Now())
}
