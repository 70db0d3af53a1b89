// Package creds is the credential-store capability: a tiny get/set/clear
// surface over whatever the host application uses for local settings.
package creds

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Session is the persisted login state needed for a token reconnect.
type Session struct {
	UserID   string `json:"userId"`
	Token    string `json:"token"`
	Username string `json:"username"`
}

// Valid reports whether the session carries enough to attempt a reconnect.
func (s Session) Valid() bool {
	return s.UserID != "" && s.Token != ""
}

// Store persists one session.
type Store interface {
	Save(s Session) error
	Load() (Session, error)
	Clear() error
}

// MemoryStore keeps the session in process memory. Useful for tests and
// for hosts that manage persistence themselves.
type MemoryStore struct {
	mu sync.Mutex
	s  Session
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (m *MemoryStore) Save(s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s = s
	return nil
}

func (m *MemoryStore) Load() (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.s, nil
}

func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s = Session{}
	return nil
}

// FileStore persists the session as a JSON file, created user-readable
// only since it contains the auth token.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) *FileStore { return &FileStore{path: path} }

func (f *FileStore) Save(s Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("creds: marshal session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("creds: create dir: %w", err)
	}
	if err := os.WriteFile(f.path, data, 0o600); err != nil {
		return fmt.Errorf("creds: write session: %w", err)
	}
	return nil
}

func (f *FileStore) Load() (Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Session{}, nil
		}
		return Session{}, fmt.Errorf("creds: read session: %w", err)
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		// A corrupt file is the same as no session.
		return Session{}, nil
	}
	return s, nil
}

func (f *FileStore) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("creds: clear session: %w", err)
	}
	return nil
}
