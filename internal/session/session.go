// Package session persists the authenticated session between client runs.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/and161185/clear/internal/model"
)

// Store keeps the single persisted session entry.
type Store interface {
	// Load returns the stored session or nil when none is usable.
	Load() (*model.Session, error)
	// Save replaces the stored session.
	Save(s *model.Session) error
	// Clear removes the stored session.
	Clear() error
}

// FileStore keeps the session as JSON in one file (0600, directory 0700).
type FileStore struct {
	path string
	now  func() time.Time
}

// NewFileStore returns a store backed by path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, now: time.Now}
}

// Path returns the file location.
func (f *FileStore) Path() string { return f.path }

// Load reads the entry. Missing, malformed or expired content yields (nil, nil).
func (f *FileStore) Load() (*model.Session, error) {
	b, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read session: %w", err)
	}
	var s model.Session
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, nil
	}
	if !Usable(&s, f.now()) {
		return nil, nil
	}
	return &s, nil
}

// Save writes the entry through a temp file and rename.
func (f *FileStore) Save(s *model.Session) error {
	if s == nil {
		return f.Clear()
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

// Clear removes the entry; a missing file is not an error.
func (f *FileStore) Clear() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove: %w", err)
	}
	return nil
}

// Token returns the stored bearer token.
func (f *FileStore) Token() (string, bool) {
	s, err := f.Load()
	if err != nil || s == nil {
		return "", false
	}
	return s.Token, true
}

// MemoryStore keeps the entry in process memory.
type MemoryStore struct {
	mu sync.Mutex
	s  *model.Session
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

// Load returns a copy of the stored session.
func (m *MemoryStore) Load() (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.s == nil || !Usable(m.s, time.Now()) {
		return nil, nil
	}
	cp := *m.s
	return &cp, nil
}

// Save stores a copy of s.
func (m *MemoryStore) Save(s *model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s == nil {
		m.s = nil
		return nil
	}
	cp := *s
	m.s = &cp
	return nil
}

// Clear drops the stored session.
func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	m.s = nil
	m.mu.Unlock()
	return nil
}

// Token returns the stored bearer token.
func (m *MemoryStore) Token() (string, bool) {
	s, _ := m.Load()
	if s == nil {
		return "", false
	}
	return s.Token, true
}

// Usable reports whether s carries a token that has not expired.
// Opaque tokens never expire on the client; JWTs are checked against their exp claim.
func Usable(s *model.Session, now time.Time) bool {
	if s == nil || s.Token == "" {
		return false
	}
	exp, ok := ExpiresAt(s.Token)
	return !ok || now.Before(exp)
}

// ExpiresAt extracts the exp claim of a JWT without verifying its signature.
func ExpiresAt(token string) (time.Time, bool) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
