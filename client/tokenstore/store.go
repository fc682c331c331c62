// Package tokenstore persists access and refresh tokens between client
// sessions. Tokens live either in a durable file-backed store (remember-me)
// or in process memory, with a memory fallback slot that catches writes when
// the durable store is unavailable.
package tokenstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Scope selects where tokens are persisted.
type Scope int

const (
	// ScopeDurable persists tokens on disk so they survive restarts.
	ScopeDurable Scope = iota
	// ScopeSession keeps tokens in memory only.
	ScopeSession
)

// Keys under which the store tracks values. All of them share the namespace
// prefix so Clear removes only what this store wrote.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyUser         = "user"
)

// namespace prefixes every persisted key. Clear only touches namespaced
// entries, so unrelated state in a shared directory survives a logout.
const namespace = "homevista."

// Store reads and writes namespaced token state. Reads consult the durable
// store first, then the session store, then the fallback slot.
type Store struct {
	mu sync.RWMutex

	dir      string
	session  map[string]string
	fallback map[string]string
}

// New creates a store rooted at dir. The directory is created on demand; if
// it cannot be created, durable writes land in the fallback slot instead of
// failing.
func New(dir string) *Store {
	return &Store{
		dir:      dir,
		session:  make(map[string]string),
		fallback: make(map[string]string),
	}
}

// Set stores a value under key in the given scope.
func (s *Store) Set(key, value string, scope Scope) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if scope == ScopeSession {
		s.session[namespace+key] = value
		return
	}

	if err := s.writeFile(key, value); err != nil {
		// Durable store unavailable: degrade to the in-memory fallback so
		// the value is still readable for the rest of this process.
		s.fallback[namespace+key] = value
	}
}

// Get returns the value for key, consulting the durable store, then the
// session store, then the fallback slot.
func (s *Store) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if value, err := s.readFile(key); err == nil {
		return value, true
	}
	if value, ok := s.session[namespace+key]; ok {
		return value, true
	}
	if value, ok := s.fallback[namespace+key]; ok {
		return value, true
	}
	return "", false
}

// Delete removes key from every scope.
func (s *Store) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_ = os.Remove(s.path(key))
	delete(s.session, namespace+key)
	delete(s.fallback, namespace+key)
}

// Clear removes every namespaced entry from all scopes. Files in the durable
// directory that do not carry the namespace prefix are left alone.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entries, err := os.ReadDir(s.dir); err == nil {
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			if len(entry.Name()) > len(namespace) && entry.Name()[:len(namespace)] == namespace {
				_ = os.Remove(filepath.Join(s.dir, entry.Name()))
			}
		}
	}

	s.session = make(map[string]string)
	s.fallback = make(map[string]string)
}

// ScopeOf reports where key currently lives. The fallback slot counts as
// durable since only durable writes land there.
func (s *Store) ScopeOf(key string) (Scope, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := os.Stat(s.path(key)); err == nil {
		return ScopeDurable, true
	}
	if _, ok := s.fallback[namespace+key]; ok {
		return ScopeDurable, true
	}
	if _, ok := s.session[namespace+key]; ok {
		return ScopeSession, true
	}
	return ScopeSession, false
}

// SetJSON marshals v and stores it under key.
func (s *Store) SetJSON(key string, v any, scope Scope) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	s.Set(key, string(data), scope)
	return nil
}

// GetJSON reads key and unmarshals it into v. Returns false when the key is
// absent or holds invalid JSON; corrupt entries are removed.
func (s *Store) GetJSON(key string, v any) bool {
	raw, ok := s.Get(key)
	if !ok {
		return false
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		s.Delete(key)
		return false
	}
	return true
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, namespace+key)
}

func (s *Store) writeFile(key, value string) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return err
	}
	return os.WriteFile(s.path(key), []byte(value), 0o600)
}

func (s *Store) readFile(key string) (string, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		return "", err
	}
	return string(data), nil
}
