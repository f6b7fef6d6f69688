// Package memory provides an in-memory implementation of
// storage.SessionStore for testing and lightweight deployments. Sessions
// and their files are stored in memory and lost when the process restarts.
package memory

import (
	"context"
	"sync"

	"github.com/tci-dev/tcigo/pkg/api"
	"github.com/tci-dev/tcigo/pkg/storage"
)

// entry holds a live session and its private file store.
type entry struct {
	language string
	files    map[string][]byte
}

// Store is an in-memory SessionStore. A single RWMutex guards the session
// map so a close can never race an in-flight upload or download.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// Ensure Store implements storage.SessionStore at compile time.
var _ storage.SessionStore = (*Store)(nil)

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		entries: make(map[string]*entry),
	}
}

// CreateSession registers a new session with an empty file store.
func (s *Store) CreateSession(_ context.Context, sess *api.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[sess.ID]; exists {
		return storage.ErrSessionExists
	}

	s.entries[sess.ID] = &entry{
		language: sess.Language,
		files:    make(map[string][]byte),
	}
	return nil
}

// CloseSession releases the session and its files. Closing an unknown
// session is tolerated; the bool reports whether a live session was removed.
func (s *Store) CloseSession(_ context.Context, sessionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, existed := s.entries[sessionID]
	delete(s.entries, sessionID)
	return existed, nil
}

// GetSession returns the session record for a live session.
func (s *Store) GetSession(_ context.Context, sessionID string) (*api.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[sessionID]
	if !ok {
		return nil, storage.ErrSessionNotFound
	}
	return &api.Session{ID: sessionID, Language: e.language}, nil
}

// SessionExists reports whether the session is live.
func (s *Store) SessionExists(_ context.Context, sessionID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.entries[sessionID]
	return ok, nil
}

// PutFile writes or overwrites content at remotePath. The content is copied
// so later mutation by the caller cannot change stored bytes.
func (s *Store) PutFile(_ context.Context, sessionID, remotePath string, content []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[sessionID]
	if !ok {
		return storage.ErrSessionNotFound
	}

	buf := make([]byte, len(content))
	copy(buf, content)
	e.files[remotePath] = buf
	return nil
}

// GetFile returns a snapshot of the stored bytes at call time.
func (s *Store) GetFile(_ context.Context, sessionID, remotePath string) (*api.File, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[sessionID]
	if !ok {
		return nil, storage.ErrSessionNotFound
	}

	content, ok := e.files[remotePath]
	if !ok {
		return nil, storage.ErrFileNotFound
	}

	buf := make([]byte, len(content))
	copy(buf, content)
	return &api.File{Name: remotePath, Content: buf}, nil
}

// HealthCheck always returns nil for the in-memory store.
func (s *Store) HealthCheck(_ context.Context) error {
	return nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}
