// Package storage defines the SessionStore interface implemented by the
// storage adapters (memory, redis, postgres), plus the sentinel errors they
// share.
//
// A SessionStore owns session identity bookkeeping and the per-session
// private file stores. Implementations must be safe for concurrent use:
// a close racing an in-flight upload or download on the same session must
// serialize, never corrupt state.
package storage

import (
	"context"

	"github.com/tci-dev/tcigo/pkg/api"
)

// SessionStore tracks live sessions and their per-session file stores.
type SessionStore interface {
	// CreateSession registers a new session. Returns ErrSessionExists if
	// the ID is already (or was ever, for tombstoning stores) in use.
	CreateSession(ctx context.Context, sess *api.Session) error

	// CloseSession releases the session and purges its file store.
	// Closing an unknown session is not an error (tolerant close); the
	// returned bool reports whether a live session was actually removed.
	CloseSession(ctx context.Context, sessionID string) (bool, error)

	// GetSession returns the session record. Returns ErrSessionNotFound
	// for unknown or closed sessions.
	GetSession(ctx context.Context, sessionID string) (*api.Session, error)

	// SessionExists reports whether the session is live.
	SessionExists(ctx context.Context, sessionID string) (bool, error)

	// PutFile writes or overwrites content at remotePath within the
	// session's private store. Returns ErrSessionNotFound for unknown or
	// closed sessions. Last write wins.
	PutFile(ctx context.Context, sessionID, remotePath string, content []byte) error

	// GetFile returns a snapshot of the file at remotePath. Returns
	// ErrSessionNotFound for unknown or closed sessions and ErrFileNotFound
	// when the path has no content in that session.
	GetFile(ctx context.Context, sessionID, remotePath string) (*api.File, error)

	// HealthCheck verifies the store is reachable.
	HealthCheck(ctx context.Context) error

	// Close releases resources held by the store itself.
	Close() error
}
