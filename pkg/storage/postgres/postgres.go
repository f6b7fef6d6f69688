// Package postgres provides a PostgreSQL implementation of
// storage.SessionStore. It uses pgx/v5 for connection pooling and keeps a
// tombstone row for every closed session, so a session identity is never
// reissued within the same database.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tci-dev/tcigo/pkg/api"
	"github.com/tci-dev/tcigo/pkg/storage"
)

// Store is a PostgreSQL-backed SessionStore.
type Store struct {
	pool *pgxpool.Pool
}

// Ensure Store implements storage.SessionStore at compile time.
var _ storage.SessionStore = (*Store)(nil)

// New creates a new PostgreSQL store with the given configuration.
// If MigrateOnStart is true, schema migrations are applied automatically.
func New(ctx context.Context, cfg Config) (*Store, error) {
	cfg.defaults()

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Verify connectivity.
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &Store{pool: pool}

	if cfg.MigrateOnStart {
		if err := s.migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}

	return s, nil
}

// CreateSession registers a new session. A tombstoned (closed) session
// still occupies its ID, so recreating a closed ID fails with
// ErrSessionExists.
func (s *Store) CreateSession(ctx context.Context, sess *api.Session) error {
	_, err := s.pool.Exec(ctx,
		"INSERT INTO sessions (id, language) VALUES ($1, $2)",
		sess.ID, sess.Language,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return storage.ErrSessionExists
		}
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

// CloseSession marks the session closed and purges its files in one
// transaction. Closing an unknown or already-closed session is tolerated.
func (s *Store) CloseSession(ctx context.Context, sessionID string) (bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	result, err := tx.Exec(ctx,
		"UPDATE sessions SET closed_at = $1 WHERE id = $2 AND closed_at IS NULL",
		time.Now(), sessionID,
	)
	if err != nil {
		return false, fmt.Errorf("closing session: %w", err)
	}
	closed := result.RowsAffected() > 0

	if closed {
		if _, err := tx.Exec(ctx,
			"DELETE FROM session_files WHERE session_id = $1", sessionID,
		); err != nil {
			return false, fmt.Errorf("purging session files: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("committing close: %w", err)
	}
	return closed, nil
}

// GetSession returns the session record for a live session. Tombstoned
// sessions report ErrSessionNotFound like unknown ones.
func (s *Store) GetSession(ctx context.Context, sessionID string) (*api.Session, error) {
	var language string
	err := s.pool.QueryRow(ctx,
		"SELECT language FROM sessions WHERE id = $1 AND closed_at IS NULL",
		sessionID,
	).Scan(&language)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetching session: %w", err)
	}
	return &api.Session{ID: sessionID, Language: language}, nil
}

// SessionExists reports whether the session is live (created and not closed).
func (s *Store) SessionExists(ctx context.Context, sessionID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM sessions WHERE id = $1 AND closed_at IS NULL)",
		sessionID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking session: %w", err)
	}
	return exists, nil
}

// PutFile writes or overwrites content at remotePath within the session.
// The INSERT is guarded by a liveness subquery so an upload can never land
// in a closed session; zero rows affected means the session is gone.
func (s *Store) PutFile(ctx context.Context, sessionID, remotePath string, content []byte) error {
	result, err := s.pool.Exec(ctx, `
		INSERT INTO session_files (session_id, path, content, updated_at)
		SELECT id, $2, $3, $4 FROM sessions WHERE id = $1 AND closed_at IS NULL
		ON CONFLICT (session_id, path)
		DO UPDATE SET content = EXCLUDED.content, updated_at = EXCLUDED.updated_at
	`, sessionID, remotePath, content, time.Now())
	if err != nil {
		return fmt.Errorf("storing file: %w", err)
	}
	if result.RowsAffected() == 0 {
		return storage.ErrSessionNotFound
	}
	return nil
}

// GetFile returns a snapshot of the file at remotePath. The liveness check
// and the content read run as one query, so a concurrent close can never
// turn a closed session into ErrFileNotFound.
func (s *Store) GetFile(ctx context.Context, sessionID, remotePath string) (*api.File, error) {
	var live, found bool
	var content []byte
	err := s.pool.QueryRow(ctx, `
		SELECT s.closed_at IS NULL, f.path IS NOT NULL, f.content
		FROM sessions s
		LEFT JOIN session_files f ON f.session_id = s.id AND f.path = $2
		WHERE s.id = $1
	`, sessionID, remotePath).Scan(&live, &found, &content)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying file: %w", err)
	}
	if !live {
		return nil, storage.ErrSessionNotFound
	}
	if !found {
		return nil, storage.ErrFileNotFound
	}

	return &api.File{Name: remotePath, Content: content}, nil
}

// HealthCheck verifies the database connection.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// isDuplicateKey checks if the error is a PostgreSQL unique violation (23505).
func isDuplicateKey(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}
