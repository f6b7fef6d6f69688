// Package redis provides a Redis-backed implementation of
// storage.SessionStore. Sessions survive process restarts for as long as
// the Redis instance retains them; per-session files live in a hash keyed
// by remote path.
//
// The file operations run as Lua scripts so the session-liveness check and
// the hash access execute atomically, which keeps a concurrent close from
// interleaving with an in-flight upload or download.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tci-dev/tcigo/pkg/api"
	"github.com/tci-dev/tcigo/pkg/storage"
)

const (
	sessionKeyPrefix = "tci:session:"
	filesKeyPrefix   = "tci:files:"
)

// putFileScript writes a file only if the session is live.
// Returns 1 on success, 0 when the session does not exist.
var putFileScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
redis.call("HSET", KEYS[2], ARGV[1], ARGV[2])
return 1
`)

// getFileScript reads a file with the liveness check in the same step.
// Returns {0} when the session does not exist, {1} when the file does not
// exist, {2, content} on success.
var getFileScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
  return {0}
end
local v = redis.call("HGET", KEYS[2], ARGV[1])
if v == false then
  return {1}
end
return {2, v}
`)

// Config holds the configuration for the Redis store.
type Config struct {
	Addr         string
	Password     string
	DB           int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
}

// defaults fills in zero-value fields with sensible defaults.
func (c *Config) defaults() {
	if c.DialTimeout == 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 3 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 3 * time.Second
	}
	if c.PoolSize == 0 {
		c.PoolSize = 20
	}
}

// Store is a Redis-backed SessionStore.
type Store struct {
	client *redis.Client
}

// Ensure Store implements storage.SessionStore at compile time.
var _ storage.SessionStore = (*Store)(nil)

// New creates a Redis store and verifies connectivity.
func New(ctx context.Context, cfg Config) (*Store, error) {
	cfg.defaults()

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &Store{client: client}, nil
}

func sessionKey(id string) string { return sessionKeyPrefix + id }
func filesKey(id string) string   { return filesKeyPrefix + id }

// CreateSession registers a new session. SET NX keeps creation atomic.
func (s *Store) CreateSession(ctx context.Context, sess *api.Session) error {
	ok, err := s.client.SetNX(ctx, sessionKey(sess.ID), sess.Language, 0).Result()
	if err != nil {
		return fmt.Errorf("creating session: %w", err)
	}
	if !ok {
		return storage.ErrSessionExists
	}
	return nil
}

// CloseSession deletes the session key and its file hash in one
// transaction. Closing an unknown session is tolerated.
func (s *Store) CloseSession(ctx context.Context, sessionID string) (bool, error) {
	pipe := s.client.TxPipeline()
	delSession := pipe.Del(ctx, sessionKey(sessionID))
	pipe.Del(ctx, filesKey(sessionID))
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("closing session: %w", err)
	}
	return delSession.Val() > 0, nil
}

// GetSession returns the session record. The session key stores the
// language as its value.
func (s *Store) GetSession(ctx context.Context, sessionID string) (*api.Session, error) {
	language, err := s.client.Get(ctx, sessionKey(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, storage.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetching session: %w", err)
	}
	return &api.Session{ID: sessionID, Language: language}, nil
}

// SessionExists reports whether the session is live.
func (s *Store) SessionExists(ctx context.Context, sessionID string) (bool, error) {
	n, err := s.client.Exists(ctx, sessionKey(sessionID)).Result()
	if err != nil {
		return false, fmt.Errorf("checking session: %w", err)
	}
	return n > 0, nil
}

// PutFile writes or overwrites content at remotePath within the session.
func (s *Store) PutFile(ctx context.Context, sessionID, remotePath string, content []byte) error {
	keys := []string{sessionKey(sessionID), filesKey(sessionID)}
	res, err := putFileScript.Run(ctx, s.client, keys, remotePath, content).Int()
	if err != nil {
		return fmt.Errorf("storing file: %w", err)
	}
	if res == 0 {
		return storage.ErrSessionNotFound
	}
	return nil
}

// GetFile returns a snapshot of the file at remotePath.
func (s *Store) GetFile(ctx context.Context, sessionID, remotePath string) (*api.File, error) {
	keys := []string{sessionKey(sessionID), filesKey(sessionID)}
	res, err := getFileScript.Run(ctx, s.client, keys, remotePath).Slice()
	if err != nil {
		return nil, fmt.Errorf("fetching file: %w", err)
	}

	code, ok := res[0].(int64)
	if !ok {
		return nil, fmt.Errorf("fetching file: unexpected script reply %v", res)
	}
	switch code {
	case 0:
		return nil, storage.ErrSessionNotFound
	case 1:
		return nil, storage.ErrFileNotFound
	}

	content, ok := res[1].(string)
	if !ok {
		return nil, fmt.Errorf("fetching file: unexpected content type %T", res[1])
	}
	return &api.File{Name: remotePath, Content: []byte(content)}, nil
}

// HealthCheck pings the Redis instance.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.client.Close()
}
