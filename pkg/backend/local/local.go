// Package local provides the reference in-process implementation of
// backend.Backend. It wires a storage.SessionStore (session registry plus
// per-session file stores) to a pluggable Executor and ConditionEvaluator,
// and is the backend served by cmd/tci-server.
package local

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tci-dev/tcigo/pkg/api"
	"github.com/tci-dev/tcigo/pkg/backend"
	"github.com/tci-dev/tcigo/pkg/storage"
)

// Config holds behavior settings for the local backend.
type Config struct {
	// ValidateSessions makes Run fail with a session_not_found error when
	// the session is unknown or closed. The original service skipped this
	// check; the hardened default performs it.
	ValidateSessions bool

	// Executor runs submitted code. Defaults to the fixed-outcome
	// StaticExecutor stand-in.
	Executor backend.Executor

	// Evaluator grades test conditions. Defaults to the SubstringEvaluator
	// stand-in.
	Evaluator backend.ConditionEvaluator

	// Logger receives diagnostic progress lines. Defaults to slog.Default.
	Logger *slog.Logger
}

// DefaultConfig returns a Config with the hardened defaults.
func DefaultConfig() Config {
	return Config{
		ValidateSessions: true,
	}
}

// Local is the reference backend: synchronous, in-process, no state beyond
// what the store holds.
type Local struct {
	store     storage.SessionStore
	executor  backend.Executor
	evaluator backend.ConditionEvaluator
	validate  bool
	logger    *slog.Logger
}

// Ensure Local implements backend.Backend at compile time.
var _ backend.Backend = (*Local)(nil)

// New creates a local backend over the given store.
func New(store storage.SessionStore, cfg Config) *Local {
	if cfg.Executor == nil {
		cfg.Executor = NewStaticExecutor()
	}
	if cfg.Evaluator == nil {
		cfg.Evaluator = NewSubstringEvaluator()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Local{
		store:     store,
		executor:  cfg.Executor,
		evaluator: cfg.Evaluator,
		validate:  cfg.ValidateSessions,
		logger:    cfg.Logger,
	}
}

// CreateSession allocates a fresh session identity and an empty file store.
func (l *Local) CreateSession(ctx context.Context, language string) (*api.Session, error) {
	if language == "" {
		language = api.DefaultLanguage
	}

	sess := &api.Session{ID: api.NewSessionID(), Language: language}
	if err := l.store.CreateSession(ctx, sess); err != nil {
		return nil, api.NewServerError(fmt.Sprintf("creating session: %s", err))
	}

	l.logger.Debug("session created", "session_id", sess.ID, "language", sess.Language)
	return sess, nil
}

// CloseSession releases the session and its files. Close is tolerant:
// unknown IDs report true as well, so caller cleanup never has to
// distinguish "closed" from "was already gone".
func (l *Local) CloseSession(ctx context.Context, sessionID string) (bool, error) {
	existed, err := l.store.CloseSession(ctx, sessionID)
	if err != nil {
		return false, api.NewServerError(fmt.Sprintf("closing session: %s", err))
	}

	l.logger.Debug("session closed", "session_id", sessionID, "existed", existed)
	return true, nil
}

// Run executes code within the session and grades the declared tests.
func (l *Local) Run(ctx context.Context, sessionID, code string, tests []api.TestSpec) (*api.Execution, error) {
	language := api.DefaultLanguage
	sess, err := l.store.GetSession(ctx, sessionID)
	switch {
	case err == nil:
		language = sess.Language
	case errors.Is(err, storage.ErrSessionNotFound):
		if l.validate {
			return nil, api.NewSessionNotFoundError(sessionID)
		}
		// Stateless mode runs unknown sessions with the default language.
	default:
		return nil, api.NewServerError(fmt.Sprintf("checking session: %s", err))
	}

	l.logger.Debug("executing code", "session_id", sessionID, "language", language, "tests", len(tests))

	outcome, err := l.executor.Execute(ctx, sessionID, language, code)
	if err != nil {
		return nil, fmt.Errorf("executing code: %w", err)
	}

	results, err := backend.GradeTests(ctx, l.evaluator, outcome, tests)
	if err != nil {
		return nil, fmt.Errorf("grading tests: %w", err)
	}

	return &api.Execution{
		Stdout: outcome.Stdout,
		Result: outcome.Result,
		Tests:  results,
	}, nil
}

// UploadFile writes or overwrites content at remotePath.
func (l *Local) UploadFile(ctx context.Context, sessionID, remotePath string, content []byte) (bool, error) {
	err := l.store.PutFile(ctx, sessionID, remotePath, content)
	if errors.Is(err, storage.ErrSessionNotFound) {
		return false, api.NewSessionNotFoundError(sessionID)
	}
	if err != nil {
		return false, api.NewServerError(fmt.Sprintf("storing file: %s", err))
	}

	l.logger.Debug("file uploaded", "session_id", sessionID, "remote_path", remotePath, "bytes", len(content))
	return true, nil
}

// DownloadFile returns a snapshot of the file at remotePath.
func (l *Local) DownloadFile(ctx context.Context, sessionID, remotePath string) (*api.File, error) {
	f, err := l.store.GetFile(ctx, sessionID, remotePath)
	if errors.Is(err, storage.ErrSessionNotFound) {
		return nil, api.NewSessionNotFoundError(sessionID)
	}
	if errors.Is(err, storage.ErrFileNotFound) {
		return nil, api.NewFileNotFoundError(remotePath, sessionID)
	}
	if err != nil {
		return nil, api.NewServerError(fmt.Sprintf("fetching file: %s", err))
	}

	l.logger.Debug("file downloaded", "session_id", sessionID, "remote_path", remotePath, "bytes", len(f.Content))
	return f, nil
}
