package tci

import (
	"context"

	"github.com/tci-dev/tcigo/pkg/api"
)

// SessionService manages interpreter session lifecycle.
type SessionService struct {
	client *Client
}

// Create allocates a fresh session. An empty language selects the
// service default.
func (s *SessionService) Create(ctx context.Context, language string) (*api.Session, error) {
	sess, err := s.client.backend.CreateSession(ctx, language)
	if err != nil {
		return nil, err
	}
	s.client.logger.Debug("session created", "session_id", sess.ID, "language", sess.Language)
	return sess, nil
}

// Close releases the session and discards its files. Closing an unknown
// or already-closed session is not an error and still reports true, so
// cleanup paths can call it unconditionally.
func (s *SessionService) Close(ctx context.Context, sessionID string) (bool, error) {
	closed, err := s.client.backend.CloseSession(ctx, sessionID)
	if err != nil {
		return false, err
	}
	s.client.logger.Debug("session closed", "session_id", sessionID)
	return closed, nil
}

// ExecutionService runs code inside a session.
type ExecutionService struct {
	client *Client
}

// Run executes code within the session and grades each declared test
// against the outcome. Results come back in submission order; a test's
// reward is granted only when its condition holds.
func (s *ExecutionService) Run(ctx context.Context, sessionID, code string, tests []api.TestSpec) (*api.Execution, error) {
	exec, err := s.client.backend.Run(ctx, sessionID, code, tests)
	if err != nil {
		return nil, err
	}
	s.client.logger.Debug("code executed", "session_id", sessionID, "tests", len(exec.Tests))
	return exec, nil
}

// FileService moves files in and out of a session's private store.
type FileService struct {
	client *Client
}

// Upload writes content at remotePath, silently overwriting any previous
// content. Reports true on success, including overwrites.
func (s *FileService) Upload(ctx context.Context, sessionID, remotePath string, content []byte) (bool, error) {
	uploaded, err := s.client.backend.UploadFile(ctx, sessionID, remotePath, content)
	if err != nil {
		return false, err
	}
	s.client.logger.Debug("file uploaded", "session_id", sessionID, "path", remotePath, "bytes", len(content))
	return uploaded, nil
}

// Download returns a snapshot of the file at remotePath. Later uploads do
// not mutate the returned content.
func (s *FileService) Download(ctx context.Context, sessionID, remotePath string) (*api.File, error) {
	file, err := s.client.backend.DownloadFile(ctx, sessionID, remotePath)
	if err != nil {
		return nil, err
	}
	s.client.logger.Debug("file downloaded", "session_id", sessionID, "path", remotePath, "bytes", len(file.Content))
	return file, nil
}
