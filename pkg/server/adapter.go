// Package server serves the interpreter API over HTTP: session lifecycle,
// code execution with graded tests, and per-session file transfer. The
// Adapter is plain http.Handler plumbing over a backend.Backend, so it
// composes with httptest in tests and with auth and metrics middleware in
// the server binary.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/tci-dev/tcigo/pkg/api"
	"github.com/tci-dev/tcigo/pkg/backend"
)

// Adapter routes interpreter API requests to a backend and serializes
// responses.
type Adapter struct {
	backend backend.Backend
	mux     *http.ServeMux
	config  Config
}

// Config holds configuration for the HTTP adapter.
type Config struct {
	Addr            string
	MaxBodySize     int64
	ShutdownTimeout int // seconds
	Validation      api.ValidationConfig
}

// DefaultConfig returns the default adapter configuration.
func DefaultConfig() Config {
	return Config{
		Addr:            ":8080",
		MaxBodySize:     64 << 20, // 64 MB, sized for file uploads
		ShutdownTimeout: 30,
		Validation:      api.DefaultValidationConfig(),
	}
}

// NewAdapter creates an HTTP adapter over the given backend.
func NewAdapter(b backend.Backend, cfg Config) *Adapter {
	a := &Adapter{
		backend: b,
		mux:     http.NewServeMux(),
		config:  cfg,
	}

	a.mux.HandleFunc("POST /v1/sessions", a.handleCreateSession)
	a.mux.HandleFunc("DELETE /v1/sessions/{id}", a.handleCloseSession)
	a.mux.HandleFunc("POST /v1/sessions/{id}/executions", a.handleRun)
	a.mux.HandleFunc("PUT /v1/sessions/{id}/files/{path...}", a.handleUploadFile)
	a.mux.HandleFunc("GET /v1/sessions/{id}/files/{path...}", a.handleDownloadFile)
	a.mux.HandleFunc("GET /healthz", a.handleHealth)

	return a
}

// Handler returns the http.Handler for this adapter. Use this to integrate
// with an http.Server or test with httptest.
func (a *Adapter) Handler() http.Handler {
	return a.mux
}

// handleCreateSession handles POST /v1/sessions.
func (a *Adapter) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req api.CreateSessionRequest
	if r.ContentLength != 0 {
		if err := a.decodeJSON(w, r, &req); err != nil {
			return
		}
	}

	sess, err := a.backend.CreateSession(r.Context(), req.Language)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sess)
}

// handleCloseSession handles DELETE /v1/sessions/{id}. Closing is tolerant,
// so an unknown ID still reports closed.
func (a *Adapter) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	closed, err := a.backend.CloseSession(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, api.CloseSessionResponse{Closed: closed})
}

// handleRun handles POST /v1/sessions/{id}/executions.
func (a *Adapter) handleRun(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !api.ValidateSessionID(id) {
		WriteAPIError(w, api.NewSessionNotFoundError(id))
		return
	}

	var req api.RunRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		return
	}
	if apiErr := api.ValidateRunRequest(&req, a.config.Validation); apiErr != nil {
		WriteAPIError(w, apiErr)
		return
	}

	exec, err := a.backend.Run(r.Context(), id, req.Code, req.Tests)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, exec)
}

// handleUploadFile handles PUT /v1/sessions/{id}/files/{path...}. The raw
// request body is the file content; empty files are valid.
func (a *Adapter) handleUploadFile(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	remotePath := r.PathValue("path")
	if apiErr := api.ValidateRemotePath(remotePath, a.config.Validation); apiErr != nil {
		WriteAPIError(w, apiErr)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, a.config.MaxBodySize)
	content, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			WriteErrorResponse(w,
				api.NewInvalidRequestError("body", fmt.Sprintf("file exceeds maximum of %d bytes", a.config.MaxBodySize)),
				http.StatusRequestEntityTooLarge,
			)
			return
		}
		WriteAPIError(w, api.NewInvalidRequestError("body", "reading request body: "+err.Error()))
		return
	}

	uploaded, err := a.backend.UploadFile(r.Context(), id, remotePath, content)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, api.UploadResponse{Uploaded: uploaded})
}

// handleDownloadFile handles GET /v1/sessions/{id}/files/{path...}. The
// response body carries the raw file bytes.
func (a *Adapter) handleDownloadFile(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	remotePath := r.PathValue("path")
	if apiErr := api.ValidateRemotePath(remotePath, a.config.Validation); apiErr != nil {
		WriteAPIError(w, apiErr)
		return
	}

	file, err := a.backend.DownloadFile(r.Context(), id, remotePath)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	w.Write(file.Content)
}

// handleHealth handles GET /healthz.
func (a *Adapter) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decodeJSON decodes a JSON request body into dst, writing the error
// response itself on failure.
func (a *Adapter) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	ct := r.Header.Get("Content-Type")
	if ct != "" && ct != "application/json" {
		WriteErrorResponse(w,
			api.NewInvalidRequestError("content_type", "Content-Type must be application/json"),
			http.StatusUnsupportedMediaType,
		)
		return errors.New("unsupported content type")
	}

	r.Body = http.MaxBytesReader(w, r.Body, a.config.MaxBodySize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			WriteErrorResponse(w,
				api.NewInvalidRequestError("body", fmt.Sprintf("request body too large (max %d bytes)", a.config.MaxBodySize)),
				http.StatusRequestEntityTooLarge,
			)
			return err
		}
		WriteErrorResponse(w,
			api.NewInvalidRequestError("body", "invalid JSON: "+err.Error()),
			http.StatusBadRequest,
		)
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
