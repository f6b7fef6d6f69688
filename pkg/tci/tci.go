// Package tci is the client entry point for the test code interpreter
// service. A Client groups the five operations into capability services:
//
//	client, err := tci.New("tci-api-key")
//	sess, err := client.Sessions.Create(ctx, "")
//	exec, err := client.Executions.Run(ctx, sess.ID, code, tests)
//	ok, err := client.Files.Upload(ctx, sess.ID, "data.csv", content)
//
// By default the client talks to the hosted service over HTTPS; tests and
// embedded deployments inject another backend with WithBackend.
package tci

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/tci-dev/tcigo/pkg/api"
	"github.com/tci-dev/tcigo/pkg/backend"
	"github.com/tci-dev/tcigo/pkg/backend/remote"
)

// Client provides access to the interpreter service. All methods are safe
// for concurrent use; the client holds no per-session state.
type Client struct {
	backend backend.Backend
	logger  *slog.Logger

	// Sessions creates and closes interpreter sessions.
	Sessions *SessionService
	// Executions runs code and grades declared tests.
	Executions *ExecutionService
	// Files uploads to and downloads from a session's private store.
	Files *FileService
}

// Option configures a Client.
type Option func(*options)

type options struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	backend    backend.Backend
	logger     *slog.Logger
}

// WithBaseURL points the client at a different service endpoint, e.g. a
// self-hosted deployment.
func WithBaseURL(baseURL string) Option {
	return func(o *options) { o.baseURL = baseURL }
}

// WithTimeout sets the per-request HTTP timeout. Ignored when a custom
// HTTP client or backend is injected.
func WithTimeout(timeout time.Duration) Option {
	return func(o *options) { o.timeout = timeout }
}

// WithHTTPClient injects a custom HTTP client, e.g. one with proxy or TLS
// settings.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithBackend replaces the remote transport entirely. The API key and any
// transport options are ignored when a backend is injected.
func WithBackend(b backend.Backend) Option {
	return func(o *options) { o.backend = b }
}

// WithLogger sets the structured logger for client diagnostics. Defaults
// to slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// New creates a Client authenticated with apiKey. The key is opaque to the
// client and forwarded as a bearer token; the service validates it. An
// empty key is rejected up front so misconfiguration fails at construction
// rather than on the first call.
func New(apiKey string, opts ...Option) (*Client, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	b := o.backend
	if b == nil {
		if apiKey == "" {
			return nil, api.NewInvalidRequestError("api_key", "API key must not be empty")
		}
		b = remote.NewClient(remote.Config{
			BaseURL:    o.baseURL,
			APIKey:     apiKey,
			Timeout:    o.timeout,
			HTTPClient: o.httpClient,
		})
	}

	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{backend: b, logger: logger}
	c.Sessions = &SessionService{client: c}
	c.Executions = &ExecutionService{client: c}
	c.Files = &FileService{client: c}
	return c, nil
}
