// Package remote implements backend.Backend over the TCI REST API. It is
// the real transport collaborator: JSON over HTTP with a bearer API key.
//
// Error contract: structured errors returned by the service (session or
// file not found, invalid request) are decoded back into *api.APIError;
// network failures are wrapped as transport errors with the underlying
// cause intact. The client never retries on the caller's behalf.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tci-dev/tcigo/pkg/api"
	"github.com/tci-dev/tcigo/pkg/backend"
	"github.com/tci-dev/tcigo/pkg/debug"
)

// DefaultBaseURL is the production TCI API endpoint.
const DefaultBaseURL = "https://api.tci.com"

// Config holds settings for the remote client.
type Config struct {
	// BaseURL of the TCI service. Defaults to DefaultBaseURL.
	BaseURL string

	// APIKey is sent as a bearer token on every request. The client does
	// not validate it; the service does.
	APIKey string

	// Timeout is the overall HTTP timeout per request (default: 120s,
	// sized for slow code executions).
	Timeout time.Duration

	// HTTPClient allows injecting a custom client. When set, Timeout is
	// ignored.
	HTTPClient *http.Client
}

// Client speaks the TCI REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// Ensure Client implements backend.Backend at compile time.
var _ backend.Backend = (*Client)(nil)

// NewClient creates a remote client from configuration.
func NewClient(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 120 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
	}
}

// CreateSession calls POST /v1/sessions.
func (c *Client) CreateSession(ctx context.Context, language string) (*api.Session, error) {
	var sess api.Session
	err := c.doJSON(ctx, http.MethodPost, "/v1/sessions",
		api.CreateSessionRequest{Language: language}, &sess)
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// CloseSession calls DELETE /v1/sessions/{id}.
func (c *Client) CloseSession(ctx context.Context, sessionID string) (bool, error) {
	var resp api.CloseSessionResponse
	err := c.doJSON(ctx, http.MethodDelete, "/v1/sessions/"+url.PathEscape(sessionID), nil, &resp)
	if err != nil {
		return false, err
	}
	return resp.Closed, nil
}

// Run calls POST /v1/sessions/{id}/executions.
func (c *Client) Run(ctx context.Context, sessionID, code string, tests []api.TestSpec) (*api.Execution, error) {
	var exec api.Execution
	err := c.doJSON(ctx, http.MethodPost,
		"/v1/sessions/"+url.PathEscape(sessionID)+"/executions",
		api.RunRequest{Code: code, Tests: tests}, &exec)
	if err != nil {
		return nil, err
	}
	if exec.Tests == nil {
		exec.Tests = []api.TestResult{}
	}
	return &exec, nil
}

// UploadFile calls PUT /v1/sessions/{id}/files/{path} with the raw content
// as the request body.
func (c *Client) UploadFile(ctx context.Context, sessionID, remotePath string, content []byte) (bool, error) {
	u := c.baseURL + "/v1/sessions/" + url.PathEscape(sessionID) + "/files/" + escapeRemotePath(remotePath)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u, bytes.NewReader(content))
	if err != nil {
		return false, api.NewServerError(fmt.Sprintf("creating request: %s", err))
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	body, err := c.send(req)
	if err != nil {
		return false, err
	}

	var resp api.UploadResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return false, api.NewServerError(fmt.Sprintf("decoding response: %s", err))
	}
	return resp.Uploaded, nil
}

// DownloadFile calls GET /v1/sessions/{id}/files/{path}. The response body
// carries the raw file bytes.
func (c *Client) DownloadFile(ctx context.Context, sessionID, remotePath string) (*api.File, error) {
	u := c.baseURL + "/v1/sessions/" + url.PathEscape(sessionID) + "/files/" + escapeRemotePath(remotePath)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, api.NewServerError(fmt.Sprintf("creating request: %s", err))
	}

	body, err := c.send(req)
	if err != nil {
		return nil, err
	}
	return &api.File{Name: remotePath, Content: body}, nil
}

// doJSON sends a JSON request and decodes a JSON response into out.
func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var reqBody io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return api.NewServerError(fmt.Sprintf("marshaling request: %s", err))
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return api.NewServerError(fmt.Sprintf("creating request: %s", err))
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	body, err := c.send(req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return api.NewServerError(fmt.Sprintf("decoding response: %s", err))
	}
	return nil
}

// send executes the request, maps error statuses, and returns the response
// body on success.
func (c *Client) send(req *http.Request) ([]byte, error) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	debug.Log("backend", "request", "method", req.Method, "url", req.URL.String())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, api.NewTransportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, api.NewTransportError(err)
	}

	debug.Log("backend", "response", "status", resp.StatusCode, "body_len", len(body))
	debug.Raw("backend", string(body))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, decodeError(resp.StatusCode, body)
	}
	return body, nil
}

// decodeError turns a non-2xx response into the typed error the service
// reported, falling back to a generic error for unstructured bodies.
func decodeError(status int, body []byte) error {
	var envelope api.ErrorResponse
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != nil && envelope.Error.Type != "" {
		return envelope.Error
	}
	return api.NewServerError(fmt.Sprintf("service returned HTTP %d: %s", status, strings.TrimSpace(string(body))))
}

// escapeRemotePath escapes each path segment while keeping the slashes, so
// "dir/file name.txt" stays a multi-segment URL path.
func escapeRemotePath(remotePath string) string {
	segs := strings.Split(remotePath, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}
