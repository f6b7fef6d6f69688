// Package sandbox provides a backend.Executor that runs submitted code in
// isolated sandbox pods via the sandbox server REST API. Sandboxes are
// acquired per execution, either from a static URL (development) or by
// creating agent-sandbox SandboxClaim CRDs (pkg/sandbox/kubernetes).
package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tci-dev/tcigo/pkg/debug"
)

// Request is the request body for POST /execute on the sandbox server.
type Request struct {
	Code           string `json:"code"`
	Language       string `json:"language,omitempty"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// Response is the response from POST /execute on the sandbox server.
type Response struct {
	Status          string          `json:"status"`
	Stdout          string          `json:"stdout"`
	Stderr          string          `json:"stderr"`
	Result          json.RawMessage `json:"result,omitempty"`
	ExitCode        int             `json:"exit_code"`
	ExecutionTimeMs int64           `json:"execution_time_ms"`
}

// Client calls the sandbox server's REST API to execute code.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a new sandbox HTTP client.
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 120 * time.Second, // Overall HTTP timeout (execution timeout is enforced by the sandbox).
		},
	}
}

// Execute sends a code execution request to the sandbox server and returns
// the result.
func (c *Client) Execute(ctx context.Context, sandboxURL string, req *Request) (*Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, sandboxURL+"/execute", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	debug.Log("sandbox", "execute request", "url", sandboxURL, "timeout", req.TimeoutSeconds, "code_len", len(req.Code))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sandbox request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("sandbox at capacity (HTTP 429)")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sandbox returned HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	var sandboxResp Response
	if err := json.Unmarshal(respBody, &sandboxResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &sandboxResp, nil
}
