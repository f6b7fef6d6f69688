package sandbox

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/tci-dev/tcigo/pkg/backend"
)

// Acquirer abstracts sandbox acquisition. Implementations exist for static
// URL mode (returns a fixed URL) and SandboxClaim mode (creates CRDs, see
// pkg/sandbox/kubernetes).
type Acquirer interface {
	// Acquire returns a sandbox URL to use for execution.
	// The release function must be called after execution to clean up.
	Acquire(ctx context.Context) (sandboxURL string, release func(), err error)
}

// StaticAcquirer always returns the same sandbox URL with a no-op release.
type StaticAcquirer struct {
	URL string
}

// Acquire returns the fixed URL.
func (a *StaticAcquirer) Acquire(_ context.Context) (string, func(), error) {
	return a.URL, func() {}, nil
}

// Executor implements backend.Executor by acquiring a sandbox per run and
// posting the code to its /execute endpoint.
type Executor struct {
	acquirer Acquirer
	client   *Client

	// TimeoutSeconds is the execution timeout passed to the sandbox
	// (default: 60).
	TimeoutSeconds int
}

// Ensure Executor implements backend.Executor at compile time.
var _ backend.Executor = (*Executor)(nil)

// NewExecutor creates an Executor over the given acquirer.
func NewExecutor(acquirer Acquirer) *Executor {
	return &Executor{
		acquirer:       acquirer,
		client:         NewClient(),
		TimeoutSeconds: 60,
	}
}

// Execute acquires a sandbox, runs the code, and maps the sandbox response
// to an execution outcome. A non-zero exit is an execution failure, not an
// outcome.
func (e *Executor) Execute(ctx context.Context, sessionID, language, code string) (*backend.Outcome, error) {
	sandboxURL, release, err := e.acquirer.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire sandbox: %w", err)
	}
	defer release()

	slog.Debug("sandbox execution", "session_id", sessionID, "sandbox_url", sandboxURL)

	resp, err := e.client.Execute(ctx, sandboxURL, &Request{
		Code:           code,
		Language:       language,
		TimeoutSeconds: e.TimeoutSeconds,
	})
	if err != nil {
		return nil, err
	}

	if resp.ExitCode != 0 {
		return nil, fmt.Errorf("execution failed (exit %d): %s", resp.ExitCode, resp.Stderr)
	}

	outcome := &backend.Outcome{Stdout: resp.Stdout}
	if len(resp.Result) > 0 {
		var result any
		if err := json.Unmarshal(resp.Result, &result); err != nil {
			return nil, fmt.Errorf("decode result value: %w", err)
		}
		outcome.Result = result
	}
	return outcome, nil
}
