// Package backend defines the transport-collaborator abstraction behind
// the TCI client facade: the five session-scoped operations, the executor
// and condition-evaluator extension points, and the grading algorithm that
// turns declared test specs into graded results.
//
// Two implementations ship with the SDK: pkg/backend/local runs everything
// in-process against a storage.SessionStore (the reference backend), and
// pkg/backend/remote speaks the TCI REST API over HTTP.
package backend

import (
	"context"

	"github.com/tci-dev/tcigo/pkg/api"
)

// Backend performs the five session-scoped operations. Run, UploadFile,
// and DownloadFile map to potentially slow remote calls, so every method
// takes a context for cancellation and timeout pass-through.
type Backend interface {
	// CreateSession allocates a session with a fresh unique identity and
	// an empty private file store. An empty language selects the default.
	CreateSession(ctx context.Context, language string) (*api.Session, error)

	// CloseSession releases the session and its files. Closing is
	// tolerant: an unknown ID is not an error and still reports true.
	CloseSession(ctx context.Context, sessionID string) (bool, error)

	// Run executes code within the session's context and grades the
	// declared tests against the outcome.
	Run(ctx context.Context, sessionID, code string, tests []api.TestSpec) (*api.Execution, error)

	// UploadFile writes or overwrites content at remotePath within the
	// session's private store. Overwriting still reports true.
	UploadFile(ctx context.Context, sessionID, remotePath string, content []byte) (bool, error)

	// DownloadFile returns a snapshot of the file at remotePath.
	DownloadFile(ctx context.Context, sessionID, remotePath string) (*api.File, error)
}

// Outcome is what an Executor produces for a single run: the captured
// stdout and the program's final computed value.
type Outcome struct {
	Stdout string
	Result any
}

// Executor runs submitted code and captures its outcome. Implementations
// range from the fixed-outcome stand-in in pkg/backend/local to the
// sandbox-pod executor in pkg/sandbox.
type Executor interface {
	Execute(ctx context.Context, sessionID, language, code string) (*Outcome, error)
}

// ConditionEvaluator grades a single test condition against an execution
// outcome. The substring matcher in pkg/backend/local is a stand-in; a
// production deployment plugs in an evaluator backed by the execution
// backend's real expression engine.
type ConditionEvaluator interface {
	Evaluate(ctx context.Context, condition string, outcome *Outcome) (bool, error)
}

// GradeTests evaluates each TestSpec against the outcome and returns one
// TestResult per spec in submission order. Duplicate names are evaluated
// independently; the reward is granted only on pass. The returned slice is
// never nil, so an execution without tests serializes as an empty array.
func GradeTests(ctx context.Context, eval ConditionEvaluator, outcome *Outcome, tests []api.TestSpec) ([]api.TestResult, error) {
	results := make([]api.TestResult, 0, len(tests))
	for _, spec := range tests {
		passed, err := eval.Evaluate(ctx, spec.Condition, outcome)
		if err != nil {
			return nil, err
		}
		reward := 0.0
		if passed {
			reward = spec.Reward
		}
		results = append(results, api.TestResult{
			Name:   spec.Name,
			Passed: passed,
			Reward: reward,
		})
	}
	return results, nil
}
