package local

import (
	"context"
	"strings"

	"github.com/tci-dev/tcigo/pkg/backend"
)

// Reference stand-in behavior, matching the mock backend of the original
// TCI service. Neither type is part of the execution contract: deployments
// replace them through Config.Executor and Config.Evaluator (pkg/sandbox
// provides a real Executor).
const (
	referenceStdout = "The sum is 4"
	referenceMarker = "result == 4"
)

var referenceResult any = 4

// StaticExecutor ignores the submitted code and reports a fixed outcome.
type StaticExecutor struct {
	Stdout string
	Result any
}

// NewStaticExecutor returns a StaticExecutor with the reference outcome.
func NewStaticExecutor() *StaticExecutor {
	return &StaticExecutor{Stdout: referenceStdout, Result: referenceResult}
}

// Execute returns the configured outcome.
func (e *StaticExecutor) Execute(_ context.Context, _, _, _ string) (*backend.Outcome, error) {
	return &backend.Outcome{Stdout: e.Stdout, Result: e.Result}, nil
}

// SubstringEvaluator passes a test when the condition string contains the
// marker substring. This mirrors the reference mock; it does not inspect
// the outcome at all.
type SubstringEvaluator struct {
	Marker string
}

// NewSubstringEvaluator returns a SubstringEvaluator with the reference marker.
func NewSubstringEvaluator() *SubstringEvaluator {
	return &SubstringEvaluator{Marker: referenceMarker}
}

// Evaluate reports whether the condition contains the marker.
func (e *SubstringEvaluator) Evaluate(_ context.Context, condition string, _ *backend.Outcome) (bool, error) {
	return strings.Contains(condition, e.Marker), nil
}
