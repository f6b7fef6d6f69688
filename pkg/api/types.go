package api

// DefaultLanguage is the language assigned to sessions created without an
// explicit language tag.
const DefaultLanguage = "python"

// Session is an isolated execution context with its own file namespace.
// The ID is an opaque token issued by the session registry and is never
// reused after the session closes.
type Session struct {
	ID       string `json:"id"`
	Language string `json:"language"`
}

// TestSpec declares a grading rule submitted alongside code for execution.
// The condition is an opaque expression string interpreted by the execution
// backend; the reward is granted only when the condition evaluates true.
type TestSpec struct {
	Name      string  `json:"name"`
	Condition string  `json:"condition"`
	Reward    float64 `json:"reward"`
}

// TestResult is the evaluated outcome of a TestSpec. Reward equals the
// spec's reward when Passed is true and is 0 otherwise; a failing test is
// never rewarded.
type TestResult struct {
	Name   string  `json:"name"`
	Passed bool    `json:"passed"`
	Reward float64 `json:"reward"`
}

// Execution is the outcome of running submitted code once within a session.
// Tests holds one TestResult per submitted TestSpec in submission order;
// duplicate test names are evaluated independently. Executions are not
// retained by the backend.
type Execution struct {
	Stdout string       `json:"stdout"`
	Result any          `json:"result"`
	Tests  []TestResult `json:"tests"`
}

// File is a snapshot of a stored file: the remote path it was uploaded
// under and the bytes stored at the time of the download call.
type File struct {
	Name    string `json:"name"`
	Content []byte `json:"content"`
}

// CreateSessionRequest is the request body for POST /v1/sessions.
type CreateSessionRequest struct {
	Language string `json:"language,omitempty"`
}

// CloseSessionResponse is the response body for DELETE /v1/sessions/{id}.
type CloseSessionResponse struct {
	Closed bool `json:"closed"`
}

// RunRequest is the request body for POST /v1/sessions/{id}/executions.
type RunRequest struct {
	Code  string     `json:"code"`
	Tests []TestSpec `json:"tests,omitempty"`
}

// UploadResponse is the response body for PUT /v1/sessions/{id}/files/{path}.
type UploadResponse struct {
	Uploaded bool `json:"uploaded"`
}
