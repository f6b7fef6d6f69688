package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestAPIErrorError(t *testing.T) {
	tests := []struct {
		name string
		err  *APIError
		want string
	}{
		{
			name: "with param",
			err:  NewInvalidRequestError("code", "code is required"),
			want: "invalid_request: code is required (param: code)",
		},
		{
			name: "without param",
			err:  NewServerError("something broke"),
			want: "server_error: something broke",
		},
		{
			name: "session not found",
			err:  NewSessionNotFoundError("sess_abc"),
			want: `session_not_found: session "sess_abc" not found (param: session_id)`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestErrorTypeHelpers(t *testing.T) {
	sessionErr := NewSessionNotFoundError("sess_x")
	fileErr := NewFileNotFoundError("data.csv", "sess_x")
	transportErr := NewTransportError(errors.New("connection refused"))

	if !IsSessionNotFound(sessionErr) {
		t.Error("IsSessionNotFound(sessionErr) = false, want true")
	}
	if IsSessionNotFound(fileErr) {
		t.Error("IsSessionNotFound(fileErr) = true, want false")
	}
	if !IsFileNotFound(fileErr) {
		t.Error("IsFileNotFound(fileErr) = false, want true")
	}
	if IsFileNotFound(sessionErr) {
		t.Error("IsFileNotFound(sessionErr) = true, want false")
	}
	if !IsTransport(transportErr) {
		t.Error("IsTransport(transportErr) = false, want true")
	}
	if IsTransport(nil) {
		t.Error("IsTransport(nil) = true, want false")
	}
}

func TestHelpersSeeThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("run failed: %w", NewSessionNotFoundError("sess_y"))
	if !IsSessionNotFound(wrapped) {
		t.Error("IsSessionNotFound on wrapped error = false, want true")
	}
}

func TestTransportErrorPreservesCause(t *testing.T) {
	cause := errors.New("dial tcp: i/o timeout")
	err := NewTransportError(cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is(transportErr, cause) = false, want true")
	}
	if !strings.Contains(err.Error(), "i/o timeout") {
		t.Errorf("Error() = %q, want cause message included", err.Error())
	}
}

func TestErrorResponseJSON(t *testing.T) {
	resp := ErrorResponse{Error: NewFileNotFoundError("missing.txt", "sess_z")}

	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded ErrorResponse
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if decoded.Error.Type != ErrorTypeFileNotFound {
		t.Errorf("Type = %q, want %q", decoded.Error.Type, ErrorTypeFileNotFound)
	}
	if decoded.Error.Param != "remote_path" {
		t.Errorf("Param = %q, want %q", decoded.Error.Param, "remote_path")
	}
}
