package api

import (
	"strings"
	"testing"
)

func TestValidateRunRequest(t *testing.T) {
	cfg := DefaultValidationConfig()

	tests := []struct {
		name      string
		req       RunRequest
		wantErr   bool
		wantParam string
	}{
		{
			name: "valid without tests",
			req:  RunRequest{Code: "result = 4"},
		},
		{
			name: "valid with tests",
			req: RunRequest{
				Code:  "result = 4",
				Tests: []TestSpec{{Name: "Check result", Condition: "result == 4", Reward: 1.0}},
			},
		},
		{
			name: "duplicate test names allowed",
			req: RunRequest{
				Code: "result = 4",
				Tests: []TestSpec{
					{Name: "check", Condition: "result == 4", Reward: 1.0},
					{Name: "check", Condition: "result > 0", Reward: 0.5},
				},
			},
		},
		{
			name: "zero reward allowed",
			req: RunRequest{
				Code:  "result = 4",
				Tests: []TestSpec{{Name: "freebie", Condition: "result == 4", Reward: 0}},
			},
		},
		{
			name:      "empty code",
			req:       RunRequest{},
			wantErr:   true,
			wantParam: "code",
		},
		{
			name: "code too large",
			req: RunRequest{
				Code: strings.Repeat("x", cfg.MaxCodeSize+1),
			},
			wantErr:   true,
			wantParam: "code",
		},
		{
			name: "unnamed test",
			req: RunRequest{
				Code:  "result = 4",
				Tests: []TestSpec{{Condition: "result == 4", Reward: 1.0}},
			},
			wantErr:   true,
			wantParam: "tests[0].name",
		},
		{
			name: "negative reward",
			req: RunRequest{
				Code: "result = 4",
				Tests: []TestSpec{
					{Name: "ok", Condition: "result == 4", Reward: 1.0},
					{Name: "bad", Condition: "result == 4", Reward: -0.5},
				},
			},
			wantErr:   true,
			wantParam: "tests[1].reward",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRunRequest(&tt.req, cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateRunRequest() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && err.Param != tt.wantParam {
				t.Errorf("Param = %q, want %q", err.Param, tt.wantParam)
			}
		})
	}
}

func TestValidateRunRequestMaxTests(t *testing.T) {
	cfg := ValidationConfig{MaxTests: 2}
	req := RunRequest{
		Code: "result = 4",
		Tests: []TestSpec{
			{Name: "a", Reward: 1}, {Name: "b", Reward: 1}, {Name: "c", Reward: 1},
		},
	}

	err := ValidateRunRequest(&req, cfg)
	if err == nil {
		t.Fatal("ValidateRunRequest() = nil, want error")
	}
	if err.Param != "tests" {
		t.Errorf("Param = %q, want %q", err.Param, "tests")
	}
}

func TestValidateRemotePath(t *testing.T) {
	cfg := DefaultValidationConfig()

	if err := ValidateRemotePath("data/output.csv", cfg); err != nil {
		t.Errorf("ValidateRemotePath(valid) = %v, want nil", err)
	}
	if err := ValidateRemotePath("", cfg); err == nil {
		t.Error("ValidateRemotePath(empty) = nil, want error")
	}
	long := strings.Repeat("p/", cfg.MaxPathLength)
	if err := ValidateRemotePath(long, cfg); err == nil {
		t.Error("ValidateRemotePath(too long) = nil, want error")
	}
}
