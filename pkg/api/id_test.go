package api

import (
	"strings"
	"testing"
)

func TestNewSessionID(t *testing.T) {
	id := NewSessionID()

	if !strings.HasPrefix(id, "sess_") {
		t.Errorf("NewSessionID() = %q, want prefix %q", id, "sess_")
	}
	if len(id) != len("sess_")+24 {
		t.Errorf("NewSessionID() length = %d, want %d", len(id), len("sess_")+24)
	}
	if !ValidateSessionID(id) {
		t.Errorf("NewSessionID() = %q does not validate", id)
	}
}

func TestNewSessionIDUniqueness(t *testing.T) {
	const n = 10000
	seen := make(map[string]bool, n)
	for i := 0; i < n; i++ {
		id := NewSessionID()
		if seen[id] {
			t.Fatalf("duplicate session ID generated: %q", id)
		}
		seen[id] = true
	}
}

func TestValidateSessionID(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want bool
	}{
		{"valid", "sess_" + strings.Repeat("a", 24), true},
		{"valid mixed case and digits", "sess_aB3dEf6hIj9kLm2nOp5qRs8t", true},
		{"empty", "", false},
		{"missing prefix", strings.Repeat("a", 24), false},
		{"wrong prefix", "resp_" + strings.Repeat("a", 24), false},
		{"too short", "sess_" + strings.Repeat("a", 23), false},
		{"too long", "sess_" + strings.Repeat("a", 25), false},
		{"invalid characters", "sess_" + strings.Repeat("a", 23) + "!", false},
		{"prefix only", "sess_", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateSessionID(tt.id); got != tt.want {
				t.Errorf("ValidateSessionID(%q) = %v, want %v", tt.id, got, tt.want)
			}
		})
	}
}
