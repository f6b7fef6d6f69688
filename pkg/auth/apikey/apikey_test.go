package apikey

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tci-dev/tcigo/pkg/auth"
)

func newAuthenticator() *Authenticator {
	return New([]RawKeyEntry{
		{Key: "tci-key-alice", Identity: auth.Identity{Subject: "alice", Scopes: []string{"execute"}}},
		{Key: "tci-key-bob", Identity: auth.Identity{Subject: "bob"}},
	})
}

func requestWithAuth(header string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/v1/sessions", nil)
	if header != "" {
		r.Header.Set("Authorization", header)
	}
	return r
}

func TestAuthenticate(t *testing.T) {
	a := newAuthenticator()

	tests := []struct {
		name         string
		header       string
		wantDecision auth.AuthDecision
		wantSubject  string
	}{
		{"valid key", "Bearer tci-key-alice", auth.Yes, "alice"},
		{"second valid key", "Bearer tci-key-bob", auth.Yes, "bob"},
		{"unknown key", "Bearer tci-key-mallory", auth.No, ""},
		{"empty bearer", "Bearer ", auth.No, ""},
		{"no header", "", auth.Abstain, ""},
		{"basic auth", "Basic dXNlcjpwYXNz", auth.Abstain, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := a.Authenticate(context.Background(), requestWithAuth(tt.header))
			if result.Decision != tt.wantDecision {
				t.Fatalf("decision = %v, want %v", result.Decision, tt.wantDecision)
			}
			if tt.wantDecision == auth.Yes && result.Identity.Subject != tt.wantSubject {
				t.Errorf("subject = %q, want %q", result.Identity.Subject, tt.wantSubject)
			}
			if tt.wantDecision == auth.No && result.Err == nil {
				t.Error("expected an error on rejection")
			}
		})
	}
}

func TestIdentityIsCopied(t *testing.T) {
	a := newAuthenticator()

	first := a.Authenticate(context.Background(), requestWithAuth("Bearer tci-key-alice"))
	first.Identity.Subject = "tampered"

	second := a.Authenticate(context.Background(), requestWithAuth("Bearer tci-key-alice"))
	if second.Identity.Subject != "alice" {
		t.Errorf("subject = %q, want alice (stored identity must not be shared)", second.Identity.Subject)
	}
}
