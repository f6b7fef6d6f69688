package integration

import (
	"context"
	"testing"

	"github.com/tci-dev/tcigo/pkg/api"
)

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	client := testEnv.Client

	sess, err := client.Sessions.Create(ctx, "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !api.ValidateSessionID(sess.ID) {
		t.Errorf("malformed session ID %q", sess.ID)
	}
	if sess.Language != api.DefaultLanguage {
		t.Errorf("language = %q, want %q", sess.Language, api.DefaultLanguage)
	}

	closed, err := client.Sessions.Close(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !closed {
		t.Error("closed = false, want true")
	}

	// Closing again is tolerated.
	closed, err = client.Sessions.Close(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Close (repeat): %v", err)
	}
	if !closed {
		t.Error("repeat close reported false")
	}
}

func TestSessionIDsAreUnique(t *testing.T) {
	ctx := context.Background()
	client := testEnv.Client

	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		sess, err := client.Sessions.Create(ctx, "")
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if seen[sess.ID] {
			t.Fatalf("duplicate session ID %q", sess.ID)
		}
		seen[sess.ID] = true

		if _, err := client.Sessions.Close(ctx, sess.ID); err != nil {
			t.Fatalf("Close: %v", err)
		}
	}
}

func TestRunAfterCloseFails(t *testing.T) {
	ctx := context.Background()
	client := testEnv.Client

	sess, err := client.Sessions.Create(ctx, "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := client.Sessions.Close(ctx, sess.ID); err != nil {
		t.Fatalf("Close: %v", err)
	}

	_, err = client.Executions.Run(ctx, sess.ID, "result = 1", nil)
	if !api.IsSessionNotFound(err) {
		t.Errorf("expected session_not_found after close, got %v", err)
	}
}
