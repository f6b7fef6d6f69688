package redis

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/tci-dev/tcigo/pkg/api"
	"github.com/tci-dev/tcigo/pkg/storage"
)

// setupStore starts an embedded miniredis instance and connects a Store.
func setupStore(t *testing.T) *Store {
	t.Helper()

	mr := miniredis.RunT(t)

	store, err := New(context.Background(), Config{Addr: mr.Addr()})
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)

	sess := &api.Session{ID: "sess_redis1", Language: api.DefaultLanguage}
	if err := s.CreateSession(ctx, sess); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	if err := s.CreateSession(ctx, sess); !errors.Is(err, storage.ErrSessionExists) {
		t.Errorf("CreateSession(duplicate) = %v, want ErrSessionExists", err)
	}

	exists, err := s.SessionExists(ctx, sess.ID)
	if err != nil {
		t.Fatalf("SessionExists: %v", err)
	}
	if !exists {
		t.Error("SessionExists = false, want true")
	}

	existed, err := s.CloseSession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("CloseSession: %v", err)
	}
	if !existed {
		t.Error("CloseSession = false, want true for live session")
	}

	// Tolerant close on an already-closed session.
	existed, err = s.CloseSession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("CloseSession(again): %v", err)
	}
	if existed {
		t.Error("CloseSession(again) = true, want false")
	}
}

func TestGetSession(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)

	if err := s.CreateSession(ctx, &api.Session{ID: "sess_redis2", Language: "golang"}); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	sess, err := s.GetSession(ctx, "sess_redis2")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if sess.Language != "golang" {
		t.Errorf("Language = %q, want golang", sess.Language)
	}

	if _, err := s.GetSession(ctx, "sess_unknown"); !errors.Is(err, storage.ErrSessionNotFound) {
		t.Errorf("GetSession(unknown) = %v, want ErrSessionNotFound", err)
	}

	if _, err := s.CloseSession(ctx, "sess_redis2"); err != nil {
		t.Fatalf("CloseSession: %v", err)
	}
	if _, err := s.GetSession(ctx, "sess_redis2"); !errors.Is(err, storage.ErrSessionNotFound) {
		t.Errorf("GetSession(closed) = %v, want ErrSessionNotFound", err)
	}
}

func TestFileOperations(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)

	sess := &api.Session{ID: "sess_redis2", Language: api.DefaultLanguage}
	if err := s.CreateSession(ctx, sess); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	content := []byte{0x00, 0x10, 0xff, 'T', 'C', 'I'}
	if err := s.PutFile(ctx, sess.ID, "bin/blob", content); err != nil {
		t.Fatalf("PutFile: %v", err)
	}

	f, err := s.GetFile(ctx, sess.ID, "bin/blob")
	if err != nil {
		t.Fatalf("GetFile: %v", err)
	}
	if f.Name != "bin/blob" {
		t.Errorf("Name = %q, want %q", f.Name, "bin/blob")
	}
	if string(f.Content) != string(content) {
		t.Errorf("Content = %v, want %v", f.Content, content)
	}

	// Overwrite: last write wins.
	if err := s.PutFile(ctx, sess.ID, "bin/blob", []byte("second")); err != nil {
		t.Fatalf("PutFile(overwrite): %v", err)
	}
	f, err = s.GetFile(ctx, sess.ID, "bin/blob")
	if err != nil {
		t.Fatalf("GetFile: %v", err)
	}
	if string(f.Content) != "second" {
		t.Errorf("Content = %q, want %q", f.Content, "second")
	}

	if _, err := s.GetFile(ctx, sess.ID, "missing.txt"); !errors.Is(err, storage.ErrFileNotFound) {
		t.Errorf("GetFile(missing) = %v, want ErrFileNotFound", err)
	}
}

func TestFileOpsOnUnknownSession(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)

	if err := s.PutFile(ctx, "sess_nope", "f.txt", []byte("x")); !errors.Is(err, storage.ErrSessionNotFound) {
		t.Errorf("PutFile(unknown session) = %v, want ErrSessionNotFound", err)
	}
	if _, err := s.GetFile(ctx, "sess_nope", "f.txt"); !errors.Is(err, storage.ErrSessionNotFound) {
		t.Errorf("GetFile(unknown session) = %v, want ErrSessionNotFound", err)
	}
}

func TestCloseSessionPurgesFiles(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)

	sess := &api.Session{ID: "sess_redis3", Language: api.DefaultLanguage}
	if err := s.CreateSession(ctx, sess); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if err := s.PutFile(ctx, sess.ID, "f.txt", []byte("data")); err != nil {
		t.Fatalf("PutFile: %v", err)
	}
	if _, err := s.CloseSession(ctx, sess.ID); err != nil {
		t.Fatalf("CloseSession: %v", err)
	}

	// Recreating the same ID must start with an empty file store.
	if err := s.CreateSession(ctx, sess); err != nil {
		t.Fatalf("CreateSession(recreate): %v", err)
	}
	if _, err := s.GetFile(ctx, sess.ID, "f.txt"); !errors.Is(err, storage.ErrFileNotFound) {
		t.Errorf("GetFile after close+recreate = %v, want ErrFileNotFound", err)
	}
}

func TestCrossSessionIsolation(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)

	for _, id := range []string{"sess_one", "sess_two"} {
		if err := s.CreateSession(ctx, &api.Session{ID: id, Language: api.DefaultLanguage}); err != nil {
			t.Fatalf("CreateSession(%s): %v", id, err)
		}
	}
	if err := s.PutFile(ctx, "sess_one", "private.txt", []byte("one only")); err != nil {
		t.Fatalf("PutFile: %v", err)
	}

	if _, err := s.GetFile(ctx, "sess_two", "private.txt"); !errors.Is(err, storage.ErrFileNotFound) {
		t.Errorf("GetFile from other session = %v, want ErrFileNotFound", err)
	}
}
