package postgres

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	pgmodule "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/tci-dev/tcigo/pkg/api"
	"github.com/tci-dev/tcigo/pkg/storage"
)

func init() {
	// Configure testcontainers to use podman.
	// Detect the podman socket from `podman machine inspect`.
	if os.Getenv("DOCKER_HOST") == "" {
		out, err := exec.Command("podman", "machine", "inspect", "--format", "{{.ConnectionInfo.PodmanSocket.Path}}").Output()
		if err == nil {
			sock := strings.TrimSpace(string(out))
			if sock != "" {
				os.Setenv("DOCKER_HOST", "unix://"+sock)
			}
		}
	}
	// Ryuk needs privileged mode with podman.
	if os.Getenv("TESTCONTAINERS_RYUK_CONTAINER_PRIVILEGED") == "" {
		os.Setenv("TESTCONTAINERS_RYUK_CONTAINER_PRIVILEGED", "true")
	}
}

// setupTestDB starts a PostgreSQL container and returns a connected Store.
// Tests are skipped if no container runtime is available.
func setupTestDB(t *testing.T) *Store {
	t.Helper()

	if os.Getenv("SKIP_INTEGRATION") == "true" {
		t.Skip("SKIP_INTEGRATION=true, skipping PostgreSQL integration tests")
	}

	if _, err := exec.LookPath("podman"); err != nil {
		t.Skip("podman not found, skipping integration tests")
	}

	ctx := context.Background()

	container, err := pgmodule.Run(ctx,
		"postgres:16-alpine",
		pgmodule.WithDatabase("tci_test"),
		pgmodule.WithUsername("test"),
		pgmodule.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Skipf("skipping: could not start PostgreSQL container (is podman running?): %v", err)
	}

	t.Cleanup(func() {
		container.Terminate(context.Background())
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("getting connection string: %v", err)
	}

	store, err := New(ctx, Config{
		DSN:            connStr,
		MaxConns:       5,
		MinConns:       1,
		MigrateOnStart: true,
	})
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
	store := setupTestDB(t)

	sess := &api.Session{ID: api.NewSessionID(), Language: api.DefaultLanguage}
	if err := store.CreateSession(ctx, sess); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	exists, err := store.SessionExists(ctx, sess.ID)
	if err != nil {
		t.Fatalf("SessionExists: %v", err)
	}
	if !exists {
		t.Error("SessionExists = false, want true")
	}

	got, err := store.GetSession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.Language != sess.Language {
		t.Errorf("Language = %q, want %q", got.Language, sess.Language)
	}

	closed, err := store.CloseSession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("CloseSession: %v", err)
	}
	if !closed {
		t.Error("CloseSession = false, want true for live session")
	}

	// Tolerant second close.
	closed, err = store.CloseSession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("CloseSession(again): %v", err)
	}
	if closed {
		t.Error("CloseSession(again) = true, want false")
	}

	exists, err = store.SessionExists(ctx, sess.ID)
	if err != nil {
		t.Fatalf("SessionExists after close: %v", err)
	}
	if exists {
		t.Error("SessionExists after close = true, want false")
	}

	if _, err := store.GetSession(ctx, sess.ID); !errors.Is(err, storage.ErrSessionNotFound) {
		t.Errorf("GetSession after close = %v, want ErrSessionNotFound", err)
	}
}

func TestClosedIDIsNeverReused(t *testing.T) {
	ctx := context.Background()
	store := setupTestDB(t)

	sess := &api.Session{ID: api.NewSessionID(), Language: api.DefaultLanguage}
	if err := store.CreateSession(ctx, sess); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if _, err := store.CloseSession(ctx, sess.ID); err != nil {
		t.Fatalf("CloseSession: %v", err)
	}

	// The tombstone row keeps the ID occupied.
	err := store.CreateSession(ctx, sess)
	if !errors.Is(err, storage.ErrSessionExists) {
		t.Errorf("CreateSession(closed id) = %v, want ErrSessionExists", err)
	}
}

func TestFileOperations(t *testing.T) {
	ctx := context.Background()
	store := setupTestDB(t)

	sess := &api.Session{ID: api.NewSessionID(), Language: api.DefaultLanguage}
	if err := store.CreateSession(ctx, sess); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	content := []byte("Hello, TCI!")
	if err := store.PutFile(ctx, sess.ID, "test.txt", content); err != nil {
		t.Fatalf("PutFile: %v", err)
	}

	f, err := store.GetFile(ctx, sess.ID, "test.txt")
	if err != nil {
		t.Fatalf("GetFile: %v", err)
	}
	if f.Name != "test.txt" || string(f.Content) != "Hello, TCI!" {
		t.Errorf("GetFile = {%q, %q}, want {%q, %q}", f.Name, f.Content, "test.txt", "Hello, TCI!")
	}

	// Overwrite: last write wins.
	if err := store.PutFile(ctx, sess.ID, "test.txt", []byte("second")); err != nil {
		t.Fatalf("PutFile(overwrite): %v", err)
	}
	f, err = store.GetFile(ctx, sess.ID, "test.txt")
	if err != nil {
		t.Fatalf("GetFile: %v", err)
	}
	if string(f.Content) != "second" {
		t.Errorf("Content = %q, want %q", f.Content, "second")
	}

	// Missing path.
	if _, err := store.GetFile(ctx, sess.ID, "missing.txt"); !errors.Is(err, storage.ErrFileNotFound) {
		t.Errorf("GetFile(missing) = %v, want ErrFileNotFound", err)
	}
}

func TestFileOpsAfterClose(t *testing.T) {
	ctx := context.Background()
	store := setupTestDB(t)

	sess := &api.Session{ID: api.NewSessionID(), Language: api.DefaultLanguage}
	if err := store.CreateSession(ctx, sess); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if err := store.PutFile(ctx, sess.ID, "f.txt", []byte("data")); err != nil {
		t.Fatalf("PutFile: %v", err)
	}
	if _, err := store.CloseSession(ctx, sess.ID); err != nil {
		t.Fatalf("CloseSession: %v", err)
	}

	if err := store.PutFile(ctx, sess.ID, "f.txt", []byte("late")); !errors.Is(err, storage.ErrSessionNotFound) {
		t.Errorf("PutFile after close = %v, want ErrSessionNotFound", err)
	}
	if _, err := store.GetFile(ctx, sess.ID, "f.txt"); !errors.Is(err, storage.ErrSessionNotFound) {
		t.Errorf("GetFile after close = %v, want ErrSessionNotFound", err)
	}
}

func TestCrossSessionIsolation(t *testing.T) {
	ctx := context.Background()
	store := setupTestDB(t)

	a := &api.Session{ID: api.NewSessionID(), Language: api.DefaultLanguage}
	b := &api.Session{ID: api.NewSessionID(), Language: api.DefaultLanguage}
	for _, sess := range []*api.Session{a, b} {
		if err := store.CreateSession(ctx, sess); err != nil {
			t.Fatalf("CreateSession: %v", err)
		}
	}
	if err := store.PutFile(ctx, a.ID, "private.txt", []byte("a only")); err != nil {
		t.Fatalf("PutFile: %v", err)
	}

	if _, err := store.GetFile(ctx, b.ID, "private.txt"); !errors.Is(err, storage.ErrFileNotFound) {
		t.Errorf("GetFile from other session = %v, want ErrFileNotFound", err)
	}
}
