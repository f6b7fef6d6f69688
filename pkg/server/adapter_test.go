package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tci-dev/tcigo/pkg/api"
	"github.com/tci-dev/tcigo/pkg/backend/local"
	"github.com/tci-dev/tcigo/pkg/storage/memory"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store := memory.New()
	t.Cleanup(func() { store.Close() })

	adapter := NewAdapter(local.New(store, local.DefaultConfig()), DefaultConfig())
	srv := httptest.NewServer(adapter.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func createSession(t *testing.T, srv *httptest.Server) *api.Session {
	t.Helper()
	resp, err := http.Post(srv.URL+"/v1/sessions", "application/json", strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("POST /v1/sessions: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	var sess api.Session
	if err := json.NewDecoder(resp.Body).Decode(&sess); err != nil {
		t.Fatalf("decoding session: %v", err)
	}
	return &sess
}

func decodeErrorBody(t *testing.T, resp *http.Response) *api.APIError {
	t.Helper()
	var envelope api.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decoding error envelope: %v", err)
	}
	if envelope.Error == nil {
		t.Fatal("error envelope has no error")
	}
	return envelope.Error
}

func TestCreateSession(t *testing.T) {
	srv := newTestServer(t)

	sess := createSession(t, srv)
	if !api.ValidateSessionID(sess.ID) {
		t.Errorf("malformed session ID %q", sess.ID)
	}
	if sess.Language != api.DefaultLanguage {
		t.Errorf("language = %q, want %q", sess.Language, api.DefaultLanguage)
	}
}

func TestCreateSessionWithLanguage(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/v1/sessions", "application/json",
		strings.NewReader(`{"language":"python"}`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	var sess api.Session
	if err := json.NewDecoder(resp.Body).Decode(&sess); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sess.Language != "python" {
		t.Errorf("language = %q, want python", sess.Language)
	}
}

func TestCloseSession(t *testing.T) {
	srv := newTestServer(t)
	sess := createSession(t, srv)

	for _, name := range []string{"first close", "repeat close"} {
		req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/v1/sessions/"+sess.ID, nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		var body api.CloseSessionResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			t.Fatalf("%s: decode: %v", name, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s: status = %d, want 200", name, resp.StatusCode)
		}
		if !body.Closed {
			t.Errorf("%s: closed = false, want true", name)
		}
	}
}

func TestRunExecution(t *testing.T) {
	srv := newTestServer(t)
	sess := createSession(t, srv)

	reqBody := `{"code":"result = 2 + 2","tests":[{"name":"sum","condition":"result == 4","reward":1.5}]}`
	resp, err := http.Post(srv.URL+"/v1/sessions/"+sess.ID+"/executions",
		"application/json", strings.NewReader(reqBody))
	if err != nil {
		t.Fatalf("POST executions: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var exec api.Execution
	if err := json.NewDecoder(resp.Body).Decode(&exec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(exec.Tests) != 1 {
		t.Fatalf("got %d test results, want 1", len(exec.Tests))
	}
	if !exec.Tests[0].Passed {
		t.Error("expected the test to pass")
	}
	if exec.Tests[0].Reward != 1.5 {
		t.Errorf("reward = %v, want 1.5", exec.Tests[0].Reward)
	}
}

func TestRunWithoutTestsSerializesEmptyArray(t *testing.T) {
	srv := newTestServer(t)
	sess := createSession(t, srv)

	resp, err := http.Post(srv.URL+"/v1/sessions/"+sess.ID+"/executions",
		"application/json", strings.NewReader(`{"code":"print('hi')"}`))
	if err != nil {
		t.Fatalf("POST executions: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !bytes.Contains(body, []byte(`"tests":[]`)) {
		t.Errorf("expected \"tests\":[] in body, got %s", body)
	}
}

func TestRunValidation(t *testing.T) {
	srv := newTestServer(t)
	sess := createSession(t, srv)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantType   api.ErrorType
	}{
		{
			name:       "missing code",
			body:       `{"tests":[]}`,
			wantStatus: http.StatusBadRequest,
			wantType:   api.ErrorTypeInvalidRequest,
		},
		{
			name:       "invalid JSON",
			body:       `{"code":`,
			wantStatus: http.StatusBadRequest,
			wantType:   api.ErrorTypeInvalidRequest,
		},
		{
			name:       "unnamed test",
			body:       `{"code":"x","tests":[{"condition":"x","reward":1}]}`,
			wantStatus: http.StatusBadRequest,
			wantType:   api.ErrorTypeInvalidRequest,
		},
		{
			name:       "negative reward",
			body:       `{"code":"x","tests":[{"name":"t","condition":"x","reward":-1}]}`,
			wantStatus: http.StatusBadRequest,
			wantType:   api.ErrorTypeInvalidRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(srv.URL+"/v1/sessions/"+sess.ID+"/executions",
				"application/json", strings.NewReader(tt.body))
			if err != nil {
				t.Fatalf("POST: %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if apiErr := decodeErrorBody(t, resp); apiErr.Type != tt.wantType {
				t.Errorf("type = %q, want %q", apiErr.Type, tt.wantType)
			}
		})
	}
}

func TestRunUnknownSession(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/v1/sessions/sess_000000000000000000000000/executions",
		"application/json", strings.NewReader(`{"code":"x"}`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
	if apiErr := decodeErrorBody(t, resp); apiErr.Type != api.ErrorTypeSessionNotFound {
		t.Errorf("type = %q, want session_not_found", apiErr.Type)
	}
}

func TestFileUploadDownload(t *testing.T) {
	srv := newTestServer(t)
	sess := createSession(t, srv)

	content := []byte("Hello, TCI!")
	put, _ := http.NewRequest(http.MethodPut,
		srv.URL+"/v1/sessions/"+sess.ID+"/files/greeting.txt", bytes.NewReader(content))
	put.Header.Set("Content-Type", "application/octet-stream")

	resp, err := http.DefaultClient.Do(put)
	if err != nil {
		t.Fatalf("PUT file: %v", err)
	}
	var uploadBody api.UploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&uploadBody); err != nil {
		t.Fatalf("decode: %v", err)
	}
	resp.Body.Close()
	if !uploadBody.Uploaded {
		t.Error("uploaded = false, want true")
	}

	resp, err = http.Get(srv.URL + "/v1/sessions/" + sess.ID + "/files/greeting.txt")
	if err != nil {
		t.Fatalf("GET file: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	got, _ := io.ReadAll(resp.Body)
	if !bytes.Equal(got, content) {
		t.Errorf("content = %q, want %q", got, content)
	}
}

func TestFileNestedPath(t *testing.T) {
	srv := newTestServer(t)
	sess := createSession(t, srv)

	put, _ := http.NewRequest(http.MethodPut,
		srv.URL+"/v1/sessions/"+sess.ID+"/files/data/input/rows.csv",
		strings.NewReader("a,b\n1,2\n"))
	resp, err := http.DefaultClient.Do(put)
	if err != nil {
		t.Fatalf("PUT file: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("PUT status = %d, want 200", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/v1/sessions/" + sess.ID + "/files/data/input/rows.csv")
	if err != nil {
		t.Fatalf("GET file: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET status = %d, want 200", resp.StatusCode)
	}
}

func TestDownloadErrors(t *testing.T) {
	srv := newTestServer(t)
	sess := createSession(t, srv)

	tests := []struct {
		name     string
		url      string
		wantType api.ErrorType
	}{
		{
			name:     "unknown session wins over unknown path",
			url:      fmt.Sprintf("%s/v1/sessions/%s/files/missing.txt", srv.URL, "sess_000000000000000000000000"),
			wantType: api.ErrorTypeSessionNotFound,
		},
		{
			name:     "unknown path in live session",
			url:      fmt.Sprintf("%s/v1/sessions/%s/files/missing.txt", srv.URL, sess.ID),
			wantType: api.ErrorTypeFileNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(tt.url)
			if err != nil {
				t.Fatalf("GET: %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusNotFound {
				t.Errorf("status = %d, want 404", resp.StatusCode)
			}
			if apiErr := decodeErrorBody(t, resp); apiErr.Type != tt.wantType {
				t.Errorf("type = %q, want %q", apiErr.Type, tt.wantType)
			}
		})
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestUnsupportedContentType(t *testing.T) {
	srv := newTestServer(t)
	sess := createSession(t, srv)

	resp, err := http.Post(srv.URL+"/v1/sessions/"+sess.ID+"/executions",
		"text/plain", strings.NewReader(`{"code":"x"}`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnsupportedMediaType {
		t.Errorf("status = %d, want 415", resp.StatusCode)
	}
}
