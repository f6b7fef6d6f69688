// Command tci-sandbox runs the HTTP execution service inside sandbox pods.
// The interpreter server posts code to /execute and maps the response to an
// execution outcome (see pkg/sandbox).
//
// Scripts report a graded result by writing a JSON value to the file named
// by the TCI_RESULT_FILE environment variable. Stdout is captured verbatim.
//
// Configuration:
//
//	TCI_SANDBOX_PORT           - Listen port (default: 8080)
//	TCI_SANDBOX_LANGUAGE       - Default language: python, golang, node, shell (default: auto-detect)
//	TCI_SANDBOX_MAX_CONCURRENT - Max concurrent executions (default: 3)
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"
	"time"
)

func main() {
	port := envOr("TCI_SANDBOX_PORT", "8080")
	language := envOr("TCI_SANDBOX_LANGUAGE", "")
	maxConcurrent := envOrInt("TCI_SANDBOX_MAX_CONCURRENT", 3)

	if language == "" {
		detected := detectLanguage()
		if detected == "" {
			slog.Error("no supported runtime found in PATH (tried: python3, go, node, bash)")
			os.Exit(1)
		}
		language = detected
	} else if err := validateLanguage(language); err != nil {
		slog.Error("invalid language", "language", language, "error", err.Error())
		os.Exit(1)
	}

	srv := &sandboxServer{
		defaultLanguage: language,
		runtimeVersion:  detectRuntimeVersion(language),
		maxConcurrent:   int32(maxConcurrent),
		startTime:       time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /execute", srv.handleExecute)
	mux.HandleFunc("GET /health", srv.handleHealth)

	httpSrv := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second, // Long timeout for code execution.
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("sandbox server starting", "port", port, "language", language, "runtime", srv.runtimeVersion, "max_concurrent", maxConcurrent)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	httpSrv.Shutdown(shutdownCtx)
}

// --- Server ---

type sandboxServer struct {
	defaultLanguage string // python, golang, node, shell
	runtimeVersion  string // e.g., "Python 3.12.12", "go1.25", "v22.0.0"
	maxConcurrent   int32
	currentLoad     atomic.Int32
	startTime       time.Time
}

// languageConfig returns the interpreter command and source file extension
// for a language.
func languageConfig(language string) (cmd []string, ext string, err error) {
	switch language {
	case "python":
		return []string{"python3"}, ".py", nil
	case "golang":
		return []string{"go", "run"}, ".go", nil
	case "node":
		return []string{"node"}, ".js", nil
	case "shell":
		return []string{"bash"}, ".sh", nil
	default:
		return nil, "", fmt.Errorf("unsupported language %q (supported: python, golang, node, shell)", language)
	}
}

// --- Execute handler ---

type executeRequest struct {
	Code           string `json:"code"`
	Language       string `json:"language,omitempty"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

type executeResponse struct {
	Status          string          `json:"status"`
	Stdout          string          `json:"stdout"`
	Stderr          string          `json:"stderr"`
	Result          json.RawMessage `json:"result,omitempty"`
	ExitCode        int             `json:"exit_code"`
	ExecutionTimeMs int64           `json:"execution_time_ms"`
}

func (s *sandboxServer) handleExecute(w http.ResponseWriter, r *http.Request) {
	// Check capacity.
	current := s.currentLoad.Add(1)
	defer s.currentLoad.Add(-1)

	if current > s.maxConcurrent {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]string{
			"error": fmt.Sprintf("at capacity (%d/%d concurrent executions)", current, s.maxConcurrent),
		})
		return
	}

	// Parse request.
	var req executeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 10*1024*1024)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	if req.Code == "" {
		writeError(w, http.StatusBadRequest, "code is required")
		return
	}

	language := req.Language
	if language == "" {
		language = s.defaultLanguage
	}
	interpreter, fileExt, err := languageConfig(language)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Truncate code for logging (first 120 chars).
	codePreview := req.Code
	if len(codePreview) > 120 {
		codePreview = codePreview[:120] + "..."
	}
	slog.Info("execute request",
		"code", codePreview,
		"language", language,
		"timeout", req.TimeoutSeconds,
	)

	if req.TimeoutSeconds <= 0 {
		req.TimeoutSeconds = 30 // Default timeout.
	}

	// Create temporary working directory.
	tmpDir, err := os.MkdirTemp("", "tci-exec-*")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create temp dir: "+err.Error())
		return
	}
	defer os.RemoveAll(tmpDir)

	// Write the code to a file.
	codePath := filepath.Join(tmpDir, "script"+fileExt)
	if err := os.WriteFile(codePath, []byte(req.Code), 0644); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to write code: "+err.Error())
		return
	}

	// Execute with timeout. The script may report the expression result by
	// writing JSON to TCI_RESULT_FILE.
	ctx, cancel := context.WithTimeout(r.Context(), time.Duration(req.TimeoutSeconds)*time.Second)
	defer cancel()

	resultPath := filepath.Join(tmpDir, "result.json")

	startTime := time.Now()
	cmdArgs := append(interpreter[1:], codePath)
	cmd := exec.CommandContext(ctx, interpreter[0], cmdArgs...)
	cmd.Dir = tmpDir
	cmd.Env = append(os.Environ(), "TCI_RESULT_FILE="+resultPath)

	var stdoutBuf, stderrBuf strings.Builder
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	execErr := cmd.Run()
	duration := time.Since(startTime)

	// Determine exit code.
	exitCode := 0
	status := "success"
	if execErr != nil {
		status = "error"
		// Check timeout first (context deadline takes precedence over exit error).
		if ctx.Err() == context.DeadlineExceeded {
			exitCode = -1
			if stderrBuf.Len() == 0 {
				stderrBuf.WriteString(fmt.Sprintf("execution timed out after %d seconds", req.TimeoutSeconds))
			}
		} else if exitErr, ok := execErr.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			exitCode = -1
		}
	}

	result := readResult(resultPath)

	// Log completion.
	stdoutPreview := stdoutBuf.String()
	if len(stdoutPreview) > 200 {
		stdoutPreview = stdoutPreview[:200] + "..."
	}
	slog.Info("execute complete",
		"status", status,
		"exit_code", exitCode,
		"duration_ms", duration.Milliseconds(),
		"stdout_len", stdoutBuf.Len(),
		"stdout", stdoutPreview,
		"has_result", len(result) > 0,
	)

	// Return response.
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(executeResponse{
		Status:          status,
		Stdout:          stdoutBuf.String(),
		Stderr:          stderrBuf.String(),
		Result:          result,
		ExitCode:        exitCode,
		ExecutionTimeMs: duration.Milliseconds(),
	})
}

// readResult returns the JSON value the script wrote to the result file, or
// nil when the file is absent or not valid JSON.
func readResult(path string) json.RawMessage {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	content = []byte(strings.TrimSpace(string(content)))
	if !json.Valid(content) {
		slog.Warn("ignoring invalid result file", "path", path, "len", len(content))
		return nil
	}
	return content
}

// --- Health handler ---

type healthResponse struct {
	Status          string `json:"status"`
	DefaultLanguage string `json:"default_language"`
	RuntimeVersion  string `json:"runtime_version"`
	Capacity        int    `json:"capacity"`
	CurrentLoad     int    `json:"current_load"`
	UptimeSecs      int64  `json:"uptime_seconds"`
}

func (s *sandboxServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(healthResponse{
		Status:          "healthy",
		DefaultLanguage: s.defaultLanguage,
		RuntimeVersion:  s.runtimeVersion,
		Capacity:        int(s.maxConcurrent),
		CurrentLoad:     int(s.currentLoad.Load()),
		UptimeSecs:      int64(time.Since(s.startTime).Seconds()),
	})
}

// --- Language detection ---

// detectLanguage checks for runtimes in PATH in priority order.
func detectLanguage() string {
	checks := []struct {
		language string
		cmd      string
	}{
		{"python", "python3"},
		{"golang", "go"},
		{"node", "node"},
		{"shell", "bash"},
	}
	for _, c := range checks {
		if _, err := exec.LookPath(c.cmd); err == nil {
			return c.language
		}
	}
	return ""
}

// validateLanguage checks that the configured language is supported and the
// runtime is available.
func validateLanguage(language string) error {
	interpreter, _, err := languageConfig(language)
	if err != nil {
		return err
	}
	if _, err := exec.LookPath(interpreter[0]); err != nil {
		return fmt.Errorf("language=%s but %q not found in PATH", language, interpreter[0])
	}
	return nil
}

// detectRuntimeVersion returns the version string for the active runtime.
func detectRuntimeVersion(language string) string {
	var cmd *exec.Cmd
	switch language {
	case "python":
		cmd = exec.Command("python3", "--version")
	case "golang":
		cmd = exec.Command("go", "version")
	case "node":
		cmd = exec.Command("node", "--version")
	case "shell":
		cmd = exec.Command("bash", "--version")
	default:
		return "unknown"
	}

	output, err := cmd.Output()
	if err != nil {
		return "unknown"
	}

	// Return first line, trimmed.
	version := strings.TrimSpace(string(output))
	if idx := strings.Index(version, "\n"); idx > 0 {
		version = version[:idx]
	}
	return version
}

// --- Helpers ---

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func envOr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envOrInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var n int
	if _, err := fmt.Sscanf(v, "%d", &n); err != nil {
		return defaultVal
	}
	return n
}
