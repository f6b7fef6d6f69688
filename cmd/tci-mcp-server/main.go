// Command tci-mcp-server exposes the test code interpreter as MCP tools,
// so LLM agents can create sessions, run graded code, and move files
// through the Model Context Protocol.
//
// Configuration via environment variables:
//
//	PORT            - Listen port (default: 8080)
//	TCI_API_KEY     - API key for the interpreter service; when unset the
//	                  server runs against an in-process backend
//	TCI_BASE_URL    - Interpreter service URL (default: hosted service)
package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/tci-dev/tcigo/pkg/api"
	"github.com/tci-dev/tcigo/pkg/backend/local"
	"github.com/tci-dev/tcigo/pkg/storage/memory"
	"github.com/tci-dev/tcigo/pkg/tci"
)

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	client, err := newClient()
	if err != nil {
		log.Fatalf("Creating client: %v", err)
	}

	server := mcp.NewServer(
		&mcp.Implementation{Name: "tci-mcp", Version: "v1.0.0"},
		nil,
	)
	registerTools(server, client)

	// Serve via streamable HTTP on /mcp.
	handler := mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
		return server
	}, nil)

	httpMux := http.NewServeMux()
	httpMux.Handle("/mcp", handler)
	httpMux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok\n"))
	})

	log.Printf("MCP interpreter server starting on :%s", port)
	if err := http.ListenAndServe(":"+port, httpMux); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// newClient builds the interpreter client: remote when TCI_API_KEY is set,
// otherwise an in-process backend so the tools work out of the box.
func newClient() (*tci.Client, error) {
	if apiKey := os.Getenv("TCI_API_KEY"); apiKey != "" {
		opts := []tci.Option{}
		if baseURL := os.Getenv("TCI_BASE_URL"); baseURL != "" {
			opts = append(opts, tci.WithBaseURL(baseURL))
		}
		return tci.New(apiKey, opts...)
	}

	log.Printf("TCI_API_KEY not set, using in-process backend")
	return tci.New("", tci.WithBackend(local.New(memory.New(), local.DefaultConfig())))
}

func registerTools(server *mcp.Server, client *tci.Client) {
	type CreateSessionInput struct {
		Language string `json:"language,omitempty" jsonschema_description:"Programming language for the session (default: python)"`
	}
	mcp.AddTool(server, &mcp.Tool{
		Name:        "create_session",
		Description: "Creates a new code interpreter session and returns its ID",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input CreateSessionInput) (*mcp.CallToolResult, struct{}, error) {
		sess, err := client.Sessions.Create(ctx, input.Language)
		if err != nil {
			return nil, struct{}{}, err
		}
		return textResult(fmt.Sprintf("Created session %s (language: %s)", sess.ID, sess.Language)), struct{}{}, nil
	})

	type CloseSessionInput struct {
		SessionID string `json:"session_id" jsonschema_description:"The session to close"`
	}
	mcp.AddTool(server, &mcp.Tool{
		Name:        "close_session",
		Description: "Closes a session and discards its files",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input CloseSessionInput) (*mcp.CallToolResult, struct{}, error) {
		if _, err := client.Sessions.Close(ctx, input.SessionID); err != nil {
			return nil, struct{}{}, err
		}
		return textResult(fmt.Sprintf("Closed session %s", input.SessionID)), struct{}{}, nil
	})

	type RunTestSpec struct {
		Name      string  `json:"name" jsonschema_description:"Test name"`
		Condition string  `json:"condition" jsonschema_description:"Condition evaluated against the execution outcome"`
		Reward    float64 `json:"reward" jsonschema_description:"Reward granted when the condition holds"`
	}
	type RunCodeInput struct {
		SessionID string        `json:"session_id" jsonschema_description:"The session to run in"`
		Code      string        `json:"code" jsonschema_description:"Code to execute"`
		Tests     []RunTestSpec `json:"tests,omitempty" jsonschema_description:"Tests graded against the outcome"`
	}
	mcp.AddTool(server, &mcp.Tool{
		Name:        "run_code",
		Description: "Executes code in a session and grades the declared tests",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input RunCodeInput) (*mcp.CallToolResult, struct{}, error) {
		tests := make([]api.TestSpec, 0, len(input.Tests))
		for _, ts := range input.Tests {
			tests = append(tests, api.TestSpec{Name: ts.Name, Condition: ts.Condition, Reward: ts.Reward})
		}

		exec, err := client.Executions.Run(ctx, input.SessionID, input.Code, tests)
		if err != nil {
			return nil, struct{}{}, err
		}

		summary := fmt.Sprintf("stdout:\n%s\nresult: %v", exec.Stdout, exec.Result)
		for _, res := range exec.Tests {
			verdict := "failed"
			if res.Passed {
				verdict = "passed"
			}
			summary += fmt.Sprintf("\ntest %q: %s (reward %g)", res.Name, verdict, res.Reward)
		}
		return textResult(summary), struct{}{}, nil
	})

	type UploadFileInput struct {
		SessionID     string `json:"session_id" jsonschema_description:"The session to upload into"`
		RemotePath    string `json:"remote_path" jsonschema_description:"Destination path within the session"`
		ContentBase64 string `json:"content_base64" jsonschema_description:"File content, base64-encoded"`
	}
	mcp.AddTool(server, &mcp.Tool{
		Name:        "upload_file",
		Description: "Uploads a file into a session's private store",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input UploadFileInput) (*mcp.CallToolResult, struct{}, error) {
		content, err := base64.StdEncoding.DecodeString(input.ContentBase64)
		if err != nil {
			return nil, struct{}{}, fmt.Errorf("decoding content: %w", err)
		}
		if _, err := client.Files.Upload(ctx, input.SessionID, input.RemotePath, content); err != nil {
			return nil, struct{}{}, err
		}
		return textResult(fmt.Sprintf("Uploaded %d bytes to %s", len(content), input.RemotePath)), struct{}{}, nil
	})

	type DownloadFileInput struct {
		SessionID  string `json:"session_id" jsonschema_description:"The session to download from"`
		RemotePath string `json:"remote_path" jsonschema_description:"Path of the file within the session"`
	}
	mcp.AddTool(server, &mcp.Tool{
		Name:        "download_file",
		Description: "Downloads a file from a session's private store (returned base64-encoded)",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input DownloadFileInput) (*mcp.CallToolResult, struct{}, error) {
		file, err := client.Files.Download(ctx, input.SessionID, input.RemotePath)
		if err != nil {
			return nil, struct{}{}, err
		}
		return textResult(base64.StdEncoding.EncodeToString(file.Content)), struct{}{}, nil
	})
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}
