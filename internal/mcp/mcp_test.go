package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/jot/internal/config"
	"github.com/hpungsan/jot/internal/db"
	"github.com/hpungsan/jot/internal/errors"
	"github.com/hpungsan/jot/internal/ops"
	"github.com/hpungsan/jot/internal/vcs"
)

// testSetup creates a service over a temporary database whose detected
// context is "api" on a feature branch.
func testSetup(t *testing.T) (*ops.Service, string) {
	t.Helper()

	home := t.TempDir()
	database, err := db.Init(filepath.Join(home, "jot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	cfg := config.DefaultConfig()
	svc := ops.NewService(db.NewRepository(database), cfg,
		ops.WithHome(home),
		ops.WithInspector(vcs.Static{Remote: "git@github.com:acme/api.git", Branch: "feat-x", Dir: "/src/api"}),
	)
	t.Cleanup(svc.Close)
	return svc, home
}

// makeRequest creates a CallToolRequest with the given arguments.
func makeRequest(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

// createJot stores a jot through the handler and returns its id.
func createJot(t *testing.T, h *Handlers, args map[string]any) float64 {
	t.Helper()
	result, err := h.HandleCreate(context.Background(), makeRequest(args))
	require.NoError(t, err)
	out := parseOutput(t, result)
	return out["id"].(float64)
}

func TestHandleCreate(t *testing.T) {
	svc, _ := testSetup(t)
	h := NewHandlers(svc)
	ctx := context.Background()

	tests := []struct {
		name      string
		args      map[string]any
		wantError bool
		errorCode string
	}{
		{
			name: "detected context",
			args: map[string]any{"message": "hello"},
		},
		{
			name: "named context with tags and metadata",
			args: map[string]any{
				"message":  "tagged",
				"context":  "notes",
				"tags":     []any{"b", "a"},
				"metadata": map[string]any{"k": "v"},
				"ttl_days": 0,
			},
		},
		{
			name:      "missing message",
			args:      map[string]any{"context": "notes"},
			wantError: true,
			errorCode: "INVALID_REQUEST",
		},
		{
			name:      "unknown context id",
			args:      map[string]any{"message": "x", "context_id": 999},
			wantError: true,
			errorCode: "NOT_FOUND",
		},
		{
			name:      "wrong argument type",
			args:      map[string]any{"message": 12},
			wantError: true,
			errorCode: "INVALID_REQUEST",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := h.HandleCreate(ctx, makeRequest(tt.args))
			require.NoError(t, err)

			if tt.wantError {
				require.True(t, result.IsError, "expected error result")
				assertErrorCode(t, result, tt.errorCode)
				return
			}
			require.False(t, result.IsError, extractErrorMessage(result))
		})
	}

	out := parseOutput(t, mustCall(t, h.HandleSearch, map[string]any{"context": "notes"}))
	jots := out["jots"].([]any)
	require.Len(t, jots, 1)
	j := jots[0].(map[string]any)
	assert.Equal(t, []any{"a", "b"}, j["tags"])
	assert.Nil(t, j["expires_at"])
}

func TestHandleGetUpdateDelete(t *testing.T) {
	svc, _ := testSetup(t)
	h := NewHandlers(svc)

	id := createJot(t, h, map[string]any{"message": "first", "tags": []any{"x"}})

	out := parseOutput(t, mustCall(t, h.HandleGet, map[string]any{"id": id}))
	assert.Equal(t, "first", out["message"])
	assert.Equal(t, "api/feat-x", out["context_name"])

	out = parseOutput(t, mustCall(t, h.HandleUpdate, map[string]any{
		"id":       id,
		"message":  "second",
		"tags":     []any{},
		"metadata": map[string]any{"pr": "7"},
	}))
	assert.Equal(t, "second", out["message"])
	assert.Equal(t, []any{}, out["tags"])
	assert.Equal(t, map[string]any{"pr": "7"}, out["metadata"])

	assertErrorCode(t, mustCall(t, h.HandleUpdate, map[string]any{"id": id}), "INVALID_REQUEST")

	out = parseOutput(t, mustCall(t, h.HandleDelete, map[string]any{"id": id}))
	assert.Equal(t, true, out["deleted"])
	out = parseOutput(t, mustCall(t, h.HandleDelete, map[string]any{"id": id}))
	assert.Equal(t, false, out["deleted"])

	assertErrorCode(t, mustCall(t, h.HandleGet, map[string]any{"id": id}), "NOT_FOUND")
}

func TestHandleSearch(t *testing.T) {
	svc, _ := testSetup(t)
	h := NewHandlers(svc)

	createJot(t, h, map[string]any{"message": "deploy the api", "tags": []any{"ops"}})
	createJot(t, h, map[string]any{"message": "write docs", "context": "elsewhere"})

	out := parseOutput(t, mustCall(t, h.HandleSearch, map[string]any{"query": "deploy"}))
	assert.EqualValues(t, 1, out["count"])

	out = parseOutput(t, mustCall(t, h.HandleSearch, map[string]any{"current_context": true}))
	assert.EqualValues(t, 1, out["count"])

	out = parseOutput(t, mustCall(t, h.HandleSearch, map[string]any{"tags": []any{"ops", "none"}}))
	assert.EqualValues(t, 1, out["count"])

	out = parseOutput(t, mustCall(t, h.HandleSearch, nil))
	assert.EqualValues(t, 2, out["count"])

	assertErrorCode(t, mustCall(t, h.HandleSearch, map[string]any{"limit": -1}), "INVALID_REQUEST")
	assertErrorCode(t, mustCall(t, h.HandleSearch, map[string]any{"from": "not a date"}), "INVALID_REQUEST")
}

func TestHandleExpiringAndCleanup(t *testing.T) {
	svc, _ := testSetup(t)
	h := NewHandlers(svc)

	createJot(t, h, map[string]any{"message": "soon", "ttl_days": 2})
	createJot(t, h, map[string]any{"message": "later", "ttl_days": 60})

	out := parseOutput(t, mustCall(t, h.HandleExpiring, nil))
	assert.EqualValues(t, 1, out["count"])
	assert.EqualValues(t, 7, out["window_days"])

	out = parseOutput(t, mustCall(t, h.HandleExpiring, map[string]any{"days": 90}))
	assert.EqualValues(t, 2, out["count"])

	assertErrorCode(t, mustCall(t, h.HandleExpiring, map[string]any{"days": 0}), "INVALID_REQUEST")

	out = parseOutput(t, mustCall(t, h.HandleCleanup, nil))
	assert.EqualValues(t, 0, out["deleted"])
}

func TestHandleExportImport(t *testing.T) {
	svc, home := testSetup(t)
	h := NewHandlers(svc)

	createJot(t, h, map[string]any{"message": "portable", "context": "travel"})

	out := parseOutput(t, mustCall(t, h.HandleExport, map[string]any{"context": "travel"}))
	path := out["path"].(string)
	assert.Equal(t, filepath.Join(home, "exports"), filepath.Dir(path))
	assert.EqualValues(t, 1, out["count"])

	// Re-importing into the same store skips the known uid.
	out = parseOutput(t, mustCall(t, h.HandleImport, map[string]any{"path": path}))
	assert.EqualValues(t, 0, out["imported"])
	assert.EqualValues(t, 1, out["skipped"])

	out = parseOutput(t, mustCall(t, h.HandleExport, map[string]any{"format": "html"}))
	raw, err := os.ReadFile(out["path"].(string))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "portable")

	assertErrorCode(t, mustCall(t, h.HandleExport, map[string]any{"format": "xml"}), "INVALID_REQUEST")
	assertErrorCode(t, mustCall(t, h.HandleImport, map[string]any{
		"path": filepath.Join(home, "exports", "missing.jsonl"),
	}), "FILE_NOT_FOUND")
}

func TestHandleContexts(t *testing.T) {
	svc, _ := testSetup(t)
	h := NewHandlers(svc)

	out := parseOutput(t, mustCall(t, h.HandleContextCurrent, nil))
	assert.Equal(t, "api/feat-x", out["name"])
	assert.Equal(t, "api", out["repository"])
	assert.Equal(t, "feat-x", out["branch"])
	currentID := out["id"].(float64)

	createJot(t, h, map[string]any{"message": "m", "context": "side"})

	out = parseOutput(t, mustCall(t, h.HandleContextList, nil))
	assert.EqualValues(t, 2, out["count"])

	out = parseOutput(t, mustCall(t, h.HandleContextGet, map[string]any{"context": currentID}))
	assert.Equal(t, "api/feat-x", out["name"])

	out = parseOutput(t, mustCall(t, h.HandleContextGet, map[string]any{"context": "side"}))
	assert.Equal(t, "side", out["name"])

	assertErrorCode(t, mustCall(t, h.HandleContextGet, map[string]any{"context": "ghost"}), "NOT_FOUND")
	assertErrorCode(t, mustCall(t, h.HandleContextGet, map[string]any{"context": []any{1}}), "INVALID_REQUEST")

	out = parseOutput(t, mustCall(t, h.HandleContextDelete, map[string]any{"context": "side"}))
	assert.Equal(t, true, out["deleted"])

	out = parseOutput(t, mustCall(t, h.HandleContextList, nil))
	assert.EqualValues(t, 1, out["count"])
}

func TestServerRegistration(t *testing.T) {
	svc, _ := testSetup(t)

	s := NewServer(svc, "test")
	tools := s.ListTools()
	require.NotNil(t, tools)
	assert.Len(t, tools, len(toolRegistry))

	for _, name := range AllToolNames() {
		_, ok := tools[name]
		assert.True(t, ok, "missing registered tool: %s", name)
	}
}

func TestServerRegistration_WithDisabledTools(t *testing.T) {
	svc, _ := testSetup(t)
	svc.Config().DisabledTools = []string{"jot_cleanup", "context_delete", "context_delete"}

	tools := NewServer(svc, "test").ListTools()
	assert.Len(t, tools, len(toolRegistry)-2)
	assert.NotContains(t, tools, "jot_cleanup")
	assert.NotContains(t, tools, "context_delete")
	assert.Contains(t, tools, "jot_create")
}

func TestServerRegistration_AllToolsDisabled(t *testing.T) {
	svc, _ := testSetup(t)
	svc.Config().DisabledTools = AllToolNames()

	assert.Empty(t, NewServer(svc, "test").ListTools())
}

func TestValidateDisabledTools(t *testing.T) {
	tests := []struct {
		name    string
		input   []string
		wantLen int
	}{
		{"all valid", []string{"jot_cleanup", "context_delete"}, 0},
		{"one unknown", []string{"jot_cleanup", "note_store"}, 1},
		{"all unknown", []string{"foo", "bar", "baz"}, 3},
		{"empty list", []string{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, ValidateDisabledTools(tt.input), tt.wantLen)
		})
	}
}

func TestAllToolNames(t *testing.T) {
	names := AllToolNames()
	assert.Len(t, names, 13)
	assert.IsIncreasing(t, names)
	assert.Empty(t, ValidateDisabledTools(names))
}

func TestErrorResult_InternalDoesNotExposeDetails(t *testing.T) {
	r := errorResult(errors.NewInternal(fmt.Errorf("sql error: open /tmp/secret.db: permission denied")))
	require.True(t, r.IsError)

	errObj := errorObject(t, r)
	assert.Equal(t, string(errors.ErrInternal), errObj["code"])
	assert.NotContains(t, errObj["message"], "secret")
	assert.NotContains(t, errObj, "details")
}

func TestErrorResult_PlainErrorIsInternal(t *testing.T) {
	errObj := errorObject(t, errorResult(fmt.Errorf("boom")))
	assert.Equal(t, string(errors.ErrInternal), errObj["code"])
	assert.EqualValues(t, 500, errObj["status"])
}

func TestErrorResult_WrappedErrorKeepsCode(t *testing.T) {
	wrapped := fmt.Errorf("resolve: %w", errors.NewNotFound("context", "ghost"))

	errObj := errorObject(t, errorResult(wrapped))
	assert.Equal(t, string(errors.ErrNotFound), errObj["code"])
	assert.Equal(t, map[string]any{"kind": "context", "identifier": "ghost"}, errObj["details"])
}

// Helper functions

type handlerFunc func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

// mustCall invokes a handler and fails on a transport-level error.
func mustCall(t *testing.T, fn handlerFunc, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	var req mcp.CallToolRequest
	if args != nil {
		req = makeRequest(args)
	}
	result, err := fn(context.Background(), req)
	require.NoError(t, err)
	return result
}

// parseOutput extracts and unmarshals the JSON output from an MCP result.
func parseOutput(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	require.False(t, result.IsError, "expected success, got error: %v", extractErrorMessage(result))
	var output map[string]any
	require.NoError(t, json.Unmarshal([]byte(result.Content[0].(mcp.TextContent).Text), &output))
	return output
}

func errorObject(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "content is not TextContent")

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(text.Text), &payload))
	errObj, ok := payload["error"].(map[string]any)
	require.True(t, ok, "no error object in payload")
	return errObj
}

func assertErrorCode(t *testing.T, result *mcp.CallToolResult, expectedCode string) {
	t.Helper()
	require.True(t, result.IsError, "expected error result, got %s", extractErrorMessage(result))
	assert.Equal(t, expectedCode, errorObject(t, result)["code"])
}

func extractErrorMessage(result *mcp.CallToolResult) string {
	if len(result.Content) == 0 {
		return "<no content>"
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		return "<not text content>"
	}
	return text.Text
}
