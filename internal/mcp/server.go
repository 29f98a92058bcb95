package mcp

import (
	"context"
	stderrors "errors"
	"log/slog"
	"os"
	"slices"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/jot/internal/ops"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"jot_create":      {createToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleCreate }},
	"jot_get":         {getToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleGet }},
	"jot_update":      {updateToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleUpdate }},
	"jot_delete":      {deleteToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleDelete }},
	"jot_search":      {searchToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleSearch }},
	"jot_expiring":    {expiringToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleExpiring }},
	"jot_cleanup":     {cleanupToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleCleanup }},
	"jot_export":      {exportToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleExport }},
	"jot_import":      {importToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleImport }},
	"context_list":    {contextListToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleContextList }},
	"context_get":     {contextGetToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleContextGet }},
	"context_current": {contextCurrentToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleContextCurrent }},
	"context_delete":  {contextDeleteToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleContextDelete }},
}

// AllToolNames returns every registered tool name, sorted.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// ValidateDisabledTools returns the names that are not known tools.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// NewServer creates an MCP server with the jot tools registered, minus any
// listed in the service config's DisabledTools.
func NewServer(svc *ops.Service, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"jot",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(svc)
	disabled := svc.Config().DisabledTools
	for name, entry := range toolRegistry {
		if slices.Contains(disabled, name) {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}
	return s
}

// Run serves MCP over stdio until stdin closes or ctx is cancelled.
func Run(ctx context.Context, svc *ops.Service, version string) error {
	s := NewServer(svc, version)
	stdio := server.NewStdioServer(s)
	stdio.SetErrorLogger(slog.NewLogLogger(svc.Logger().Handler(), slog.LevelError))
	if err := stdio.Listen(ctx, os.Stdin, os.Stdout); err != nil && !stderrors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
