package mcp

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/jot/internal/errors"
	"github.com/hpungsan/jot/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	svc *ops.Service
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(svc *ops.Service) *Handlers {
	return &Handlers{svc: svc}
}

// Request types for each tool

// CreateRequest represents the arguments for jot_create.
type CreateRequest struct {
	Message   string            `json:"message"`
	ContextID *int64            `json:"context_id,omitempty"`
	Context   string            `json:"context,omitempty"`
	TTLDays   *int              `json:"ttl_days,omitempty"`
	Tags      []string          `json:"tags,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// IDRequest represents the arguments for jot_get and jot_delete.
type IDRequest struct {
	ID int64 `json:"id"`
}

// UpdateRequest represents the arguments for jot_update.
type UpdateRequest struct {
	ID       int64              `json:"id"`
	Message  *string            `json:"message,omitempty"`
	TTLDays  *int               `json:"ttl_days,omitempty"`
	Tags     *[]string          `json:"tags,omitempty"`
	Metadata *map[string]string `json:"metadata,omitempty"`
}

// SearchRequest represents the arguments for jot_search.
type SearchRequest struct {
	Query          string   `json:"query,omitempty"`
	ContextID      *int64   `json:"context_id,omitempty"`
	Context        string   `json:"context,omitempty"`
	CurrentContext bool     `json:"current_context,omitempty"`
	Tags           []string `json:"tags,omitempty"`
	From           string   `json:"from,omitempty"`
	To             string   `json:"to,omitempty"`
	IncludeExpired bool     `json:"include_expired,omitempty"`
	Limit          int      `json:"limit,omitempty"`
}

// ExpiringRequest represents the arguments for jot_expiring.
type ExpiringRequest struct {
	Days *int `json:"days,omitempty"`
}

// ExportRequest represents the arguments for jot_export.
type ExportRequest struct {
	Path           string `json:"path,omitempty"`
	Format         string `json:"format,omitempty"`
	ContextID      *int64 `json:"context_id,omitempty"`
	Context        string `json:"context,omitempty"`
	IncludeExpired bool   `json:"include_expired,omitempty"`
}

// ImportRequest represents the arguments for jot_import.
type ImportRequest struct {
	Path string `json:"path"`
}

// ContextRequest represents the arguments for context_get and context_delete.
type ContextRequest struct {
	Context contextRef `json:"context"`
}

// contextRef accepts a context id as a JSON number or a name/id as a string.
type contextRef string

func (r *contextRef) UnmarshalJSON(b []byte) error {
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*r = contextRef(n.String())
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("context must be an id or a name")
	}
	*r = contextRef(s)
	return nil
}

// Handler implementations

// HandleCreate handles the jot_create tool call.
func (h *Handlers) HandleCreate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[CreateRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := h.svc.CreateJot(ctx, ops.CreateJotInput{
		Message:     input.Message,
		ContextID:   input.ContextID,
		ContextName: input.Context,
		TTLDays:     input.TTLDays,
		Tags:        input.Tags,
		Metadata:    input.Metadata,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleGet handles the jot_get tool call.
func (h *Handlers) HandleGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IDRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := h.svc.GetJot(ctx, input.ID)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleUpdate handles the jot_update tool call.
func (h *Handlers) HandleUpdate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[UpdateRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := h.svc.UpdateJot(ctx, ops.UpdateJotInput{
		ID:       input.ID,
		Message:  input.Message,
		TTLDays:  input.TTLDays,
		Tags:     input.Tags,
		Metadata: input.Metadata,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleDelete handles the jot_delete tool call.
func (h *Handlers) HandleDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IDRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := h.svc.DeleteJot(ctx, input.ID)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleSearch handles the jot_search tool call.
func (h *Handlers) HandleSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SearchRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := h.svc.SearchJots(ctx, ops.SearchInput{
		Query:          input.Query,
		ContextID:      input.ContextID,
		ContextName:    input.Context,
		CurrentContext: input.CurrentContext,
		Tags:           input.Tags,
		FromDate:       input.From,
		ToDate:         input.To,
		IncludeExpired: input.IncludeExpired,
		Limit:          input.Limit,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleExpiring handles the jot_expiring tool call.
func (h *Handlers) HandleExpiring(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ExpiringRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := h.svc.ExpiringSoon(ctx, input.Days)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleCleanup handles the jot_cleanup tool call.
func (h *Handlers) HandleCleanup(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := h.svc.Cleanup(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleExport handles the jot_export tool call.
func (h *Handlers) HandleExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ExportRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := h.svc.Export(ctx, ops.ExportInput{
		Path:           input.Path,
		Format:         input.Format,
		ContextID:      input.ContextID,
		ContextName:    input.Context,
		IncludeExpired: input.IncludeExpired,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleImport handles the jot_import tool call.
func (h *Handlers) HandleImport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ImportRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := h.svc.Import(ctx, ops.ImportInput{Path: input.Path})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleContextList handles the context_list tool call.
func (h *Handlers) HandleContextList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := h.svc.ListContexts(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleContextGet handles the context_get tool call.
func (h *Handlers) HandleContextGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ContextRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := h.svc.GetContext(ctx, string(input.Context))
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleContextCurrent handles the context_current tool call.
func (h *Handlers) HandleContextCurrent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := h.svc.CurrentContext(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleContextDelete handles the context_delete tool call.
func (h *Handlers) HandleContextDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ContextRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := h.svc.DeleteContext(ctx, string(input.Context))
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// Result helpers

// errorResult creates an MCP error result. Internal errors carry a generic
// message only; file paths and SQL text stay in the server log.
func errorResult(err error) *mcp.CallToolResult {
	var (
		jErr    *errors.JotError
		errObj  map[string]any
		payload map[string]any
	)

	switch {
	case stderrors.As(err, &jErr) && jErr.Code != errors.ErrInternal:
		errObj = map[string]any{
			"code":    jErr.Code,
			"message": jErr.Message,
			"status":  jErr.Status,
		}
		if jErr.Details != nil {
			errObj["details"] = jErr.Details
		}
	default:
		errObj = map[string]any{
			"code":    errors.ErrInternal,
			"message": "an internal error occurred",
			"status":  500,
		}
	}
	payload = map[string]any{"error": errObj}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(string(content))},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
