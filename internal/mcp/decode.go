package mcp

import (
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/jot/internal/errors"
)

// decode binds request arguments to T. A missing arguments object decodes
// to the zero value; a type mismatch is an INVALID_REQUEST.
func decode[T any](req mcp.CallToolRequest) (T, error) {
	var result T
	if req.Params.Arguments == nil {
		return result, nil
	}
	if err := req.BindArguments(&result); err != nil {
		return result, errors.NewInvalidRequest(fmt.Sprintf("invalid arguments: %v", err))
	}
	return result, nil
}
