package mcpserver

import (
	"errors"
	"fmt"

	"github.com/cortexmind/cortexd/internal/cerrors"
)

// Standard JSON-RPC and engine-specific MCP error codes.
const (
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603

	ErrCodeNotFound    = -32001
	ErrCodeConflict    = -32002
	ErrCodeReadOnly    = -32003
	ErrCodeVectorStore = -32004
	ErrCodeTimeout     = -32005
)

// ToolError is the structured error returned to an MCP client, mirroring
// the shape of a JSON-RPC error object.
type ToolError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("mcp error %d: %s", e.Code, e.Message)
}

// mapError translates the engine's cerrors taxonomy into a ToolError.
// A *cerrors.Error is reported by its Message alone, without its wrapped
// cause; any other error becomes an internal error carrying err.Error().
func mapError(err error) *ToolError {
	if err == nil {
		return nil
	}
	var ce *cerrors.Error
	if errors.As(err, &ce) {
		switch ce.Kind {
		case cerrors.KindNotFound:
			return &ToolError{Code: ErrCodeNotFound, Message: ce.Message}
		case cerrors.KindConflict:
			return &ToolError{Code: ErrCodeConflict, Message: ce.Message}
		case cerrors.KindReadOnly:
			return &ToolError{Code: ErrCodeReadOnly, Message: ce.Message}
		case cerrors.KindVectorStore:
			return &ToolError{Code: ErrCodeVectorStore, Message: ce.Message}
		case cerrors.KindTimeout:
			return &ToolError{Code: ErrCodeTimeout, Message: ce.Message}
		case cerrors.KindInvalidInput, cerrors.KindParse:
			return &ToolError{Code: ErrCodeInvalidParams, Message: ce.Message}
		default:
			return &ToolError{Code: ErrCodeInternalError, Message: ce.Message}
		}
	}
	return &ToolError{Code: ErrCodeInternalError, Message: err.Error()}
}

func invalidParams(msg string) *ToolError {
	return &ToolError{Code: ErrCodeInvalidParams, Message: msg}
}
