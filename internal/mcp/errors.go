package mcp

import (
	"errors"
	"fmt"
)

// ErrToolNotFound is returned when a tool name cannot be resolved to any
// backend that published it.
var ErrToolNotFound = errors.New("mcp: tool not found")

// TransportError reports a reachability failure: connection refused, timeout,
// or a non-2xx HTTP status. During discovery it degrades the backend's
// contribution to empty instead of aborting the run.
type TransportError struct {
	Backend string
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("mcp: transport failure on %q: %v", e.Backend, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError reports a malformed or non-conforming JSON-RPC payload.
// Not retryable for that call.
type ProtocolError struct {
	Backend string
	Reason  string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("mcp: protocol error on %q: %s", e.Backend, e.Reason)
}

// ToolCallError reports that the tool executed and the backend returned a
// JSON-RPC error object. The remote message is surfaced to the model so it
// can adapt within its own turn budget.
type ToolCallError struct {
	Tool    string
	Code    int
	Message string
}

func (e *ToolCallError) Error() string {
	return fmt.Sprintf("mcp: tool %q failed (%d): %s", e.Tool, e.Code, e.Message)
}
