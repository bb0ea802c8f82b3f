package mcp

import "encoding/json"

// Well-known JSON-RPC error codes used by MCP servers.
const (
	CodeMethodNotFound = -32601 // unknown method or tool
	CodeToolFailure    = -32000 // tool executed but reported failure
	CodeInternalError  = -32603 // internal or proxied transport failure
)

// Request is a JSON-RPC 2.0 request envelope.
// A nil ID makes the message a notification: the receiver must not respond.
type Request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      *int64 `json:"id,omitempty"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// Response is a JSON-RPC 2.0 response envelope.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is the error object carried in a failed JSON-RPC response.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return e.Message
}

// ToolInfo describes one tool published by a backend: its unique name, a
// human-readable description, and the JSON schema of its arguments.
// Instances are created at discovery time and never mutated afterwards.
type ToolInfo struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// ContentBlock is one entry of a tools/call result content array.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type listToolsResult struct {
	Tools []ToolInfo `json:"tools"`
}

type callToolResult struct {
	Content []ContentBlock `json:"content"`
}
