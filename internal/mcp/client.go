package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const callTimeout = 30 * time.Second

// Client executes the two JSON-RPC methods the agent depends on, tools/list
// and tools/call, against one backend. It never knows which transport it is
// using; the ServerConfig decided that at construction time.
type Client struct {
	name      string
	transport Transport
}

// NewClient constructs a Client for one backend.
func NewClient(name string, cfg ServerConfig) (*Client, error) {
	transport, err := NewTransport(name, cfg)
	if err != nil {
		return nil, err
	}
	return &Client{name: name, transport: transport}, nil
}

// Name returns the backend name from configuration.
func (c *Client) Name() string { return c.name }

// Connect establishes the transport connection, including the initialize
// handshake for subprocess backends.
func (c *Client) Connect(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	if err := c.transport.Connect(ctx); err != nil {
		return fmt.Errorf("connect %q: %w", c.name, err)
	}
	return nil
}

// ListTools returns the tools published by this backend, in server order.
func (c *Client) ListTools(ctx context.Context) ([]ToolInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	raw, err := c.transport.Call(ctx, "tools/list", map[string]any{})
	if err != nil {
		return nil, err
	}

	var result listToolsResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, &ProtocolError{Backend: c.name, Reason: fmt.Sprintf("malformed tools/list result: %v", err)}
	}
	return result.Tools, nil
}

// CallTool invokes a named tool with the given arguments and returns the
// first text block of the result. An empty or non-text content array
// degrades to an empty string rather than failing. A remote error object
// surfaces as *ToolCallError.
func (c *Client) CallTool(ctx context.Context, toolName string, args map[string]any) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	params := map[string]any{
		"name":      toolName,
		"arguments": args,
	}
	raw, err := c.transport.Call(ctx, "tools/call", params)
	if err != nil {
		var rpcErr *RPCError
		if errors.As(err, &rpcErr) {
			return "", &ToolCallError{Tool: toolName, Code: rpcErr.Code, Message: rpcErr.Message}
		}
		return "", err
	}

	var result callToolResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", &ProtocolError{Backend: c.name, Reason: fmt.Sprintf("malformed tools/call result: %v", err)}
	}

	for _, block := range result.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", nil
}

// Close releases the transport.
func (c *Client) Close() error {
	return c.transport.Close()
}
