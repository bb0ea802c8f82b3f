// Package mcp implements the client side of the MCP tool protocol: a minimal
// JSON-RPC 2.0 dialect with two methods, tools/list and tools/call, reachable
// over HTTP, a stdio subprocess, or an in-process handler.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
)

// ServerConfig holds the connection parameters for a single backend.
// Exactly one of URL, Command, or Handlers selects the transport.
type ServerConfig struct {
	// URL is the endpoint of an HTTP MCP server.
	URL     string
	Headers map[string]string

	// Command launches a subprocess speaking line-delimited JSON-RPC on
	// its standard streams.
	Command string
	Args    []string
	Env     map[string]string

	// Handlers serves tools in-process without any wire hop.
	Handlers []Handler
}

// Handler implements one tool served in-process.
type Handler interface {
	Info() ToolInfo
	Handle(ctx context.Context, args map[string]any) (string, error)
}

// Transport carries JSON-RPC traffic to one backend. Callers never know which
// concrete transport they hold; the ServerConfig decides at construction time.
type Transport interface {
	// Connect establishes the connection and performs any handshake the
	// transport needs. HTTP and in-process backends need none.
	Connect(ctx context.Context) error

	// Call sends a request with a correlation id and returns the raw result.
	// A remote error object is returned as *RPCError.
	Call(ctx context.Context, method string, params any) (json.RawMessage, error)

	// Notify sends a notification (no id). No response is ever read.
	Notify(ctx context.Context, method string, params any) error

	// Close releases any held connections or subprocess handles.
	Close() error
}

// NewTransport selects a transport from cfg.
func NewTransport(name string, cfg ServerConfig) (Transport, error) {
	switch {
	case cfg.Command != "":
		return newStdioTransport(name, cfg), nil
	case cfg.URL != "":
		return newHTTPTransport(name, cfg), nil
	case len(cfg.Handlers) > 0:
		return newInprocTransport(name, cfg.Handlers), nil
	default:
		return nil, fmt.Errorf("mcp: server %q: no url, command, or handlers configured", name)
	}
}
