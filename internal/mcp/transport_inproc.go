package mcp

import (
	"context"
	"encoding/json"
	"fmt"
)

// inprocTransport dispatches tools/list and tools/call to local handlers,
// wrapping results in the same content-array shape the wire transports
// produce so call sites stay transport-agnostic.
type inprocTransport struct {
	name     string
	handlers map[string]Handler
	order    []string
}

func newInprocTransport(name string, handlers []Handler) *inprocTransport {
	t := &inprocTransport{
		name:     name,
		handlers: make(map[string]Handler, len(handlers)),
	}
	for _, h := range handlers {
		toolName := h.Info().Name
		t.handlers[toolName] = h
		t.order = append(t.order, toolName)
	}
	return t
}

// Connect is a no-op for local handlers.
func (t *inprocTransport) Connect(context.Context) error { return nil }

func (t *inprocTransport) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	switch method {
	case "initialize":
		return json.Marshal(map[string]any{
			"protocolVersion": "2024-11-05",
			"serverInfo":      map[string]any{"name": t.name, "version": "1.0"},
			"capabilities":    map[string]any{"tools": map[string]any{}},
		})

	case "tools/list":
		tools := make([]ToolInfo, 0, len(t.order))
		for _, name := range t.order {
			tools = append(tools, t.handlers[name].Info())
		}
		return json.Marshal(listToolsResult{Tools: tools})

	case "tools/call":
		name, args, err := decodeCallParams(params)
		if err != nil {
			return nil, &ProtocolError{Backend: t.name, Reason: err.Error()}
		}
		h, ok := t.handlers[name]
		if !ok {
			return nil, &RPCError{Code: CodeMethodNotFound, Message: fmt.Sprintf("Tool not found: %s", name)}
		}
		text, err := h.Handle(ctx, args)
		if err != nil {
			return nil, &RPCError{Code: CodeToolFailure, Message: err.Error()}
		}
		return json.Marshal(callToolResult{
			Content: []ContentBlock{{Type: "text", Text: text}},
		})

	default:
		return nil, &RPCError{Code: CodeMethodNotFound, Message: fmt.Sprintf("Method not found: %s", method)}
	}
}

// Notify is a no-op: notifications never receive a response, and local
// handlers have no lifecycle events to observe.
func (t *inprocTransport) Notify(context.Context, string, any) error { return nil }

func (t *inprocTransport) Close() error { return nil }

func decodeCallParams(params any) (string, map[string]any, error) {
	m, ok := params.(map[string]any)
	if !ok {
		return "", nil, fmt.Errorf("tools/call params must be an object")
	}
	name, _ := m["name"].(string)
	if name == "" {
		return "", nil, fmt.Errorf("tools/call params missing tool name")
	}
	args, _ := m["arguments"].(map[string]any)
	if args == nil {
		args = map[string]any{}
	}
	return name, args, nil
}
