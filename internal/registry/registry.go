// Package registry discovers tools from configured MCP backends and resolves
// tool names to the backend that serves them.
package registry

import (
	"context"
	"errors"
	"log/slog"

	"github.com/cerebricks/mailagent/internal/mcp"
)

// Source describes one tool-providing backend before discovery.
type Source struct {
	Name        string
	Description string
	Enabled     bool
	Config      mcp.ServerConfig
}

// Backend is one connected tool-providing server and the tools it published
// at discovery time.
type Backend struct {
	Name        string
	Description string
	Client      *mcp.Client
	Tools       []mcp.ToolInfo
}

// Tool pairs a discovered tool with its owning backend.
type Tool struct {
	mcp.ToolInfo
	Backend *Backend
}

// Collision records one tool name published by more than one backend.
// The later backend's tool is kept.
type Collision struct {
	Tool     string
	Kept     string // backend whose tool won
	Shadowed string // backend whose tool was overwritten
}

// Registry holds the merged tool catalog for one run. It is built once by
// Discover and read-only afterwards.
type Registry struct {
	backends   []*Backend
	tools      map[string]*Tool
	order      []string
	collisions []Collision
}

// Discover connects to each enabled source in order, lists its tools, and
// merges the results. A backend that fails to connect or list is logged and
// skipped: partial discovery degrades capability, not availability.
func Discover(ctx context.Context, sources []Source) *Registry {
	var backends []*Backend

	for _, src := range sources {
		if !src.Enabled {
			slog.Info("Skipping disabled backend", "backend", src.Name)
			continue
		}

		client, err := mcp.NewClient(src.Name, src.Config)
		if err != nil {
			slog.Error("Backend configuration invalid", "backend", src.Name, "err", err)
			continue
		}
		if err := client.Connect(ctx); err != nil {
			slog.Error("Backend connect failed", "backend", src.Name, "err", err)
			client.Close() //nolint:errcheck
			continue
		}

		tools, err := client.ListTools(ctx)
		if err != nil {
			slog.Error("Backend tools/list failed", "backend", src.Name, "err", err)
			client.Close() //nolint:errcheck
			continue
		}

		backends = append(backends, &Backend{
			Name:        src.Name,
			Description: src.Description,
			Client:      client,
			Tools:       tools,
		})
		slog.Info("Backend connected", "backend", src.Name, "tools", len(tools))
	}

	merged, order, collisions := Merge(backends)
	for _, c := range collisions {
		slog.Warn("Tool name collision", "tool", c.Tool, "kept", c.Kept, "shadowed", c.Shadowed)
	}

	return &Registry{
		backends:   backends,
		tools:      merged,
		order:      order,
		collisions: collisions,
	}
}

// Merge builds the merged catalog from backends in order. On a name
// collision the later backend wins and the collision is recorded so callers
// can warn or fail instead of overwriting silently.
func Merge(backends []*Backend) (map[string]*Tool, []string, []Collision) {
	merged := make(map[string]*Tool)
	var order []string
	var collisions []Collision

	for _, b := range backends {
		for _, info := range b.Tools {
			if prev, ok := merged[info.Name]; ok {
				collisions = append(collisions, Collision{
					Tool:     info.Name,
					Kept:     b.Name,
					Shadowed: prev.Backend.Name,
				})
			} else {
				order = append(order, info.Name)
			}
			merged[info.Name] = &Tool{ToolInfo: info, Backend: b}
		}
	}
	return merged, order, collisions
}

// Catalog returns the merged tools in discovery order. Backend linkage is
// carried for callers that need it; presentation to the model goes through
// Definitions, which exposes name/description/schema only.
func (r *Registry) Catalog() []*Tool {
	out := make([]*Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Definitions returns the catalog as OpenAI function-calling definitions,
// the format providers consume.
func (r *Registry) Definitions() []map[string]any {
	defs := make([]map[string]any, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		var params any
		if len(t.InputSchema) > 0 {
			params = t.InputSchema
		} else {
			params = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		defs = append(defs, map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        t.Name,
				"description": t.Description,
				"parameters":  params,
			},
		})
	}
	return defs
}

// Backends returns the connected backends in discovery order.
func (r *Registry) Backends() []*Backend { return r.backends }

// Collisions returns the name collisions encountered during the merge.
func (r *Registry) Collisions() []Collision { return r.collisions }

// Resolve returns the backend that published name, or ErrToolNotFound.
func (r *Registry) Resolve(name string) (*Backend, error) {
	t, ok := r.tools[name]
	if !ok {
		return nil, mcp.ErrToolNotFound
	}
	return t.Backend, nil
}

// Close releases every backend's transport. Safe to call on an empty
// registry.
func (r *Registry) Close() {
	for _, b := range r.backends {
		if err := b.Client.Close(); err != nil && !errors.Is(err, context.Canceled) {
			slog.Warn("Backend close failed", "backend", b.Name, "err", err)
		}
	}
}
