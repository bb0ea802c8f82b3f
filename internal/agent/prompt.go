package agent

import (
	"strings"

	"github.com/cerebricks/mailagent/internal/registry"
)

// DefaultSystemPrompt is the base instruction used when config provides none.
const DefaultSystemPrompt = `You are a helpful AI agent with access to MCP tools.

Use tools when needed to complete the user's request.
Always confirm success or failure clearly in your response.`

// BuildSystemPrompt appends the discovered tool catalog to the base
// instructions, grouped by backend so the model knows where capabilities
// come from. Backend linkage stays descriptive; the callable definitions the
// model receives carry name, description, and schema only.
func BuildSystemPrompt(base string, reg *registry.Registry) string {
	if base == "" {
		base = DefaultSystemPrompt
	}

	backends := reg.Backends()
	if len(backends) == 0 {
		return base
	}

	var b strings.Builder
	b.WriteString(base)
	b.WriteString("\n\n## Available Tools\n\n")

	for _, backend := range backends {
		b.WriteString("### ")
		b.WriteString(backend.Name)
		b.WriteString("\n")
		if backend.Description != "" {
			b.WriteString(backend.Description)
			b.WriteString("\n")
		}
		if len(backend.Tools) > 0 {
			b.WriteString("\nTools:\n")
			for _, t := range backend.Tools {
				b.WriteString("- **")
				b.WriteString(t.Name)
				b.WriteString("**: ")
				b.WriteString(t.Description)
				b.WriteString("\n")
			}
		}
		b.WriteString("\n")
	}

	b.WriteString("## Guidelines\n\n")
	b.WriteString("1. Use appropriate tools based on the task\n")
	b.WriteString("2. Always verify tool execution results\n")
	b.WriteString("3. Handle errors gracefully\n")

	return b.String()
}
