package config

import (
	"sort"

	"github.com/cerebricks/mailagent/internal/mcp"
	"github.com/cerebricks/mailagent/internal/registry"
)

// Sources converts the configured mcpServers block into discovery sources.
// The in-process handlers come first; configured servers follow sorted by
// name, so a name collision always resolves the same way across runs.
func (c *Config) Sources(handlers []mcp.Handler) []registry.Source {
	var sources []registry.Source

	if len(handlers) > 0 {
		sources = append(sources, registry.Source{
			Name:        "builtin",
			Description: "Built-in tools served in-process",
			Enabled:     true,
			Config:      mcp.ServerConfig{Handlers: handlers},
		})
	}

	names := make([]string, 0, len(c.MCPServers))
	for name := range c.MCPServers {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		sc := c.MCPServers[name]
		sources = append(sources, registry.Source{
			Name:        name,
			Description: sc.Description,
			Enabled:     sc.IsEnabled(),
			Config: mcp.ServerConfig{
				URL:     sc.Endpoint(),
				Headers: sc.Headers,
				Command: sc.Command,
				Args:    sc.Args,
				Env:     sc.Env,
			},
		})
	}
	return sources
}
