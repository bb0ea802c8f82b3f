package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cerebricks/mailagent/internal/builtin"
	"github.com/cerebricks/mailagent/internal/config"
	"github.com/cerebricks/mailagent/internal/registry"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Discover and list tools from configured MCP servers",
	RunE:  runTools,
}

func runTools(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	// No sender here: listing should not require AWS credentials.
	reg := registry.Discover(ctx, cfg.Sources(builtin.Handlers(nil, cfg.Email.DefaultFrom)))
	defer reg.Close()

	backends := reg.Backends()
	if len(backends) == 0 {
		fmt.Println("No tools discovered. Check mcpServers in your config.")
		return nil
	}

	for _, b := range backends {
		fmt.Printf("%s (%d tools)\n", b.Name, len(b.Tools))
		if b.Description != "" {
			fmt.Printf("  %s\n", b.Description)
		}
		for _, tool := range b.Tools {
			fmt.Printf("  - %s: %s\n", tool.Name, tool.Description)
		}
		fmt.Println()
	}

	for _, c := range reg.Collisions() {
		fmt.Printf("Warning: tool %q from %s shadows the one from %s\n", c.Tool, c.Kept, c.Shadowed)
	}
	return nil
}
