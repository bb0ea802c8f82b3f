package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cerebricks/mailagent/internal/proxy"
)

var proxyCmd = &cobra.Command{
	Use:   "proxy <url>",
	Short: "Relay MCP stdio traffic to an HTTP server",
	Long: `Reads one JSON-RPC message per line from stdin, forwards each to the
given HTTP MCP server, and writes responses to stdout. Notifications are
forwarded but never answered, so stdio clients that cannot speak HTTP can
still use HTTP-only servers.`,
	Args: cobra.ExactArgs(1),
	RunE: runProxy,
}

func runProxy(_ *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	relay := proxy.New(args[0], os.Stdin, os.Stdout)
	return relay.Run(ctx)
}
