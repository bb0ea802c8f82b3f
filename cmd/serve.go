package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/cerebricks/mailagent/internal/config"
	"github.com/cerebricks/mailagent/internal/dependency"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the mailagent gateway server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Gateway port (overrides config)")
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if servePort > 0 {
		cfg.Gateway.Port = servePort
	}

	// Graceful shutdown context.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	container, err := dependency.New(ctx, cfg)
	if err != nil {
		return err
	}

	fmt.Printf("%s Starting mailagent gateway on port %d...\n", logo, cfg.Gateway.Port)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return container.Gateway().Start(gctx) })
	if len(cfg.Scheduler.Tasks) > 0 {
		g.Go(func() error { return container.Scheduler().Start(gctx) })
	}

	fmt.Printf("%s Gateway running. Press Ctrl+C to stop.\n", logo)

	if err := g.Wait(); err != nil && err != context.Canceled {
		fmt.Fprintf(os.Stderr, "serve error: %v\n", err)
		return err
	}
	fmt.Println("\nShutdown complete.")
	return nil
}
