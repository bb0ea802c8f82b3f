package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cerebricks/mailagent/internal/config"
	"github.com/cerebricks/mailagent/internal/emailer"
)

var emailServerPort int

var emailServerCmd = &cobra.Command{
	Use:   "email-server",
	Short: "Run the standalone email MCP server",
	Long: `Serves send_email over MCP HTTP so other agents can use it without
running the full gateway. Email is delivered through Amazon SES using the
region from config.`,
	RunE: runEmailServer,
}

func init() {
	emailServerCmd.Flags().IntVarP(&emailServerPort, "port", "p", 9100, "Listen port")
}

func runEmailServer(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sender, err := emailer.NewSESSender(ctx, cfg.Email.Region)
	if err != nil {
		return fmt.Errorf("init SES sender: %w", err)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", emailServerPort),
		Handler: emailer.NewServer(sender),
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	fmt.Printf("%s Email MCP server listening on port %d\n", logo, emailServerPort)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
