// Package cmd implements the mailagent CLI using cobra.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "0.1.0"
const logo = "📬"

var configPath string

// rootCmd is the base command.
var rootCmd = &cobra.Command{
	Use:   "mailagent",
	Short: logo + " mailagent - MCP email agent",
	Long:  logo + " mailagent - an agent that discovers MCP tools and handles email tasks",
}

// Execute runs the root command and exits on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = version
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (default: project mailagent.json or ~/.mailagent/config.json)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(toolsCmd)
	rootCmd.AddCommand(proxyCmd)
	rootCmd.AddCommand(emailServerCmd)
}
