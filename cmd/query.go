package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cerebricks/mailagent/internal/agent"
	"github.com/cerebricks/mailagent/internal/config"
	"github.com/cerebricks/mailagent/internal/dependency"
)

var (
	queryMaxTurns int
	queryQuiet    bool
)

var queryCmd = &cobra.Command{
	Use:   "query [prompt]",
	Short: "Run a prompt through the agent",
	Long: `Runs one prompt to completion and prints the result. With no prompt
argument, starts an interactive loop reading prompts from stdin.`,
	Args: cobra.ArbitraryArgs,
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().IntVarP(&queryMaxTurns, "max-turns", "t", 0, "Turn budget (overrides config)")
	queryCmd.Flags().BoolVarP(&queryQuiet, "quiet", "q", false, "Print only the final response")
}

var exitCommands = map[string]bool{
	"exit":  true,
	"quit":  true,
	"/exit": true,
	"/quit": true,
	":q":    true,
}

func runQuery(_ *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	container, err := dependency.New(ctx, cfg)
	if err != nil {
		return err
	}

	if len(args) > 0 {
		return runOnce(ctx, container, strings.Join(args, " "))
	}
	return runInteractive(ctx, container)
}

// runOnce sends one prompt to the agent and prints the response.
func runOnce(ctx context.Context, container *dependency.Container, prompt string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	var progress agent.Progress
	if !queryQuiet {
		progress = func(message string) {
			fmt.Fprintf(os.Stderr, "  ↳ %s\n", message)
		}
	}

	start := time.Now()
	result, err := container.Runner().Run(ctx, agent.Request{
		Prompt:     prompt,
		MaxTurns:   queryMaxTurns,
		OnProgress: progress,
	})
	if err != nil {
		return err
	}

	fmt.Printf("\n%s mailagent\n%s\n\n", logo, result.Response)
	if !queryQuiet {
		fmt.Fprintf(os.Stderr, "status=%s turns=%d tools=%s cost=$%.4f elapsed=%s\n",
			result.Status,
			result.Turns,
			strings.Join(result.ToolsUsed, ","),
			result.CostUSD,
			time.Since(start).Round(time.Millisecond))
	}
	return nil
}

// runInteractive reads prompts from stdin and runs each to completion.
func runInteractive(ctx context.Context, container *dependency.Container) error {
	fmt.Printf("%s Interactive mode (type 'exit' or Ctrl+C to quit)\n\n", logo)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("You: ")
		if !scanner.Scan() {
			fmt.Println("\nGoodbye!")
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if exitCommands[strings.ToLower(line)] {
			fmt.Println("Goodbye!")
			return nil
		}

		if err := runOnce(ctx, container, line); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
	}
}
