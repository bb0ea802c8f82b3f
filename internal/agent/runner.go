// Package agent drives the bounded multi-turn exchange between the model and
// the discovered MCP tool backends.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/cerebricks/mailagent/internal/registry"
	"github.com/cerebricks/mailagent/internal/schema"
	"github.com/cerebricks/mailagent/internal/shared/llmutils"
)

const defaultMaxTurns = 10

// Settings configures one Runner.
type Settings struct {
	Model        string
	MaxTurns     int
	MaxTokens    int
	Temperature  float64
	SystemPrompt string // base instructions; the tool catalog is appended per run
}

// Progress receives fire-and-forget notifications as the run advances, one
// per tool invocation observed. It is not part of the correctness contract.
type Progress func(message string)

// Request is one prompt to run to completion.
type Request struct {
	Prompt     string
	MaxTurns   int // overrides Settings.MaxTurns when > 0
	OnProgress Progress
}

// Runner executes agent runs. It is safe for concurrent use: every Run
// performs its own discovery pass and owns its conversation state, so runs
// share nothing mutable.
type Runner struct {
	provider schema.LLMProvider
	sources  []registry.Source
	settings Settings
	pricing  PriceTable
}

// NewRunner constructs a Runner over the given backends.
func NewRunner(provider schema.LLMProvider, sources []registry.Source, settings Settings) *Runner {
	return &Runner{
		provider: provider,
		sources:  sources,
		settings: settings,
		pricing:  DefaultPricing,
	}
}

// Run drives the conversation loop until the model produces a final answer,
// the turn budget is exhausted, or an unrecoverable error ends the run.
// Backend transports are released on every exit path.
func (r *Runner) Run(ctx context.Context, req Request) (schema.SessionResult, error) {
	maxTurns := req.MaxTurns
	if maxTurns <= 0 {
		maxTurns = r.settings.MaxTurns
	}
	if maxTurns <= 0 {
		maxTurns = defaultMaxTurns
	}

	reg := registry.Discover(ctx, r.sources)
	defer reg.Close()

	defs := reg.Definitions()
	opts := schema.NewChatOptions(r.settings.Model, r.settings.MaxTokens, r.settings.Temperature)

	conversation := schema.NewMessages()
	conversation.AddSystem(BuildSystemPrompt(r.settings.SystemPrompt, reg))
	conversation.AddUser(req.Prompt)

	var toolsUsed []string
	cost := decimal.Zero

	for turn := 0; turn < maxTurns; turn++ {
		if err := ctx.Err(); err != nil {
			return errorResult(turn, toolsUsed, cost, err), err
		}

		resp, err := r.provider.Chat(ctx, conversation, defs, opts)
		if err != nil {
			slog.Error("LLM call failed", "turn", turn+1, "err", err)
			return errorResult(turn+1, toolsUsed, cost, err), err
		}
		cost = cost.Add(r.pricing.Cost(opts.Model, resp.Usage))

		switch resp.FinishReason {
		case "stop":
			content := ""
			if resp.Content != nil {
				content = llmutils.StripThink(*resp.Content)
			}
			slog.Info("Run completed", "turns", turn+1, "tools", len(toolsUsed))
			return schema.SessionResult{
				Response:  content,
				ToolsUsed: toolsUsed,
				Turns:     turn + 1,
				CostUSD:   cost.InexactFloat64(),
				Status:    schema.StatusCompleted,
			}, nil

		case "tool_calls":
			conversation.AddAssistant(resp.Content, resp.ToolCalls)

			// Every request gets exactly one result, success or failure,
			// before the next model turn. A single tool failure never
			// aborts the remaining calls of the same turn.
			for _, tc := range resp.ToolCalls {
				if err := ctx.Err(); err != nil {
					return errorResult(turn+1, toolsUsed, cost, err), err
				}
				if req.OnProgress != nil {
					req.OnProgress(llmutils.ToolHint([]schema.ToolCall{tc}))
				}
				toolsUsed = append(toolsUsed, tc.Name)
				result := r.executeTool(ctx, reg, tc)
				conversation.AddToolResult(tc.ID, tc.Name, result)
			}

		default:
			err := fmt.Errorf("unexpected stop reason %q", resp.FinishReason)
			slog.Error("Run aborted", "turn", turn+1, "err", err)
			return errorResult(turn+1, toolsUsed, cost, err), err
		}
	}

	slog.Warn("Turn budget exhausted", "maxTurns", maxTurns, "tools", len(toolsUsed))
	return schema.SessionResult{
		Response:  "Task incomplete - max turns reached",
		ToolsUsed: toolsUsed,
		Turns:     maxTurns,
		CostUSD:   cost.InexactFloat64(),
		Status:    schema.StatusMaxTurns,
	}, nil
}

// executeTool resolves one invocation request to its backend and runs it.
// Failures come back as failure-tagged result text so the model can adapt
// within its own turn budget; they never crash the loop.
func (r *Runner) executeTool(ctx context.Context, reg *registry.Registry, tc schema.ToolCall) string {
	argsJSON, _ := json.Marshal(tc.Arguments)
	slog.Info("Tool call", "name", tc.Name, "args", llmutils.Truncate(string(argsJSON), 200))

	backend, err := reg.Resolve(tc.Name)
	if err != nil {
		return fmt.Sprintf("Error: Tool '%s' not found", tc.Name)
	}

	out, err := backend.Client.CallTool(ctx, tc.Name, tc.Arguments)
	if err != nil {
		slog.Warn("Tool call failed", "name", tc.Name, "backend", backend.Name, "err", err)
		return "Error: " + err.Error()
	}
	return out
}

func errorResult(turns int, toolsUsed []string, cost decimal.Decimal, err error) schema.SessionResult {
	return schema.SessionResult{
		ToolsUsed: toolsUsed,
		Turns:     turns,
		CostUSD:   cost.InexactFloat64(),
		Status:    schema.StatusError,
		Error:     err.Error(),
	}
}
