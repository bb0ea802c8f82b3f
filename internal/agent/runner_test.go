package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/cerebricks/mailagent/internal/mcp"
	"github.com/cerebricks/mailagent/internal/registry"
	"github.com/cerebricks/mailagent/internal/schema"
)

// scriptedProvider replays a fixed sequence of responses and records every
// conversation state it was handed.
type scriptedProvider struct {
	responses []schema.LLMResponse
	errs      []error
	calls     int
	seen      []schema.Messages
}

func (p *scriptedProvider) Chat(_ context.Context, msgs schema.Messages, _ []map[string]any, _ schema.ChatOptions) (schema.LLMResponse, error) {
	i := p.calls
	p.calls++
	p.seen = append(p.seen, msgs.Clone())
	if i < len(p.errs) && p.errs[i] != nil {
		return schema.LLMResponse{}, p.errs[i]
	}
	if i >= len(p.responses) {
		return schema.LLMResponse{}, fmt.Errorf("provider called %d times, only %d responses scripted", p.calls, len(p.responses))
	}
	return p.responses[i], nil
}

func (p *scriptedProvider) DefaultModel() string { return "test-model" }

func textResponse(content string) schema.LLMResponse {
	return schema.LLMResponse{Content: &content, FinishReason: "stop"}
}

func toolResponse(calls ...schema.ToolCall) schema.LLMResponse {
	return schema.LLMResponse{ToolCalls: calls, FinishReason: "tool_calls"}
}

// fakeTool is an in-process handler backing the test registry.
type fakeTool struct {
	name   string
	result string
	err    error
	calls  int
}

func (f *fakeTool) Info() mcp.ToolInfo {
	return mcp.ToolInfo{Name: f.name, Description: f.name}
}

func (f *fakeTool) Handle(context.Context, map[string]any) (string, error) {
	f.calls++
	return f.result, f.err
}

func toolSources(handlers ...mcp.Handler) []registry.Source {
	return []registry.Source{{
		Name:    "builtin",
		Enabled: true,
		Config:  mcp.ServerConfig{Handlers: handlers},
	}}
}

func TestRun_CompletesWithoutTools(t *testing.T) {
	provider := &scriptedProvider{responses: []schema.LLMResponse{textResponse("All done.")}}
	runner := NewRunner(provider, nil, Settings{MaxTurns: 5})

	result, err := runner.Run(context.Background(), Request{Prompt: "hello"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Status != schema.StatusCompleted {
		t.Errorf("expected completed, got %q", result.Status)
	}
	if result.Response != "All done." {
		t.Errorf("unexpected response %q", result.Response)
	}
	if result.Turns != 1 {
		t.Errorf("expected 1 turn, got %d", result.Turns)
	}
	if len(result.ToolsUsed) != 0 {
		t.Errorf("no tools should be used, got %v", result.ToolsUsed)
	}
}

func TestRun_ToolCallRoundTrip(t *testing.T) {
	tool := &fakeTool{name: "send_email", result: "Email sent from a@x.com to b@y.com - status 200"}
	provider := &scriptedProvider{responses: []schema.LLMResponse{
		toolResponse(schema.ToolCall{ID: "call_1", Name: "send_email", Arguments: map[string]any{"to_email": "b@y.com"}}),
		textResponse("Email sent."),
	}}
	runner := NewRunner(provider, toolSources(tool), Settings{MaxTurns: 5})

	var progress []string
	result, err := runner.Run(context.Background(), Request{
		Prompt:     "send the mail",
		OnProgress: func(m string) { progress = append(progress, m) },
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Status != schema.StatusCompleted {
		t.Errorf("expected completed, got %q", result.Status)
	}
	if result.Turns != 2 {
		t.Errorf("expected 2 turns, got %d", result.Turns)
	}
	if len(result.ToolsUsed) != 1 || result.ToolsUsed[0] != "send_email" {
		t.Errorf("unexpected tools used: %v", result.ToolsUsed)
	}
	if tool.calls != 1 {
		t.Errorf("tool should run once, ran %d times", tool.calls)
	}
	if len(progress) != 1 {
		t.Errorf("expected 1 progress message, got %d", len(progress))
	}

	// The second model call must carry the tool result, correlated by id.
	second := provider.seen[1]
	last := second.Messages[len(second.Messages)-1]
	if last.Role != "tool" || last.ToolCallID != "call_1" {
		t.Errorf("expected tool result for call_1, got role=%q id=%q", last.Role, last.ToolCallID)
	}
}

func TestRun_OneResultPerToolRequest(t *testing.T) {
	ok := &fakeTool{name: "fetch_page", result: "page text"}
	broken := &fakeTool{name: "send_email", err: errors.New("SES send failed")}
	provider := &scriptedProvider{responses: []schema.LLMResponse{
		toolResponse(
			schema.ToolCall{ID: "c1", Name: "send_email", Arguments: map[string]any{}},
			schema.ToolCall{ID: "c2", Name: "fetch_page", Arguments: map[string]any{}},
			schema.ToolCall{ID: "c3", Name: "unknown_tool", Arguments: map[string]any{}},
		),
		textResponse("done"),
	}}
	runner := NewRunner(provider, toolSources(ok, broken), Settings{MaxTurns: 5})

	result, err := runner.Run(context.Background(), Request{Prompt: "go"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Status != schema.StatusCompleted {
		t.Fatalf("expected completed, got %q", result.Status)
	}

	second := provider.seen[1]
	var toolMsgs []schema.Message
	for _, m := range second.Messages {
		if m.Role == "tool" {
			toolMsgs = append(toolMsgs, m)
		}
	}
	if len(toolMsgs) != 3 {
		t.Fatalf("every request needs exactly one result, got %d", len(toolMsgs))
	}
	results := map[string]string{}
	for _, m := range toolMsgs {
		text, _ := m.Content.(string)
		results[m.ToolCallID] = text
	}
	if !strings.Contains(results["c1"], "SES send failed") {
		t.Errorf("c1 should carry the failure text, got %q", results["c1"])
	}
	if results["c2"] != "page text" {
		t.Errorf("c2 should carry the tool output, got %q", results["c2"])
	}
	if !strings.Contains(results["c3"], "not found") {
		t.Errorf("c3 should report an unknown tool, got %q", results["c3"])
	}
	if ok.calls != 1 || broken.calls != 1 {
		t.Errorf("each tool should run once, got ok=%d broken=%d", ok.calls, broken.calls)
	}
}

func TestRun_TurnBudgetExhausted(t *testing.T) {
	tool := &fakeTool{name: "fetch_page", result: "more"}
	loop := toolResponse(schema.ToolCall{ID: "c", Name: "fetch_page", Arguments: map[string]any{}})
	provider := &scriptedProvider{responses: []schema.LLMResponse{loop, loop, loop}}
	runner := NewRunner(provider, toolSources(tool), Settings{})

	result, err := runner.Run(context.Background(), Request{Prompt: "loop", MaxTurns: 3})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Status != schema.StatusMaxTurns {
		t.Errorf("expected max_turns_reached, got %q", result.Status)
	}
	if result.Turns != 3 {
		t.Errorf("expected 3 turns, got %d", result.Turns)
	}
	if provider.calls != 3 {
		t.Errorf("model must be called exactly maxTurns times, got %d", provider.calls)
	}
	if result.Response != "Task incomplete - max turns reached" {
		t.Errorf("unexpected response %q", result.Response)
	}
}

func TestRun_ProviderErrorIsUnrecoverable(t *testing.T) {
	provider := &scriptedProvider{errs: []error{errors.New("api key invalid")}}
	runner := NewRunner(provider, nil, Settings{MaxTurns: 5})

	result, err := runner.Run(context.Background(), Request{Prompt: "x"})
	if err == nil {
		t.Fatal("expected error")
	}
	if result.Status != schema.StatusError {
		t.Errorf("expected error status, got %q", result.Status)
	}
	if !strings.Contains(result.Error, "api key invalid") {
		t.Errorf("error text missing: %q", result.Error)
	}
}

func TestRun_UnexpectedStopReason(t *testing.T) {
	provider := &scriptedProvider{responses: []schema.LLMResponse{
		{FinishReason: "content_filter"},
	}}
	runner := NewRunner(provider, nil, Settings{MaxTurns: 5})

	result, err := runner.Run(context.Background(), Request{Prompt: "x"})
	if err == nil {
		t.Fatal("expected error")
	}
	if result.Status != schema.StatusError {
		t.Errorf("expected error status, got %q", result.Status)
	}
	if !strings.Contains(result.Error, "content_filter") {
		t.Errorf("error should name the stop reason, got %q", result.Error)
	}
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	provider := &scriptedProvider{responses: []schema.LLMResponse{textResponse("never")}}
	runner := NewRunner(provider, nil, Settings{MaxTurns: 5})

	result, err := runner.Run(ctx, Request{Prompt: "x"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if result.Status != schema.StatusError {
		t.Errorf("expected error status, got %q", result.Status)
	}
	if provider.calls != 0 {
		t.Errorf("model must not be called after cancellation, got %d calls", provider.calls)
	}
}

func TestRun_StripsThinkBlocks(t *testing.T) {
	provider := &scriptedProvider{responses: []schema.LLMResponse{
		textResponse("<think>secret reasoning</think>The answer is 4."),
	}}
	runner := NewRunner(provider, nil, Settings{MaxTurns: 5})

	result, err := runner.Run(context.Background(), Request{Prompt: "2+2"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Response != "The answer is 4." {
		t.Errorf("think block should be stripped, got %q", result.Response)
	}
}
