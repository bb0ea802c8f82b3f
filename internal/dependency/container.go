// Package dependency wires core mailagent services using go.uber.org/dig.
package dependency

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/dig"

	"github.com/cerebricks/mailagent/internal/agent"
	"github.com/cerebricks/mailagent/internal/builtin"
	"github.com/cerebricks/mailagent/internal/config"
	"github.com/cerebricks/mailagent/internal/emailer"
	"github.com/cerebricks/mailagent/internal/gateway"
	"github.com/cerebricks/mailagent/internal/providers"
	"github.com/cerebricks/mailagent/internal/registry"
	"github.com/cerebricks/mailagent/internal/scheduler"
	"github.com/cerebricks/mailagent/internal/schema"
)

// Container holds the resolved core service singletons.
// Callers use the typed getter methods; they never need to import dig directly.
type Container struct {
	provider schema.LLMProvider
	sender   emailer.Sender
	runner   *agent.Runner
	gateway  *gateway.Server
	cronSvc  *scheduler.Service
}

func (c *Container) Provider() schema.LLMProvider { return c.provider }
func (c *Container) Sender() emailer.Sender       { return c.sender }
func (c *Container) Runner() *agent.Runner        { return c.runner }
func (c *Container) Gateway() *gateway.Server     { return c.gateway }
func (c *Container) Scheduler() *scheduler.Service {
	return c.cronSvc
}

// New builds and wires all core services from cfg.
func New(ctx context.Context, cfg *config.Config) (*Container, error) {
	d := dig.New()

	provide := []any{
		func() context.Context { return ctx },
		func() *config.Config { return cfg },
		newProvider,
		newSender,
		newSources,
		newRunner,
		newGateway,
		newScheduler,
	}
	for _, fn := range provide {
		if err := d.Provide(fn); err != nil {
			return nil, err
		}
	}

	var result *Container
	err := d.Invoke(func(
		provider schema.LLMProvider,
		sender emailer.Sender,
		runner *agent.Runner,
		gw *gateway.Server,
		sched *scheduler.Service,
	) {
		result = &Container{
			provider: provider,
			sender:   sender,
			runner:   runner,
			gateway:  gw,
			cronSvc:  sched,
		}
	})
	return result, err
}

func newProvider(cfg *config.Config) (schema.LLMProvider, error) {
	model := cfg.Agents.Defaults.Model
	name, pc := matchProvider(cfg, model)
	if pc == nil {
		return nil, fmt.Errorf("no API key configured for model %q, edit %s", model, config.ConfigPath())
	}
	return providers.New(providers.Params{
		APIKey:       pc.APIKey,
		APIBase:      pc.APIBase,
		ExtraHeaders: pc.ExtraHeaders,
		DefaultModel: model,
		ProviderName: name,
	}), nil
}

// matchProvider picks the provider serving model: anthropic for claude
// models, openrouter for vendor-prefixed names, then openai, then custom.
func matchProvider(cfg *config.Config, model string) (string, *config.ProviderConfig) {
	if strings.HasPrefix(model, "claude") && cfg.Providers.Anthropic.APIKey != "" {
		return "anthropic", &cfg.Providers.Anthropic
	}
	if strings.Contains(model, "/") && cfg.Providers.OpenRouter.APIKey != "" {
		return "openrouter", &cfg.Providers.OpenRouter
	}
	if cfg.Providers.OpenAI.APIKey != "" {
		return "openai", &cfg.Providers.OpenAI
	}
	if cfg.Providers.Custom.APIKey != "" || cfg.Providers.Custom.APIBase != "" {
		return "custom", &cfg.Providers.Custom
	}
	if cfg.Providers.Anthropic.APIKey != "" {
		return "anthropic", &cfg.Providers.Anthropic
	}
	return "", nil
}

func newSender(ctx context.Context, cfg *config.Config) (emailer.Sender, error) {
	if !cfg.Email.IsEnabled() {
		return nil, nil
	}
	return emailer.NewSESSender(ctx, cfg.Email.Region)
}

func newSources(cfg *config.Config, sender emailer.Sender) []registry.Source {
	return cfg.Sources(builtin.Handlers(sender, cfg.Email.DefaultFrom))
}

func newRunner(provider schema.LLMProvider, sources []registry.Source, cfg *config.Config) *agent.Runner {
	return agent.NewRunner(provider, sources, agent.Settings{
		Model:        cfg.Agents.Defaults.Model,
		MaxTurns:     cfg.Agents.Defaults.MaxTurns,
		MaxTokens:    cfg.Agents.Defaults.MaxTokens,
		Temperature:  cfg.Agents.Defaults.Temperature,
		SystemPrompt: cfg.Agents.Defaults.SystemPrompt,
	})
}

func newGateway(runner *agent.Runner, cfg *config.Config) *gateway.Server {
	return gateway.New(runner, cfg.Gateway.Port)
}

func newScheduler(runner *agent.Runner, cfg *config.Config) *scheduler.Service {
	var tasks []scheduler.Task
	for _, t := range cfg.Scheduler.Tasks {
		if !t.IsEnabled() {
			continue
		}
		tasks = append(tasks, scheduler.Task{
			Name:     t.Name,
			Schedule: t.Schedule,
			Prompt:   t.Prompt,
			MaxTurns: t.MaxTurns,
			Timezone: t.Timezone,
		})
	}
	return scheduler.New(runner, tasks)
}
