// Package config defines the configuration schema for mailagent.
//
// JSON keys use camelCase so existing settings.json files with an
// mcpServers block keep working unchanged.
package config

// ProviderConfig holds credentials for one LLM provider.
type ProviderConfig struct {
	APIKey       string            `json:"apiKey" yaml:"apiKey"`
	APIBase      string            `json:"apiBase,omitempty" yaml:"apiBase,omitempty"`
	ExtraHeaders map[string]string `json:"extraHeaders,omitempty" yaml:"extraHeaders,omitempty"`
}

// ProvidersConfig holds credentials for all supported LLM providers.
type ProvidersConfig struct {
	Custom     ProviderConfig `json:"custom" yaml:"custom"`
	Anthropic  ProviderConfig `json:"anthropic" yaml:"anthropic"`
	OpenAI     ProviderConfig `json:"openai" yaml:"openai"`
	OpenRouter ProviderConfig `json:"openrouter" yaml:"openrouter"`
}

// AgentDefaults holds default values for agent runs.
type AgentDefaults struct {
	Model        string  `json:"model" yaml:"model"`
	MaxTurns     int     `json:"maxTurns" yaml:"maxTurns"`
	MaxTokens    int     `json:"maxTokens" yaml:"maxTokens"`
	Temperature  float64 `json:"temperature" yaml:"temperature"`
	SystemPrompt string  `json:"systemPrompt,omitempty" yaml:"systemPrompt,omitempty"`
}

func defaultAgentDefaults() AgentDefaults {
	return AgentDefaults{
		Model:       "claude-sonnet-4-20250514",
		MaxTurns:    10,
		MaxTokens:   8192,
		Temperature: 0.7,
	}
}

// AgentsConfig wraps agent defaults.
type AgentsConfig struct {
	Defaults AgentDefaults `json:"defaults" yaml:"defaults"`
}

// MCPServerConfig describes one MCP server connection (HTTP or stdio).
// HTTPURL is the legacy key older settings files used for URL.
type MCPServerConfig struct {
	URL         string            `json:"url,omitempty" yaml:"url,omitempty"`
	HTTPURL     string            `json:"httpUrl,omitempty" yaml:"httpUrl,omitempty"`
	Headers     map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Command     string            `json:"command,omitempty" yaml:"command,omitempty"`
	Args        []string          `json:"args,omitempty" yaml:"args,omitempty"`
	Env         map[string]string `json:"env,omitempty" yaml:"env,omitempty"`
	Enabled     *bool             `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
}

// Endpoint returns the HTTP URL, preferring the modern key.
func (c MCPServerConfig) Endpoint() string {
	if c.URL != "" {
		return c.URL
	}
	return c.HTTPURL
}

// IsEnabled treats a missing enabled flag as true.
func (c MCPServerConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// GatewayConfig holds gateway server settings.
type GatewayConfig struct {
	Port int `json:"port" yaml:"port"`
}

func defaultGatewayConfig() GatewayConfig {
	return GatewayConfig{Port: 8080}
}

// EmailConfig holds SES settings for the built-in send_email tool and the
// standalone email MCP server.
type EmailConfig struct {
	Enabled     *bool  `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Region      string `json:"region" yaml:"region"`
	DefaultFrom string `json:"defaultFrom" yaml:"defaultFrom"`
}

// IsEnabled treats a missing enabled flag as true.
func (c EmailConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// TaskConfig is one scheduled prompt.
type TaskConfig struct {
	Name     string `json:"name" yaml:"name"`
	Schedule string `json:"schedule" yaml:"schedule"`
	Prompt   string `json:"prompt" yaml:"prompt"`
	MaxTurns int    `json:"maxTurns,omitempty" yaml:"maxTurns,omitempty"`
	Timezone string `json:"timezone,omitempty" yaml:"timezone,omitempty"`
	Enabled  *bool  `json:"enabled,omitempty" yaml:"enabled,omitempty"`
}

// IsEnabled treats a missing enabled flag as true.
func (t TaskConfig) IsEnabled() bool {
	return t.Enabled == nil || *t.Enabled
}

// SchedulerConfig holds the scheduled task list.
type SchedulerConfig struct {
	Tasks []TaskConfig `json:"tasks" yaml:"tasks"`
}

// Config is the root configuration object.
type Config struct {
	Agents     AgentsConfig               `json:"agents" yaml:"agents"`
	Providers  ProvidersConfig            `json:"providers" yaml:"providers"`
	MCPServers map[string]MCPServerConfig `json:"mcpServers" yaml:"mcpServers"`
	Gateway    GatewayConfig              `json:"gateway" yaml:"gateway"`
	Email      EmailConfig                `json:"email" yaml:"email"`
	Scheduler  SchedulerConfig            `json:"scheduler" yaml:"scheduler"`
}

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() Config {
	return Config{
		Agents:     AgentsConfig{Defaults: defaultAgentDefaults()},
		Providers:  ProvidersConfig{},
		MCPServers: map[string]MCPServerConfig{},
		Gateway:    defaultGatewayConfig(),
		Email:      EmailConfig{Region: "us-east-1"},
	}
}

// ProviderByName returns a pointer to the ProviderConfig field matching the
// given name (e.g. "anthropic", "openrouter"). Returns nil if unknown.
func (c *Config) ProviderByName(name string) *ProviderConfig {
	switch name {
	case "custom":
		return &c.Providers.Custom
	case "anthropic":
		return &c.Providers.Anthropic
	case "openai":
		return &c.Providers.OpenAI
	case "openrouter":
		return &c.Providers.OpenRouter
	}
	return nil
}
