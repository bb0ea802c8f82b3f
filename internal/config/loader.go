package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// localNames are project-local config files checked before the home config.
var localNames = []string{"mailagent.json", "mailagent.yaml", "mailagent.yml"}

// ConfigPath returns the configuration file path: a project-local mailagent
// config if one exists in the working directory, otherwise
// ~/.mailagent/config.json.
func ConfigPath() string {
	for _, name := range localNames {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".mailagent/config.json"
	}
	return filepath.Join(home, ".mailagent", "config.json")
}

// DataDir returns the mailagent data directory: ~/.mailagent.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".mailagent"
	}
	return filepath.Join(home, ".mailagent")
}

// Load reads and parses the config file at path. The format is chosen by
// extension: .yaml/.yml parse as YAML, everything else as JSON.
// If path is empty, ConfigPath() is used.
// On parse failure it prints a warning and returns DefaultConfig().
func Load(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := DefaultConfig()
			applyEnv(&cfg)
			return &cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if isYAMLPath(path) {
		err = yaml.Unmarshal(data, &cfg)
	} else {
		err = json.Unmarshal(data, &cfg)
	}
	if err != nil {
		fmt.Printf("Warning: failed to parse config %s: %v\n", path, err)
		fmt.Println("Using default configuration.")
		cfg2 := DefaultConfig()
		applyEnv(&cfg2)
		return &cfg2, nil
	}

	applyEnv(&cfg)
	return &cfg, nil
}

// applyEnv fills in API keys from the environment when the config leaves
// them empty.
func applyEnv(cfg *Config) {
	envKeys := []struct {
		dst *string
		env string
	}{
		{&cfg.Providers.Anthropic.APIKey, "ANTHROPIC_API_KEY"},
		{&cfg.Providers.OpenAI.APIKey, "OPENAI_API_KEY"},
		{&cfg.Providers.OpenRouter.APIKey, "OPENROUTER_API_KEY"},
	}
	for _, k := range envKeys {
		if *k.dst == "" {
			*k.dst = os.Getenv(k.env)
		}
	}
}

// Save writes cfg to path as indented JSON.
// If path is empty, ConfigPath() is used.
func Save(cfg *Config, path string) error {
	if path == "" {
		path = ConfigPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	// Append a trailing newline for POSIX compliance.
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

func isYAMLPath(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
