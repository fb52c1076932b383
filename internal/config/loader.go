package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Load loads config from the default path (~/.toolpilot/config.json).
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	return LoadFromFile(filepath.Join(home, ".toolpilot", "config.json"))
}

// LoadFromFile loads config from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file %s: %w", path, err)
	}
	defer f.Close()
	return LoadFromReader(f)
}

// LoadFromReader loads config from an io.Reader, applying defaults and env
// overrides.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := DefaultConfig()

	if err := json.NewDecoder(r).Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies TOOLPILOT_-prefixed environment variable
// overrides.
func applyEnvOverrides(cfg *Config) {
	envMap := map[string]*string{
		"TOOLPILOT_MODEL_PROVIDER": &cfg.Model.Provider,
		"TOOLPILOT_MODEL_NAME":     &cfg.Model.Name,
		"TOOLPILOT_MODEL_BASEURL":  &cfg.Model.BaseURL,
		"TOOLPILOT_SELECTOR":       &cfg.Selector,
	}
	for env, ptr := range envMap {
		if val := os.Getenv(env); val != "" {
			*ptr = val
		}
	}
}

// Validate rejects values no component can act on.
func (c *Config) Validate() error {
	switch c.Model.Provider {
	case "anthropic", "openai":
	default:
		return fmt.Errorf("unknown model provider %q", c.Model.Provider)
	}
	switch c.Selector {
	case "model", "substring":
	default:
		return fmt.Errorf("unknown selector strategy %q", c.Selector)
	}
	return nil
}
