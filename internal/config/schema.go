package config

// Config is the top-level configuration.
type Config struct {
	// Servers is the ordered list of MCP server script locators. Order is
	// meaningful: it fixes tool enumeration order in selection prompts.
	Servers []string `json:"servers"`

	Model ModelConfig `json:"model"`

	// Selector picks the selection strategy: "model" (default) or
	// "substring".
	Selector string `json:"selector"`

	// ToolTimeoutSeconds bounds a single tool invocation. 0 means the
	// default of 30.
	ToolTimeoutSeconds int `json:"toolTimeoutSeconds"`

	// ServerEnv is appended to the environment of every spawned server.
	ServerEnv map[string]string `json:"serverEnv"`
}

// ModelConfig names the language-model provider and its settings. API keys
// are never read from the file; they come from the provider's environment
// variable.
type ModelConfig struct {
	Provider  string `json:"provider"` // "anthropic" or "openai"
	Name      string `json:"name"`
	MaxTokens int    `json:"maxTokens"`
	BaseURL   string `json:"baseUrl"`
}

// DefaultConfig returns the configuration used when the file omits a field.
func DefaultConfig() *Config {
	return &Config{
		Model:              ModelConfig{Provider: "anthropic"},
		Selector:           "model",
		ToolTimeoutSeconds: 30,
	}
}
