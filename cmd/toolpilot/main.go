package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/coopco/toolpilot/internal/agent"
	"github.com/coopco/toolpilot/internal/config"
	"github.com/coopco/toolpilot/internal/providers"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		verbose    bool
	)
	cmd := &cobra.Command{
		Use:   "toolpilot [server-script]",
		Short: "Ask a question, let a model route it to one MCP tool, get an answer",
		Long: `toolpilot spawns the configured MCP server scripts, asks a language model
to pick the single most relevant tool for your query, runs it after
confirmation, and summarizes the output into a direct answer.

With a server-script argument it runs against that single server instead of
the configured list.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
			return run(cmd, configPath, args)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "config file (default ~/.toolpilot/config.json)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	return cmd
}

func run(cmd *cobra.Command, configPath string, args []string) error {
	cfg, err := loadConfig(configPath, len(args) > 0)
	if err != nil {
		return err
	}
	if len(args) == 1 {
		cfg.Servers = args
	}
	if len(cfg.Servers) == 0 {
		return errors.New("no MCP server scripts configured")
	}

	provider, err := buildProvider(cfg)
	if err != nil {
		return err
	}

	var selector agent.SelectionStrategy
	switch cfg.Selector {
	case "substring":
		selector = agent.SubstringSelector{}
	default:
		selector = &agent.ModelSelector{
			Provider:  provider,
			Model:     cfg.Model.Name,
			MaxTokens: cfg.Model.MaxTokens,
		}
	}

	controller := agent.NewController(agent.ControllerConfig{
		Servers:   cfg.Servers,
		ServerEnv: cfg.ServerEnv,
		Selector:  selector,
		Strategy: agent.NewCallStrategy(provider, cfg.Model.Name, cfg.Model.MaxTokens,
			time.Duration(cfg.ToolTimeoutSeconds)*time.Second),
		Synth: &agent.Synthesizer{
			Provider:  provider,
			Model:     cfg.Model.Name,
			MaxTokens: cfg.Model.MaxTokens,
		},
		In:  os.Stdin,
		Out: os.Stdout,
	})
	return controller.Run(cmd.Context())
}

// loadConfig reads the config file. A missing default file is tolerated in
// single-server mode, where the argument supplies everything the defaults
// don't.
func loadConfig(path string, haveServerArg bool) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	cfg, err := config.Load()
	if err != nil {
		if haveServerArg && errors.Is(err, os.ErrNotExist) {
			return config.DefaultConfig(), nil
		}
		return nil, err
	}
	return cfg, nil
}

// buildProvider constructs the configured provider. A missing API key is
// fatal here, before any query loop starts.
func buildProvider(cfg *config.Config) (providers.Provider, error) {
	switch cfg.Model.Provider {
	case "anthropic":
		key := os.Getenv("ANTHROPIC_API_KEY")
		if key == "" {
			return nil, errors.New("ANTHROPIC_API_KEY is not set")
		}
		return providers.NewAnthropicProvider(key), nil
	case "openai":
		key := os.Getenv("OPENAI_API_KEY")
		if key == "" {
			return nil, errors.New("OPENAI_API_KEY is not set")
		}
		return providers.NewOpenAICompatProvider(key, cfg.Model.BaseURL), nil
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.Model.Provider)
	}
}
