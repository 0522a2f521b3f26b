// Package cli implements the chatbot command tree.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jian-li1/reddit-llm/internal/config"
)

// Options are the persistent flags shared by every subcommand.
type Options struct {
	ConfigPath string
	LogLevel   string
	LogFormat  string
}

// Main runs the command tree against the process environment and returns the
// exit code.
func Main() int {
	if err := Execute(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}

// Execute runs the command tree with explicit arguments and streams.
func Execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	root := buildRootCmd(&Options{})
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.ExecuteContext(ctx)
}

func buildRootCmd(opts *Options) *cobra.Command {
	root := &cobra.Command{
		Use:           "chatbot",
		Short:         "Chat with a local language model in the browser or the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", os.Getenv("CHATBOT_CONFIG"), "Config file (.yaml, .json or .toml)")
	root.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "Log level: debug|info|warn|error (overrides config)")
	root.PersistentFlags().StringVar(&opts.LogFormat, "log-format", "", "Log format: console|json (overrides config)")

	root.AddCommand(newServeCmd(opts), newChatCmd(opts), newVersionCmd())
	return root
}

// loadConfig resolves the effective configuration: file, then CHATBOT_*
// environment, then flags (applied by the caller through override), then
// defaults.
func loadConfig(opts *Options, getenv func(string) string, override func(*config.Config)) (config.Config, error) {
	var cfg config.Config
	if opts.ConfigPath != "" {
		c, err := config.Load(opts.ConfigPath)
		if err != nil {
			return cfg, fmt.Errorf("configuration error: %w", err)
		}
		cfg = c
	}
	if err := cfg.ApplyEnv(getenv); err != nil {
		return cfg, fmt.Errorf("configuration error: %w", err)
	}
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}
	if opts.LogFormat != "" {
		cfg.LogFormat = opts.LogFormat
	}
	if override != nil {
		override(&cfg)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("configuration error: %w", err)
	}
	return cfg, nil
}
