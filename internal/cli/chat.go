package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/jian-li1/reddit-llm/internal/config"
	"github.com/jian-li1/reddit-llm/internal/term"
)

func newChatCmd(opts *Options) *cobra.Command {
	var (
		modelID   string
		serverURL string
	)
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session in the terminal",
		Long: `Start a chat session that streams replies as they are generated.
Type 'exit' or 'quit' to end the session.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts, os.Getenv, func(c *config.Config) {
				if cmd.Flags().Changed("model") {
					c.Model = modelID
				}
				if cmd.Flags().Changed("server-url") {
					c.ServerURL = serverURL
				}
				// Keep the conversation readable unless asked otherwise.
				if c.LogLevel == "" {
					c.LogLevel = "warn"
				}
			})
			if err != nil {
				return err
			}
			log := newLogger(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
			mgr, err := newManager(cfg, log, nil)
			if err != nil {
				return err
			}
			if err := mgr.Load(); err != nil {
				return err
			}
			defer mgr.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return term.New(mgr, term.Options{
				In:      cmd.InOrStdin(),
				Out:     cmd.OutOrStdout(),
				Title:   cfg.Title,
				Spinner: isTerminal(cmd.OutOrStdout()),
			}).Run(ctx)
		},
	}
	cmd.Flags().StringVar(&modelID, "model", "", "Model id, file name in the models dir, or path to a .gguf file")
	cmd.Flags().StringVar(&serverURL, "server-url", "", "Base URL of the completion server (runtime=server)")
	return cmd
}

func isTerminal(w any) bool {
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}
