package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jian-li1/reddit-llm/internal/config"
	"github.com/jian-li1/reddit-llm/internal/httpapi"
	"github.com/jian-li1/reddit-llm/internal/manager"
)

const shutdownTimeout = 5 * time.Second

type serveFlags struct {
	addr         string
	runtime      string
	model        string
	modelsDir    string
	serverURL    string
	template     string
	title        string
	minTokens    int
	maxTokens    int
	temperature  float64
	streamBuffer int
	corsOrigins  string
	replyTimeout time.Duration
	waitReady    time.Duration
}

func newServeCmd(opts *Options) *cobra.Command {
	var f serveFlags
	cmd := &cobra.Command{
		Use:     "serve",
		Short:   "Serve the chat page and streaming API over HTTP",
		Example: "  chatbot serve --model reddit-llama.Q4_K_M.gguf\n  chatbot serve --runtime server --server-url http://127.0.0.1:8081",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts, os.Getenv, func(c *config.Config) { f.apply(cmd, c) })
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
			defer func() {
				if err := mgr.Close(); err != nil {
					log.Warn().Err(err).Msg("close runtime")
				}
			}()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			if f.waitReady > 0 {
				if err := waitReady(ctx, mgr, f.waitReady, time.Second); err != nil {
					return err
				}
			}

			ln, err := net.Listen("tcp", cfg.Addr)
			if err != nil {
				return fmt.Errorf("listen %s: %w", cfg.Addr, err)
			}
			configureHTTP(cfg, f.replyTimeout, log)
			log.Info().
				Str("addr", ln.Addr().String()).
				Str("runtime", cfg.Runtime).
				Str("model", cfg.Model).
				Msg("chatbot listening")
			return serve(ctx, ln, mgr, log)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.addr, "addr", "", "HTTP listen address, e.g. :8080")
	fl.StringVar(&f.runtime, "runtime", "", "Model runtime: server|llama")
	fl.StringVar(&f.model, "model", "", "Model id, file name in --models-dir, or path to a .gguf file")
	fl.StringVar(&f.modelsDir, "models-dir", "", "Directory to scan for *.gguf model files")
	fl.StringVar(&f.serverURL, "server-url", "", "Base URL of the completion server (runtime=server)")
	fl.StringVar(&f.template, "template", "", "Chat template: llama3|chatml|plain")
	fl.StringVar(&f.title, "title", "", "Chat page title")
	fl.IntVar(&f.minTokens, "min-new-tokens", 0, "Minimum tokens generated per reply (server runtime)")
	fl.IntVar(&f.maxTokens, "max-new-tokens", 0, "Maximum tokens generated per reply")
	fl.Float64Var(&f.temperature, "temperature", 0, "Sampling temperature (0 is greedy)")
	fl.IntVar(&f.streamBuffer, "stream-buffer", 0, "Fragments the worker may run ahead of the reader")
	fl.StringVar(&f.corsOrigins, "cors-origins", "", "Comma-separated allowed CORS origins (enables CORS)")
	fl.DurationVar(&f.replyTimeout, "reply-timeout", 0, "Maximum duration of one reply (0 disables)")
	fl.DurationVar(&f.waitReady, "wait-ready", 0, "Wait up to this long for the runtime backend before listening")
	return cmd
}

// apply copies explicitly set flags over the file and environment values.
func (f serveFlags) apply(cmd *cobra.Command, c *config.Config) {
	set := cmd.Flags().Changed
	if set("addr") {
		c.Addr = f.addr
	}
	if set("runtime") {
		c.Runtime = f.runtime
	}
	if set("model") {
		c.Model = f.model
	}
	if set("models-dir") {
		c.ModelsDir = f.modelsDir
	}
	if set("server-url") {
		c.ServerURL = f.serverURL
	}
	if set("template") {
		c.Template = f.template
	}
	if set("title") {
		c.Title = f.title
	}
	if set("min-new-tokens") {
		c.MinTokens = f.minTokens
	}
	if set("max-new-tokens") {
		c.MaxTokens = f.maxTokens
	}
	if set("temperature") {
		t := f.temperature
		c.Temperature = &t
	}
	if set("stream-buffer") {
		c.StreamBuffer = f.streamBuffer
	}
	if set("cors-origins") {
		c.CORSOrigins = splitCSV(f.corsOrigins)
		c.CORSEnabled = len(c.CORSOrigins) > 0
	}
}

func configureHTTP(cfg config.Config, replyTimeout time.Duration, log zerolog.Logger) {
	httpapi.SetLogger(log.With().Str("component", "http").Logger())
	httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
	httpapi.SetPageTitle(cfg.Title)
	httpapi.SetReplyTimeout(replyTimeout)
	origins := cfg.CORSOrigins
	if cfg.CORSEnabled && len(origins) == 0 {
		origins = []string{"*"}
	}
	httpapi.SetCORSOptions(cfg.CORSEnabled, origins,
		[]string{http.MethodGet, http.MethodPost, http.MethodOptions},
		[]string{"Content-Type", "X-Log-Level"})
}

// serve runs the HTTP server on ln until ctx is done, then drains it. Replies
// in flight are canceled through the base context before the drain.
func serve(ctx context.Context, ln net.Listener, mgr *manager.Manager, log zerolog.Logger) error {
	base, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()
	httpapi.SetBaseContext(base)
	defer httpapi.SetBaseContext(nil)

	srv := &http.Server{
		Handler:           httpapi.NewMux(mgr),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}
	log.Info().Msg("shutting down")
	cancelBase()
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown error")
	}
	return nil
}

// waitReady polls the manager until its backend answers or timeout elapses.
func waitReady(ctx context.Context, mgr *manager.Manager, timeout, every time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	for {
		err := mgr.Ready(ctx)
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("runtime not ready after %s: %w", timeout, err)
		case <-time.After(every):
		}
	}
}
