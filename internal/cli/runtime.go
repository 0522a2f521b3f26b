package cli

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/jian-li1/reddit-llm/internal/chat"
	"github.com/jian-li1/reddit-llm/internal/config"
	"github.com/jian-li1/reddit-llm/internal/manager"
	"github.com/jian-li1/reddit-llm/internal/model"
	"github.com/jian-li1/reddit-llm/internal/prompt"
	"github.com/jian-li1/reddit-llm/internal/registry"
	"github.com/jian-li1/reddit-llm/internal/stream"
)

// newManager translates the configuration into a manager. The runtime is not
// opened until Load.
func newManager(cfg config.Config, log zerolog.Logger, open manager.OpenFunc) (*manager.Manager, error) {
	tmpl, err := prompt.Lookup(cfg.Template)
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	mdl, found := registry.Resolve(cfg.ModelsDir, cfg.Model)
	if !found {
		log.Debug().Str("model", cfg.Model).Str("models_dir", cfg.ModelsDir).Msg("model not found on disk; passing id through")
	}
	return manager.New(manager.Config{
		Runtime:   cfg.Runtime,
		ModelsDir: cfg.ModelsDir,
		Load: model.LoadOptions{
			Model:           mdl,
			MaxSeqLen:       cfg.MaxSeqLen,
			Quantized:       config.BoolValue(cfg.Quantized),
			GPULayers:       cfg.GPULayers,
			Threads:         cfg.Threads,
			PromptCachePath: cfg.PromptCachePath,
			ServerURL:       cfg.ServerURL,
			APIKey:          cfg.APIKey,
			ConnectTimeout:  time.Duration(cfg.ConnectTimeoutS) * time.Second,
			RequestTimeout:  time.Duration(cfg.RequestTimeoutS) * time.Second,
			Logger:          log.With().Str("component", "runtime").Logger(),
		},
		Worker: stream.WorkerConfig{
			Params: model.Params{
				MinTokens:         cfg.MinTokens,
				MaxTokens:         cfg.MaxTokens,
				Temperature:       float32(config.Float64Value(cfg.Temperature)),
				RepetitionPenalty: float32(cfg.RepetitionPenalty),
				TopP:              float32(cfg.TopP),
				UseCache:          config.BoolValue(cfg.UseCache),
				Stop:              cfg.Stop,
			},
			Buffer: cfg.StreamBuffer,
			Logger: log.With().Str("component", "worker").Logger(),
		},
		Chat: chat.Config{
			Instructions: cfg.Instructions,
			Template:     tmpl,
			Logger:       log.With().Str("component", "chat").Logger(),
			Publisher:    chat.LogPublisher{Log: log},
		},
		Open: open,
	}), nil
}
