//go:build llama

package model

import (
	"context"
	"errors"

	llama "github.com/go-skynet/go-llama.cpp"
	"github.com/rs/zerolog"
)

// llamaBuilt indicates this binary was compiled with real llama support.
const llamaBuilt = true

// llamaRuntime owns the in-process model.
type llamaRuntime struct {
	model     *llama.LLama
	threads   int
	cachePath string
	log       zerolog.Logger
}

func openLlama(opts LoadOptions) (Runtime, error) {
	mo := []llama.ModelOption{
		llama.SetContext(opts.MaxSeqLen),
	}
	if opts.GPULayers > 0 {
		mo = append(mo, llama.SetGPULayers(opts.GPULayers))
	}
	if opts.Quantized {
		mo = append(mo, llama.EnableF16Memory)
	}
	m, err := llama.New(opts.Model.Path, mo...)
	if err != nil {
		return nil, err
	}
	opts.Logger.Info().Str("model", opts.Model.ID).Str("path", opts.Model.Path).
		Int("ctx", opts.MaxSeqLen).Bool("quantized", opts.Quantized).Msg("llama model loaded")
	return &llamaRuntime{model: m, threads: opts.Threads, cachePath: opts.PromptCachePath, log: opts.Logger}, nil
}

func (r *llamaRuntime) Generate(ctx context.Context, prompt string, params Params, sink Sink) (Result, error) {
	if r.model == nil {
		return Result{}, errors.New("llama model not initialized")
	}
	if params.MinTokens > 0 {
		r.log.Debug().Int("min_new_tokens", params.MinTokens).Msg("min_new_tokens not supported in-process; ignored")
	}

	var sinkErr error
	produced := 0
	r.model.SetTokenCallback(func(tok string) bool {
		select {
		case <-ctx.Done():
			return false
		default:
		}
		if err := sink(tok); err != nil {
			sinkErr = err
			return false
		}
		produced++
		return true
	})

	// Blocks until done or the callback returns false.
	_, err := r.model.Predict(prompt, r.predictOptions(params)...)
	if ctx.Err() != nil {
		return Result{}, ctx.Err()
	}
	if sinkErr != nil {
		return Result{}, sinkErr
	}
	if err != nil {
		return Result{}, err
	}
	finish := "stop"
	if params.MaxTokens > 0 && produced >= params.MaxTokens {
		finish = "length"
	}
	return Result{
		FinishReason: finish,
		Usage:        Usage{CompletionTokens: produced, TotalTokens: produced},
	}, nil
}

func (r *llamaRuntime) Close() error {
	if r.model != nil {
		r.model.Free()
		r.model = nil
	}
	return nil
}

// predictOptions converts Params into go-llama.cpp options.
func (r *llamaRuntime) predictOptions(params Params) []llama.PredictOption {
	po := []llama.PredictOption{
		llama.SetTokens(max(1, params.MaxTokens)),
		llama.SetThreads(max(1, r.threads)),
		llama.SetTopP(zf(params.TopP, llama.DefaultOptions.TopP)),
		llama.SetTemperature(max(0, params.Temperature)),
		llama.SetPenalty(zf(params.RepetitionPenalty, llama.DefaultOptions.Penalty)),
	}
	if params.Seed != 0 {
		po = append(po, llama.SetSeed(params.Seed))
	}
	if len(params.Stop) > 0 {
		po = append(po, llama.SetStopWords(params.Stop...))
	}
	if params.UseCache && r.cachePath != "" {
		po = append(po, llama.SetPathPromptCache(r.cachePath), llama.EnablePromptCacheAll)
	}
	return po
}

func zf(v, def float32) float32 {
	if v > 0 {
		return v
	}
	return def
}
