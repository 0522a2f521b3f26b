package model

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/jian-li1/reddit-llm/pkg/types"
)

// Runtime abstracts the external model runtime.
type Runtime interface {
	// Generate streams fragments of the completion for a rendered prompt into
	// sink, in the order the model produces them, and returns once generation
	// reaches an end condition or params.MaxTokens. If sink returns an error
	// generation stops and that error is returned. Implementations must return
	// when ctx is canceled.
	Generate(ctx context.Context, prompt string, params Params, sink Sink) (Result, error)
	// Close releases the model.
	Close() error
}

// Checker is implemented by runtimes that can report readiness.
type Checker interface {
	Check(ctx context.Context) error
}

// Sink receives one decoded fragment per call.
type Sink func(fragment string) error

// Params is the sampling configuration passed to every generation.
type Params struct {
	MinTokens         int
	MaxTokens         int
	Temperature       float32
	RepetitionPenalty float32
	TopP              float32
	UseCache          bool
	Stop              []string
	Seed              int
}

// Result summarizes a generation after streaming.
type Result struct {
	FinishReason string
	Usage        Usage
}

// Usage contains token accounting.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// LoadOptions describe how to open a runtime.
type LoadOptions struct {
	// Model is the resolved model; Path is required by the in-process runtime,
	// ID is sent as the model name to servers.
	Model     types.Model
	MaxSeqLen int
	// Quantized selects the low-memory loading mode.
	Quantized       bool
	GPULayers       int
	Threads         int
	PromptCachePath string

	ServerURL      string
	APIKey         string
	ConnectTimeout time.Duration
	RequestTimeout time.Duration

	Logger zerolog.Logger
}
