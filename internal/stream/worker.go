package stream

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/jian-li1/reddit-llm/internal/model"
)

// Worker runs generations on the shared runtime off the caller's goroutine.
type Worker struct {
	rt     model.Runtime
	params model.Params
	buffer int
	log    zerolog.Logger
}

// WorkerConfig tunes a Worker.
type WorkerConfig struct {
	Params model.Params
	// Buffer is the number of fragments the worker may run ahead of the
	// consumer. Zero makes every fragment a direct hand-off.
	Buffer int
	Logger zerolog.Logger
}

// NewWorker binds a worker to a runtime and a fixed parameter set.
func NewWorker(rt model.Runtime, cfg WorkerConfig) *Worker {
	return &Worker{rt: rt, params: cfg.Params, buffer: cfg.Buffer, log: cfg.Logger}
}

// Params returns the worker's generation parameters.
func (w *Worker) Params() model.Params { return w.params }

// Start launches a generation for a fully rendered prompt and returns the
// stream it writes into. The stream is always closed, whether the runtime
// finishes, fails, panics or ctx is canceled.
func (w *Worker) Start(ctx context.Context, prompt string) *Stream {
	s := newStream(w.buffer)
	go w.run(ctx, prompt, s)
	return s
}

func (w *Worker) run(ctx context.Context, prompt string, s *Stream) {
	var (
		res model.Result
		err error
	)
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("generation panicked: %v", r)
			w.log.Error().Interface("panic", r).Msg("generation worker panic")
		}
		s.finish(res, err)
	}()
	res, err = w.rt.Generate(ctx, prompt, w.params, func(frag string) error {
		return s.send(ctx, frag)
	})
}
