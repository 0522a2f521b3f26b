// Package chat implements the "generate reply" operation: it turns a user
// message into a lazily produced sequence of response snapshots.
package chat

import (
	"context"
	"errors"
	"iter"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jian-li1/reddit-llm/internal/prompt"
	"github.com/jian-li1/reddit-llm/internal/stream"
)

// EmptyMessageReply is the only snapshot produced for a blank message.
const EmptyMessageReply = "Please type a message to generate response."

// SpecialTokenMarker starts runtime control tokens (e.g. "<|eot_id|>").
// Fragments beginning with it are never shown.
const SpecialTokenMarker = "<"

// Starter launches a background generation for a rendered prompt.
type Starter interface {
	Start(ctx context.Context, prompt string) *stream.Stream
}

// Config holds the fixed, process-wide inputs of every reply.
type Config struct {
	Instructions string
	Template     prompt.Template
	Logger       zerolog.Logger
	Publisher    EventPublisher
}

// Service produces replies. It is safe for concurrent use; every reply owns
// its own worker and stream.
type Service struct {
	worker       Starter
	instructions string
	template     prompt.Template
	log          zerolog.Logger
	publisher    EventPublisher
}

// NewService wires a Service to a generation worker.
func NewService(w Starter, cfg Config) *Service {
	pub := cfg.Publisher
	if pub == nil {
		pub = noopPublisher{}
	}
	tmpl := cfg.Template
	if tmpl.Name == "" {
		tmpl, _ = prompt.Lookup("llama3")
	}
	return &Service{
		worker:       w,
		instructions: cfg.Instructions,
		template:     tmpl,
		log:          cfg.Logger,
		publisher:    pub,
	}
}

// Template returns the chat template prompts are rendered with.
func (s *Service) Template() prompt.Template { return s.template }

// Reply generates a response to message. The returned sequence yields the
// whole response accumulated so far after every accepted fragment, so each
// snapshot is a prefix of the next. It ends when generation ends; a failed
// generation simply ends it early. Stopping iteration cancels the generation.
//
// history is accepted for interface compatibility with chat frontends but is
// not sent to the model: every reply is generated from message alone.
func (s *Service) Reply(ctx context.Context, message string, history []prompt.Message) iter.Seq[string] {
	return func(yield func(string) bool) {
		if strings.TrimSpace(message) == "" {
			repliesTotal.WithLabelValues("empty").Inc()
			yield(EmptyMessageReply)
			return
		}

		p := prompt.Build(s.instructions, message)
		rendered := s.template.Render(p)
		s.log.Info().Str("prompt", p.User()).Int("history_turns", len(history)).Msg("reply start")
		s.log.Debug().Str("rendered", rendered).Msg("rendered prompt")
		s.publisher.Publish(Event{Name: "reply_start", Fields: map[string]any{"chars": len(p.User())}})

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		start := time.Now()
		st := s.worker.Start(ctx, rendered)

		var (
			partial  strings.Builder
			emitted  int
			dropped  int
			stopped  bool
			gotFirst bool
		)
		for frag := range st.All() {
			if !gotFirst {
				gotFirst = true
				firstFragmentSeconds.Observe(time.Since(start).Seconds())
			}
			if strings.HasPrefix(frag, SpecialTokenMarker) {
				dropped++
				fragmentsTotal.WithLabelValues("dropped").Inc()
				continue
			}
			fragmentsTotal.WithLabelValues("accepted").Inc()
			partial.WriteString(frag)
			emitted++
			if !yield(partial.String()) {
				stopped = true
				break
			}
		}
		cancel()
		res, err := st.Wait()

		outcome := "ok"
		switch {
		case stopped || errors.Is(err, context.Canceled):
			outcome = "canceled"
		case err != nil:
			outcome = "error"
			workerErrorsTotal.Inc()
			s.log.Warn().Err(err).Int("snapshots", emitted).Msg("generation failed; reply truncated")
			s.publisher.Publish(Event{Name: "worker_error", Fields: map[string]any{"error": err.Error()}})
		}
		repliesTotal.WithLabelValues(outcome).Inc()
		s.log.Info().
			Str("outcome", outcome).
			Str("finish_reason", res.FinishReason).
			Int("snapshots", emitted).
			Int("dropped", dropped).
			Int("chars", partial.Len()).
			Dur("dur", time.Since(start)).
			Msg("reply end")
		s.publisher.Publish(Event{Name: "reply_done", Fields: map[string]any{
			"outcome":   outcome,
			"snapshots": emitted,
			"dropped":   dropped,
		}})
	}
}
