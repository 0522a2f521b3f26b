// Package stream carries generated fragments from a background generation
// worker to exactly one consumer.
package stream

import (
	"context"
	"iter"

	"github.com/jian-li1/reddit-llm/internal/model"
)

// Stream is an ordered single-producer, single-consumer channel of fragments.
// The producer closes it exactly once; after the fragment channel is closed
// Wait returns immediately with the generation outcome.
type Stream struct {
	ch   chan string
	done chan struct{}
	res  model.Result
	err  error
}

func newStream(buffer int) *Stream {
	if buffer < 0 {
		buffer = 0
	}
	return &Stream{ch: make(chan string, buffer), done: make(chan struct{})}
}

// send hands one fragment to the consumer, blocking until it is taken or the
// buffer has room. It gives up when ctx is done.
func (s *Stream) send(ctx context.Context, frag string) error {
	select {
	case s.ch <- frag:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// finish records the outcome and signals end-of-stream.
func (s *Stream) finish(res model.Result, err error) {
	s.res, s.err = res, err
	close(s.ch)
	close(s.done)
}

// All yields fragments in arrival order until end-of-stream.
func (s *Stream) All() iter.Seq[string] {
	return func(yield func(string) bool) {
		for frag := range s.ch {
			if !yield(frag) {
				return
			}
		}
	}
}

// Wait blocks until the producer finished and returns its outcome.
func (s *Stream) Wait() (model.Result, error) {
	<-s.done
	return s.res, s.err
}
