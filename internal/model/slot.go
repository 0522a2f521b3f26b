package model

import "context"

// serialized admits one generation at a time into the wrapped runtime. Waiters
// are released in arrival order as far as the Go scheduler allows.
type serialized struct {
	Runtime
	genCh  chan struct{} // size 1: single in-flight generation
	closed bool          // guarded by genCh
}

// Serialize wraps rt so that concurrent Generate calls run one after another.
// Close waits for the in-flight generation before releasing rt.
func Serialize(rt Runtime) Runtime {
	return &serialized{Runtime: rt, genCh: make(chan struct{}, 1)}
}

func (s *serialized) Generate(ctx context.Context, prompt string, params Params, sink Sink) (Result, error) {
	// Fast path: respect an already-canceled context
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	select {
	case s.genCh <- struct{}{}:
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
	defer func() { <-s.genCh }()
	if s.closed {
		return Result{}, ErrDependencyUnavailable("runtime closed")
	}
	return s.Runtime.Generate(ctx, prompt, params, sink)
}

// Check forwards readiness checks when the wrapped runtime supports them.
func (s *serialized) Check(ctx context.Context) error {
	if c, ok := s.Runtime.(Checker); ok {
		return c.Check(ctx)
	}
	return nil
}

// Close takes the generation slot, so a running Generate finishes before the
// wrapped runtime frees its model.
func (s *serialized) Close() error {
	s.genCh <- struct{}{}
	defer func() { <-s.genCh }()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.Runtime.Close()
}
