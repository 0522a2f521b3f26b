package manager

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jian-li1/reddit-llm/internal/chat"
	"github.com/jian-li1/reddit-llm/internal/model"
	"github.com/jian-li1/reddit-llm/internal/prompt"
	"github.com/jian-li1/reddit-llm/internal/registry"
	"github.com/jian-li1/reddit-llm/internal/stream"
	"github.com/jian-li1/reddit-llm/pkg/types"
)

type Manager struct {
	mu      sync.RWMutex
	state   State
	err     error
	rt      model.Runtime
	worker  *stream.Worker
	svc     *chat.Service
	cfg     Config
	log     zerolog.Logger
	started time.Time
}

func New(cfg Config) *Manager {
	if cfg.Open == nil {
		cfg.Open = model.Open
	}
	return &Manager{
		state:   StateIdle,
		cfg:     cfg,
		log:     cfg.Load.Logger,
		started: time.Now(),
	}
}

// Load opens the runtime and builds the chat service. It is called once at
// startup; calling it again after success is a no-op.
func (m *Manager) Load() error {
	m.mu.Lock()
	switch m.state {
	case StateReady:
		m.mu.Unlock()
		return nil
	case StateClosed:
		m.mu.Unlock()
		return errors.New("manager closed")
	}
	m.state = StateLoading
	m.err = nil
	m.mu.Unlock()

	start := time.Now()
	m.publish(chat.Event{Name: "load_start", Fields: map[string]any{
		"runtime": m.cfg.Runtime,
		"model":   m.cfg.Load.Model.ID,
	}})
	rt, err := m.cfg.Open(m.cfg.Runtime, m.cfg.Load)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.state = StateError
		m.err = err
		m.publish(chat.Event{Name: "load_error", Fields: map[string]any{"error": err.Error()}})
		return fmt.Errorf("open %s runtime: %w", m.cfg.Runtime, err)
	}
	m.rt = rt
	m.worker = stream.NewWorker(rt, m.cfg.Worker)
	m.svc = chat.NewService(m.worker, m.cfg.Chat)
	m.state = StateReady
	m.log.Info().
		Str("runtime", m.cfg.Runtime).
		Str("model", m.cfg.Load.Model.ID).
		Dur("dur", time.Since(start)).
		Msg("runtime ready")
	m.publish(chat.Event{Name: "load_ready", Fields: map[string]any{"ms": time.Since(start).Milliseconds()}})
	return nil
}

func (m *Manager) publish(e chat.Event) {
	if m.cfg.Chat.Publisher != nil {
		m.cfg.Chat.Publisher.Publish(e)
	}
}

// Snapshot returns a read-only view of the manager state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := Snapshot{State: m.state, Model: m.cfg.Load.Model.ID}
	if m.err != nil {
		s.Err = m.err.Error()
	}
	return s
}

// Reply delegates to the chat service. Before Load succeeds the sequence is
// empty.
func (m *Manager) Reply(ctx context.Context, message string, history []prompt.Message) iter.Seq[string] {
	m.mu.RLock()
	svc := m.svc
	m.mu.RUnlock()
	if svc == nil {
		m.log.Warn().Msg("reply requested before runtime is ready")
		return func(func(string) bool) {}
	}
	return svc.Reply(ctx, message, history)
}

// Info describes the loaded model and the fixed generation parameters.
func (m *Manager) Info() types.InfoResponse {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p := m.cfg.Worker.Params
	if m.worker != nil {
		p = m.worker.Params()
	}
	tmpl := m.cfg.Chat.Template.Name
	if m.svc != nil {
		tmpl = m.svc.Template().Name
	}
	return types.InfoResponse{
		Model:     m.cfg.Load.Model.ID,
		Runtime:   m.cfg.Runtime,
		Template:  tmpl,
		MaxSeqLen: m.cfg.Load.MaxSeqLen,
		Quantized: m.cfg.Load.Quantized,
		Params: types.GenerationParams{
			MinTokens:         p.MinTokens,
			MaxTokens:         p.MaxTokens,
			Temperature:       float64(p.Temperature),
			RepetitionPenalty: float64(p.RepetitionPenalty),
			TopP:              float64(p.TopP),
			UseCache:          p.UseCache,
		},
		UptimeSeconds: int64(time.Since(m.started).Seconds()),
	}
}

// ListModels scans the models directory. A missing directory lists nothing.
func (m *Manager) ListModels() ([]types.Model, error) {
	if m.cfg.ModelsDir == "" {
		return nil, nil
	}
	models, err := registry.LoadDir(m.cfg.ModelsDir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return models, err
}

// Ready reports nil once the runtime is loaded and, for runtimes that can
// check their backend, the backend answers.
func (m *Manager) Ready(ctx context.Context) error {
	m.mu.RLock()
	state, rt, lerr := m.state, m.rt, m.err
	m.mu.RUnlock()
	switch state {
	case StateReady:
	case StateError:
		return lerr
	default:
		return fmt.Errorf("runtime %s", state)
	}
	if c, ok := rt.(model.Checker); ok {
		return c.Check(ctx)
	}
	return nil
}

// Close releases the runtime. In-flight replies should be canceled first;
// a serialized runtime still waits for its running generation.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.state == StateClosed {
		m.mu.Unlock()
		return nil
	}
	m.state = StateClosed
	m.svc = nil
	m.worker = nil
	rt := m.rt
	m.rt = nil
	m.mu.Unlock()
	if rt == nil {
		return nil
	}
	return rt.Close()
}
