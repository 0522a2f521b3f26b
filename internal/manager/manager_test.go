package manager

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/jian-li1/reddit-llm/internal/chat"
	"github.com/jian-li1/reddit-llm/internal/model"
	"github.com/jian-li1/reddit-llm/internal/prompt"
	"github.com/jian-li1/reddit-llm/internal/stream"
	"github.com/jian-li1/reddit-llm/pkg/types"
)

// fakeRuntime replays fixed fragments and records lifecycle calls.
type fakeRuntime struct {
	frags    []string
	checkErr error
	closed   atomic.Bool
}

func (f *fakeRuntime) Generate(ctx context.Context, p string, params model.Params, sink model.Sink) (model.Result, error) {
	for _, s := range f.frags {
		if err := sink(s); err != nil {
			return model.Result{}, err
		}
	}
	return model.Result{FinishReason: "stop"}, nil
}

func (f *fakeRuntime) Check(ctx context.Context) error { return f.checkErr }

func (f *fakeRuntime) Close() error {
	f.closed.Store(true)
	return nil
}

func newTestManager(t *testing.T, rt model.Runtime, openErr error) (*Manager, *chat.MemoryPublisher) {
	t.Helper()
	pub := chat.NewMemoryPublisher()
	tmpl, err := prompt.Lookup("plain")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	m := New(Config{
		Runtime: "server",
		Load:    model.LoadOptions{Model: types.Model{ID: "m.gguf"}, MaxSeqLen: 1024, Quantized: true},
		Worker: stream.WorkerConfig{Params: model.Params{
			MinTokens: 64, MaxTokens: 1024, Temperature: 0.8, RepetitionPenalty: 1.25, TopP: 0.9, UseCache: true,
		}},
		Chat: chat.Config{Instructions: "be nice", Template: tmpl, Publisher: pub},
		Open: func(kind string, opts model.LoadOptions) (model.Runtime, error) {
			if openErr != nil {
				return nil, openErr
			}
			return rt, nil
		},
	})
	return m, pub
}

func TestLoad_ReadyAndReply(t *testing.T) {
	rt := &fakeRuntime{frags: []string{"Hi", " there", "<|eot_id|>"}}
	m, pub := newTestManager(t, rt, nil)
	if err := m.Ready(context.Background()); err == nil {
		t.Fatal("expected not ready before Load")
	}
	if err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s := m.Snapshot(); s.State != StateReady || s.Model != "m.gguf" {
		t.Fatalf("snapshot=%+v", s)
	}
	if err := m.Ready(context.Background()); err != nil {
		t.Fatalf("Ready: %v", err)
	}
	got := slices.Collect(m.Reply(context.Background(), "Hello", nil))
	if want := []string{"Hi", "Hi there"}; !slices.Equal(got, want) {
		t.Fatalf("reply=%q want %q", got, want)
	}
	var names []string
	for _, e := range pub.Events() {
		names = append(names, e.Name)
	}
	if !slices.Contains(names, "load_start") || !slices.Contains(names, "load_ready") {
		t.Fatalf("events=%v", names)
	}
}

func TestLoad_Idempotent(t *testing.T) {
	var opens int
	m := New(Config{Open: func(string, model.LoadOptions) (model.Runtime, error) {
		opens++
		return &fakeRuntime{}, nil
	}})
	for i := 0; i < 2; i++ {
		if err := m.Load(); err != nil {
			t.Fatalf("Load: %v", err)
		}
	}
	if opens != 1 {
		t.Fatalf("opens=%d", opens)
	}
}

func TestLoad_Error(t *testing.T) {
	m, pub := newTestManager(t, nil, model.ErrDependencyUnavailable("llama runtime not built"))
	err := m.Load()
	if !model.IsDependencyUnavailable(err) {
		t.Fatalf("expected wrapped dependency error, got %v", err)
	}
	if s := m.Snapshot(); s.State != StateError || !strings.Contains(s.Err, "not built") {
		t.Fatalf("snapshot=%+v", s)
	}
	if err := m.Ready(context.Background()); err == nil {
		t.Fatal("expected Ready error after failed load")
	}
	if got := slices.Collect(m.Reply(context.Background(), "Hello", nil)); len(got) != 0 {
		t.Fatalf("expected empty reply, got %q", got)
	}
	evs := pub.Events()
	if len(evs) == 0 || evs[len(evs)-1].Name != "load_error" {
		t.Fatalf("events=%+v", evs)
	}
}

func TestReady_ChecksBackend(t *testing.T) {
	rt := &fakeRuntime{checkErr: errors.New("connection refused")}
	m, _ := newTestManager(t, rt, nil)
	if err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := m.Ready(context.Background()); err == nil || !strings.Contains(err.Error(), "refused") {
		t.Fatalf("expected backend error, got %v", err)
	}
}

func TestInfo(t *testing.T) {
	m, _ := newTestManager(t, &fakeRuntime{}, nil)
	if err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	info := m.Info()
	if info.Model != "m.gguf" || info.Runtime != "server" || info.Template != "plain" {
		t.Fatalf("info=%+v", info)
	}
	if info.MaxSeqLen != 1024 || !info.Quantized {
		t.Fatalf("info=%+v", info)
	}
	p := info.Params
	if p.MinTokens != 64 || p.MaxTokens != 1024 || !p.UseCache {
		t.Fatalf("params=%+v", p)
	}
	if p.TopP < 0.89 || p.TopP > 0.91 {
		t.Fatalf("top_p=%v", p.TopP)
	}
}

func TestListModels(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.Q4_K_M.gguf", "a.gguf", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	m := New(Config{ModelsDir: dir})
	models, err := m.ListModels()
	if err != nil {
		t.Fatalf("ListModels: %v", err)
	}
	if len(models) != 2 || models[0].ID != "a.gguf" || models[1].Quant != "Q4_K_M" {
		t.Fatalf("models=%+v", models)
	}
}

func TestListModels_MissingDir(t *testing.T) {
	m := New(Config{ModelsDir: filepath.Join(t.TempDir(), "nope")})
	models, err := m.ListModels()
	if err != nil || len(models) != 0 {
		t.Fatalf("models=%v err=%v", models, err)
	}
}

func TestClose(t *testing.T) {
	rt := &fakeRuntime{}
	m, _ := newTestManager(t, rt, nil)
	if err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !rt.closed.Load() {
		t.Fatal("runtime not closed")
	}
	if err := m.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if err := m.Load(); err == nil {
		t.Fatal("expected Load after Close to fail")
	}
	if s := m.Snapshot(); s.State != StateClosed {
		t.Fatalf("state=%s", s.State)
	}
}
