package e2e

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/jian-li1/reddit-llm/internal/chat"
	"github.com/jian-li1/reddit-llm/internal/httpapi"
	"github.com/jian-li1/reddit-llm/internal/manager"
	"github.com/jian-li1/reddit-llm/internal/model"
	"github.com/jian-li1/reddit-llm/internal/prompt"
	"github.com/jian-li1/reddit-llm/internal/registry"
	"github.com/jian-li1/reddit-llm/internal/stream"
	"github.com/jian-li1/reddit-llm/pkg/types"
)

// createTempModelsDir creates a temporary directory populated with empty .gguf files.
func createTempModelsDir(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, n := range names {
		p := filepath.Join(dir, n)
		if err := os.WriteFile(p, []byte(""), 0o644); err != nil {
			t.Fatalf("write temp model %s: %v", p, err)
		}
	}
	return dir
}

// backend is a fake OpenAI-compatible completion server.
type backend struct {
	*httptest.Server

	mu       sync.Mutex
	requests []map[string]any
	// handler overrides the default streaming behaviour when set.
	handler func(w http.ResponseWriter, r *http.Request)
	frags   []string
}

func newBackend(t *testing.T, frags ...string) *backend {
	t.Helper()
	b := &backend{frags: frags}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/completions", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		b.mu.Lock()
		b.requests = append(b.requests, body)
		h := b.handler
		b.mu.Unlock()
		if h != nil {
			h(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, f := range b.frags {
			writeSSE(w, f)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	})
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	b.Server = httptest.NewServer(mux)
	t.Cleanup(b.Close)
	return b
}

func writeSSE(w http.ResponseWriter, text string) {
	raw, _ := json.Marshal(map[string]any{"choices": []map[string]any{{"text": text}}})
	fmt.Fprintf(w, "data: %s\n\n", raw)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func (b *backend) Requests() []map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]map[string]any(nil), b.requests...)
}

// newStack wires the production packages together against the backend and
// serves them from an httptest server.
func newStack(t *testing.T, be *backend, modelsDir string) (*httptest.Server, *manager.Manager) {
	t.Helper()
	tmpl, err := prompt.Lookup("llama3")
	if err != nil {
		t.Fatal(err)
	}
	mdl, _ := registry.Resolve(modelsDir, "reddit.Q4_K_M")
	mgr := manager.New(manager.Config{
		Runtime:   "server",
		ModelsDir: modelsDir,
		Load: model.LoadOptions{
			Model:          mdl,
			MaxSeqLen:      1024,
			Quantized:      true,
			ServerURL:      be.URL,
			ConnectTimeout: time.Second,
		},
		Worker: stream.WorkerConfig{Params: model.Params{
			MinTokens: 64, MaxTokens: 1024, Temperature: 0.8, RepetitionPenalty: 1.25, TopP: 0.9, UseCache: true,
		}},
		Chat: chat.Config{Instructions: "You are a redditor.", Template: tmpl, Logger: zerolog.Nop()},
	})
	if err := mgr.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	t.Cleanup(func() { _ = mgr.Close() })
	srv := httptest.NewServer(httpapi.NewMux(mgr))
	t.Cleanup(srv.Close)
	return srv, mgr
}

func httpGet(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp, b
}

func postChat(t *testing.T, url, message string) (*http.Response, []types.ChatChunk) {
	t.Helper()
	body, _ := json.Marshal(types.ChatRequest{Message: message})
	resp, err := http.Post(url+"/chat", "application/json", strings.NewReader(string(body)))
	if err != nil {
		t.Fatalf("POST /chat: %v", err)
	}
	defer resp.Body.Close()
	var chunks []types.ChatChunk
	sc := bufio.NewScanner(resp.Body)
	for sc.Scan() {
		var c types.ChatChunk
		if err := json.Unmarshal(sc.Bytes(), &c); err != nil {
			t.Fatalf("decode %q: %v", sc.Text(), err)
		}
		chunks = append(chunks, c)
	}
	return resp, chunks
}

func texts(chunks []types.ChatChunk) []string {
	out := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if !c.Done {
			out = append(out, c.Text)
		}
	}
	return out
}
