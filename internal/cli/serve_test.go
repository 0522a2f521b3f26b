package cli

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/jian-li1/reddit-llm/internal/config"
	"github.com/jian-li1/reddit-llm/pkg/types"
)

// fakeCompletionServer streams frags as OpenAI-style SSE text completions.
func fakeCompletionServer(t *testing.T, frags ...string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/completions", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, f := range frags {
			b, _ := json.Marshal(map[string]any{"choices": []map[string]any{{"text": f}}})
			fmt.Fprintf(w, "data: %s\n\n", b)
			w.(http.Flusher).Flush()
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	})
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func testConfig(t *testing.T, serverURL string) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.ServerURL = serverURL
	cfg.ModelsDir = t.TempDir()
	return cfg
}

func TestServe_ChatRoundTripAndShutdown(t *testing.T) {
	backend := fakeCompletionServer(t, "Hi", " there", "<|eot_id|>", "!")
	cfg := testConfig(t, backend.URL)
	mgr, err := newManager(cfg, zerolog.Nop(), nil)
	if err != nil {
		t.Fatalf("newManager: %v", err)
	}
	if err := mgr.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer mgr.Close()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, ln, mgr, zerolog.Nop()) }()

	base := "http://" + ln.Addr().String()
	resp, err := http.Post(base+"/chat", "application/json", strings.NewReader(`{"message":"Hello"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	var texts []string
	sc := bufio.NewScanner(resp.Body)
	for sc.Scan() {
		var c types.ChatChunk
		if err := json.Unmarshal(sc.Bytes(), &c); err != nil {
			t.Fatalf("decode %q: %v", sc.Text(), err)
		}
		texts = append(texts, c.Text)
	}
	resp.Body.Close()
	want := []string{"Hi", "Hi there", "Hi there!", "Hi there!"}
	if strings.Join(texts, "|") != strings.Join(want, "|") {
		t.Fatalf("texts=%q want %q", texts, want)
	}

	ready, err := http.Get(base + "/readyz")
	if err != nil {
		t.Fatalf("readyz: %v", err)
	}
	ready.Body.Close()
	if ready.StatusCode != http.StatusOK {
		t.Fatalf("readyz status=%d", ready.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(shutdownTimeout + time.Second):
		t.Fatal("serve did not return after cancel")
	}
}

func TestWaitReady(t *testing.T) {
	backend := fakeCompletionServer(t)
	mgr, err := newManager(testConfig(t, backend.URL), zerolog.Nop(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := mgr.Load(); err != nil {
		t.Fatal(err)
	}
	if err := waitReady(context.Background(), mgr, time.Second, 10*time.Millisecond); err != nil {
		t.Fatalf("waitReady: %v", err)
	}
}

func TestWaitReady_TimesOut(t *testing.T) {
	// Reserve a port and release it so nothing is listening there.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	url := "http://" + ln.Addr().String()
	ln.Close()

	mgr, err := newManager(testConfig(t, url), zerolog.Nop(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := mgr.Load(); err != nil {
		t.Fatal(err)
	}
	err = waitReady(context.Background(), mgr, 100*time.Millisecond, 20*time.Millisecond)
	if err == nil || !strings.Contains(err.Error(), "not ready") {
		t.Fatalf("expected timeout, got %v", err)
	}
}

func TestChatCommand(t *testing.T) {
	backend := fakeCompletionServer(t, "Hi", " there", "!")
	t.Setenv("CHATBOT_MODELS_DIR", t.TempDir())
	var out, errOut bytes.Buffer
	args := []string{"chat", "--server-url", backend.URL}
	if err := Execute(context.Background(), args, strings.NewReader("Hello\nexit\n"), &out, &errOut); err != nil {
		t.Fatalf("chat: %v (stderr=%s)", err, errOut.String())
	}
	if !strings.Contains(out.String(), "Hi there!") {
		t.Fatalf("out=%q", out.String())
	}
}

func TestServeFlagsOverrideConfig(t *testing.T) {
	cmd := newServeCmd(&Options{})
	if err := cmd.Flags().Parse([]string{"--model", "m.gguf", "--cors-origins", "http://a, http://b", "--max-new-tokens", "12"}); err != nil {
		t.Fatal(err)
	}
	var f serveFlags
	f.model, _ = cmd.Flags().GetString("model")
	f.corsOrigins, _ = cmd.Flags().GetString("cors-origins")
	f.maxTokens, _ = cmd.Flags().GetInt("max-new-tokens")
	c := config.Config{Model: "file", Addr: ":1"}
	f.apply(cmd, &c)
	if c.Model != "m.gguf" || c.MaxTokens != 12 || c.Addr != ":1" {
		t.Fatalf("cfg=%+v", c)
	}
	if !c.CORSEnabled || len(c.CORSOrigins) != 2 || c.CORSOrigins[1] != "http://b" {
		t.Fatalf("cors=%v %v", c.CORSEnabled, c.CORSOrigins)
	}
}

func TestServeFlags_SmallMaxTokensAndGreedyTemperature(t *testing.T) {
	cmd := newServeCmd(&Options{})
	if err := cmd.Flags().Parse([]string{"--max-new-tokens", "32", "--temperature", "0"}); err != nil {
		t.Fatal(err)
	}
	var f serveFlags
	f.maxTokens, _ = cmd.Flags().GetInt("max-new-tokens")
	f.temperature, _ = cmd.Flags().GetFloat64("temperature")
	cfg, err := loadConfig(&Options{}, envMap(nil), func(c *config.Config) { f.apply(cmd, c) })
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.MaxTokens != 32 || cfg.MinTokens != 32 {
		t.Fatalf("token bounds: min=%d max=%d", cfg.MinTokens, cfg.MaxTokens)
	}
	if cfg.Temperature == nil || *cfg.Temperature != 0 {
		t.Fatalf("temperature=%v, want explicit 0", cfg.Temperature)
	}
}
