package model

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// serverRuntime implements Runtime by talking to a running completion server
// (llama.cpp server, vLLM) through its OpenAI-compatible /v1/completions
// endpoint with streaming enabled.
type serverRuntime struct {
	baseURL    string
	apiKey     string
	modelID    string
	reqTimeout time.Duration
	httpClient *http.Client
	log        zerolog.Logger
}

// NewServer constructs a server-backed runtime.
func NewServer(opts LoadOptions) (Runtime, error) {
	if strings.TrimSpace(opts.ServerURL) == "" {
		return nil, ErrDependencyUnavailable("server runtime requires server_url")
	}
	connectTimeout := opts.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 5 * time.Second
	}
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   connectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	// Timeout=0: every request carries a context deadline instead, since
	// streams legitimately outlive any fixed client timeout.
	cli := &http.Client{Transport: tr, Timeout: 0}
	return &serverRuntime{
		baseURL:    strings.TrimRight(opts.ServerURL, "/"),
		apiKey:     opts.APIKey,
		modelID:    strings.TrimSpace(opts.Model.ID),
		reqTimeout: opts.RequestTimeout,
		httpClient: cli,
		log:        opts.Logger,
	}, nil
}

// completionRequest is the payload for /v1/completions. Non-standard sampling
// keys are spelled the way llama.cpp and vLLM accept them; servers ignore the
// keys they do not know.
type completionRequest struct {
	Model             string   `json:"model,omitempty"`
	Prompt            string   `json:"prompt"`
	MaxTokens         int      `json:"max_tokens,omitempty"`
	MinTokens         int      `json:"min_tokens,omitempty"`
	Temperature       float32  `json:"temperature"`
	TopP              float32  `json:"top_p,omitempty"`
	Stop              []string `json:"stop,omitempty"`
	Seed              int      `json:"seed,omitempty"`
	Stream            bool     `json:"stream"`
	RepeatPenalty     float32  `json:"repeat_penalty,omitempty"`
	RepetitionPenalty float32  `json:"repetition_penalty,omitempty"`
	CachePrompt       bool     `json:"cache_prompt"`
}

type streamChoice struct {
	Text  string `json:"text"`
	Delta struct {
		Content string `json:"content"`
	} `json:"delta"`
	FinishReason *string `json:"finish_reason"`
}

type streamResponse struct {
	Choices []streamChoice `json:"choices"`
	Usage   *Usage         `json:"usage"`
	// native llama.cpp /completion shape
	Content string `json:"content"`
	Stop    bool   `json:"stop"`
}

func (s *serverRuntime) Generate(ctx context.Context, prompt string, params Params, sink Sink) (Result, error) {
	if s.reqTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.reqTimeout)
		defer cancel()
	}
	payload := completionRequest{
		Model:             s.modelID,
		Prompt:            prompt,
		MaxTokens:         params.MaxTokens,
		MinTokens:         params.MinTokens,
		Temperature:       params.Temperature,
		TopP:              params.TopP,
		Stop:              params.Stop,
		Seed:              params.Seed,
		Stream:            true,
		RepeatPenalty:     params.RepetitionPenalty,
		RepetitionPenalty: params.RepetitionPenalty,
		CachePrompt:       params.UseCache,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Result{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/completions", bytes.NewReader(body))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		return Result{}, ErrDependencyUnavailable("completion server unreachable: " + err.Error())
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Result{}, fmt.Errorf("completion server http error: %s: %s", resp.Status, strings.TrimSpace(string(b)))
	}
	return s.readStream(ctx, resp.Body, sink)
}

// readStream parses Server-Sent Events ("data: {...}" lines, terminated by
// "data: [DONE]") and also accepts bare JSON lines.
func (s *serverRuntime) readStream(ctx context.Context, body io.Reader, sink Sink) (Result, error) {
	r := bufio.NewReader(body)
	var final Result
	for {
		line, err := r.ReadString('\n')
		if line = strings.TrimSpace(line); line != "" && !strings.HasPrefix(line, ":") {
			data := line
			if strings.HasPrefix(strings.ToLower(line), "data:") {
				data = strings.TrimSpace(line[len("data:"):])
			}
			if data == "[DONE]" {
				return final, nil
			}
			var msg streamResponse
			if jerr := json.Unmarshal([]byte(data), &msg); jerr != nil {
				s.log.Debug().Str("line", line).Msg("unknown stream line")
			} else {
				frag := msg.Content
				if len(msg.Choices) > 0 {
					c := msg.Choices[0]
					frag = c.Text + c.Delta.Content
					if c.FinishReason != nil && *c.FinishReason != "" {
						final.FinishReason = *c.FinishReason
					}
				} else if msg.Stop && final.FinishReason == "" {
					final.FinishReason = "stop"
				}
				if msg.Usage != nil {
					final.Usage = *msg.Usage
				}
				if frag != "" {
					if serr := sink(frag); serr != nil {
						return final, serr
					}
				}
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return final, nil
			}
			if ctx.Err() != nil {
				return final, ctx.Err()
			}
			return final, fmt.Errorf("read completion stream: %w", err)
		}
	}
}

// Check probes the server's /health endpoint.
func (s *serverRuntime) Check(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return ErrDependencyUnavailable("completion server unreachable: " + err.Error())
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	if resp.StatusCode != http.StatusOK {
		return ErrDependencyUnavailable("completion server not ready: " + resp.Status)
	}
	return nil
}

func (s *serverRuntime) Close() error {
	s.httpClient.CloseIdleConnections()
	return nil
}
