package types

// ChatRequest is the payload for POST /chat.
type ChatRequest struct {
	// The user's new message. Whitespace-only messages produce a single hint snapshot.
	// example: Hello
	Message string `json:"message" example:"Hello"`
	// Prior turns of the conversation. Accepted for compatibility with chat widgets;
	// the reply is generated from Message alone.
	History []Turn `json:"history,omitempty"`
}

// ChatChunk is one NDJSON line of a POST /chat response. Every line carries the
// full response text accumulated so far; the last line has Done set.
type ChatChunk struct {
	// Identifier shared by all lines of one reply.
	// example: 5b0f3c1e-9a57-4ad1-b1b0-2f3c1f0e8c11
	ID string `json:"id" example:"5b0f3c1e-9a57-4ad1-b1b0-2f3c1f0e8c11"`
	// Accumulated response text.
	// example: Hi there
	Text string `json:"text" example:"Hi there"`
	// Number of snapshots emitted so far (set on the final line).
	// example: 2
	Snapshots int `json:"snapshots,omitempty" example:"2"`
	// True on the final line.
	// example: true
	Done bool `json:"done,omitempty" example:"true"`
}

// GenerationParams mirrors the fixed sampling configuration of the service.
type GenerationParams struct {
	// example: 64
	MinTokens int `json:"min_new_tokens" example:"64"`
	// example: 1024
	MaxTokens int `json:"max_new_tokens" example:"1024"`
	// example: 0.8
	Temperature float64 `json:"temperature" example:"0.8"`
	// example: 1.25
	RepetitionPenalty float64 `json:"repetition_penalty" example:"1.25"`
	// example: 0.9
	TopP float64 `json:"top_p" example:"0.9"`
	// example: true
	UseCache bool `json:"use_cache" example:"true"`
}

// InfoResponse is returned by GET /info.
type InfoResponse struct {
	// Model identifier the runtime was opened with.
	// example: reddit-llama-3.1-8b.Q4_K_M.gguf
	Model string `json:"model" example:"reddit-llama-3.1-8b.Q4_K_M.gguf"`
	// Runtime backend (llama or server).
	// example: server
	Runtime string `json:"runtime" example:"server"`
	// Chat template used to render prompts.
	// example: llama3
	Template string `json:"template" example:"llama3"`
	// Maximum sequence length of the loaded model.
	// example: 1024
	MaxSeqLen int `json:"max_seq_len" example:"1024"`
	// Whether the model was loaded in quantized (low-memory) mode.
	// example: true
	Quantized bool `json:"quantized" example:"true"`
	// Sampling configuration.
	Params GenerationParams `json:"params"`
	// Uptime of the server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
}

// ModelsResponse wraps the list of models returned by GET /models.
type ModelsResponse struct {
	// Model files found in the models directory.
	Models []Model `json:"models"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}
