package types

// Model represents a model artifact discovered on disk.
type Model struct {
	// Stable identifier for the model (the file name).
	// example: reddit-llama-3.1-8b.Q4_K_M.gguf
	ID string `json:"id" example:"reddit-llama-3.1-8b.Q4_K_M.gguf"`
	// Human-friendly name (file name without extension).
	// example: reddit-llama-3.1-8b.Q4_K_M
	Name string `json:"name" example:"reddit-llama-3.1-8b.Q4_K_M"`
	// Absolute path to the model file on disk.
	// example: /home/user/models/llm/reddit-llama-3.1-8b.Q4_K_M.gguf
	Path string `json:"path" example:"/home/user/models/llm/reddit-llama-3.1-8b.Q4_K_M.gguf"`
	// Quantization variant parsed from the file name, if any.
	// example: Q4_K_M
	Quant string `json:"quant,omitempty" example:"Q4_K_M"`
}

// Turn is one prior message of a conversation as sent by the chat page.
type Turn struct {
	// Role of the author: user or assistant.
	// example: user
	Role string `json:"role" example:"user"`
	// Message text.
	// example: What is the best subreddit for Go?
	Content string `json:"content" example:"What is the best subreddit for Go?"`
}
