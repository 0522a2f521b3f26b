package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and are replaced by ApplyDefaults.
type Config struct {
	Addr      string `json:"addr" yaml:"addr" toml:"addr"`
	LogLevel  string `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFormat string `json:"log_format" yaml:"log_format" toml:"log_format"`

	// Model runtime
	Runtime         string `json:"runtime" yaml:"runtime" toml:"runtime"`
	Model           string `json:"model" yaml:"model" toml:"model"`
	ModelsDir       string `json:"models_dir" yaml:"models_dir" toml:"models_dir"`
	MaxSeqLen       int    `json:"max_seq_len" yaml:"max_seq_len" toml:"max_seq_len"`
	Quantized       *bool  `json:"load_in_4bit" yaml:"load_in_4bit" toml:"load_in_4bit"`
	GPULayers       int    `json:"gpu_layers" yaml:"gpu_layers" toml:"gpu_layers"`
	Threads         int    `json:"threads" yaml:"threads" toml:"threads"`
	PromptCachePath string `json:"prompt_cache_path" yaml:"prompt_cache_path" toml:"prompt_cache_path"`
	ServerURL       string `json:"server_url" yaml:"server_url" toml:"server_url"`
	APIKey          string `json:"api_key" yaml:"api_key" toml:"api_key"`
	ConnectTimeoutS int    `json:"connect_timeout_seconds" yaml:"connect_timeout_seconds" toml:"connect_timeout_seconds"`
	RequestTimeoutS int    `json:"request_timeout_seconds" yaml:"request_timeout_seconds" toml:"request_timeout_seconds"`

	// Prompt and generation
	Template          string   `json:"template" yaml:"template" toml:"template"`
	Instructions      string   `json:"instructions" yaml:"instructions" toml:"instructions"`
	MinTokens         int      `json:"min_new_tokens" yaml:"min_new_tokens" toml:"min_new_tokens"`
	MaxTokens         int      `json:"max_new_tokens" yaml:"max_new_tokens" toml:"max_new_tokens"`
	Temperature       *float64 `json:"temperature" yaml:"temperature" toml:"temperature"`
	RepetitionPenalty float64  `json:"repetition_penalty" yaml:"repetition_penalty" toml:"repetition_penalty"`
	TopP              float64  `json:"top_p" yaml:"top_p" toml:"top_p"`
	UseCache          *bool    `json:"use_cache" yaml:"use_cache" toml:"use_cache"`
	Stop              []string `json:"stop" yaml:"stop" toml:"stop"`
	StreamBuffer      int      `json:"stream_buffer" yaml:"stream_buffer" toml:"stream_buffer"`

	// HTTP
	Title        string   `json:"title" yaml:"title" toml:"title"`
	MaxBodyBytes int64    `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`
	CORSEnabled  bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	CORSOrigins  []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}
