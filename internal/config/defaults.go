package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Defaults applied when the corresponding Config fields are unset. Sampling
// values are the ones the chatbot was tuned with.
const (
	DefaultAddr              = ":8080"
	DefaultRuntime           = "server"
	DefaultModel             = "model"
	DefaultModelsDir         = "~/models/llm"
	DefaultServerURL         = "http://127.0.0.1:8081"
	DefaultMaxSeqLen         = 1024
	DefaultTemplate          = "llama3"
	DefaultMinTokens         = 64
	DefaultMaxTokens         = 1024
	DefaultTemperature       = 0.8
	DefaultRepetitionPenalty = 1.25
	DefaultTopP              = 0.9
	DefaultTitle             = "Reddit Chatbot"
	DefaultMaxBodyBytes      = 1 << 20
	DefaultConnectTimeoutS   = 5
)

// Default returns a Config with every field set to its default.
func Default() Config {
	var c Config
	c.ApplyDefaults()
	return c
}

// ApplyDefaults fills unspecified fields in place.
func (c *Config) ApplyDefaults() {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "console"
	}
	if c.Runtime == "" {
		c.Runtime = DefaultRuntime
	}
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.ModelsDir == "" {
		c.ModelsDir = DefaultModelsDir
	}
	if c.ServerURL == "" {
		c.ServerURL = DefaultServerURL
	}
	if c.MaxSeqLen <= 0 {
		c.MaxSeqLen = DefaultMaxSeqLen
	}
	if c.Quantized == nil {
		c.Quantized = boolPtr(true)
	}
	if c.ConnectTimeoutS <= 0 {
		c.ConnectTimeoutS = DefaultConnectTimeoutS
	}
	if c.Template == "" {
		c.Template = DefaultTemplate
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.MinTokens <= 0 {
		// An unset minimum never exceeds an explicit lower maximum.
		c.MinTokens = min(DefaultMinTokens, c.MaxTokens)
	}
	if c.Temperature == nil {
		c.Temperature = float64Ptr(DefaultTemperature)
	}
	if c.RepetitionPenalty <= 0 {
		c.RepetitionPenalty = DefaultRepetitionPenalty
	}
	if c.TopP <= 0 {
		c.TopP = DefaultTopP
	}
	if c.UseCache == nil {
		c.UseCache = boolPtr(true)
	}
	if c.Title == "" {
		c.Title = DefaultTitle
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = DefaultMaxBodyBytes
	}
}

// ApplyEnv overrides fields from CHATBOT_* environment variables.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if getenv == nil {
		getenv = os.Getenv
	}
	str := map[string]*string{
		"CHATBOT_ADDR":         &c.Addr,
		"CHATBOT_LOG_LEVEL":    &c.LogLevel,
		"CHATBOT_LOG_FORMAT":   &c.LogFormat,
		"CHATBOT_RUNTIME":      &c.Runtime,
		"CHATBOT_MODEL":        &c.Model,
		"CHATBOT_MODELS_DIR":   &c.ModelsDir,
		"CHATBOT_SERVER_URL":   &c.ServerURL,
		"CHATBOT_API_KEY":      &c.APIKey,
		"CHATBOT_TEMPLATE":     &c.Template,
		"CHATBOT_INSTRUCTIONS": &c.Instructions,
	}
	for k, p := range str {
		if v := getenv(k); v != "" {
			*p = v
		}
	}
	ints := map[string]*int{
		"CHATBOT_MIN_NEW_TOKENS": &c.MinTokens,
		"CHATBOT_MAX_NEW_TOKENS": &c.MaxTokens,
	}
	for k, p := range ints {
		if v := getenv(k); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s: %w", k, err)
			}
			*p = n
		}
	}
	if v := getenv("CHATBOT_TEMPERATURE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("CHATBOT_TEMPERATURE: %w", err)
		}
		c.Temperature = float64Ptr(f)
	}
	if v := getenv("CHATBOT_LOAD_IN_4BIT"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("CHATBOT_LOAD_IN_4BIT: %w", err)
		}
		c.Quantized = boolPtr(b)
	}
	return nil
}

// Validate reports the first inconsistent setting.
func (c Config) Validate() error {
	switch c.Runtime {
	case "llama", "server":
	default:
		return fmt.Errorf("unknown runtime %q (want llama or server)", c.Runtime)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("model is required")
	}
	if c.MinTokens > c.MaxTokens {
		return fmt.Errorf("min_new_tokens (%d) exceeds max_new_tokens (%d)", c.MinTokens, c.MaxTokens)
	}
	if c.Temperature != nil && *c.Temperature < 0 {
		return fmt.Errorf("temperature must not be negative, got %v", *c.Temperature)
	}
	if c.TopP > 1 {
		return fmt.Errorf("top_p must be in (0,1], got %v", c.TopP)
	}
	if c.StreamBuffer < 0 {
		return fmt.Errorf("stream_buffer must not be negative")
	}
	return nil
}

func boolPtr(b bool) *bool { return &b }

func float64Ptr(f float64) *float64 { return &f }

// Float64Value dereferences an optional number, treating nil as zero.
func Float64Value(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

// BoolValue dereferences an optional flag, treating nil as false.
func BoolValue(p *bool) bool { return p != nil && *p }
