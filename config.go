package goinforme

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/brunobiangulo/goinforme/llm"
	"github.com/brunobiangulo/goinforme/sections"
)

// Config holds all configuration for the extraction engine.
type Config struct {
	// DataDir is the root for per-document stores. Defaults to the
	// working directory.
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// Store selects the backend: "file" (default), "sqlite" or "memory".
	Store string `json:"store" yaml:"store"`

	// TextDir and ResultDir are the file backend subdirectories holding
	// <name>.txt section text and <name>.json results.
	TextDir   string `json:"text_dir" yaml:"text_dir"`
	ResultDir string `json:"result_dir" yaml:"result_dir"`

	// DBPath is the SQLite file. If empty, <DataDir>/goinforme.db.
	DBPath string `json:"db_path" yaml:"db_path"`

	Chat LLMConfig `json:"chat" yaml:"chat"`

	// Sections replaces the built-in section rules when non-empty.
	Sections []sections.Rule `json:"sections,omitempty" yaml:"sections,omitempty"`

	// HTTP limits used by the server.
	MaxUploadBytes        int64 `json:"max_upload_bytes" yaml:"max_upload_bytes"`
	RequestTimeoutSeconds int   `json:"request_timeout_seconds" yaml:"request_timeout_seconds"`
}

// LLMConfig configures the model endpoint.
type LLMConfig struct {
	Provider    string  `json:"provider" yaml:"provider"` // deepseek, openai, groq, openrouter, ollama, custom
	Model       string  `json:"model" yaml:"model"`
	BaseURL     string  `json:"base_url" yaml:"base_url"`
	APIKey      string  `json:"api_key" yaml:"api_key"`
	MaxTokens   int     `json:"max_tokens" yaml:"max_tokens"`
	Temperature float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`

	// ResponseFormat "json_object" asks the endpoint for JSON mode. Empty
	// sends a plain chat request.
	ResponseFormat string `json:"response_format,omitempty" yaml:"response_format,omitempty"`

	TimeoutSeconds    int `json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty"`
	RequestsPerMinute int `json:"requests_per_minute,omitempty" yaml:"requests_per_minute,omitempty"`
}

// DefaultConfig returns the layout of the original service: txts/ and
// jsons/ under the working directory, DeepSeek chat with 500 tokens.
func DefaultConfig() Config {
	return Config{
		DataDir:   ".",
		Store:     "file",
		TextDir:   "txts",
		ResultDir: "jsons",
		Chat: LLMConfig{
			Provider:  "deepseek",
			Model:     "deepseek-chat",
			BaseURL:   "https://api.deepseek.com",
			MaxTokens: 500,
		},
		MaxUploadBytes:        32 << 20,
		RequestTimeoutSeconds: 120,
	}
}

// LoadConfig reads path over DefaultConfig. Files ending in .yaml or .yml
// are YAML, anything else JSON.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		err = json.Unmarshal(data, &cfg)
	}
	if err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from environment variables. lookup is
// usually os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("GOINFORME_DATA_DIR", &c.DataDir)
	str("GOINFORME_STORE", &c.Store)
	str("GOINFORME_DB_PATH", &c.DBPath)
	str("GOINFORME_LLM_PROVIDER", &c.Chat.Provider)
	str("GOINFORME_LLM_MODEL", &c.Chat.Model)
	str("GOINFORME_LLM_BASE_URL", &c.Chat.BaseURL)
	str("GOINFORME_LLM_RESPONSE_FORMAT", &c.Chat.ResponseFormat)
	// The key is taken as-is; a missing key surfaces on the first model call.
	str("DEEPSEEK_API_KEY", &c.Chat.APIKey)
	str("GOINFORME_LLM_API_KEY", &c.Chat.APIKey)

	if v, ok := lookup("GOINFORME_LLM_MAX_TOKENS"); ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Chat.MaxTokens = n
		}
	}
	if v, ok := lookup("GOINFORME_LLM_RPM"); ok {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Chat.RequestsPerMinute = n
		}
	}
}

// Validate reports configuration that cannot work.
func (c *Config) Validate() error {
	switch c.Store {
	case "", "file", "sqlite", "memory":
	default:
		return fmt.Errorf("%w: unknown store %q", ErrInvalidConfig, c.Store)
	}
	switch c.Chat.ResponseFormat {
	case "", "json_object":
	default:
		return fmt.Errorf("%w: unknown response_format %q", ErrInvalidConfig, c.Chat.ResponseFormat)
	}
	if c.Chat.MaxTokens < 0 {
		return fmt.Errorf("%w: negative max_tokens", ErrInvalidConfig)
	}
	if c.MaxUploadBytes < 0 {
		return fmt.Errorf("%w: negative max_upload_bytes", ErrInvalidConfig)
	}
	return nil
}

// resolveDBPath computes the final database path from config fields.
func (c *Config) resolveDBPath() string {
	if c.DBPath != "" {
		return c.DBPath
	}
	return filepath.Join(c.dataDir(), "goinforme.db")
}

func (c *Config) dataDir() string {
	if c.DataDir == "" {
		return "."
	}
	return c.DataDir
}

func (c *Config) llmConfig() llm.Config {
	return llm.Config{
		Provider:          c.Chat.Provider,
		Model:             c.Chat.Model,
		BaseURL:           c.Chat.BaseURL,
		APIKey:            c.Chat.APIKey,
		TimeoutSeconds:    c.Chat.TimeoutSeconds,
		RequestsPerMinute: c.Chat.RequestsPerMinute,
	}
}
