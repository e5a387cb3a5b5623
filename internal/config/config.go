// Package config loads ideagauge configuration from a YAML file with
// environment-variable overrides layered on top.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all ideagauge configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// LLM configuration
	LLM LLMConfig `yaml:"llm"`

	// Discussion search configuration
	Discussion DiscussionConfig `yaml:"discussion"`

	// Record store configuration
	Store StoreConfig `yaml:"store"`

	// Pipeline execution settings
	Pipeline PipelineConfig `yaml:"pipeline"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// LLMConfig configures the research model provider.
type LLMConfig struct {
	Provider string `yaml:"provider"` // gemini, openai
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"` // openai-compatible endpoints only
	Timeout  string `yaml:"timeout"`
}

// DiscussionConfig configures the community discussion source.
type DiscussionConfig struct {
	BaseURL      string `yaml:"base_url"`
	UserAgent    string `yaml:"user_agent"`
	Timeout      string `yaml:"timeout"`
	RequestDelay string `yaml:"request_delay"`
	PerQueryMax  int    `yaml:"per_query_max"`
}

// StoreConfig configures the durable record store.
type StoreConfig struct {
	DataDir string `yaml:"data_dir"`
}

// PipelineConfig configures run execution.
type PipelineConfig struct {
	// MaxConcurrent bounds how many validations run at once.
	MaxConcurrent int `yaml:"max_concurrent"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
	File   string `yaml:"file"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "ideagauge",
		Version: "0.1.0",

		LLM: LLMConfig{
			Provider: "gemini",
			Model:    "gemini-2.5-flash",
			Timeout:  "120s",
		},

		Discussion: DiscussionConfig{
			BaseURL:      "https://www.reddit.com",
			UserAgent:    "ideagauge/0.1 (market research)",
			Timeout:      "30s",
			RequestDelay: "1100ms",
			PerQueryMax:  25,
		},

		Store: StoreConfig{
			DataDir: "data",
		},

		Pipeline: PipelineConfig{
			MaxConcurrent: 4,
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			File:   "ideagauge.log",
		},
	}
}

// Load loads configuration from a YAML file. A missing file is not an
// error; defaults plus environment overrides apply.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	// API key from environment (later entries win)
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		c.LLM.Provider = "openai"
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		c.LLM.Provider = "gemini"
	}

	if model := os.Getenv("IDEAGAUGE_MODEL"); model != "" {
		c.LLM.Model = model
	}
	if url := os.Getenv("IDEAGAUGE_DISCUSSION_URL"); url != "" {
		c.Discussion.BaseURL = url
	}
	if dir := os.Getenv("IDEAGAUGE_DATA_DIR"); dir != "" {
		c.Store.DataDir = dir
	}
}

// GetLLMTimeout returns the LLM timeout as a duration.
func (c *Config) GetLLMTimeout() time.Duration {
	d, err := time.ParseDuration(c.LLM.Timeout)
	if err != nil {
		return 120 * time.Second
	}
	return d
}

// GetDiscussionTimeout returns the search request timeout as a duration.
func (c *Config) GetDiscussionTimeout() time.Duration {
	d, err := time.ParseDuration(c.Discussion.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// GetRequestDelay returns the delay between discussion probes.
func (c *Config) GetRequestDelay() time.Duration {
	d, err := time.ParseDuration(c.Discussion.RequestDelay)
	if err != nil {
		return 1100 * time.Millisecond
	}
	return d
}

// ValidProviders lists all supported LLM providers.
var ValidProviders = []string{"gemini", "openai"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return fmt.Errorf("LLM API key not configured (set GEMINI_API_KEY or OPENAI_API_KEY)")
	}

	validProvider := false
	for _, p := range ValidProviders {
		if c.LLM.Provider == p {
			validProvider = true
			break
		}
	}
	if !validProvider {
		return fmt.Errorf("invalid LLM provider: %s (valid: %v)", c.LLM.Provider, ValidProviders)
	}

	if c.Pipeline.MaxConcurrent < 0 {
		return fmt.Errorf("pipeline max_concurrent must not be negative")
	}

	return nil
}
