package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "ideagauge", cfg.Name)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, "https://www.reddit.com", cfg.Discussion.BaseURL)
	assert.Equal(t, 25, cfg.Discussion.PerQueryMax)
	assert.Equal(t, 4, cfg.Pipeline.MaxConcurrent)
	assert.Equal(t, "data", cfg.Store.DataDir)
}

func TestConfig_SaveLoad(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := DefaultConfig()
	cfg.LLM.Provider = "openai"
	cfg.LLM.APIKey = "sk-test"
	cfg.Pipeline.MaxConcurrent = 2
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "openai", loaded.LLM.Provider)
	assert.Equal(t, "sk-test", loaded.LLM.APIKey)
	assert.Equal(t, 2, loaded.Pipeline.MaxConcurrent)
}

func TestConfig_LoadMissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Discussion, cfg.Discussion)
}

func TestConfig_LoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm: [unclosed"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestConfig_EnvOverrides(t *testing.T) {
	t.Run("GEMINI_API_KEY selects gemini", func(t *testing.T) {
		t.Setenv("OPENAI_API_KEY", "")
		t.Setenv("GEMINI_API_KEY", "g-key")

		cfg := DefaultConfig()
		cfg.LLM.Provider = "openai"
		cfg.applyEnvOverrides()

		assert.Equal(t, "g-key", cfg.LLM.APIKey)
		assert.Equal(t, "gemini", cfg.LLM.Provider)
	})

	t.Run("precedence: GEMINI overrides OPENAI", func(t *testing.T) {
		t.Setenv("OPENAI_API_KEY", "oa-key")
		t.Setenv("GEMINI_API_KEY", "g-key")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, "g-key", cfg.LLM.APIKey)
		assert.Equal(t, "gemini", cfg.LLM.Provider)
	})

	t.Run("data dir and discussion url", func(t *testing.T) {
		t.Setenv("IDEAGAUGE_DATA_DIR", "/tmp/validations")
		t.Setenv("IDEAGAUGE_DISCUSSION_URL", "http://localhost:9999")
		t.Setenv("IDEAGAUGE_MODEL", "gemini-2.5-pro")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, "/tmp/validations", cfg.Store.DataDir)
		assert.Equal(t, "http://localhost:9999", cfg.Discussion.BaseURL)
		assert.Equal(t, "gemini-2.5-pro", cfg.LLM.Model)
	})
}

func TestConfig_Validate(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	cfg := DefaultConfig()
	assert.Error(t, cfg.Validate(), "missing API key must fail validation")

	cfg.LLM.APIKey = "k"
	assert.NoError(t, cfg.Validate())

	cfg.LLM.Provider = "mystery"
	assert.Error(t, cfg.Validate())

	cfg.LLM.Provider = "gemini"
	cfg.Pipeline.MaxConcurrent = -1
	assert.Error(t, cfg.Validate())
}

func TestConfig_DurationHelpers(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 120*time.Second, cfg.GetLLMTimeout())
	assert.Equal(t, 30*time.Second, cfg.GetDiscussionTimeout())
	assert.Equal(t, 1100*time.Millisecond, cfg.GetRequestDelay())

	cfg.LLM.Timeout = "bogus"
	cfg.Discussion.Timeout = ""
	cfg.Discussion.RequestDelay = "nope"
	assert.Equal(t, 120*time.Second, cfg.GetLLMTimeout())
	assert.Equal(t, 30*time.Second, cfg.GetDiscussionTimeout())
	assert.Equal(t, 1100*time.Millisecond, cfg.GetRequestDelay())
}
