package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// GeminiClient implements Client over the Google Gemini API.
type GeminiClient struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

// GeminiConfig holds configuration for the Gemini client.
type GeminiConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
	Logger  *zap.Logger
}

// DefaultGeminiConfig returns sensible defaults.
func DefaultGeminiConfig(apiKey string) GeminiConfig {
	return GeminiConfig{
		APIKey:  apiKey,
		Model:   "gemini-2.0-flash",
		Timeout: 90 * time.Second,
	}
}

// NewGeminiClient creates a Gemini-backed provider client.
func NewGeminiClient(ctx context.Context, config GeminiConfig) (*GeminiClient, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}
	model := strings.TrimSpace(config.Model)
	if model == "" {
		model = DefaultGeminiConfig("").Model
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = DefaultGeminiConfig("").Timeout
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: config.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiClient{
		client:  client,
		model:   model,
		timeout: timeout,
		logger:  logger,
	}, nil
}

// Generate sends a prompt and returns the completion text. Rate-limit and
// capacity failures are classed as *OverloadError so callers can retry
// them with backoff.
func (c *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	result, err := c.client.Models.GenerateContent(callCtx,
		c.model,
		genai.Text(prompt),
		&genai.GenerateContentConfig{
			Temperature: genai.Ptr[float32](0.2),
		},
	)
	if err != nil {
		if classifyGeminiOverload(err) {
			return "", &OverloadError{Provider: "gemini", Err: err}
		}
		return "", fmt.Errorf("Gemini generate failed: %w", err)
	}
	text := strings.TrimSpace(result.Text())
	if text == "" {
		return "", fmt.Errorf("Gemini returned no completion")
	}
	c.logger.Debug("Gemini completion",
		zap.String("model", c.model),
		zap.Int("promptChars", len(prompt)),
		zap.Int("responseChars", len(text)),
		zap.Duration("elapsed", time.Since(start)))
	return text, nil
}

func classifyGeminiOverload(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusTooManyRequests || apiErr.Code == http.StatusServiceUnavailable {
			return true
		}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		if apiErrPtr.Code == http.StatusTooManyRequests || apiErrPtr.Code == http.StatusServiceUnavailable {
			return true
		}
	}
	return looksOverloaded(err.Error())
}
