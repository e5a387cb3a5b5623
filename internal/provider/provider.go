// Package provider abstracts the generative-text service used by the
// research steps. Implementations return raw model text; structured
// recovery happens downstream in internal/extract.
package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Client is the interface every generative-text provider implements.
type Client interface {
	// Generate sends a prompt and returns the raw completion text.
	Generate(ctx context.Context, prompt string) (string, error)
}

// OverloadError marks transient upstream capacity failures (rate limits,
// overloaded model). It is the only error class callers retry.
type OverloadError struct {
	Provider string
	Err      error
}

func (e *OverloadError) Error() string {
	return fmt.Sprintf("%s overloaded: %v", e.Provider, e.Err)
}

func (e *OverloadError) Unwrap() error { return e.Err }

// IsOverload reports whether err is (or wraps) an OverloadError.
func IsOverload(err error) bool {
	var oe *OverloadError
	return errors.As(err, &oe)
}

// overloadMessageFragments catch providers that signal capacity problems
// in the message body rather than a status code.
var overloadMessageFragments = []string{
	"overloaded",
	"rate limit",
	"resource_exhausted",
	"too many requests",
	"quota",
}

func looksOverloaded(msg string) bool {
	lower := strings.ToLower(msg)
	for _, frag := range overloadMessageFragments {
		if strings.Contains(lower, frag) {
			return true
		}
	}
	return false
}

const (
	maxAttempts = 3
	backoffBase = time.Second
)

// GenerateWithRetry calls the client, retrying only the overload error
// class with exponential backoff (1s, 2s). Every other error propagates
// immediately. After the attempt budget the last overload error is
// returned as-is for the caller to surface.
func GenerateWithRetry(ctx context.Context, client Client, prompt string) (string, error) {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			delay := backoffBase * time.Duration(1<<uint(attempt-1))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
		text, err := client.Generate(ctx, prompt)
		if err == nil {
			return text, nil
		}
		if !IsOverload(err) {
			return "", err
		}
		lastErr = err
	}
	return "", fmt.Errorf("provider still overloaded after %d attempts: %w", maxAttempts, lastErr)
}
