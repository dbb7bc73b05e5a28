// Package provider implements text generation backends: a local Ollama
// server and any OpenAI-compatible chat completions API. Both satisfy
// agent.Generator so the reasoning loop and the chat path stay
// backend-agnostic.
package provider

import (
	"errors"
	"net/http"
	"time"
)

// Sentinel errors for classifying generation failures.
var (
	// ErrProviderDown marks connection failures and 5xx responses.
	ErrProviderDown = errors.New("provider: backend unavailable")
	// ErrAuthentication marks 401/403 responses.
	ErrAuthentication = errors.New("provider: authentication failed")
	// ErrRateLimit marks 429 responses.
	ErrRateLimit = errors.New("provider: rate limited")
)

// maxAttempts bounds transient-failure retries per Generate call.
const maxAttempts = 2

// defaultTimeout applies when the caller's context carries no deadline.
const defaultTimeout = 120 * time.Second

// maxErrorBodySize caps how much of an error response body is read.
const maxErrorBodySize = 4096

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: defaultTimeout}
}

// retryable reports whether a failed attempt is worth one more try.
// Authentication and client errors never are.
func retryable(err error) bool {
	return errors.Is(err, ErrProviderDown) || errors.Is(err, ErrRateLimit)
}
