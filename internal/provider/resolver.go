package provider

import (
	"sync"

	"github.com/vboarder/vboarder/internal/agent"
)

// Mode selects which backend family the resolver builds.
type Mode string

const (
	// ModeLocal uses an Ollama server.
	ModeLocal Mode = "local"
	// ModeOpenAI uses an OpenAI-compatible chat completions API.
	ModeOpenAI Mode = "openai"
)

// Resolver hands out one Generator per model name, cached for reuse.
// Safe for concurrent use.
type Resolver struct {
	mode      Mode
	localURL  string
	openaiURL string
	apiKey    string

	mu    sync.Mutex
	cache map[string]agent.Generator
}

// NewResolver creates a resolver. Unknown modes fall back to ModeLocal.
func NewResolver(mode Mode, localURL, openaiURL, apiKey string) *Resolver {
	if mode != ModeOpenAI {
		mode = ModeLocal
	}
	return &Resolver{
		mode:      mode,
		localURL:  localURL,
		openaiURL: openaiURL,
		apiKey:    apiKey,
		cache:     make(map[string]agent.Generator),
	}
}

// For returns the Generator serving the given model name.
func (r *Resolver) For(model string) agent.Generator {
	r.mu.Lock()
	defer r.mu.Unlock()

	if g, ok := r.cache[model]; ok {
		return g
	}

	var g agent.Generator
	switch r.mode {
	case ModeOpenAI:
		g = NewOpenAICompatible(r.openaiURL, model, r.apiKey)
	default:
		g = NewOllama(r.localURL, model)
	}
	r.cache[model] = g
	return g
}
