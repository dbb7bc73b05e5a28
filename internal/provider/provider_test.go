package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestOllama_Generate(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("path = %q, want /api/generate", r.URL.Path)
		}
		var req ollamaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "mistral:latest" || req.Stream {
			t.Errorf("request = %+v", req)
		}
		_ = json.NewEncoder(w).Encode(ollamaResponse{Response: "generated text"})
	}))
	defer srv.Close()

	g := NewOllama(srv.URL, "mistral:latest")
	got, err := g.Generate(context.Background(), "say hi")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "generated text" {
		t.Errorf("response = %q", got)
	}
}

func TestOllama_RetriesTransientFailure(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(ollamaResponse{Response: "second try"})
	}))
	defer srv.Close()

	g := NewOllama(srv.URL, "m")
	got, err := g.Generate(context.Background(), "p")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "second try" || calls.Load() != 2 {
		t.Errorf("got %q after %d calls", got, calls.Load())
	}
}

func TestOllama_ExhaustsRetries(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	g := NewOllama(srv.URL, "m")
	_, err := g.Generate(context.Background(), "p")
	if !errors.Is(err, ErrProviderDown) {
		t.Errorf("error = %v, want ErrProviderDown", err)
	}
	if calls.Load() != maxAttempts {
		t.Errorf("calls = %d, want %d", calls.Load(), maxAttempts)
	}
}

func TestOllama_CancellationNotRetried(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := NewOllama(srv.URL, "m")
	_, err := g.Generate(ctx, "p")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if calls.Load() > 1 {
		t.Errorf("cancelled request retried %d times", calls.Load())
	}
}

func TestOpenAICompatible_Generate(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("auth header = %q", got)
		}
		var req oaiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.Messages) != 1 || req.Messages[0].Role != "user" {
			t.Errorf("messages = %+v", req.Messages)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"hello back"}}]}`))
	}))
	defer srv.Close()

	g := NewOpenAICompatible(srv.URL, "gpt-4o-mini", "sk-test")
	got, err := g.Generate(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "hello back" {
		t.Errorf("response = %q", got)
	}
}

func TestOpenAICompatible_AuthFailureNotRetried(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	g := NewOpenAICompatible(srv.URL, "m", "bad")
	_, err := g.Generate(context.Background(), "p")
	if !errors.Is(err, ErrAuthentication) {
		t.Errorf("error = %v, want ErrAuthentication", err)
	}
	if calls.Load() != 1 {
		t.Errorf("auth failure retried: %d calls", calls.Load())
	}
}

func TestResolver_CachesPerModel(t *testing.T) {
	t.Parallel()

	r := NewResolver(ModeLocal, "http://localhost:11434", "", "")

	a := r.For("mistral:latest")
	b := r.For("mistral:latest")
	if a != b {
		t.Error("resolver did not cache generator")
	}
	if c := r.For("lfm2e:latest"); c == a {
		t.Error("distinct models share a generator")
	}
}

func TestResolver_ModeSelection(t *testing.T) {
	t.Parallel()

	r := NewResolver(ModeOpenAI, "", "https://api.example.com/v1", "sk")
	if _, ok := r.For("m").(*OpenAICompatible); !ok {
		t.Error("openai mode did not build OpenAICompatible")
	}

	// Unknown mode falls back to local.
	r = NewResolver(Mode("weird"), "http://localhost:11434", "", "")
	if _, ok := r.For("m").(*Ollama); !ok {
		t.Error("unknown mode did not fall back to Ollama")
	}
}
