package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// OpenAICompatible generates text against any chat completions API that
// speaks the OpenAI wire format (OpenAI itself, vLLM, LM Studio, and so
// on).
type OpenAICompatible struct {
	baseURL string
	model   string
	apiKey  string
	client  *http.Client
}

// NewOpenAICompatible creates a generator for the given endpoint. apiKey
// may be empty for servers that do not authenticate.
func NewOpenAICompatible(baseURL, model, apiKey string) *OpenAICompatible {
	return &OpenAICompatible{
		baseURL: baseURL,
		model:   model,
		apiKey:  apiKey,
		client:  newHTTPClient(),
	}
}

type oaiRequest struct {
	Model    string       `json:"model"`
	Messages []oaiMessage `json:"messages"`
	Stream   bool         `json:"stream"`
}

type oaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type oaiResponse struct {
	Choices []struct {
		Message oaiMessage `json:"message"`
	} `json:"choices"`
}

// Generate implements agent.Generator.
func (p *OpenAICompatible) Generate(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		text, err := p.generate(ctx, prompt)
		if err == nil {
			return text, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		lastErr = err
		if !retryable(err) {
			break
		}
	}
	return "", lastErr
}

func (p *OpenAICompatible) generate(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(oaiRequest{
		Model:    p.model,
		Messages: []oaiMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("provider: marshal request: %w", err)
	}

	endpoint := p.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("provider: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: %w", ErrProviderDown, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", classifyStatus(resp)
	}

	var out oaiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("provider: decode response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("provider: empty choices in response")
	}
	return out.Choices[0].Message.Content, nil
}
