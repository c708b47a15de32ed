// Package openaicompat implements folio.Provider and folio.EmbeddingProvider
// for any OpenAI-compatible HTTP API.
//
// Works with OpenAI, Azure OpenAI, OpenRouter, Groq, Together, Mistral,
// Ollama, vLLM, LM Studio, and any other host implementing the chat
// completions and embeddings endpoints.
package openaicompat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	folio "github.com/rindra/folio"
)

// Provider implements folio.Provider over the chat completions endpoint.
type Provider struct {
	apiKey  string
	model   string
	baseURL string
	cfg     settings
}

// NewProvider creates an OpenAI-compatible chat provider.
//
// baseURL is the API base (e.g. "https://api.openai.com/v1",
// "http://localhost:11434/v1"). The /chat/completions path is appended
// automatically.
func NewProvider(apiKey, model, baseURL string, opts ...ProviderOption) *Provider {
	p := &Provider{
		apiKey:  apiKey,
		model:   model,
		baseURL: baseURL,
		cfg:     settings{name: "openai", client: &http.Client{}},
	}
	for _, o := range opts {
		o(&p.cfg)
	}
	return p
}

var _ folio.Provider = (*Provider)(nil)

// Name returns the provider name (default "openai", configurable via WithName).
func (p *Provider) Name() string { return p.cfg.name }

// Chat sends a chat request and returns the complete response.
func (p *Provider) Chat(ctx context.Context, req folio.ChatRequest) (folio.ChatResponse, error) {
	body := chatBody{
		Model:       p.model,
		Temperature: p.cfg.temperature,
		TopP:        p.cfg.topP,
		MaxTokens:   p.cfg.maxTokens,
	}
	for _, m := range req.Messages {
		body.Messages = append(body.Messages, wireMessage{Role: m.Role, Content: m.Content})
	}

	resp, err := postJSON(ctx, p.cfg.client, p.baseURL+"/chat/completions", p.apiKey, body)
	if err != nil {
		return folio.ChatResponse{}, fmt.Errorf("%s: chat: %w", p.cfg.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return folio.ChatResponse{}, httpErr(resp)
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return folio.ChatResponse{}, fmt.Errorf("%s: decode response: %w", p.cfg.name, err)
	}
	if len(cr.Choices) == 0 {
		return folio.ChatResponse{}, fmt.Errorf("%s: empty choices", p.cfg.name)
	}

	return folio.ChatResponse{
		Content: cr.Choices[0].Message.Content,
		Usage: folio.Usage{
			InputTokens:  cr.Usage.PromptTokens,
			OutputTokens: cr.Usage.CompletionTokens,
		},
	}, nil
}

// Embedding implements folio.EmbeddingProvider over the embeddings endpoint.
type Embedding struct {
	apiKey  string
	model   string
	baseURL string
	cfg     settings
}

// NewEmbedding creates an OpenAI-compatible embedding provider.
// The /embeddings path is appended to baseURL automatically.
func NewEmbedding(apiKey, model, baseURL string, opts ...ProviderOption) *Embedding {
	e := &Embedding{
		apiKey:  apiKey,
		model:   model,
		baseURL: baseURL,
		cfg:     settings{name: "openai", client: &http.Client{}, dimensions: 1536},
	}
	for _, o := range opts {
		o(&e.cfg)
	}
	return e
}

var _ folio.EmbeddingProvider = (*Embedding)(nil)

func (e *Embedding) Name() string    { return e.cfg.name }
func (e *Embedding) Dimensions() int { return e.cfg.dimensions }

// Embed returns one embedding per input text, in input order.
func (e *Embedding) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := postJSON(ctx, e.cfg.client, e.baseURL+"/embeddings", e.apiKey, embeddingBody{
		Model: e.model,
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: embed: %w", e.cfg.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, httpErr(resp)
	}

	var er embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", e.cfg.name, err)
	}
	if len(er.Data) != len(texts) {
		return nil, fmt.Errorf("%s: got %d embeddings for %d inputs", e.cfg.name, len(er.Data), len(texts))
	}

	// The API may return data out of order; Index is authoritative.
	out := make([][]float32, len(texts))
	for _, d := range er.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("%s: embedding index %d out of range", e.cfg.name, d.Index)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}

// postJSON marshals body and POSTs it with bearer auth.
func postJSON(ctx context.Context, client *http.Client, url, apiKey string, body any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
	return client.Do(req)
}

// httpErr reads the response body and returns an ErrHTTP for the retry
// middleware. Parses the Retry-After header when present (429/503 responses).
func httpErr(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	return &folio.ErrHTTP{
		Status:     resp.StatusCode,
		Body:       string(body),
		RetryAfter: folio.ParseRetryAfter(resp.Header.Get("Retry-After")),
	}
}
