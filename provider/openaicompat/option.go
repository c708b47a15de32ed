package openaicompat

import "net/http"

// ProviderOption configures a Provider or Embedding.
type ProviderOption func(*settings)

type settings struct {
	name        string
	client      *http.Client
	temperature *float64
	topP        *float64
	maxTokens   *int
	dimensions  int
}

// WithName sets the name reported by Name() (default "openai").
// Useful when pointing at Groq, Ollama, Azure, or another compatible host.
func WithName(name string) ProviderOption {
	return func(s *settings) { s.name = name }
}

// WithHTTPClient sets a custom HTTP client (timeouts, proxies, transports).
func WithHTTPClient(c *http.Client) ProviderOption {
	return func(s *settings) { s.client = c }
}

// WithTemperature sets the sampling temperature applied to every request.
func WithTemperature(t float64) ProviderOption {
	return func(s *settings) { s.temperature = &t }
}

// WithTopP sets nucleus sampling applied to every request.
func WithTopP(p float64) ProviderOption {
	return func(s *settings) { s.topP = &p }
}

// WithMaxTokens caps completion length on every request.
func WithMaxTokens(n int) ProviderOption {
	return func(s *settings) { s.maxTokens = &n }
}

// WithDimensions declares the embedding dimensionality reported by
// Dimensions(). It does not change what the API returns; it lets stores size
// vector columns before the first call.
func WithDimensions(d int) ProviderOption {
	return func(s *settings) { s.dimensions = d }
}
