package llm

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// GroqBaseURL is Groq's OpenAI-compatible endpoint.
const GroqBaseURL = "https://api.groq.com/openai/v1"

// ErrMissingAPIKey is returned when a provider is selected without credentials.
var ErrMissingAPIKey = errors.New("llm api key not set")

// ProviderConfig selects and authenticates a chat or embedding backend.
type ProviderConfig struct {
	// Provider is "groq" or "openai".
	Provider       string
	Model          string
	APIKey         string
	BaseURL        string
	EmbeddingModel string
}

func (c ProviderConfig) openaiOptions() ([]openai.Option, error) {
	if c.APIKey == "" {
		return nil, fmt.Errorf("%w for provider %q", ErrMissingAPIKey, c.Provider)
	}
	opts := []openai.Option{openai.WithToken(c.APIKey)}

	baseURL := c.BaseURL
	switch strings.ToLower(c.Provider) {
	case "", "groq":
		if baseURL == "" {
			baseURL = GroqBaseURL
		}
	case "openai":
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", c.Provider)
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	if c.Model != "" {
		opts = append(opts, openai.WithModel(c.Model))
	}
	if c.EmbeddingModel != "" {
		opts = append(opts, openai.WithEmbeddingModel(c.EmbeddingModel))
	}
	return opts, nil
}

// NewChatModel builds the langchaingo client for the configured provider.
// Groq is reached through its OpenAI-compatible API.
func NewChatModel(c ProviderConfig) (*openai.LLM, error) {
	opts, err := c.openaiOptions()
	if err != nil {
		return nil, err
	}
	model, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create %s client: %w", c.Provider, err)
	}
	return model, nil
}

// NewEmbedder builds an embeddings.Embedder backed by the provider's embedding endpoint.
func NewEmbedder(c ProviderConfig) (embeddings.Embedder, error) {
	client, err := NewChatModel(c)
	if err != nil {
		return nil, err
	}
	embedder, err := embeddings.NewEmbedder(client)
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}
	return embedder, nil
}
