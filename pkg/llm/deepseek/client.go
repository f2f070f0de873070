// Package deepseek provides a DeepSeek LLM client.
//
// DeepSeek exposes an OpenAI-compatible API, so the client delegates to the
// OpenAI implementation with the DeepSeek base URL.
package deepseek

import (
	"context"

	"github.com/persomem/persomem-go/pkg/llm"
	openaiLLM "github.com/persomem/persomem-go/pkg/llm/openai"
)

// Client is a DeepSeek LLM client implementing llm.Provider.
type Client struct {
	inner *openaiLLM.Client
}

// Config is the configuration for DeepSeek LLM.
// APIKey: DeepSeek API key (required)
// Model: Model name to use, defaults to "deepseek-chat"
// BaseURL: API base URL, defaults to "https://api.deepseek.com"
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
}

// NewClient creates a new DeepSeek LLM client.
func NewClient(cfg *Config) (*Client, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.deepseek.com"
	}
	model := cfg.Model
	if model == "" {
		model = "deepseek-chat"
	}

	inner, err := openaiLLM.NewClient(&openaiLLM.Config{
		APIKey:  cfg.APIKey,
		Model:   model,
		BaseURL: baseURL,
	})
	if err != nil {
		return nil, err
	}

	return &Client{inner: inner}, nil
}

// Generate generates text based on the prompt.
func (c *Client) Generate(ctx context.Context, prompt string, opts ...llm.GenerateOption) (string, error) {
	return c.inner.Generate(ctx, prompt, opts...)
}

// GenerateWithMessages generates text using message history.
func (c *Client) GenerateWithMessages(ctx context.Context, messages []llm.Message, opts ...llm.GenerateOption) (string, error) {
	return c.inner.GenerateWithMessages(ctx, messages, opts...)
}

// GenerateStructured performs a structured generation call.
func (c *Client) GenerateStructured(ctx context.Context, req *llm.StructuredRequest) (*llm.StructuredResult, error) {
	return c.inner.GenerateStructured(ctx, req)
}

// Close closes the client connection.
func (c *Client) Close() error {
	return c.inner.Close()
}
