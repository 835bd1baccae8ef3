// Package openai wraps the OpenAI chat completion API behind the narrow
// surface the offer extractor needs.
package openai

import (
	"context"
	"fmt"

	"cotador/internal/config"

	"github.com/sashabaranov/go-openai"
)

// Client wraps the OpenAI API client with the configured chat model
type Client struct {
	api   *openai.Client
	model string
}

// NewClient creates a new OpenAI client from configuration
func NewClient(cfg *config.Config) (*Client, error) {
	if cfg.OpenAIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not configured")
	}

	model := cfg.OpenAIModel
	if model == "" {
		model = string(openai.GPT4oMini)
	}

	return &Client{
		api:   openai.NewClient(cfg.OpenAIKey),
		model: model,
	}, nil
}

// CreateChatCompletion generates a chat completion with the configured model
func (c *Client) CreateChatCompletion(ctx context.Context, messages []openai.ChatCompletionMessage, maxTokens int, temperature float32) (*openai.ChatCompletionResponse, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}

	return &resp, nil
}

// Model returns the chat model in use
func (c *Client) Model() string {
	return c.model
}
