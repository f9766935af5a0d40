// Package llm provides text-generation clients used by the recommendation
// advisor. Both providers speak the chat-completions request shape.
package llm

import (
	"context"
	"strings"
)

// Message roles
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ResponseFormatJSON asks the provider for a JSON object reply.
const ResponseFormatJSON = "json_object"

// Chat completion types
type ChatCompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

type ResponseFormat struct {
	Type string `json:"type"`
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatCompletionResponse struct {
	Choices []Choice `json:"choices"`
	Usage   *Usage   `json:"usage,omitempty"`
}

type Choice struct {
	Message Message `json:"message"`
}

// Usage reports token counts when the provider returns them.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Content returns the first choice's text, or "" when there is none.
func (r *ChatCompletionResponse) Content() string {
	if r == nil || len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Content
}

// Client is implemented by every text-generation provider
type Client interface {
	CreateChatCompletion(ctx context.Context, request ChatCompletionRequest) (*ChatCompletionResponse, error)
}

// Provider names accepted by New
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Config holds provider settings
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		Provider:    ProviderOpenAI,
		Model:       "gpt-4o",
		BaseURL:     DefaultOpenAIBaseURL,
		Temperature: 0.1,
	}
}

// New builds the client for cfg.Provider.
func New(ctx context.Context, cfg Config) (Client, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", ProviderOpenAI:
		c := NewOpenAIClient(cfg.APIKey)
		if cfg.BaseURL != "" {
			c.WithBaseURL(cfg.BaseURL)
		}
		return c, nil
	case ProviderGemini:
		return NewGeminiClient(ctx, cfg.APIKey)
	default:
		return nil, &UnknownProviderError{Provider: cfg.Provider}
	}
}

// UnknownProviderError is returned by New for unsupported providers.
type UnknownProviderError struct {
	Provider string
}

func (e *UnknownProviderError) Error() string {
	return "unknown llm provider: " + e.Provider
}
