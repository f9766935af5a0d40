package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// DefaultGeminiModel is used when a request names no model
const DefaultGeminiModel = "gemini-1.5-flash"

// GeminiClient adapts the Gemini API to Client. System messages become the
// model's system instruction; the remaining messages are sent as one prompt.
type GeminiClient struct {
	client *genai.Client
}

// NewGeminiClient creates a Gemini client for apiKey
func NewGeminiClient(ctx context.Context, apiKey string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key not set")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{client: client}, nil
}

// Close releases the underlying connection
func (c *GeminiClient) Close() error {
	return c.client.Close()
}

// CreateChatCompletion sends the request through GenerateContent
func (c *GeminiClient) CreateChatCompletion(ctx context.Context, request ChatCompletionRequest) (*ChatCompletionResponse, error) {
	name := request.Model
	if name == "" || strings.HasPrefix(name, "gpt-") {
		name = DefaultGeminiModel
	}

	model := c.client.GenerativeModel(name)
	model.SetTemperature(float32(request.Temperature))
	if request.ResponseFormat != nil && request.ResponseFormat.Type == ResponseFormatJSON {
		model.ResponseMIMEType = "application/json"
	}

	system, prompt := splitMessages(request.Messages)
	if system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("error generating content with Gemini: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no response from Gemini model")
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}

	out := &ChatCompletionResponse{
		Choices: []Choice{{Message: Message{Role: RoleAssistant, Content: text.String()}}},
	}
	if resp.UsageMetadata != nil {
		out.Usage = &Usage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}
	return out, nil
}

// splitMessages joins system messages and the rest separately
func splitMessages(messages []Message) (system, prompt string) {
	var sys, rest []string
	for _, m := range messages {
		if m.Role == RoleSystem {
			sys = append(sys, m.Content)
		} else {
			rest = append(rest, m.Content)
		}
	}
	return strings.Join(sys, "\n\n"), strings.Join(rest, "\n\n")
}
