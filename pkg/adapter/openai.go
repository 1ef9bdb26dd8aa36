package adapter

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIAdapter implements the Adapter interface for OpenAI models.
type OpenAIAdapter struct {
	client openai.Client
}

// NewOpenAIAdapter creates a new OpenAI adapter.
func NewOpenAIAdapter(apiKey string) (*OpenAIAdapter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}

	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIAdapter{client: client}, nil
}

// Name returns the adapter identifier.
func (a *OpenAIAdapter) Name() string {
	return "openai"
}

// Models returns the list of supported OpenAI models.
func (a *OpenAIAdapter) Models() []string {
	return []string{
		"gpt-4o-mini",
		"gpt-4o",
		"o3-mini",
	}
}

// Describe returns catalog descriptions for the OpenAI models.
func (a *OpenAIAdapter) Describe() []ModelInfo {
	return []ModelInfo{
		{ID: "gpt-4o-mini", Description: "fast and inexpensive answers to short everyday questions"},
		{ID: "gpt-4o", Description: "general purpose assistant for writing, analysis and images"},
		{ID: "o3-mini", Description: "step by step reasoning for math and logic problems"},
	}
}

// Generate sends a prompt to OpenAI and returns the completion.
func (a *OpenAIAdapter) Generate(ctx context.Context, model string, prompt string) (*Response, error) {
	resp, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		MaxCompletionTokens: openai.Int(1024),
	})
	if err != nil {
		return nil, &AdapterError{Provider: a.Name(), Err: err}
	}

	if len(resp.Choices) == 0 {
		return nil, &AdapterError{Provider: a.Name(), Err: fmt.Errorf("no choices returned")}
	}

	return &Response{
		Content: resp.Choices[0].Message.Content,
		Adapter: a.Name(),
		Model:   model,
		Usage: &Usage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}, nil
}
