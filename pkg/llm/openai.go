package llm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sashabaranov/go-openai"
)

// OpenRouterBaseURL is the OpenAI-compatible OpenRouter endpoint.
const OpenRouterBaseURL = "https://openrouter.ai/api/v1"

// DefaultOpenRouterModel is used when no model is configured.
const DefaultOpenRouterModel = "anthropic/claude-3.5-sonnet"

// OpenAI generates replies through any OpenAI-compatible chat completion API.
type OpenAI struct {
	client *openai.Client
	logger *slog.Logger
	model  string
}

// NewOpenAI creates an OpenAI-compatible backend. An empty baseURL uses OpenRouter.
func NewOpenAI(apiKey, baseURL, model string, logger *slog.Logger) (*OpenAI, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
	if baseURL == "" {
		baseURL = OpenRouterBaseURL
	}
	if model == "" {
		model = DefaultOpenRouterModel
	}
	if logger == nil {
		logger = slog.Default()
	}
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	logger.Info("initializing OpenAI-compatible client", "base_url", baseURL, "model", model)
	return &OpenAI{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		logger: logger,
	}, nil
}

// Generate sends a system and a user message.
func (o *OpenAI) Generate(ctx context.Context, prompt, system string) (string, error) {
	var messages []openai.ChatCompletionMessage
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt})

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Messages:    messages,
		Temperature: 0.1,
		MaxTokens:   1024,
	})
	if err != nil {
		return "", fmt.Errorf("openai API call failed: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrEmptyReply
	}
	o.logger.Debug("openai reply", "model", o.model, "finish_reason", resp.Choices[0].FinishReason)
	return resp.Choices[0].Message.Content, nil
}
