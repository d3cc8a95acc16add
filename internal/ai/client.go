package ai

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/spec-kit/feedback-service/internal/config"
)

const defaultSystemPrompt = "You are a helpful assistant that follows instructions precisely."

// CompletionRequest is one prompt sent to the external model.
type CompletionRequest struct {
	SystemPrompt string
	UserPrompt   string
	Temperature  float32
	MaxTokens    int
}

// Client abstracts the chat-completion provider so tests can substitute a
// stub for the real endpoint.
type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// GroqClient talks to Groq's OpenAI-compatible chat completion endpoint.
type GroqClient struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	logger      *zap.Logger
}

// NewGroqClient builds a client from configuration. A missing API key
// returns nil, which the classifier treats as provider unavailable.
func NewGroqClient(cfg config.AIConfig, logger *zap.Logger) *GroqClient {
	if cfg.APIKey == "" {
		logger.Warn("model provider api key not configured; external classification disabled")
		return nil
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	logger.Info("model provider client initialized", zap.String("model", cfg.Model))
	return &GroqClient{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		logger:      logger,
	}
}

// Complete sends one chat completion request and returns the raw text of
// the first choice.
func (c *GroqClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	temperature := req.Temperature
	if temperature == 0 {
		temperature = c.temperature
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.maxTokens
	}
	systemPrompt := req.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = defaultSystemPrompt
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: req.UserPrompt},
		},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: empty choice list")
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("chat completion: empty response content")
	}
	return content, nil
}
