package adapter

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"storygraph/backend/pkg/logger"
)

// LLMClient handles communication with an OpenAI-compatible endpoint.
// It covers both chat completions (slot filling, disambiguation) and
// text embeddings.
type LLMClient struct {
	client     *openai.Client
	model      string
	embedModel string
	logger     *zap.Logger
}

// NewLLMClient creates a new LLM client. baseURL may be empty to use the
// default OpenAI endpoint.
func NewLLMClient(baseURL, apiKey, modelID, embedModel string) *LLMClient {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = strings.TrimSuffix(baseURL, "/") + "/v1"
	}

	return &LLMClient{
		client:     openai.NewClientWithConfig(config),
		model:      modelID,
		embedModel: embedModel,
		logger:     logger.Get(),
	}
}

// CompleteJSON sends a single chat request expected to return JSON and
// returns the raw JSON text with any markdown fencing stripped. Retrying is
// the caller's responsibility so that call and parse failures share one
// retry budget.
func (a *LLMClient) CompleteJSON(ctx context.Context, systemPrompt, userMsg string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userMsg},
		},
		Temperature: 0.2,
	}

	resp, err := a.client.CreateChatCompletion(ctx, req)
	if err != nil {
		a.logger.Error("LLM request failed",
			zap.Error(err),
			zap.String("model", a.model),
		)
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}

	return StripJSONFences(resp.Choices[0].Message.Content), nil
}

// Embed returns the embedding vector for text.
func (a *LLMClient) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := a.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(a.embedModel),
	})
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("embedding response contained no data")
	}
	return resp.Data[0].Embedding, nil
}

// StripJSONFences removes markdown code fencing that models often wrap
// around JSON output.
func StripJSONFences(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(content, "```")
		content = strings.TrimSpace(content)
	}
	return content
}
