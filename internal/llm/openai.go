package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/tedkulp/cartulary-go/internal/model"
)

// OpenAIProvider is the remote HTTP (OpenAI-shaped) chat-completion
// backend.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

// NewOpenAIProvider builds an OpenAIProvider. baseURL overrides the
// default OpenAI endpoint, letting OpenAI-API-compatible gateways serve
// the same wire shape.
func NewOpenAIProvider(apiKey, baseURL, model string) *OpenAIProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIProvider{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

func (p *OpenAIProvider) Name() string { return "openai:" + p.model }

func (p *OpenAIProvider) ExtractMetadata(ctx context.Context, text, filename string, existingTags []string) (model.ExtractedMetadata, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: metadataSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildMetadataPrompt(text, filename, existingTags)},
		},
		Temperature: 0,
	})
	if err != nil {
		return model.ExtractedMetadata{}, fmt.Errorf("openai extract metadata: %w", err)
	}
	if len(resp.Choices) == 0 {
		return model.ExtractedMetadata{}, nil
	}
	return parseMetadata(resp.Choices[0].Message.Content), nil
}

func (p *OpenAIProvider) GenerateAnswer(ctx context.Context, question string, chunks []model.ChunkResult, history []ConversationTurn) (string, error) {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: answerSystemPrompt},
	}
	for _, turn := range history {
		role := openai.ChatMessageRoleUser
		if turn.Role == "assistant" {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: turn.Content})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: buildAnswerPrompt(question, chunks),
	})

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    messages,
		Temperature: answerTemperature,
		MaxTokens:   maxAnswerTokens,
	})
	if err != nil {
		return "", fmt.Errorf("openai generate answer: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai generate answer: no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}
