package llm

import (
	"context"
	"fmt"
	"strings"

	genai "google.golang.org/genai"

	"github.com/tedkulp/cartulary-go/internal/model"
)

// GeminiProvider is the remote HTTP (Gemini-shaped) backend, a reduced
// form of a full tool-calling client: single-turn text generation only,
// which is all metadata extraction and grounded answering need.
type GeminiProvider struct {
	client *genai.Client
	model  string
}

// NewGeminiProvider builds a GeminiProvider against the given API key and
// model (e.g. "gemini-1.5-flash").
func NewGeminiProvider(ctx context.Context, apiKey, model string) (*GeminiProvider, error) {
	if model == "" {
		model = "gemini-1.5-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("init gemini client: %w", err)
	}
	return &GeminiProvider{client: client, model: model}, nil
}

func (p *GeminiProvider) Name() string { return "gemini:" + p.model }

func (p *GeminiProvider) generate(ctx context.Context, systemPrompt, userPrompt string, temperature float64, maxTokens int) (string, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature:       genai.Ptr(float32(temperature)),
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
	}
	if maxTokens > 0 {
		cfg.MaxOutputTokens = int32(maxTokens)
	}

	contents := []*genai.Content{genai.NewContentFromText(userPrompt, genai.RoleUser)}
	resp, err := p.client.Models.GenerateContent(ctx, p.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("gemini generate content: empty response")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	return sb.String(), nil
}

func (p *GeminiProvider) ExtractMetadata(ctx context.Context, text, filename string, existingTags []string) (model.ExtractedMetadata, error) {
	raw, err := p.generate(ctx, metadataSystemPrompt, buildMetadataPrompt(text, filename, existingTags), 0, 0)
	if err != nil {
		return model.ExtractedMetadata{}, fmt.Errorf("gemini extract metadata: %w", err)
	}
	return parseMetadata(raw), nil
}

func (p *GeminiProvider) GenerateAnswer(ctx context.Context, question string, chunks []model.ChunkResult, history []ConversationTurn) (string, error) {
	var b strings.Builder
	for _, turn := range history {
		b.WriteString(strings.ToUpper(turn.Role))
		b.WriteString(": ")
		b.WriteString(turn.Content)
		b.WriteString("\n")
	}
	b.WriteString(buildAnswerPrompt(question, chunks))

	answer, err := p.generate(ctx, answerSystemPrompt, b.String(), answerTemperature, maxAnswerTokens)
	if err != nil {
		return "", fmt.Errorf("gemini generate answer: %w", err)
	}
	return answer, nil
}
