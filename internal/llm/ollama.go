package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/tedkulp/cartulary-go/internal/model"
)

// OllamaProvider is the remote socket (Ollama-shaped) chat backend: a
// plain JSON-over-HTTP client against Ollama's /api/chat endpoint, the
// same direct-request shape as embed.OllamaProvider.
type OllamaProvider struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewOllamaProvider builds an OllamaProvider against baseURL (e.g.
// http://localhost:11434).
func NewOllamaProvider(baseURL, model string) *OllamaProvider {
	return &OllamaProvider{
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

func (p *OllamaProvider) Name() string { return "ollama:" + p.model }

type ollamaChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaChatRequest struct {
	Model    string              `json:"model"`
	Messages []ollamaChatMessage `json:"messages"`
	Stream   bool                `json:"stream"`
	Options  ollamaChatOptions   `json:"options"`
}

type ollamaChatResponse struct {
	Message ollamaChatMessage `json:"message"`
}

func (p *OllamaProvider) chat(ctx context.Context, messages []ollamaChatMessage, temperature float64, maxTokens int) (string, error) {
	body, err := json.Marshal(ollamaChatRequest{
		Model:    p.model,
		Messages: messages,
		Stream:   false,
		Options:  ollamaChatOptions{Temperature: temperature, NumPredict: maxTokens},
	})
	if err != nil {
		return "", fmt.Errorf("marshal ollama chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build ollama chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama chat request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama chat: unexpected status %d", resp.StatusCode)
	}

	var out ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode ollama chat response: %w", err)
	}
	return out.Message.Content, nil
}

func (p *OllamaProvider) ExtractMetadata(ctx context.Context, text, filename string, existingTags []string) (model.ExtractedMetadata, error) {
	content, err := p.chat(ctx, []ollamaChatMessage{
		{Role: "system", Content: metadataSystemPrompt},
		{Role: "user", Content: buildMetadataPrompt(text, filename, existingTags)},
	}, 0, 0)
	if err != nil {
		return model.ExtractedMetadata{}, fmt.Errorf("ollama extract metadata: %w", err)
	}
	return parseMetadata(content), nil
}

func (p *OllamaProvider) GenerateAnswer(ctx context.Context, question string, chunks []model.ChunkResult, history []ConversationTurn) (string, error) {
	messages := []ollamaChatMessage{{Role: "system", Content: answerSystemPrompt}}
	for _, turn := range history {
		messages = append(messages, ollamaChatMessage{Role: turn.Role, Content: turn.Content})
	}
	messages = append(messages, ollamaChatMessage{Role: "user", Content: buildAnswerPrompt(question, chunks)})

	content, err := p.chat(ctx, messages, answerTemperature, maxAnswerTokens)
	if err != nil {
		return "", fmt.Errorf("ollama generate answer: %w", err)
	}
	return content, nil
}
