package provider

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const supportSystemPrompt = "You are a helpful technical support assistant. " +
	"Keep responses brief (under 50 words) and ask specific troubleshooting questions. " +
	"Be empathetic and solution-focused."

// OpenAIProvider backs both capabilities with the OpenAI API: chat
// completions for generation and the embeddings endpoint for vectors.
type OpenAIProvider struct {
	client     *openai.Client
	chatModel  string
	embedModel string
}

func NewOpenAIProvider(cfg Config) *OpenAIProvider {
	chatModel := strings.TrimSpace(cfg.ChatModel)
	if chatModel == "" {
		chatModel = openai.GPT4oMini
	}
	embedModel := strings.TrimSpace(cfg.EmbedModel)
	if embedModel == "" {
		embedModel = string(openai.SmallEmbedding3)
	}
	return &OpenAIProvider{
		client:     openai.NewClient(cfg.OpenAIAPIKey),
		chatModel:  chatModel,
		embedModel: embedModel,
	}
}

func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(p.embedModel),
	})
	if err != nil {
		return nil, fmt.Errorf("openai embedding: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("openai embedding: empty response")
	}
	return resp.Data[0].Embedding, nil
}

func (p *OpenAIProvider) Generate(ctx context.Context, prompt, contextText string) (string, error) {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: supportSystemPrompt},
	}
	if strings.TrimSpace(contextText) != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: "Context: " + contextText,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.chatModel,
		Messages:    messages,
		Temperature: 0.5,
		MaxTokens:   150,
	})
	if err != nil {
		return "", fmt.Errorf("openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai completion: empty response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
