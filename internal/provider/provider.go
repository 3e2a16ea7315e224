package provider

import (
	"context"
	"fmt"
	"strings"
)

// Provider is the single capability surface for both external AI
// collaborators: text embedding and short-form generation.
type Provider interface {
	// Embed converts text into a fixed-length vector for similarity search.
	Embed(ctx context.Context, text string) ([]float32, error)
	// Generate produces a short utterance from a prompt plus optional
	// conversational context.
	Generate(ctx context.Context, prompt, context string) (string, error)
}

// Config controls provider construction.
type Config struct {
	Mode         string
	OpenAIAPIKey string
	ChatModel    string
	EmbedModel   string
	EmbeddingDim int
}

// New builds a provider for the requested mode. "auto" picks OpenAI when a
// key is configured and falls back to the deterministic mock otherwise.
func New(cfg Config) (Provider, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = "auto"
	}

	switch mode {
	case "auto":
		if strings.TrimSpace(cfg.OpenAIAPIKey) != "" {
			return NewOpenAIProvider(cfg), nil
		}
		return NewMockProvider(cfg.EmbeddingDim), nil
	case "openai":
		if strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for openai provider mode")
		}
		return NewOpenAIProvider(cfg), nil
	case "mock":
		return NewMockProvider(cfg.EmbeddingDim), nil
	default:
		return nil, fmt.Errorf("unsupported provider mode %q", cfg.Mode)
	}
}
