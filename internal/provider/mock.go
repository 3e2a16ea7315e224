package provider

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// MockProvider provides deterministic local behavior when no API key is
// configured. Embeddings are hashed character trigrams of the normalized
// text, so similar phrasings land near each other without any model.
type MockProvider struct {
	dim int
}

func NewMockProvider(dim int) *MockProvider {
	if dim <= 0 {
		dim = 256
	}
	return &MockProvider{dim: dim}
}

func (p *MockProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	vec := make([]float32, p.dim)
	norm := normalizeForEmbedding(text)
	if norm == "" {
		return vec, nil
	}

	padded := " " + norm + " "
	runes := []rune(padded)
	for i := 0; i+3 <= len(runes); i++ {
		h := fnv.New32a()
		h.Write([]byte(string(runes[i : i+3])))
		vec[h.Sum32()%uint32(p.dim)]++
	}

	var mag float64
	for _, v := range vec {
		mag += float64(v) * float64(v)
	}
	if mag > 0 {
		scale := float32(1 / math.Sqrt(mag))
		for i := range vec {
			vec[i] *= scale
		}
	}
	return vec, nil
}

func (p *MockProvider) Generate(ctx context.Context, prompt, contextText string) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	base := strings.TrimSpace(prompt)
	if base == "" {
		return "Could you tell me a bit more about the problem?", nil
	}
	return fmt.Sprintf("I understand. Regarding %q, what exactly happens when you try?", truncateWords(base, 12)), nil
}

func normalizeForEmbedding(text string) string {
	var b strings.Builder
	prevSpace := true
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			prevSpace = false
		case unicode.IsSpace(r):
			if !prevSpace {
				b.WriteByte(' ')
				prevSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

func truncateWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) <= n {
		return s
	}
	return strings.Join(words[:n], " ")
}
