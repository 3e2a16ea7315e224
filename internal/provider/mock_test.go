package provider

import (
	"context"
	"math"
	"testing"
	"time"
)

func TestMockEmbedDeterministic(t *testing.T) {
	p := NewMockProvider(128)
	ctx := context.Background()

	a, err := p.Embed(ctx, "App crashes when opening")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	b, err := p.Embed(ctx, "App crashes when opening")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(a) != 128 {
		t.Fatalf("embedding dim = %d, want 128", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("embedding not deterministic at index %d: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestMockEmbedUnitNorm(t *testing.T) {
	p := NewMockProvider(64)
	vec, err := p.Embed(context.Background(), "payment failed again")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	var mag float64
	for _, v := range vec {
		mag += float64(v) * float64(v)
	}
	if math.Abs(math.Sqrt(mag)-1) > 1e-5 {
		t.Fatalf("embedding magnitude = %v, want 1", math.Sqrt(mag))
	}
}

func TestMockEmbedEmptyText(t *testing.T) {
	p := NewMockProvider(32)
	vec, err := p.Embed(context.Background(), "   ")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	for _, v := range vec {
		if v != 0 {
			t.Fatalf("empty text should embed to the zero vector, got %v", v)
		}
	}
}

func TestTimeoutWrapperCancels(t *testing.T) {
	slow := &slowProvider{delay: 200 * time.Millisecond}
	p := WithTimeout(slow, 20*time.Millisecond)

	if _, err := p.Generate(context.Background(), "q", ""); err == nil {
		t.Fatalf("Generate() should fail when the inner provider exceeds the timeout")
	}
	if _, err := p.Embed(context.Background(), "q"); err == nil {
		t.Fatalf("Embed() should fail when the inner provider exceeds the timeout")
	}
}

func TestNewFactoryModes(t *testing.T) {
	if _, err := New(Config{Mode: "mock"}); err != nil {
		t.Fatalf("New(mock) error = %v", err)
	}
	if _, err := New(Config{Mode: "auto"}); err != nil {
		t.Fatalf("New(auto) without key error = %v", err)
	}
	if _, err := New(Config{Mode: "openai"}); err == nil {
		t.Fatalf("New(openai) without key should fail")
	}
	if _, err := New(Config{Mode: "bogus"}); err == nil {
		t.Fatalf("New(bogus) should fail")
	}
}

type slowProvider struct {
	delay time.Duration
}

func (p *slowProvider) Embed(ctx context.Context, _ string) ([]float32, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(p.delay):
		return []float32{1}, nil
	}
}

func (p *slowProvider) Generate(ctx context.Context, _, _ string) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(p.delay):
		return "ok", nil
	}
}
