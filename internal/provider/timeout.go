package provider

import (
	"context"
	"time"
)

// timeoutProvider bounds every collaborator call with one deadline so a
// stalled dependency can never hang a live phone call.
type timeoutProvider struct {
	inner   Provider
	timeout time.Duration
}

// WithTimeout wraps a provider so each Embed/Generate call carries an
// explicit deadline. Applied once at construction instead of at call sites.
func WithTimeout(p Provider, timeout time.Duration) Provider {
	if timeout <= 0 {
		return p
	}
	return &timeoutProvider{inner: p, timeout: timeout}
}

func (p *timeoutProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return p.inner.Embed(ctx, text)
}

func (p *timeoutProvider) Generate(ctx context.Context, prompt, contextText string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return p.inner.Generate(ctx, prompt, contextText)
}
