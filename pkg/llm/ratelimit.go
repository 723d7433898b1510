package llm

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimited spaces calls to the wrapped generator. Callers wait for a
// token instead of failing, so concurrent scorers queue behind one budget.
type RateLimited struct {
	next    Generator
	limiter *rate.Limiter
}

// WithRateLimit wraps g with a limiter of perSecond calls and the given burst.
// A non-positive rate returns g unchanged.
func WithRateLimit(g Generator, perSecond float64, burst int) Generator {
	if perSecond <= 0 {
		return g
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimited{
		next:    g,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

// Generate waits for a token, then calls the wrapped generator.
func (r *RateLimited) Generate(ctx context.Context, prompt, system string) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("generation rate limit: %w", err)
	}
	return r.next.Generate(ctx, prompt, system)
}
