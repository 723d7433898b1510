package llm

import (
	"context"
	"log/slog"
	"time"

	"github.com/codeGROOVE-dev/retry"
)

// Retrying retries transient failures of the wrapped generator with backoff.
type Retrying struct {
	next     Generator
	logger   *slog.Logger
	attempts uint
	delay    time.Duration
	maxDelay time.Duration
}

// WithRetry wraps g. Attempts below 1 disable retrying.
func WithRetry(g Generator, attempts uint, delay time.Duration, logger *slog.Logger) *Retrying {
	if attempts < 1 {
		attempts = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Retrying{
		next:     g,
		logger:   logger,
		attempts: attempts,
		delay:    delay,
		maxDelay: 10 * time.Second,
	}
}

// Generate calls the wrapped generator until it succeeds, fails permanently,
// or the attempts or context run out.
func (r *Retrying) Generate(ctx context.Context, prompt, system string) (string, error) {
	var reply string
	err := retry.Do(
		func() error {
			out, err := r.next.Generate(ctx, prompt, system)
			if err != nil {
				if !IsTransient(err) {
					return retry.Unrecoverable(err)
				}
				return err
			}
			reply = out
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(r.attempts),
		retry.Delay(r.delay),
		retry.MaxDelay(r.maxDelay),
		retry.DelayType(retry.CombineDelay(retry.BackOffDelay, retry.RandomDelay)),
		retry.MaxJitter(r.delay/2+time.Millisecond),
		retry.OnRetry(func(n uint, err error) {
			r.logger.Debug("retrying generation call", "attempt", n+1, "error", err)
		}),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return "", err
	}
	return reply, nil
}
