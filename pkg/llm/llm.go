// Package llm wraps the external text-generation services used to score
// interventions. Every backend satisfies Generator; wrappers add retries,
// rate limiting and reply caching.
package llm

import (
	"context"
	"errors"
	"strings"
)

// Generator produces a reply for a prompt and a system instruction.
type Generator interface {
	Generate(ctx context.Context, prompt, system string) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, prompt, system string) (string, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, prompt, system string) (string, error) {
	return f(ctx, prompt, system)
}

// Errors returned by backends and the reply decoder.
var (
	ErrEmptyReply = errors.New("empty reply from generation service")
	ErrNoJSON     = errors.New("no valid JSON found in reply")
)

// IsTransient reports whether an error is worth retrying.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	errStr := strings.ToLower(err.Error())
	transientIndicators := []string{
		"rate limit", "quota", "timeout", "deadline", "unavailable", "overloaded",
		"internal server error", "429", "500", "502", "503", "504", "529",
	}
	for _, indicator := range transientIndicators {
		if strings.Contains(errStr, indicator) {
			return true
		}
	}
	return false
}
