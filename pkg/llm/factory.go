package llm

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"
)

// Providers.
const (
	ProviderGemini     = "gemini"
	ProviderAnthropic  = "anthropic"
	ProviderOpenRouter = "openrouter"
	ProviderOpenAI     = "openai"
)

// Config selects and tunes a backend and its wrappers.
type Config struct {
	Provider       string
	Model          string
	APIKey         string
	BaseURL        string
	GCPProject     string
	CacheDir       string
	RetryAttempts  uint
	RetryDelay     time.Duration
	RatePerSecond  float64
	RateBurst      int
	CacheTTL       time.Duration
	DisableCaching bool
}

// Client is a fully wrapped generator. Close flushes the reply cache.
type Client struct {
	Generator
	closer io.Closer
}

// Close releases resources held by the wrappers.
func (c *Client) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer.Close()
}

// New builds the configured backend wrapped as cache, retry, rate limit, backend.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var (
		backend Generator
		model   string
		err     error
	)
	switch cfg.Provider {
	case "", ProviderGemini:
		var g *Gemini
		g, err = NewGemini(ctx, GeminiConfig{APIKey: cfg.APIKey, Model: cfg.Model, GCPProject: cfg.GCPProject}, logger)
		if g != nil {
			backend, model = g, g.Model()
		}
	case ProviderAnthropic:
		model = cfg.Model
		if model == "" {
			model = DefaultAnthropicModel
		}
		backend, err = NewAnthropic(cfg.APIKey, model, logger)
	case ProviderOpenRouter, ProviderOpenAI:
		model = cfg.Model
		if model == "" {
			model = DefaultOpenRouterModel
		}
		backend, err = NewOpenAI(cfg.APIKey, cfg.BaseURL, model, logger)
	default:
		return nil, fmt.Errorf("unknown generation provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	g := WithRateLimit(backend, cfg.RatePerSecond, cfg.RateBurst)
	g = WithRetry(g, cfg.RetryAttempts, cfg.RetryDelay, logger)

	client := &Client{Generator: g}
	if !cfg.DisableCaching {
		cache, err := NewReplyCache(ctx, g, cfg.Provider+"/"+model, cfg.CacheDir, cfg.CacheTTL, logger)
		if err != nil {
			return nil, err
		}
		client.Generator = cache
		client.closer = cache
	}
	logger.Debug("generation client ready", "provider", cfg.Provider, "model", model, "cached", !cfg.DisableCaching)
	return client, nil
}
