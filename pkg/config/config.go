// Package config loads engine settings from an optional YAML file and the
// environment. Environment values override the file.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/codeGROOVE-dev/orbit/pkg/evaluation"
	"github.com/codeGROOVE-dev/orbit/pkg/llm"
	"github.com/codeGROOVE-dev/orbit/pkg/profilecache"
	"github.com/codeGROOVE-dev/orbit/pkg/technique"
)

// Config is the full set of tunables.
type Config struct {
	LLM        LLM        `yaml:"llm"`
	Evaluation Evaluation `yaml:"evaluation"`
	Analyzer   Analyzer   `yaml:"analyzer"`
	Engine     Engine     `yaml:"engine"`
	DBPath     string     `yaml:"db_path"`
	CacheDir   string     `yaml:"cache_dir"`
}

// LLM configures the generation service.
type LLM struct {
	Provider         string        `yaml:"provider"`
	Model            string        `yaml:"model"`
	GeminiAPIKey     string        `yaml:"gemini_api_key"`
	AnthropicAPIKey  string        `yaml:"anthropic_api_key"`
	OpenRouterAPIKey string        `yaml:"openrouter_api_key"`
	BaseURL          string        `yaml:"base_url"`
	GCPProject       string        `yaml:"gcp_project"`
	RetryAttempts    uint          `yaml:"retry_attempts"`
	RetryDelay       time.Duration `yaml:"retry_delay"`
	RatePerSecond    float64       `yaml:"rate_per_second"`
	RateBurst        int           `yaml:"rate_burst"`
	CacheTTL         time.Duration `yaml:"cache_ttl"`
	DisableCache     bool          `yaml:"disable_cache"`
}

// Evaluation configures the gate.
type Evaluation struct {
	RulesPath  string                `yaml:"rules_path"`
	Thresholds evaluation.Thresholds `yaml:"thresholds"`
	Weights    evaluation.Weights    `yaml:"weights"`
	Blend      evaluation.Blend      `yaml:"blend"`
	Timeout    time.Duration         `yaml:"dimension_timeout"`
}

// Analyzer configures pattern analysis.
type Analyzer struct {
	RecentWindow time.Duration `yaml:"recent_window"`
	MinSamples   int           `yaml:"min_samples"`
}

// Engine configures the request pipeline.
type Engine struct {
	CrisisPool    []string      `yaml:"crisis_pool"`
	HistoryWindow time.Duration `yaml:"history_window"`
	ProfileTTL    time.Duration `yaml:"profile_ttl"`
	MaxAttempts   int           `yaml:"max_attempts"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		LLM: LLM{
			Provider:      llm.ProviderGemini,
			RetryAttempts: 3,
			RetryDelay:    time.Second,
			RatePerSecond: 5,
			RateBurst:     5,
			CacheTTL:      24 * time.Hour,
		},
		Evaluation: Evaluation{
			Thresholds: evaluation.DefaultThresholds(),
			Weights:    evaluation.DefaultWeights(),
			Blend:      evaluation.DefaultBlend(),
			Timeout:    evaluation.DefaultTimeout,
		},
		Analyzer: Analyzer{
			RecentWindow: 7 * 24 * time.Hour,
			MinSamples:   3,
		},
		Engine: Engine{
			HistoryWindow: 90 * 24 * time.Hour,
			ProfileTTL:    profilecache.DefaultTTL,
			MaxAttempts:   2,
		},
	}
}

// Load reads path over the defaults, then applies environment overrides.
// An empty path falls back to ORBIT_CONFIG; a missing file is not an error
// unless the path was given explicitly.
func Load(path string) (*Config, error) {
	cfg := Default()
	explicit := path != ""
	if path == "" {
		path = os.Getenv("ORBIT_CONFIG")
		explicit = path != ""
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist) && !explicit:
		default:
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	envOverride(&c.LLM.Provider, "ORBIT_LLM_PROVIDER")
	envOverride(&c.LLM.Model, "ORBIT_LLM_MODEL")
	envOverride(&c.LLM.GeminiAPIKey, "GEMINI_API_KEY")
	envOverride(&c.LLM.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	envOverride(&c.LLM.OpenRouterAPIKey, "OPENROUTER_API_KEY")
	envOverride(&c.LLM.BaseURL, "ORBIT_LLM_BASE_URL")
	envOverride(&c.LLM.GCPProject, "GOOGLE_CLOUD_PROJECT")
	envOverride(&c.LLM.GCPProject, "GCP_PROJECT")
	envOverride(&c.DBPath, "ORBIT_DB_PATH")
	envOverride(&c.CacheDir, "CACHE_DIR")
	envOverride(&c.Evaluation.RulesPath, "ORBIT_RULES_PATH")

	if err := envOverrideFloat(&c.Evaluation.Thresholds.Safety, "ORBIT_SAFETY_THRESHOLD"); err != nil {
		return err
	}
	if err := envOverrideFloat(&c.Evaluation.Thresholds.Overall, "ORBIT_OVERALL_THRESHOLD"); err != nil {
		return err
	}
	if err := envOverrideFloat(&c.LLM.RatePerSecond, "ORBIT_LLM_RATE"); err != nil {
		return err
	}
	if err := envOverrideDuration(&c.Evaluation.Timeout, "ORBIT_DIMENSION_TIMEOUT"); err != nil {
		return err
	}
	if err := envOverrideDuration(&c.Engine.ProfileTTL, "ORBIT_PROFILE_TTL"); err != nil {
		return err
	}
	return envOverrideInt(&c.Engine.MaxAttempts, "ORBIT_MAX_ATTEMPTS")
}

func envOverride(field *string, key string) {
	if val := os.Getenv(key); val != "" {
		*field = val
	}
}

func envOverrideInt(field *int, key string) error {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, val, err)
	}
	*field = n
	return nil
}

func envOverrideFloat(field *float64, key string) error {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, val, err)
	}
	*field = f
	return nil
}

func envOverrideDuration(field *time.Duration, key string) error {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, val, err)
	}
	*field = d
	return nil
}

// Validate rejects out-of-range values. All problems are reported together.
func (c *Config) Validate() error {
	var errs []error
	unit := func(name string, v float64) {
		if v < 0 || v > 1 || math.IsNaN(v) {
			errs = append(errs, fmt.Errorf("%s must be between 0 and 1, got %v", name, v))
		}
	}

	switch c.LLM.Provider {
	case llm.ProviderGemini, llm.ProviderAnthropic, llm.ProviderOpenRouter, llm.ProviderOpenAI:
	default:
		errs = append(errs, fmt.Errorf("llm provider must be gemini, anthropic or openrouter, got %q", c.LLM.Provider))
	}

	unit("safety threshold", c.Evaluation.Thresholds.Safety)
	unit("overall threshold", c.Evaluation.Thresholds.Overall)
	unit("relevance blend", c.Evaluation.Blend.RelevanceLLM)
	unit("accuracy blend", c.Evaluation.Blend.AccuracyLLM)

	w := c.Evaluation.Weights
	for name, v := range map[string]float64{
		"safety weight": w.Safety, "relevance weight": w.Relevance, "accuracy weight": w.Accuracy,
		"success weight": w.Success, "engagement weight": w.Engagement,
	} {
		unit(name, v)
	}
	if math.Abs(w.Sum()-1) > 1e-6 {
		errs = append(errs, fmt.Errorf("evaluation weights must sum to 1, got %.4f", w.Sum()))
	}

	if c.Evaluation.Timeout <= 0 {
		errs = append(errs, errors.New("dimension timeout must be positive"))
	}
	for _, name := range c.Engine.CrisisPool {
		if _, err := technique.Parse(name); err != nil {
			errs = append(errs, fmt.Errorf("crisis pool: %w", err))
		}
	}
	if c.Engine.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("max attempts must be >= 1, got %d", c.Engine.MaxAttempts))
	}
	if c.Analyzer.MinSamples < 1 {
		errs = append(errs, fmt.Errorf("min samples must be >= 1, got %d", c.Analyzer.MinSamples))
	}
	if c.Analyzer.RecentWindow <= 0 {
		errs = append(errs, errors.New("recent window must be positive"))
	}
	return errors.Join(errs...)
}

// LLMConfig returns the generation client settings for the selected provider.
func (c *Config) LLMConfig() llm.Config {
	key := c.LLM.GeminiAPIKey
	switch c.LLM.Provider {
	case llm.ProviderAnthropic:
		key = c.LLM.AnthropicAPIKey
	case llm.ProviderOpenRouter, llm.ProviderOpenAI:
		key = c.LLM.OpenRouterAPIKey
	}
	return llm.Config{
		Provider:       c.LLM.Provider,
		Model:          c.LLM.Model,
		APIKey:         key,
		BaseURL:        c.LLM.BaseURL,
		GCPProject:     c.LLM.GCPProject,
		CacheDir:       c.CacheDir,
		RetryAttempts:  c.LLM.RetryAttempts,
		RetryDelay:     c.LLM.RetryDelay,
		RatePerSecond:  c.LLM.RatePerSecond,
		RateBurst:      c.LLM.RateBurst,
		CacheTTL:       c.LLM.CacheTTL,
		DisableCaching: c.LLM.DisableCache,
	}
}

// HasCredentials reports whether the selected provider can authenticate.
func (c *Config) HasCredentials() bool {
	cfg := c.LLMConfig()
	if cfg.APIKey != "" {
		return true
	}
	return c.LLM.Provider == llm.ProviderGemini && c.LLM.GCPProject != ""
}

// CrisisTechniques returns the configured crisis pool, or nil for the default.
func (c *Config) CrisisTechniques() []technique.ID {
	var ids []technique.ID
	for _, name := range c.Engine.CrisisPool {
		if id, err := technique.Parse(name); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

// Rules loads the safety rules file, or the built-in rules when none is set.
func (c *Config) Rules() (*evaluation.Rules, error) {
	if c.Evaluation.RulesPath == "" {
		return evaluation.DefaultRules(), nil
	}
	data, err := os.ReadFile(c.Evaluation.RulesPath)
	if err != nil {
		return nil, fmt.Errorf("reading rules: %w", err)
	}
	return evaluation.ParseRules(data)
}
