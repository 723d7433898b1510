package evaluation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/codeGROOVE-dev/orbit/pkg/behavior"
	"github.com/codeGROOVE-dev/orbit/pkg/llm"
	"github.com/codeGROOVE-dev/orbit/pkg/technique"
)

// DefaultTimeout bounds each dimension's scoring call.
const DefaultTimeout = 20 * time.Second

// Blend sets the share of the generated assessment in the blended dimensions.
// The remainder comes from the deterministic check.
type Blend struct {
	RelevanceLLM float64 `yaml:"relevance_llm"`
	AccuracyLLM  float64 `yaml:"accuracy_llm"`
}

// DefaultBlend averages both sources equally.
func DefaultBlend() Blend {
	return Blend{RelevanceLLM: 0.5, AccuracyLLM: 0.5}
}

// Gate scores candidates. It is safe for concurrent use.
type Gate struct {
	gen        llm.Generator
	claims     ClaimChecker
	rules      *Rules
	logger     *slog.Logger
	metrics    *Metrics
	weights    Weights
	thresholds Thresholds
	blend      Blend
	timeout    time.Duration
}

// Option configures a Gate.
type Option func(*Gate)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gate) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithMetrics records gate activity.
func WithMetrics(m *Metrics) Option {
	return func(g *Gate) { g.metrics = m }
}

// WithClaimChecker replaces the default claim checker.
func WithClaimChecker(c ClaimChecker) Option {
	return func(g *Gate) {
		if c != nil {
			g.claims = c
		}
	}
}

// WithRules replaces the built-in deterministic rules.
func WithRules(r *Rules) Option {
	return func(g *Gate) {
		if r != nil {
			g.rules = r
		}
	}
}

// WithThresholds sets the approval thresholds.
func WithThresholds(t Thresholds) Option {
	return func(g *Gate) { g.thresholds = t }
}

// WithWeights sets the overall-score weights.
func WithWeights(w Weights) Option {
	return func(g *Gate) {
		if w.Sum() > 0 {
			g.weights = w
		}
	}
}

// WithBlend sets the relevance and accuracy blend.
func WithBlend(b Blend) Option {
	return func(g *Gate) { g.blend = b }
}

// WithTimeout sets the per-dimension timeout.
func WithTimeout(d time.Duration) Option {
	return func(g *Gate) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// New creates a gate that asks gen for assessments.
func New(gen llm.Generator, opts ...Option) *Gate {
	g := &Gate{
		gen:        gen,
		claims:     StaticClaimChecker{Accuracy: 0.9},
		rules:      DefaultRules(),
		logger:     slog.Default(),
		weights:    DefaultWeights(),
		thresholds: DefaultThresholds(),
		blend:      DefaultBlend(),
		timeout:    DefaultTimeout,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Thresholds returns the approval thresholds in use.
func (g *Gate) Thresholds() Thresholds {
	return g.thresholds
}

// Evaluate scores the candidate on all five dimensions concurrently and
// combines them. Scorer failures degrade the dimension instead of failing the
// call; the only error is the caller's own cancellation, in which case no
// result is returned.
func (g *Gate) Evaluate(ctx context.Context, cand technique.Candidate, c behavior.Context) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var scores [numDimensions]DimensionScore
	eg, egCtx := errgroup.WithContext(ctx)
	for i, d := range dimensions {
		eg.Go(func() error {
			dimCtx, cancel := context.WithTimeout(egCtx, g.timeout)
			defer cancel()
			start := time.Now()
			scores[i] = g.score(dimCtx, d, cand, c)
			g.metrics.observeDuration(d, time.Since(start))
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("evaluation abandoned: %w", err)
	}

	r := g.combine(scores)
	g.metrics.observeEvaluation(r)
	g.logger.Debug("evaluation complete",
		"technique", cand.Technique.String(),
		"overall_score", r.OverallScore,
		"safety_score", r.Safety.Score,
		"risk_level", r.RiskLevel,
		"approved", r.Approved)
	return r, nil
}

func (g *Gate) combine(scores [numDimensions]DimensionScore) *Result {
	r := &Result{
		Safety:             scores[0],
		Relevance:          scores[1],
		Accuracy:           scores[2],
		SuccessProbability: scores[3],
		Engagement:         scores[4],
		AllDegraded:        true,
	}
	for _, s := range scores {
		if !s.Degraded {
			r.AllDegraded = false
		}
	}

	r.OverallScore = behavior.Clamp01(g.weights.Overall(
		r.Safety.Score, r.Relevance.Score, r.Accuracy.Score, r.SuccessProbability.Score, r.Engagement.Score))
	r.RiskLevel = ClassifyRisk(r.Safety.Score, r.OverallScore)
	r.Approved = g.thresholds.Approve(r.Safety.Score, r.OverallScore, r.RiskLevel)

	if r.AllDegraded {
		r.RiskLevel = RiskCritical
		r.Approved = false
	}

	r.Recommendations = recommendations(scores[:])
	r.RequiredModifications = []string{}
	if !r.Approved {
		r.RequiredModifications = requiredModifications(scores[:])
	}
	return r
}

// score never fails: every error becomes the dimension's conservative default.
func (g *Gate) score(ctx context.Context, d Dimension, cand technique.Candidate, c behavior.Context) DimensionScore {
	rb := rubrics[d]

	var (
		extra  string
		report ClaimReport
		claims error
	)
	if d == DimensionAccuracy {
		report, claims = g.claims.CheckClaims(ctx, cand)
		if claims != nil {
			g.logger.Warn("claim check failed", "error", claims)
			report = ClaimReport{OverallAccuracy: unavailableAccuracy}
		}
		if b, err := json.MarshalIndent(report, "", "  "); err == nil {
			extra = "FACT CHECK RESULTS:\n" + string(b)
		}
	}

	reply, err := g.generate(ctx, rb.prompt(cand, c, extra), rb.system)
	if err != nil {
		reason := ReasonUpstream
		if errors.Is(err, context.DeadlineExceeded) {
			reason = ReasonTimeout
		}
		return g.degrade(d, reason, err)
	}
	a, err := rb.parse(reply)
	if err != nil {
		return g.degrade(d, ReasonParse, err)
	}

	s := DimensionScore{
		Dimension:   d,
		Score:       a.Score,
		Confidence:  a.Confidence,
		Reasoning:   a.Reasoning,
		RiskFactors: a.RiskFactors,
	}
	switch d {
	case DimensionSafety:
		check := g.rules.CheckSafety(cand.Content, cand.Domain)
		s.Score = min(a.Score, check.Score)
		s.Confidence = min(a.Confidence, check.Confidence)
		s.RiskFactors = append(s.RiskFactors, check.RiskFactors...)
	case DimensionRelevance:
		w := behavior.Clamp01(g.blend.RelevanceLLM)
		s.Score = w*a.Score + (1-w)*g.rules.ContextRelevance(cand.Domain, c)
	case DimensionAccuracy:
		w := behavior.Clamp01(g.blend.AccuracyLLM)
		s.Score = w*a.Score + (1-w)*behavior.Clamp01(report.OverallAccuracy)
		if claims != nil {
			s.RiskFactors = append(s.RiskFactors, FactorClaimCheckUnavailable)
		}
	}
	s.Score = behavior.Clamp01(s.Score)
	if s.RiskFactors == nil {
		s.RiskFactors = []string{}
	}
	if a.Degraded {
		s.Degraded = true
		s.Score = min(s.Score, degradedScore[d])
		s.Confidence = min(s.Confidence, degradedConfidence)
		s.RiskFactors = append(s.RiskFactors, FactorScoredOffline)
		g.metrics.observeDegraded(d, ReasonOffline)
	}
	return s
}

func (g *Gate) degrade(d Dimension, reason string, err error) DimensionScore {
	g.logger.Warn("dimension degraded to conservative default",
		"dimension", string(d), "reason", reason, "error", err)
	g.metrics.observeDegraded(d, reason)
	var text string
	switch reason {
	case ReasonTimeout:
		text = fmt.Sprintf("%s evaluation timed out - using conservative score", d)
	case ReasonParse:
		text = fmt.Sprintf("Failed to parse %s evaluation - using conservative score", d)
	default:
		text = fmt.Sprintf("%s evaluation unavailable - using conservative score", d)
	}
	return degraded(d, text)
}

// generate returns as soon as ctx is done even if the generator ignores it.
func (g *Gate) generate(ctx context.Context, prompt, system string) (string, error) {
	type reply struct {
		err  error
		text string
	}
	ch := make(chan reply, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				ch <- reply{err: fmt.Errorf("generator panicked: %v", p)}
			}
		}()
		text, err := g.gen.Generate(ctx, prompt, system)
		ch <- reply{text: text, err: err}
	}()
	select {
	case r := <-ch:
		return r.text, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
