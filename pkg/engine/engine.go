// Package engine runs the full intervention pipeline: analyze history into a
// profile, select and compose a technique, and pass the result through the
// evaluation gate.
package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/codeGROOVE-dev/orbit/pkg/behavior"
	"github.com/codeGROOVE-dev/orbit/pkg/evaluation"
	"github.com/codeGROOVE-dev/orbit/pkg/history"
	"github.com/codeGROOVE-dev/orbit/pkg/pattern"
	"github.com/codeGROOVE-dev/orbit/pkg/profilecache"
	"github.com/codeGROOVE-dev/orbit/pkg/technique"
)

// ErrReadOnlyHistory is returned by RecordOutcome when no writable store is set.
var ErrReadOnlyHistory = errors.New("history store is not writable")

// Engine is safe for concurrent use.
type Engine struct {
	gate          *evaluation.Gate
	analyzer      *pattern.Analyzer
	selector      *technique.Selector
	profiles      *profilecache.Cache
	history       history.Reader
	logger        *slog.Logger
	now           func() time.Time
	historyWindow time.Duration
	maxAttempts   int
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithAnalyzer replaces the default analyzer.
func WithAnalyzer(a *pattern.Analyzer) Option {
	return func(e *Engine) {
		if a != nil {
			e.analyzer = a
		}
	}
}

// WithSelector replaces the default selector.
func WithSelector(s *technique.Selector) Option {
	return func(e *Engine) {
		if s != nil {
			e.selector = s
		}
	}
}

// WithProfileCache shares computed profiles across requests.
func WithProfileCache(c *profilecache.Cache) Option {
	return func(e *Engine) { e.profiles = c }
}

// WithHistory reads events for requests that carry none. If r also
// implements history.Writer, RecordOutcome appends to it.
func WithHistory(r history.Reader) Option {
	return func(e *Engine) { e.history = r }
}

// WithHistoryWindow limits how far back history is read.
func WithHistoryWindow(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.historyWindow = d
		}
	}
}

// WithMaxAttempts sets how many candidates are composed before giving up on
// approval. Each retry excludes the techniques already rejected.
func WithMaxAttempts(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxAttempts = n
		}
	}
}

// WithClock sets the time source used when a request has no timestamp.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// New creates an engine around gate.
func New(gate *evaluation.Gate, opts ...Option) *Engine {
	e := &Engine{
		gate:          gate,
		logger:        slog.Default(),
		now:           time.Now,
		historyWindow: 90 * 24 * time.Hour,
		maxAttempts:   2,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.analyzer == nil {
		e.analyzer = pattern.New(pattern.WithLogger(e.logger))
	}
	if e.selector == nil {
		e.selector = technique.NewSelector(technique.WithLogger(e.logger))
	}
	return e
}

// Run produces one evaluated intervention. Only invalid input and caller
// cancellation are returned as errors; every other failure shows up as low
// scores or a rejection in the output.
func (e *Engine) Run(ctx context.Context, req Request) (*Output, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	requestID := uuid.NewString()
	logger := e.logger.With("request_id", requestID, "user_id", req.UserID)

	c := req.Context
	if c.Now.IsZero() {
		c.Now = e.now()
	}

	profile, err := e.profile(ctx, logger, req, c)
	if err != nil {
		return nil, err
	}

	out := &Output{
		RequestID:         requestID,
		UserID:            req.UserID,
		GeneratedAt:       c.Now,
		Profile:           profile,
		ProfileConfidence: profile.Confidence,
	}

	var exclude []technique.ID
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		cand, err := e.selector.SelectAndCompose(profile, req.Goal, c, exclude...)
		if errors.Is(err, technique.ErrNoTechnique) && len(out.Attempts) > 0 {
			logger.Debug("no techniques left to try", "attempt", attempt)
			break
		}
		if err != nil {
			return nil, fmt.Errorf("composing intervention: %w", err)
		}

		result, err := e.gate.Evaluate(ctx, cand, c)
		if err != nil {
			return nil, err
		}
		out.Attempts = append(out.Attempts, Attempt{Candidate: cand, Evaluation: result})
		out.Candidate, out.Evaluation = cand, result

		logger.Debug("candidate evaluated",
			"attempt", attempt,
			"technique", cand.Technique.String(),
			"overall_score", result.OverallScore,
			"approved", result.Approved)
		if result.Approved {
			break
		}
		exclude = append(exclude, cand.Technique)
	}

	logger.Info("intervention ready",
		"technique", out.Candidate.Technique.String(),
		"approved", out.Approved(),
		"attempts", len(out.Attempts),
		"profile_confidence", out.ProfileConfidence)
	return out, nil
}

func (e *Engine) profile(ctx context.Context, logger *slog.Logger, req Request, c behavior.Context) (*behavior.Profile, error) {
	events := req.History
	cacheable := true
	if events == nil && e.history != nil {
		var err error
		events, err = e.history.Events(ctx, req.UserID, c.Now.Add(-e.historyWindow))
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			logger.Warn("history unavailable, analyzing without it", "error", err)
			events, cacheable = nil, false
		}
	}

	in := pattern.Input{
		Now:             c.Now,
		Traits:          req.Traits,
		UserID:          req.UserID,
		MotivationStyle: req.MotivationStyle,
		CurrentEnergy:   c.CurrentEnergy,
		History:         events,
		Goals:           c.ActiveGoals,
	}
	compute := func(ctx context.Context) (*behavior.Profile, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return e.analyzer.Analyze(in), nil
	}
	if e.profiles == nil || !cacheable {
		return compute(ctx)
	}
	return e.profiles.GetOrCompute(ctx, req.UserID, fingerprint(in), compute)
}

// fingerprint identifies the analysis input so a cached profile is reused
// only for identical input within the same hour.
func fingerprint(in pattern.Input) string {
	b, err := json.Marshal(struct {
		Hour    time.Time               `json:"h"`
		Traits  map[string]float64      `json:"t"`
		Style   string                  `json:"s"`
		Energy  behavior.Energy         `json:"e"`
		History []behavior.HistoryEvent `json:"ev"`
		Goals   []behavior.Goal         `json:"g"`
	}{in.Now.Truncate(time.Hour), in.Traits, in.MotivationStyle, in.CurrentEnergy, in.History, in.Goals})
	if err != nil {
		return uuid.NewString()
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:16])
}

// RecordOutcome appends events to the configured store and drops the user's
// cached profile so the next request sees them.
func (e *Engine) RecordOutcome(ctx context.Context, userID string, events ...behavior.HistoryEvent) error {
	w, ok := e.history.(history.Writer)
	if !ok {
		return ErrReadOnlyHistory
	}
	if err := w.Append(ctx, userID, events...); err != nil {
		return fmt.Errorf("recording outcome: %w", err)
	}
	if e.profiles != nil {
		e.profiles.Invalidate(userID)
	}
	return nil
}
