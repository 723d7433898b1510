// Package pattern analyzes a user's event log and goal set into a behavioral profile.
package pattern

import (
	"log/slog"
	"sort"
	"time"

	"github.com/codeGROOVE-dev/orbit/pkg/behavior"
)

// Sub-analysis weights for overall profile confidence.
const (
	weightTemporal    = 0.3
	weightCompliance  = 0.3
	weightEnergy      = 0.2
	weightCrossDomain = 0.1
	weightGoal        = 0.1
)

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Analyzer) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithRecentWindow sets how far back an event still counts as recent activity.
func WithRecentWindow(d time.Duration) Option {
	return func(a *Analyzer) {
		if d > 0 {
			a.recentWindow = d
		}
	}
}

// WithMinSamples sets the minimum number of rated events a bucket needs before it is reported.
func WithMinSamples(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.minSamples = n
		}
	}
}

// Analyzer builds profiles. It holds no per-user state and is safe for concurrent use.
type Analyzer struct {
	logger       *slog.Logger
	recentWindow time.Duration
	minSamples   int
}

// New creates an Analyzer.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		logger:       slog.Default(),
		recentWindow: 7 * 24 * time.Hour,
		minSamples:   3,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Input is everything one analysis needs. History is supplied by the caller on every call.
type Input struct {
	Now             time.Time
	Traits          map[string]float64
	UserID          string
	MotivationStyle string
	CurrentEnergy   behavior.Energy
	History         []behavior.HistoryEvent
	Goals           []behavior.Goal
}

// Analyze builds a profile. It never fails: empty history or an internal
// fault yields behavior.DefaultProfile.
func (a *Analyzer) Analyze(in Input) (profile *behavior.Profile) {
	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("pattern analysis failed", "user_id", in.UserID, "panic", r)
			profile = behavior.DefaultProfile(in.UserID, in.Traits, now)
			profile.MotivationStyle = in.MotivationStyle
		}
	}()

	events := timeline(in.History)
	if len(events) == 0 {
		a.logger.Debug("no usable history, returning default profile", "user_id", in.UserID)
		p := behavior.DefaultProfile(in.UserID, in.Traits, now)
		p.MotivationStyle = in.MotivationStyle
		return p
	}

	temporal := a.analyzeTemporal(events)
	compliance := a.analyzeCompliance(events)
	energy := analyzeEnergy(events, in.CurrentEnergy, now)
	interactions, crossConfidence := Interactions(in.Goals)
	goals := analyzeGoals(in.Goals)
	risk := a.assessRisk(compliance, in.Goals, events, in.CurrentEnergy, now)

	p := behavior.DefaultProfile(in.UserID, in.Traits, now)
	p.MotivationStyle = in.MotivationStyle
	p.DomainOptimalHours = temporal.domainHours
	p.HourlyCompliance = temporal.hourlyCompliance
	p.HourlyActivity = temporal.activity
	p.PeakActivityHours = PeakHours(temporal.activity, 3)
	p.AvoidHours = AvoidHours(temporal.activity)
	p.BestDays = temporal.bestDays
	p.TechniqueSuccessRates = compliance.technique
	p.DomainCompliance = compliance.domain
	p.OverallCompliance = compliance.overall
	p.RatedEvents = compliance.rated
	p.ComplianceTrend = compliance.trend
	p.PeakEnergyHours = energy.peakHours
	p.Interactions = interactions
	p.GoalProgress = goals.progress
	p.PreferredDomains = goals.preferred
	p.ContextPatterns = a.analyzeContext(events)
	p.Risk = risk
	p.FailureRisk = risk.Combined

	p.Confidence = behavior.Clamp01(weightTemporal*temporal.confidence +
		weightCompliance*compliance.confidence +
		weightEnergy*energy.confidence +
		weightCrossDomain*crossConfidence +
		weightGoal*goals.confidence)

	p.Insights = insights(temporal, compliance, energy, goals, p.PeakActivityHours)
	if len(p.Insights) > 0 {
		p.Recommendations = recommendations(p.Insights)
	}

	a.logger.Debug("user patterns analyzed",
		"user_id", in.UserID,
		"events", len(events),
		"confidence", p.Confidence,
		"failure_risk", p.FailureRisk,
		"insights", len(p.Insights))

	return p
}

// timeline copies events with a timestamp and orders them oldest first.
func timeline(history []behavior.HistoryEvent) []behavior.HistoryEvent {
	out := make([]behavior.HistoryEvent, 0, len(history))
	for _, e := range history {
		if e.Timestamp.IsZero() {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

// bucket tallies rated outcomes.
type bucket struct {
	total    int
	complied int
}

func (b *bucket) add(complied bool) {
	b.total++
	if complied {
		b.complied++
	}
}

func (b bucket) rate() float64 {
	if b.total == 0 {
		return 0
	}
	return float64(b.complied) / float64(b.total)
}
