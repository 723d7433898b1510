package technique

import (
	"errors"
	"log/slog"
	"time"

	"github.com/codeGROOVE-dev/orbit/pkg/behavior"
)

// Scoring weights.
const (
	weightEffectiveness = 0.4
	weightDomain        = 0.2
	weightUserType      = 0.2
	weightHistory       = 0.1
	weightContext       = 0.1
)

// ErrNoTechnique is returned when exclusions leave nothing to select from.
var ErrNoTechnique = errors.New("no technique available")

// Score is one technique's scoring breakdown.
type Score struct {
	ID       ID      `json:"technique_id"`
	Total    float64 `json:"total"`
	Base     float64 `json:"base_effectiveness"`
	Domain   float64 `json:"domain_applicability"`
	UserType float64 `json:"user_type_match"`
	History  float64 `json:"historical_rate"`
	Context  float64 `json:"context_appropriateness"`
}

// Option configures a Selector.
type Option func(*Selector)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Selector) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithCrisisPool replaces the techniques allowed under high or critical urgency.
func WithCrisisPool(ids ...ID) Option {
	return func(s *Selector) {
		var pool []ID
		for _, id := range ids {
			if id.Valid() {
				pool = append(pool, id)
			}
		}
		if len(pool) > 0 {
			s.crisisPool = pool
		}
	}
}

// Selector scores the catalog and composes candidates. It is read-only after
// construction and safe for concurrent use.
type Selector struct {
	logger     *slog.Logger
	crisisPool []ID
}

// NewSelector creates a Selector.
func NewSelector(opts ...Option) *Selector {
	s := &Selector{
		logger:     slog.Default(),
		crisisPool: DefaultCrisisPool,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Rank scores every eligible technique, best first. Equal totals keep catalog order.
func (s *Selector) Rank(p *behavior.Profile, goal behavior.Goal, c behavior.Context, exclude ...ID) []Score {
	pool := s.pool(c)
	skip := make(map[ID]bool, len(exclude))
	for _, id := range exclude {
		skip[id] = true
	}

	var traits map[string]float64
	if p != nil {
		traits = p.PersonalityTraits
	}

	scores := make([]Score, 0, len(pool))
	for _, id := range pool {
		if skip[id] {
			continue
		}
		t := catalog[id]
		sc := Score{
			ID:       id,
			Base:     t.Effectiveness,
			UserType: userTypeMatch(traits, t.UserTypes),
			History:  p.SuccessRate(id.String()),
			Context:  contextAppropriateness(id, c),
		}
		if t.AppliesTo(goal.Domain) {
			sc.Domain = 1
		}
		sc.Total = behavior.Clamp01(weightEffectiveness*sc.Base +
			weightDomain*sc.Domain +
			weightUserType*sc.UserType +
			weightHistory*sc.History +
			weightContext*sc.Context)
		scores = append(scores, sc)
	}

	// Insertion sort keeps equal totals in catalog order.
	for i := 1; i < len(scores); i++ {
		for j := i; j > 0 && scores[j].Total > scores[j-1].Total; j-- {
			scores[j], scores[j-1] = scores[j-1], scores[j]
		}
	}
	return scores
}

// Select returns the best-scoring technique and the full ranking.
func (s *Selector) Select(p *behavior.Profile, goal behavior.Goal, c behavior.Context, exclude ...ID) (Score, []Score, error) {
	ranking := s.Rank(p, goal, c, exclude...)
	if len(ranking) == 0 {
		return Score{}, nil, ErrNoTechnique
	}
	s.logger.Debug("technique selected",
		"technique", ranking[0].ID.String(),
		"score", ranking[0].Total,
		"candidates", len(ranking),
		"crisis", c.Urgency.IsCrisis())
	return ranking[0], ranking, nil
}

func (s *Selector) pool(c behavior.Context) []ID {
	if c.Urgency.IsCrisis() {
		return s.crisisPool
	}
	ids := make([]ID, numTechniques)
	for i := range ids {
		ids[i] = ID(i)
	}
	return ids
}

// userTypeMatch rates how well Big Five traits fit a technique's resonant user types.
// Missing traits count as 0.5.
func userTypeMatch(traits map[string]float64, userTypes []string) float64 {
	trait := func(name string) float64 {
		if v, ok := traits[name]; ok {
			return v
		}
		return 0.5
	}
	conscientiousness := trait("conscientiousness")
	extraversion := trait("extraversion")
	openness := trait("openness")

	var match float64
	for _, ut := range userTypes {
		switch {
		case ut == "conscientious" && conscientiousness > 0.6:
			match += 0.3
		case ut == "organized" && conscientiousness > 0.7:
			match += 0.3
		case ut == "socially-motivated" && extraversion > 0.6:
			match += 0.3
		case ut == "creative" && openness > 0.7:
			match += 0.3
		case ut == "goal-oriented" && conscientiousness > 0.5:
			match += 0.2
		}
	}
	return behavior.Clamp01(match)
}

// contextAppropriateness starts at 0.5 and rewards temporal landmarks for
// fresh starts and planning techniques in emergencies.
func contextAppropriateness(id ID, c behavior.Context) float64 {
	score := 0.5
	if id == FreshStart && isTemporalLandmark(c.Now) {
		score += 0.4
	}
	if (c.EmergencyMode || c.Urgency.IsCrisis()) && (id == MentalContrasting || id == ImplementationIntentions) {
		score += 0.3
	}
	return behavior.Clamp01(score)
}

func isTemporalLandmark(t time.Time) bool {
	if t.IsZero() {
		return false
	}
	return t.Day() == 1 || t.Weekday() == time.Monday
}
