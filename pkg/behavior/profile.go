package behavior

import "time"

// DefaultSuccessRate is assumed for techniques with no recorded history.
const DefaultSuccessRate = 0.5

// DefaultFailureRisk is reported when nothing is known about a user.
const DefaultFailureRisk = 0.2

// Trend values for compliance over time.
const (
	TrendImproving    = "improving"
	TrendDeclining    = "declining"
	TrendStable       = "stable"
	TrendInsufficient = "insufficient_data"
)

// RiskContribution is one named input to the failure-risk combination.
type RiskContribution struct {
	Factor string  `json:"factor"`
	Value  float64 `json:"value"`
}

// RiskBreakdown records how failure risk was assembled.
type RiskBreakdown struct {
	Contributions []RiskContribution `json:"contributions"`
	Sum           float64            `json:"sum"`
	Combined      float64            `json:"combined"`
}

// Insight is an actionable observation drawn from one sub-analysis.
type Insight struct {
	Type       string  `json:"type"`
	Text       string  `json:"insight"`
	Confidence float64 `json:"confidence"`
}

// Profile is the per-user output of pattern analysis.
type Profile struct {
	AnalyzedAt            time.Time                     `json:"analyzed_at"`
	PersonalityTraits     map[string]float64            `json:"personality_traits"`
	DomainOptimalHours    map[Domain][]int              `json:"domain_optimal_hours"`
	TechniqueSuccessRates map[string]float64            `json:"technique_success_rates"`
	DomainCompliance      map[Domain]float64            `json:"domain_compliance,omitempty"`
	HourlyCompliance      map[int]float64               `json:"hourly_compliance,omitempty"`
	HourlyActivity        map[int]int                   `json:"hourly_activity,omitempty"`
	ContextPatterns       map[string]map[string]float64 `json:"context_patterns,omitempty"`
	GoalProgress          map[Domain]float64            `json:"goal_progress,omitempty"`
	UserID                string                        `json:"user_id"`
	MotivationStyle       string                        `json:"motivation_style,omitempty"`
	ComplianceTrend       string                        `json:"compliance_trend"`
	Interactions          []GoalInteraction             `json:"interactions,omitempty"`
	PeakEnergyHours       []int                         `json:"peak_energy_hours,omitempty"`
	PeakActivityHours     []int                         `json:"peak_activity_hours,omitempty"`
	AvoidHours            []int                         `json:"avoid_hours,omitempty"`
	BestDays              []time.Weekday                `json:"best_days,omitempty"`
	PreferredDomains      []Domain                      `json:"preferred_domains,omitempty"`
	Insights              []Insight                     `json:"insights,omitempty"`
	Recommendations       []string                      `json:"recommendations,omitempty"`
	Risk                  RiskBreakdown                 `json:"risk"`
	FailureRisk           float64                       `json:"failure_risk"`
	Confidence            float64                       `json:"confidence"`
	OverallCompliance     float64                       `json:"overall_compliance"`
	RatedEvents           int                           `json:"rated_events"`
}

// SuccessRate returns the recorded compliance for a technique, or
// DefaultSuccessRate when it has never been rated.
func (p *Profile) SuccessRate(technique string) float64 {
	if p == nil {
		return DefaultSuccessRate
	}
	if r, ok := p.TechniqueSuccessRates[technique]; ok {
		return r
	}
	return DefaultSuccessRate
}

// DefaultProfile is the low-confidence profile for users with no usable history.
func DefaultProfile(userID string, traits map[string]float64, now time.Time) *Profile {
	t := make(map[string]float64, len(traits))
	for k, v := range traits {
		t[k] = Clamp01(v)
	}
	return &Profile{
		UserID:                userID,
		AnalyzedAt:            now,
		PersonalityTraits:     t,
		DomainOptimalHours:    map[Domain][]int{},
		TechniqueSuccessRates: map[string]float64{},
		ComplianceTrend:       TrendInsufficient,
		FailureRisk:           DefaultFailureRisk,
		Risk:                  RiskBreakdown{Combined: DefaultFailureRisk},
		Recommendations: []string{
			"Start with simple, consistent actions",
			"Track your progress daily",
		},
	}
}
