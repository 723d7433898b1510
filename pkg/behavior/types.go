// Package behavior holds the data model shared by the analyzer, the technique
// selector and the evaluation gate.
package behavior

import (
	"strings"
	"time"
)

// Domain is a goal area such as health or finance.
type Domain string

// Known goal domains.
const (
	Health       Domain = "health"
	Productivity Domain = "productivity"
	Learning     Domain = "learning"
	Finance      Domain = "finance"
	Social       Domain = "social"
)

// Energy is a self-reported energy level. The zero value means no reading.
type Energy string

// Energy levels.
const (
	EnergyLow    Energy = "low"
	EnergyMedium Energy = "medium"
	EnergyHigh   Energy = "high"
)

// Level maps an energy reading onto 1..3. Unknown strings count as medium.
func (e Energy) Level() (float64, bool) {
	switch Energy(strings.ToLower(string(e))) {
	case "":
		return 0, false
	case EnergyLow:
		return 1, true
	case EnergyHigh:
		return 3, true
	default:
		return 2, true
	}
}

// IsLow reports whether the reading is "low", ignoring case.
func (e Energy) IsLow() bool {
	return strings.EqualFold(string(e), string(EnergyLow))
}

// Urgency flags how pressing a request is.
type Urgency string

// Urgency values.
const (
	UrgencyLow      Urgency = "low"
	UrgencyNormal   Urgency = "normal"
	UrgencyHigh     Urgency = "high"
	UrgencyCritical Urgency = "critical"
)

// IsCrisis reports whether selection should switch to the crisis pool.
func (u Urgency) IsCrisis() bool {
	return u == UrgencyHigh || u == UrgencyCritical
}

// HistoryEvent is one logged fact about a user. Events are append-only.
type HistoryEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	Context   map[string]string `json:"context,omitempty"`
	Complied  *bool             `json:"complied,omitempty"`
	Domain    Domain            `json:"domain"`
	Technique string            `json:"technique_id,omitempty"`
	Energy    Energy            `json:"energy_level,omitempty"`
	Kind      string            `json:"kind,omitempty"`
}

// Rated reports whether the event carries a compliance outcome.
func (e HistoryEvent) Rated() bool {
	return e.Complied != nil
}

// Event kinds written back by the engine.
const (
	KindResponse  = "intervention_response"
	KindDelivered = "intervention_delivered"
	KindRejected  = "intervention_rejected"
)

// Goal is an entry of the caller's active goal set.
type Goal struct {
	CreatedDate time.Time `json:"created_date"`
	ID          string    `json:"id,omitempty"`
	Title       string    `json:"title,omitempty"`
	Domain      Domain    `json:"domain" validate:"required"`
	Status      string    `json:"status,omitempty"`
	Progress    float64   `json:"progress" validate:"gte=0,lte=1"`
}

// Active reports whether the goal counts toward the user's current load.
// An empty status is treated as active.
func (g Goal) Active() bool {
	return g.Status == "" || strings.EqualFold(g.Status, "active")
}

// AgeDays returns whole days between creation and now, or 0 when unknown.
func (g Goal) AgeDays(now time.Time) int {
	if g.CreatedDate.IsZero() || now.Before(g.CreatedDate) {
		return 0
	}
	return int(now.Sub(g.CreatedDate).Hours() / 24)
}

// Context is the live situation an intervention is composed for.
type Context struct {
	Now           time.Time         `json:"now"`
	Signals       map[string]string `json:"signals,omitempty"`
	Urgency       Urgency           `json:"urgency,omitempty" validate:"omitempty,oneof=low normal high critical"`
	CurrentEnergy Energy            `json:"current_energy,omitempty" validate:"omitempty,oneof=low medium high"`
	ActiveGoals   []Goal            `json:"active_goals,omitempty" validate:"dive"`
	EmergencyMode bool              `json:"emergency_mode,omitempty"`
}

// ActiveDomains returns the distinct domains of active goals in first-seen order.
func (c Context) ActiveDomains() []Domain {
	seen := make(map[Domain]bool, len(c.ActiveGoals))
	var out []Domain
	for _, g := range c.ActiveGoals {
		if !g.Active() || seen[g.Domain] {
			continue
		}
		seen[g.Domain] = true
		out = append(out, g.Domain)
	}
	return out
}

// InteractionType classifies how two goal domains affect each other.
type InteractionType string

// Interaction types.
const (
	Synergistic InteractionType = "synergistic"
	Competing   InteractionType = "competing"
	Neutral     InteractionType = "neutral"
)

// GoalInteraction is derived on demand from the goal set. Impact lies in [-1,1].
type GoalInteraction struct {
	SourceDomain   Domain          `json:"source_domain"`
	TargetDomain   Domain          `json:"target_domain"`
	Type           InteractionType `json:"interaction_type"`
	Recommendation string          `json:"recommendation"`
	Impact         float64         `json:"impact_score"`
}
