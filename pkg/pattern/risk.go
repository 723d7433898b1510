package pattern

import (
	"math"
	"time"

	"github.com/codeGROOVE-dev/orbit/pkg/behavior"
)

// Failure-risk contributions. These are research-grade intuitions, not a
// calibrated model, and are expected to be tuned.
const (
	riskLowCompliance      = 0.4
	riskMediumCompliance   = 0.2
	riskGoalOverload       = 0.3
	riskGoalLoad           = 0.1
	riskPerStagnantGoal    = 0.15
	riskStagnantCap        = 0.4
	riskLowActivity        = 0.25
	riskLowEnergy          = 0.15
	stagnantProgress       = 0.2
	stagnantAgeDays        = 30
	minRecentEvents        = 5
	minFailureRisk         = 0.05
	maxFailureRisk         = 0.95
	lowComplianceCutoff    = 0.4
	mediumComplianceCutoff = 0.6
)

// Risk factor names reported in behavior.RiskBreakdown.
const (
	FactorLowCompliance    = "low_compliance"
	FactorMediumCompliance = "medium_compliance"
	FactorGoalOverload     = "goal_overload"
	FactorGoalLoad         = "goal_load"
	FactorStagnantGoals    = "stagnant_goals"
	FactorLowActivity      = "low_recent_activity"
	FactorLowEnergy        = "low_energy"
)

// CombineRisk merges independent contributions sub-additively as
// 1 - sqrt(1 - min(1, sum)), bounded to [0.05, 0.95]. With no contributions
// the base risk is returned.
func CombineRisk(contributions []float64) float64 {
	if len(contributions) == 0 {
		return behavior.DefaultFailureRisk
	}
	var sum float64
	for _, c := range contributions {
		sum += c
	}
	sum = behavior.Clamp01(sum)
	return behavior.Clamp(1-math.Sqrt(1-sum), minFailureRisk, maxFailureRisk)
}

func (a *Analyzer) assessRisk(c complianceResult, goals []behavior.Goal, events []behavior.HistoryEvent, energy behavior.Energy, now time.Time) behavior.RiskBreakdown {
	var contributions []behavior.RiskContribution
	add := func(factor string, v float64) {
		contributions = append(contributions, behavior.RiskContribution{Factor: factor, Value: v})
	}

	if c.rated > 0 {
		switch {
		case c.overall < lowComplianceCutoff:
			add(FactorLowCompliance, riskLowCompliance)
		case c.overall < mediumComplianceCutoff:
			add(FactorMediumCompliance, riskMediumCompliance)
		}
	}

	active, stagnant := 0, 0
	for _, g := range goals {
		if !g.Active() {
			continue
		}
		active++
		if g.Progress < stagnantProgress && g.AgeDays(now) > stagnantAgeDays {
			stagnant++
		}
	}
	switch {
	case active > 5:
		add(FactorGoalOverload, riskGoalOverload)
	case active > 3:
		add(FactorGoalLoad, riskGoalLoad)
	}
	if stagnant > 0 {
		add(FactorStagnantGoals, math.Min(riskStagnantCap, float64(stagnant)*riskPerStagnantGoal))
	}

	cutoff := now.Add(-a.recentWindow)
	recent := 0
	for _, e := range events {
		if !e.Timestamp.Before(cutoff) {
			recent++
		}
	}
	if recent < minRecentEvents {
		add(FactorLowActivity, riskLowActivity)
	}

	if energy.IsLow() {
		add(FactorLowEnergy, riskLowEnergy)
	}

	values := make([]float64, len(contributions))
	var sum float64
	for i, rc := range contributions {
		values[i] = rc.Value
		sum += rc.Value
	}
	return behavior.RiskBreakdown{
		Contributions: contributions,
		Sum:           sum,
		Combined:      CombineRisk(values),
	}
}
