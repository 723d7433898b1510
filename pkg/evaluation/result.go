// Package evaluation implements the gate every composed intervention passes
// before delivery. Five dimensions are scored concurrently and combined into a
// risk level and an approval decision. The gate fails closed.
package evaluation

import (
	"fmt"
	"strings"
)

// Dimension names one of the five quality axes.
type Dimension string

// Dimensions, in reporting order.
const (
	DimensionSafety     Dimension = "safety"
	DimensionRelevance  Dimension = "relevance"
	DimensionAccuracy   Dimension = "accuracy"
	DimensionSuccess    Dimension = "success_probability"
	DimensionEngagement Dimension = "engagement"
)

const (
	numDimensions        = 5
	degradedConfidence   = 0.3
	recommendationCutoff = 0.8
	modificationCutoff   = 0.6
	maxRecommendations   = 5
)

// FactorParsingFailed marks a dimension that fell back to its conservative default.
const FactorParsingFailed = "evaluation_parsing_failed"

// FactorScoredOffline marks a dimension whose reply came from a local
// stand-in rather than a generation service.
const FactorScoredOffline = "scored_offline"

var dimensions = [numDimensions]Dimension{
	DimensionSafety, DimensionRelevance, DimensionAccuracy, DimensionSuccess, DimensionEngagement,
}

// degradedScore is the conservative default per dimension. Safety is never
// above any other dimension's default.
var degradedScore = map[Dimension]float64{
	DimensionSafety:     0.5,
	DimensionRelevance:  0.5,
	DimensionAccuracy:   0.6,
	DimensionSuccess:    0.6,
	DimensionEngagement: 0.6,
}

// RiskLevel is the discrete classification used to gate approval.
type RiskLevel string

// Risk levels.
const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Severity orders risk levels from low (0) to critical (3).
func (r RiskLevel) Severity() int {
	switch r {
	case RiskLow:
		return 0
	case RiskMedium:
		return 1
	case RiskHigh:
		return 2
	default:
		return 3
	}
}

// DimensionScore is one scorer's verdict. Score and Confidence lie in [0,1].
type DimensionScore struct {
	Dimension   Dimension `json:"dimension"`
	Reasoning   string    `json:"reasoning"`
	RiskFactors []string  `json:"risk_factors"`
	Score       float64   `json:"score"`
	Confidence  float64   `json:"confidence"`
	Degraded    bool      `json:"degraded,omitempty"`
}

func degraded(d Dimension, reason string) DimensionScore {
	return DimensionScore{
		Dimension:   d,
		Score:       degradedScore[d],
		Confidence:  degradedConfidence,
		Reasoning:   reason,
		RiskFactors: []string{FactorParsingFailed},
		Degraded:    true,
	}
}

// Result is the complete outcome of one evaluation. It is never partial.
type Result struct {
	Safety                DimensionScore `json:"safety_score"`
	Relevance             DimensionScore `json:"relevance_score"`
	Accuracy              DimensionScore `json:"accuracy_score"`
	SuccessProbability    DimensionScore `json:"success_probability"`
	Engagement            DimensionScore `json:"engagement"`
	RiskLevel             RiskLevel      `json:"risk_level"`
	Recommendations       []string       `json:"recommendations"`
	RequiredModifications []string       `json:"required_modifications"`
	OverallScore          float64        `json:"overall_score"`
	Approved              bool           `json:"approved"`
	AllDegraded           bool           `json:"all_degraded,omitempty"`
}

// Scores returns the five dimension scores in reporting order.
func (r *Result) Scores() []DimensionScore {
	return []DimensionScore{r.Safety, r.Relevance, r.Accuracy, r.SuccessProbability, r.Engagement}
}

// Summary is a one-line description for logs and terminals.
func (r *Result) Summary() string {
	verdict := "rejected"
	if r.Approved {
		verdict = "approved"
	}
	return fmt.Sprintf("%s: overall %.2f, safety %.2f, risk %s", verdict, r.OverallScore, r.Safety.Score, r.RiskLevel)
}

// Weights of each dimension in the overall score.
type Weights struct {
	Safety     float64 `yaml:"safety"`
	Relevance  float64 `yaml:"relevance"`
	Accuracy   float64 `yaml:"accuracy"`
	Success    float64 `yaml:"success_probability"`
	Engagement float64 `yaml:"engagement"`
}

// DefaultWeights puts a quarter of the overall score on safety.
func DefaultWeights() Weights {
	return Weights{Safety: 0.25, Relevance: 0.20, Accuracy: 0.20, Success: 0.20, Engagement: 0.15}
}

// Sum returns the total weight.
func (w Weights) Sum() float64 {
	return w.Safety + w.Relevance + w.Accuracy + w.Success + w.Engagement
}

// Overall returns the weighted mean of the five scores.
func (w Weights) Overall(safety, relevance, accuracy, success, engagement float64) float64 {
	total := w.Sum()
	if total <= 0 {
		return 0
	}
	sum := w.Safety*safety + w.Relevance*relevance + w.Accuracy*accuracy + w.Success*success + w.Engagement*engagement
	return sum / total
}

// Thresholds for approval.
type Thresholds struct {
	Safety  float64 `yaml:"safety"`
	Overall float64 `yaml:"overall"`
}

// DefaultThresholds returns safety 0.8 and overall 0.7.
func DefaultThresholds() Thresholds {
	return Thresholds{Safety: 0.8, Overall: 0.7}
}

// Approve applies the approval rule. Safety is a hard veto.
func (t Thresholds) Approve(safety, overall float64, risk RiskLevel) bool {
	if safety < t.Safety {
		return false
	}
	if overall < t.Overall {
		return false
	}
	return risk != RiskCritical
}

// ClassifyRisk maps the safety and overall scores to a risk level.
func ClassifyRisk(safety, overall float64) RiskLevel {
	switch {
	case safety < 0.6 || overall < 0.4:
		return RiskCritical
	case safety < 0.8 || overall < 0.6:
		return RiskHigh
	case safety < 0.9 || overall < 0.8:
		return RiskMedium
	default:
		return RiskLow
	}
}

func recommendations(scores []DimensionScore) []string {
	out := []string{}
	for _, s := range scores {
		if s.Score >= recommendationCutoff {
			continue
		}
		switch s.Dimension {
		case DimensionSafety:
			factors := s.RiskFactors
			if len(factors) > 2 {
				factors = factors[:2]
			}
			if len(factors) == 0 {
				out = append(out, "Improve safety by removing anything that could cause harm")
				continue
			}
			out = append(out, "Improve safety by addressing: "+strings.Join(factors, ", "))
		case DimensionRelevance:
			out = append(out, "Enhance personalization and context awareness")
		case DimensionAccuracy:
			out = append(out, "Verify factual claims and add credible sources")
		case DimensionSuccess:
			out = append(out, "Apply stronger behavioral science techniques")
		case DimensionEngagement:
			out = append(out, "Improve tone and emotional appeal")
		}
	}
	if len(out) > maxRecommendations {
		out = out[:maxRecommendations]
	}
	return out
}

func requiredModifications(scores []DimensionScore) []string {
	out := []string{}
	for _, s := range scores {
		if s.Score >= modificationCutoff {
			continue
		}
		switch s.Dimension {
		case DimensionSafety:
			out = append(out, "CRITICAL: Remove all safety risks before resubmission")
		case DimensionRelevance:
			out = append(out, "REQUIRED: Improve alignment with user goals and context")
		case DimensionAccuracy:
			out = append(out, "REQUIRED: Verify and correct all factual claims")
		case DimensionSuccess:
			out = append(out, "REQUIRED: Make the action smaller and easier to start")
		case DimensionEngagement:
			out = append(out, "REQUIRED: Rewrite with a clearer, more supportive tone")
		}
	}
	return out
}
