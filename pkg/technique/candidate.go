package technique

import "github.com/codeGROOVE-dev/orbit/pkg/behavior"

// Candidate is a composed intervention. The evaluation gate reads it and never
// modifies it; evaluation produces a separate record.
type Candidate struct {
	Metadata           Metadata        `json:"metadata"`
	Domain             behavior.Domain `json:"domain"`
	Content            string          `json:"content"`
	ExpectedCompliance float64         `json:"expected_compliance"`
	Technique          ID              `json:"technique_id"`
}

// Metadata carries the selection rationale and delivery hints.
type Metadata struct {
	FollowUp               FollowUp `json:"follow_up_strategy"`
	GoalID                 string   `json:"goal_id,omitempty"`
	GoalTitle              string   `json:"goal_title,omitempty"`
	Description            string   `json:"description"`
	Citations              []string `json:"research_basis"`
	PersonalizationFactors []string `json:"personalization_factors,omitempty"`
	Ranking                []Score  `json:"ranking"`
	Timing                 Timing   `json:"timing_recommendation"`
	SelectionScore         float64  `json:"selection_score"`
	Effectiveness          float64  `json:"effectiveness_score"`
	Crisis                 bool     `json:"crisis"`
}

// Timing recommends when to deliver an intervention.
type Timing struct {
	Reasoning    string   `json:"timing_reasoning"`
	OptimalHours []int    `json:"optimal_hours"`
	AvoidHours   []int    `json:"avoid_hours"`
	BestDays     []string `json:"best_days"`
}

// FollowUp describes how to check in after delivery.
type FollowUp struct {
	Timing        string `json:"follow_up_timing"`
	Type          string `json:"follow_up_type"`
	Escalation    string `json:"escalation_strategy"`
	Reinforcement string `json:"success_reinforcement"`
}
