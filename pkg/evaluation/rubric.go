package evaluation

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/codeGROOVE-dev/orbit/pkg/behavior"
	"github.com/codeGROOVE-dev/orbit/pkg/llm"
	"github.com/codeGROOVE-dev/orbit/pkg/technique"
)

// rubric describes how one dimension asks for and reads an assessment.
type rubric struct {
	dimension Dimension
	system    string
	task      string
	criteria  []string
	scoreKey  string
	factorKey string
	extraKeys []string
}

var rubrics = map[Dimension]rubric{
	DimensionSafety: {
		dimension: DimensionSafety,
		system:    "You are a safety evaluation expert. Be thorough and conservative in your assessment.",
		task:      "Evaluate the safety of this intervention on a scale of 0.0 to 1.0.",
		criteria: []string{
			"Physical Safety: Could this cause physical harm?",
			"Mental Health: Could this negatively impact mental wellbeing?",
			"Financial Safety: Could this cause financial harm?",
			"Privacy: Does this respect user privacy?",
			"Ethical Considerations: Is this ethically appropriate?",
		},
		scoreKey:  "safety_score",
		factorKey: "risk_factors",
	},
	DimensionRelevance: {
		dimension: DimensionRelevance,
		system:    "You are a relevance evaluation expert. Consider context, timing, and personalization.",
		task:      "Evaluate how relevant this intervention is to the user's current situation.",
		criteria: []string{
			"Goal Alignment: How well does this align with the user's goals?",
			"Timing: Is this appropriately timed?",
			"Context Awareness: Does this consider the user's current situation?",
			"Personalization: Is this personalized to the user?",
			"Priority: Is this addressing the right priority level?",
		},
		scoreKey:  "relevance_score",
		factorKey: "misalignment_factors",
		extraKeys: []string{"alignment_factors"},
	},
	DimensionAccuracy: {
		dimension: DimensionAccuracy,
		system:    "You are a fact-checking expert. Be rigorous about accuracy and truthfulness.",
		task:      "Evaluate the accuracy and truthfulness of this intervention.",
		criteria: []string{
			"Factual Correctness: Are any factual claims accurate?",
			"No Hallucinations: Is the information made up or speculative?",
			"Source Reliability: Are any referenced sources credible?",
			"Consistency: Is the information internally consistent?",
			"Currency: Is the information up-to-date?",
		},
		scoreKey:  "accuracy_score",
		factorKey: "questionable_claims",
		extraKeys: []string{"verified_claims"},
	},
	DimensionSuccess: {
		dimension: DimensionSuccess,
		system:    "You are a behavioral prediction expert. Consider psychology and past patterns.",
		task:      "Predict the probability that the user will successfully follow this intervention.",
		criteria: []string{
			"Behavioral Science: Does this use proven behavior change techniques?",
			"User History: How has the user responded to similar interventions?",
			"Difficulty Level: Is this appropriately challenging but achievable?",
			"Motivation Alignment: Does this align with the user's intrinsic motivation?",
			"Environmental Factors: Are there barriers or enablers in the environment?",
		},
		scoreKey:  "success_probability",
		factorKey: "barrier_factors",
		extraKeys: []string{"success_factors"},
	},
	DimensionEngagement: {
		dimension: DimensionEngagement,
		system:    "You are a user experience expert. Focus on engagement and emotional impact.",
		task:      "Evaluate the engagement quality and user experience of this intervention.",
		criteria: []string{
			"Tone Appropriateness: Is the tone suitable for the user and situation?",
			"Clarity: Is the message clear and easy to understand?",
			"Motivation: Is this motivating and inspiring?",
			"Cognitive Load: Is this easy to process mentally?",
			"Emotional Impact: Will this create a positive emotional response?",
		},
		scoreKey:  "engagement_score",
		factorKey: "negative_factors",
		extraKeys: []string{"positive_factors"},
	},
}

// prompt renders the request for one dimension. extra is appended verbatim
// before the criteria.
func (r rubric) prompt(cand technique.Candidate, c behavior.Context, extra string) string {
	var sb strings.Builder
	sb.WriteString(r.task)
	sb.WriteString("\n\nINTERVENTION:\n")
	fmt.Fprintf(&sb, "Domain: %s\n", cand.Domain)
	fmt.Fprintf(&sb, "Technique: %s\n", cand.Technique)
	fmt.Fprintf(&sb, "Content: %s\n", cand.Content)
	sb.WriteString("\nUSER CONTEXT:\n")
	sb.WriteString(contextPrompt(c))
	if extra != "" {
		sb.WriteString("\n")
		sb.WriteString(extra)
		sb.WriteString("\n")
	}
	sb.WriteString("\nCRITERIA:\n")
	for i, line := range r.criteria {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, line)
	}
	sb.WriteString("\nRespond with JSON only:\n{\n")
	fmt.Fprintf(&sb, "  %q: 0.0-1.0,\n", r.scoreKey)
	sb.WriteString("  \"reasoning\": \"detailed explanation\",\n")
	for _, k := range r.extraKeys {
		fmt.Fprintf(&sb, "  %q: [\"list\"],\n", k)
	}
	fmt.Fprintf(&sb, "  %q: [\"list\"],\n", r.factorKey)
	sb.WriteString("  \"confidence\": 0.0-1.0\n}\n")
	return sb.String()
}

func contextPrompt(c behavior.Context) string {
	var sb strings.Builder
	if !c.Now.IsZero() {
		fmt.Fprintf(&sb, "Local time: %s\n", c.Now.Format("Monday 15:04"))
	}
	if c.Urgency != "" {
		fmt.Fprintf(&sb, "Urgency: %s\n", c.Urgency)
	}
	if c.CurrentEnergy != "" {
		fmt.Fprintf(&sb, "Energy: %s\n", c.CurrentEnergy)
	}
	if c.EmergencyMode {
		sb.WriteString("Emergency mode: on\n")
	}
	if len(c.ActiveGoals) == 0 {
		sb.WriteString("Active goals: none\n")
	} else {
		sb.WriteString("Active goals:\n")
		for _, g := range c.ActiveGoals {
			if !g.Active() {
				continue
			}
			name := g.Title
			if name == "" {
				name = string(g.Domain)
			}
			fmt.Fprintf(&sb, "- %s (%s, %.0f%% complete)\n", name, g.Domain, g.Progress*100)
		}
	}
	return sb.String()
}

// assessment is a successfully parsed reply.
type assessment struct {
	Reasoning   string
	RiskFactors []string
	Score       float64
	Confidence  float64
	Degraded    bool
}

var errOutOfRange = errors.New("value outside [0,1]")

// parse reads a reply with the rubric's schema. Any missing key or
// out-of-range value is a parse failure.
func (r rubric) parse(reply string) (assessment, error) {
	var fields map[string]json.RawMessage
	if err := llm.DecodeJSON(reply, &fields); err != nil {
		return assessment{}, err
	}
	score, err := unitField(fields, r.scoreKey)
	if err != nil {
		return assessment{}, err
	}
	confidence, err := unitField(fields, "confidence")
	if err != nil {
		return assessment{}, err
	}
	a := assessment{Score: score, Confidence: confidence}
	if raw, ok := fields["reasoning"]; ok {
		if err := json.Unmarshal(raw, &a.Reasoning); err != nil {
			return assessment{}, fmt.Errorf("reasoning: %w", err)
		}
	}
	if raw, ok := fields["degraded"]; ok {
		if err := json.Unmarshal(raw, &a.Degraded); err != nil {
			return assessment{}, fmt.Errorf("degraded: %w", err)
		}
	}
	if raw, ok := fields[r.factorKey]; ok && string(raw) != "null" {
		if err := json.Unmarshal(raw, &a.RiskFactors); err != nil {
			return assessment{}, fmt.Errorf("%s: %w", r.factorKey, err)
		}
	}
	return a, nil
}

func unitField(fields map[string]json.RawMessage, key string) (float64, error) {
	raw, ok := fields[key]
	if !ok {
		return 0, fmt.Errorf("missing key %q", key)
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if v < 0 || v > 1 {
		return 0, fmt.Errorf("%s=%v: %w", key, v, errOutOfRange)
	}
	return v, nil
}
