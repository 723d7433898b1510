package evaluation

import (
	_ "embed"
	"fmt"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/codeGROOVE-dev/orbit/pkg/behavior"
)

//go:embed rules.yaml
var embeddedRules []byte

// Rules holds the deterministic checks that run next to the generated
// assessments.
type Rules struct {
	Safety    SafetyRules    `yaml:"safety"`
	Relevance RelevanceRules `yaml:"relevance"`
}

// SafetyRules penalize red-flag terms and missing disclaimers.
type SafetyRules struct {
	HarmfulKeywords []string         `yaml:"harmful_keywords"`
	Disclaimers     []DisclaimerRule `yaml:"disclaimers"`
	BaseScore       float64          `yaml:"base_score"`
	Confidence      float64          `yaml:"confidence"`
	KeywordPenalty  float64          `yaml:"keyword_penalty"`
}

// DisclaimerRule applies to one domain: each advice term present without any
// disclaimer term costs Penalty.
type DisclaimerRule struct {
	Domain          behavior.Domain `yaml:"domain"`
	Factor          string          `yaml:"factor"`
	Terms           []string        `yaml:"terms"`
	DisclaimerTerms []string        `yaml:"disclaimer_terms"`
	Penalty         float64         `yaml:"penalty"`
}

// RelevanceRules score how well a candidate's domain matches the goal set.
type RelevanceRules struct {
	BaseScore      float64 `yaml:"base_score"`
	GoalMatchBonus float64 `yaml:"goal_match_bonus"`
}

// ParseRules decodes a YAML rule set.
func ParseRules(data []byte) (*Rules, error) {
	var r Rules
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parsing evaluation rules: %w", err)
	}
	if r.Safety.BaseScore <= 0 || r.Safety.BaseScore > 1 {
		return nil, fmt.Errorf("safety base_score %.2f out of range", r.Safety.BaseScore)
	}
	for i, kw := range r.Safety.HarmfulKeywords {
		r.Safety.HarmfulKeywords[i] = strings.ToLower(kw)
	}
	return &r, nil
}

// DefaultRules returns the built-in rule set.
func DefaultRules() *Rules {
	r, err := ParseRules(embeddedRules)
	if err != nil {
		panic(err)
	}
	return r
}

// SafetyCheck is the outcome of the rule-based safety pass.
type SafetyCheck struct {
	RiskFactors []string
	Score       float64
	Confidence  float64
}

// CheckSafety scores content against the safety rules.
func (r *Rules) CheckSafety(content string, domain behavior.Domain) SafetyCheck {
	lower := strings.ToLower(content)
	check := SafetyCheck{Score: r.Safety.BaseScore, Confidence: r.Safety.Confidence}

	for _, kw := range r.Safety.HarmfulKeywords {
		if strings.Contains(lower, kw) {
			check.RiskFactors = append(check.RiskFactors, "contains_keyword_"+kw)
			check.Score -= r.Safety.KeywordPenalty
		}
	}

	for _, rule := range r.Safety.Disclaimers {
		if rule.Domain != domain {
			continue
		}
		if slices.ContainsFunc(rule.DisclaimerTerms, func(t string) bool {
			return strings.Contains(lower, strings.ToLower(t))
		}) {
			continue
		}
		for _, term := range rule.Terms {
			if !strings.Contains(lower, strings.ToLower(term)) {
				continue
			}
			if !slices.Contains(check.RiskFactors, rule.Factor) {
				check.RiskFactors = append(check.RiskFactors, rule.Factor)
			}
			check.Score -= rule.Penalty
		}
	}

	check.Score = behavior.Clamp01(check.Score)
	return check
}

// ContextRelevance reports whether the candidate's domain matches an active goal.
func (r *Rules) ContextRelevance(domain behavior.Domain, c behavior.Context) float64 {
	score := r.Relevance.BaseScore
	if slices.Contains(c.ActiveDomains(), domain) {
		score += r.Relevance.GoalMatchBonus
	}
	return behavior.Clamp01(score)
}
