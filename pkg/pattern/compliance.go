package pattern

import (
	"github.com/codeGROOVE-dev/orbit/pkg/behavior"
)

// Rated events needed before a trend is computed.
const minTrendEvents = 5

type complianceResult struct {
	domain     map[behavior.Domain]float64
	technique  map[string]float64
	trend      string
	overall    float64
	confidence float64
	rated      int
}

func (a *Analyzer) analyzeCompliance(events []behavior.HistoryEvent) complianceResult {
	res := complianceResult{
		domain:    make(map[behavior.Domain]float64),
		technique: make(map[string]float64),
		trend:     behavior.TrendInsufficient,
	}

	var all bucket
	byDomain := make(map[behavior.Domain]*bucket)
	byTechnique := make(map[string]*bucket)
	var outcomes []bool

	for _, e := range events {
		if !e.Rated() {
			continue
		}
		c := *e.Complied
		all.add(c)
		outcomes = append(outcomes, c)
		if e.Domain != "" {
			if byDomain[e.Domain] == nil {
				byDomain[e.Domain] = &bucket{}
			}
			byDomain[e.Domain].add(c)
		}
		if e.Technique != "" {
			if byTechnique[e.Technique] == nil {
				byTechnique[e.Technique] = &bucket{}
			}
			byTechnique[e.Technique].add(c)
		}
	}

	res.rated = all.total
	if all.total == 0 {
		return res
	}

	res.overall = all.rate()
	for d, b := range byDomain {
		if b.total >= a.minSamples {
			res.domain[d] = b.rate()
		}
	}
	for id, b := range byTechnique {
		if b.total >= a.minSamples {
			res.technique[id] = b.rate()
		}
	}
	res.trend = complianceTrend(outcomes)
	res.confidence = behavior.Clamp01(float64(all.total) / fullConfidenceEvents)
	return res
}

// complianceTrend compares the first and second half of rolling compliance
// rates over time-ordered outcomes.
func complianceTrend(outcomes []bool) string {
	if len(outcomes) < minTrendEvents {
		return behavior.TrendInsufficient
	}
	window := min(5, len(outcomes)/2)

	var rolling []float64
	for i := 0; i+window <= len(outcomes); i++ {
		var b bucket
		for _, c := range outcomes[i : i+window] {
			b.add(c)
		}
		rolling = append(rolling, b.rate())
	}
	if len(rolling) < 2 {
		return behavior.TrendInsufficient
	}

	half := len(rolling) / 2
	first := behavior.Mean(rolling[:half])
	second := behavior.Mean(rolling[half:])
	switch {
	case second > first+0.1:
		return behavior.TrendImproving
	case second < first-0.1:
		return behavior.TrendDeclining
	default:
		return behavior.TrendStable
	}
}
