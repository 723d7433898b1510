package pattern

import (
	"sort"

	"github.com/codeGROOVE-dev/orbit/pkg/behavior"
)

// Goals needed for full goal-pattern confidence.
const fullConfidenceGoals = 5.0

type goalResult struct {
	progress   map[behavior.Domain]float64
	preferred  []behavior.Domain
	confidence float64
}

func analyzeGoals(goals []behavior.Goal) goalResult {
	res := goalResult{progress: make(map[behavior.Domain]float64)}
	if len(goals) == 0 {
		return res
	}

	counts := make(map[behavior.Domain]int)
	sums := make(map[behavior.Domain]float64)
	for _, g := range goals {
		d := g.Domain
		if d == "" {
			d = "unknown"
		}
		counts[d]++
		sums[d] += behavior.Clamp01(g.Progress)
	}

	domains := make([]behavior.Domain, 0, len(counts))
	for d, n := range counts {
		res.progress[d] = sums[d] / float64(n)
		domains = append(domains, d)
	}
	sort.Slice(domains, func(i, j int) bool {
		if counts[domains[i]] != counts[domains[j]] {
			return counts[domains[i]] > counts[domains[j]]
		}
		return domains[i] < domains[j]
	})
	if len(domains) > maxReportedBuckets {
		domains = domains[:maxReportedBuckets]
	}
	res.preferred = domains
	res.confidence = behavior.Clamp01(float64(len(goals)) / fullConfidenceGoals)
	return res
}

// extremes returns the best and worst domains by average progress, ties by name.
func (g goalResult) extremes() (best, worst behavior.Domain, ok bool) {
	if len(g.progress) == 0 {
		return "", "", false
	}
	domains := make([]behavior.Domain, 0, len(g.progress))
	for d := range g.progress {
		domains = append(domains, d)
	}
	sort.Slice(domains, func(i, j int) bool {
		if g.progress[domains[i]] != g.progress[domains[j]] {
			return g.progress[domains[i]] > g.progress[domains[j]]
		}
		return domains[i] < domains[j]
	})
	return domains[0], domains[len(domains)-1], true
}

// analyzeContext reports, for each context key seen on enough rated events,
// the compliance rate per observed value.
func (a *Analyzer) analyzeContext(events []behavior.HistoryEvent) map[string]map[string]float64 {
	byKey := make(map[string]map[string]*bucket)
	seen := make(map[string]int)
	for _, e := range events {
		if !e.Rated() {
			continue
		}
		for k, v := range e.Context {
			if v == "" {
				continue
			}
			seen[k]++
			if byKey[k] == nil {
				byKey[k] = make(map[string]*bucket)
			}
			b, ok := byKey[k][v]
			if !ok {
				b = &bucket{}
				byKey[k][v] = b
			}
			b.add(*e.Complied)
		}
	}

	out := make(map[string]map[string]float64)
	for k, values := range byKey {
		if seen[k] < a.minSamples {
			continue
		}
		rates := make(map[string]float64, len(values))
		for v, b := range values {
			rates[v] = b.rate()
		}
		out[k] = rates
	}
	return out
}
