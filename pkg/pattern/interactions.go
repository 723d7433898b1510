package pattern

import (
	"fmt"
	"sort"

	"github.com/codeGROOVE-dev/orbit/pkg/behavior"
)

// neutralImpact is used for domain pairs missing from the interaction table.
const neutralImpact = 0.1

type domainPair struct {
	a, b behavior.Domain
}

type interactionRule struct {
	kind           behavior.InteractionType
	recommendation string
	impact         float64
}

// interactionTable is read-only after init. Competing pairs store a positive
// magnitude; the sign is applied on lookup.
var interactionTable = map[domainPair]interactionRule{
	{behavior.Health, behavior.Productivity}: {
		kind:           behavior.Synergistic,
		impact:         0.7,
		recommendation: "Exercise boosts cognitive performance. Schedule workouts before important work.",
	},
	{behavior.Health, behavior.Finance}: {
		kind:           behavior.Competing,
		impact:         0.4,
		recommendation: "Gym memberships and healthy food cost money. Budget for health investments.",
	},
	{behavior.Productivity, behavior.Learning}: {
		kind:           behavior.Synergistic,
		impact:         0.8,
		recommendation: "Learning new skills enhances productivity. Combine learning with work projects.",
	},
	{behavior.Finance, behavior.Social}: {
		kind:           behavior.Competing,
		impact:         0.5,
		recommendation: "Social activities often involve spending. Plan budget-friendly social activities.",
	},
	{behavior.Health, behavior.Social}: {
		kind:           behavior.Synergistic,
		impact:         0.6,
		recommendation: "Social fitness activities combine both goals. Join group fitness classes.",
	},
	{behavior.Learning, behavior.Social}: {
		kind:           behavior.Synergistic,
		impact:         0.5,
		recommendation: "Study groups keep learning on track. Pair up with a friend who shares the goal.",
	},
	{behavior.Productivity, behavior.Social}: {
		kind:           behavior.Competing,
		impact:         0.3,
		recommendation: "Deep work blocks compete with social time. Protect focus hours and plan social time after them.",
	},
}

// LookupInteraction returns the interaction between two different domains.
// Pairs missing from the table are neutral with a small positive impact.
func LookupInteraction(source, target behavior.Domain) behavior.GoalInteraction {
	rule, ok := interactionTable[domainPair{source, target}]
	if !ok {
		rule, ok = interactionTable[domainPair{target, source}]
	}
	if !ok {
		return behavior.GoalInteraction{
			SourceDomain:   source,
			TargetDomain:   target,
			Type:           behavior.Neutral,
			Impact:         neutralImpact,
			Recommendation: fmt.Sprintf("Monitor how %s and %s goals affect each other.", source, target),
		}
	}

	impact := rule.impact
	if rule.kind == behavior.Competing {
		impact = -impact
	}
	return behavior.GoalInteraction{
		SourceDomain:   source,
		TargetDomain:   target,
		Type:           rule.kind,
		Impact:         behavior.Clamp(impact, -1, 1),
		Recommendation: rule.recommendation,
	}
}

// Interactions evaluates every unordered pair of distinct active goal domains.
// The second value is the share of pairs found in the interaction table.
func Interactions(goals []behavior.Goal) ([]behavior.GoalInteraction, float64) {
	seen := make(map[behavior.Domain]bool)
	var domains []behavior.Domain
	for _, g := range goals {
		if !g.Active() || g.Domain == "" || seen[g.Domain] {
			continue
		}
		seen[g.Domain] = true
		domains = append(domains, g.Domain)
	}
	sort.Slice(domains, func(i, j int) bool { return domains[i] < domains[j] })

	var out []behavior.GoalInteraction
	known := 0
	for i := range domains {
		for j := i + 1; j < len(domains); j++ {
			gi := LookupInteraction(domains[i], domains[j])
			if gi.Type != behavior.Neutral {
				known++
			}
			out = append(out, gi)
		}
	}
	if len(out) == 0 {
		return nil, 0
	}
	return out, float64(known) / float64(len(out))
}
