package pattern

import (
	"fmt"

	"github.com/codeGROOVE-dev/orbit/pkg/behavior"
)

// Sub-analyses must exceed this confidence before they produce insights.
const insightConfidence = 0.6

// Insight types.
const (
	InsightOptimalTiming         = "optimal_timing"
	InsightComplianceImprovement = "compliance_improvement"
	InsightComplianceSuccess     = "compliance_success"
	InsightEnergyOptimization    = "energy_optimization"
	InsightDomainPerformance     = "domain_performance"
)

func insights(t temporalResult, c complianceResult, e energyResult, g goalResult, peakHours []int) []behavior.Insight {
	var out []behavior.Insight

	if t.confidence > insightConfidence && len(peakHours) > 0 {
		out = append(out, behavior.Insight{
			Type:       InsightOptimalTiming,
			Text:       fmt.Sprintf("You're most active during hours %v. Schedule important tasks during these times.", peakHours),
			Confidence: t.confidence,
		})
	}

	if c.confidence > insightConfidence {
		switch {
		case c.overall < mediumComplianceCutoff:
			out = append(out, behavior.Insight{
				Type:       InsightComplianceImprovement,
				Text:       fmt.Sprintf("Your compliance rate is %.1f%%. Consider reducing intervention difficulty or frequency.", c.overall*100),
				Confidence: c.confidence,
			})
		case c.overall > 0.8:
			out = append(out, behavior.Insight{
				Type:       InsightComplianceSuccess,
				Text:       fmt.Sprintf("Excellent compliance rate of %.1f%%! You might be ready for more challenging goals.", c.overall*100),
				Confidence: c.confidence,
			})
		}
	}

	if e.confidence > insightConfidence && len(e.peakHours) > 0 {
		out = append(out, behavior.Insight{
			Type:       InsightEnergyOptimization,
			Text:       fmt.Sprintf("Your energy peaks during hours %v. Schedule demanding tasks then.", e.peakHours),
			Confidence: e.confidence,
		})
	}

	if g.confidence > insightConfidence {
		if best, worst, ok := g.extremes(); ok && g.progress[best]-g.progress[worst] > 0.3 {
			out = append(out, behavior.Insight{
				Type: InsightDomainPerformance,
				Text: fmt.Sprintf("You excel in %s (%.1f%%) but struggle with %s (%.1f%%). Consider applying successful strategies across domains.",
					best, g.progress[best]*100, worst, g.progress[worst]*100),
				Confidence: g.confidence,
			})
		}
	}

	return out
}

func recommendations(in []behavior.Insight) []string {
	var out []string
	for _, i := range in {
		switch i.Type {
		case InsightOptimalTiming:
			out = append(out, "Schedule your most important goals during your peak activity hours")
		case InsightComplianceImprovement:
			out = append(out,
				"Reduce intervention difficulty by 20% to improve compliance",
				"Increase intervention spacing to reduce overwhelm")
		case InsightEnergyOptimization:
			out = append(out, "Align demanding tasks with your natural energy peaks")
		case InsightDomainPerformance:
			out = append(out, "Apply successful strategies from your best-performing domain to struggling areas")
		}
	}
	return out
}
