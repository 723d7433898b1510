// Package render formats profiles and evaluations for terminal output.
package render

import (
	"fmt"
	"slices"
	"strings"

	"github.com/fatih/color"

	"github.com/codeGROOVE-dev/orbit/pkg/behavior"
	"github.com/codeGROOVE-dev/orbit/pkg/evaluation"
	"github.com/codeGROOVE-dev/orbit/pkg/technique"
)

// maxBar is the widest bar drawn; longer rows are scaled down.
const maxBar = 40

var rule = strings.Repeat("─", 50) + "\n"

// Histogram draws hourly activity with compliance rates. Peak energy hours are
// marked ^, avoid hours z, and the optimal hours passed in as optimal *.
func Histogram(p *behavior.Profile, optimal []int) string {
	var out strings.Builder
	out.WriteString("📊 Hourly Pattern\n")
	out.WriteString(rule)

	total, maxActivity := 0, 0
	for _, n := range p.HourlyActivity {
		total += n
		maxActivity = max(maxActivity, n)
	}
	if total < 20 {
		fmt.Fprintf(&out, "⚠️  Limited data: only %d events available\n", total)
		out.WriteString(rule)
	}
	if maxActivity == 0 {
		return out.String() + "No activity data available\n"
	}

	grey := color.New(color.FgHiBlack)
	for hour := range 24 {
		marker, markerColor := " ", color.New(color.Reset)
		switch {
		case slices.Contains(optimal, hour):
			marker, markerColor = "*", color.New(color.FgGreen)
		case slices.Contains(p.PeakEnergyHours, hour):
			marker, markerColor = "^", color.New(color.FgYellow)
		case slices.Contains(p.AvoidHours, hour):
			marker, markerColor = "z", color.New(color.FgBlue)
		}

		line := fmt.Sprintf("%02d:00 %s ", hour, markerColor.Sprint(marker))
		count := p.HourlyActivity[hour]
		if count == 0 {
			out.WriteString(strings.TrimRight(line, " ") + "\n")
			continue
		}
		line += fmt.Sprintf("(%2d) ", count)

		barLength := count
		if maxActivity > maxBar {
			barLength = max(1, count*maxBar/maxActivity)
		}
		if barLength == 1 {
			line += grey.Sprint("·")
		} else {
			line += complianceColor(p.HourlyCompliance, hour).Sprint(strings.Repeat("█", barLength))
		}
		if rate, ok := p.HourlyCompliance[hour]; ok {
			line += fmt.Sprintf(" %3.0f%%", rate*100)
		}
		out.WriteString(line + "\n")
	}
	return out.String()
}

func complianceColor(rates map[int]float64, hour int) *color.Color {
	rate, ok := rates[hour]
	switch {
	case !ok:
		return color.New(color.FgHiBlack)
	case rate >= 0.7:
		return color.New(color.FgGreen)
	case rate >= 0.4:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgRed)
	}
}

// Profile summarizes a behavioral profile.
func Profile(p *behavior.Profile) string {
	var out strings.Builder
	bold := color.New(color.Bold)
	out.WriteString(bold.Sprintf("👤 %s", p.UserID) + "\n")
	out.WriteString(rule)
	fmt.Fprintf(&out, "Confidence:  %.2f (%d rated events)\n", p.Confidence, p.RatedEvents)
	fmt.Fprintf(&out, "Compliance:  %.2f, trend %s\n", p.OverallCompliance, p.ComplianceTrend)
	fmt.Fprintf(&out, "Failure risk: %s\n", riskColor(p.FailureRisk).Sprintf("%.2f", p.FailureRisk))
	if len(p.PeakEnergyHours) > 0 {
		fmt.Fprintf(&out, "Peak energy: %s\n", hours(p.PeakEnergyHours))
	}
	if len(p.PreferredDomains) > 0 {
		names := make([]string, len(p.PreferredDomains))
		for i, d := range p.PreferredDomains {
			names[i] = string(d)
		}
		fmt.Fprintf(&out, "Domains:     %s\n", strings.Join(names, ", "))
	}
	for _, r := range p.Recommendations {
		out.WriteString("  • " + r + "\n")
	}
	return out.String()
}

func riskColor(risk float64) *color.Color {
	switch {
	case risk >= 0.6:
		return color.New(color.FgRed)
	case risk >= 0.3:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgGreen)
	}
}

func hours(hs []int) string {
	parts := make([]string, len(hs))
	for i, h := range hs {
		parts[i] = fmt.Sprintf("%02d:00", h)
	}
	return strings.Join(parts, " ")
}

// Candidate shows the composed intervention.
func Candidate(c technique.Candidate) string {
	var out strings.Builder
	label := c.Technique.String()
	if c.Metadata.Crisis {
		label += " (crisis)"
	}
	out.WriteString(color.New(color.Bold).Sprint("💬 "+label) + "\n")
	out.WriteString(rule)
	out.WriteString(c.Content + "\n")
	fmt.Fprintf(&out, "Expected compliance: %.2f\n", c.ExpectedCompliance)
	if t := c.Metadata.Timing; len(t.OptimalHours) > 0 {
		fmt.Fprintf(&out, "Best time:   %s\n", hours(t.OptimalHours))
	}
	return out.String()
}

// Evaluation shows per-dimension scores and the verdict.
func Evaluation(r *evaluation.Result) string {
	var out strings.Builder
	out.WriteString("🛡  Evaluation\n")
	out.WriteString(rule)
	for _, s := range r.Scores() {
		line := fmt.Sprintf("%-20s %s", s.Dimension, scoreColor(s.Score).Sprintf("%.2f", s.Score))
		if s.Degraded {
			line += color.New(color.FgHiBlack).Sprint(" (degraded)")
		}
		out.WriteString(line + "\n")
	}

	verdict := color.New(color.FgGreen, color.Bold).Sprint("APPROVED")
	if !r.Approved {
		verdict = color.New(color.FgRed, color.Bold).Sprint("REJECTED")
	}
	fmt.Fprintf(&out, "%-20s %.2f  risk %s  %s\n", "overall", r.OverallScore, r.RiskLevel, verdict)

	for _, m := range r.RequiredModifications {
		out.WriteString("  ! " + m + "\n")
	}
	for _, rec := range r.Recommendations {
		out.WriteString("  • " + rec + "\n")
	}
	return out.String()
}

func scoreColor(score float64) *color.Color {
	switch {
	case score >= 0.8:
		return color.New(color.FgGreen)
	case score >= 0.6:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgRed)
	}
}
