package pattern

import (
	"math"
	"testing"
	"time"

	"github.com/codeGROOVE-dev/orbit/pkg/behavior"
)

var testNow = time.Date(2025, 6, 11, 18, 0, 0, 0, time.UTC)

func ptr(b bool) *bool { return &b }

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func ratedEvents(n, complied int, domain behavior.Domain, start time.Time, step time.Duration) []behavior.HistoryEvent {
	events := make([]behavior.HistoryEvent, n)
	for i := range n {
		events[i] = behavior.HistoryEvent{
			Timestamp: start.Add(time.Duration(i) * step),
			Domain:    domain,
			Complied:  ptr(i < complied),
			Technique: "habit_stacking",
		}
	}
	return events
}

func TestCombineRisk(t *testing.T) {
	tests := []struct {
		name          string
		contributions []float64
		want          float64
	}{
		{"no contributions is base risk", nil, 0.2},
		{"two contributions", []float64{0.4, 0.3}, 1 - math.Sqrt(0.3)},
		{"single compliance contribution", []float64{0.4}, 1 - math.Sqrt(0.6)},
		{"saturated sum is capped", []float64{0.4, 0.3, 0.4, 0.25}, 0.95},
		{"tiny sum is floored", []float64{0.01}, 0.05},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CombineRisk(tt.contributions)
			if !approx(got, tt.want) {
				t.Errorf("CombineRisk(%v) = %v, want %v", tt.contributions, got, tt.want)
			}
		})
	}

	if got := CombineRisk([]float64{0.4, 0.3}); math.Abs(got-0.452) > 0.001 {
		t.Errorf("CombineRisk([0.4 0.3]) = %.4f, want ~0.452", got)
	}
}

func TestAnalyzeTenEventsThreeCompliant(t *testing.T) {
	a := New()
	// All events inside the last two days, so recent activity is not a risk factor.
	history := ratedEvents(10, 3, behavior.Health, testNow.Add(-40*time.Hour), 4*time.Hour)

	p := a.Analyze(Input{UserID: "u1", History: history, Now: testNow})

	if !approx(p.OverallCompliance, 0.3) {
		t.Fatalf("OverallCompliance = %v, want 0.3", p.OverallCompliance)
	}
	if len(p.Risk.Contributions) != 1 || p.Risk.Contributions[0].Factor != FactorLowCompliance {
		t.Fatalf("contributions = %+v, want only %s", p.Risk.Contributions, FactorLowCompliance)
	}
	if p.Risk.Sum < 0.4 {
		t.Errorf("risk sum = %v, want >= 0.4", p.Risk.Sum)
	}
	if !approx(p.FailureRisk, 1-math.Sqrt(0.6)) {
		t.Errorf("FailureRisk = %v, want %v", p.FailureRisk, 1-math.Sqrt(0.6))
	}
	// temporal min(1,10/20)*0.3 + compliance min(1,10/20)*0.3; no energy, goals or pairs.
	if !approx(p.Confidence, 0.3) {
		t.Errorf("Confidence = %v, want 0.3", p.Confidence)
	}
	if got := p.DomainCompliance[behavior.Health]; !approx(got, 0.3) {
		t.Errorf("health compliance = %v, want 0.3", got)
	}
	if got := p.SuccessRate("habit_stacking"); !approx(got, 0.3) {
		t.Errorf("habit_stacking rate = %v, want 0.3", got)
	}
	if got := p.SuccessRate("loss_aversion"); got != behavior.DefaultSuccessRate {
		t.Errorf("unseen technique rate = %v, want default", got)
	}
}

func TestAnalyzeColdStart(t *testing.T) {
	p := New().Analyze(Input{UserID: "new-user", Now: testNow})
	if p.Confidence != 0 {
		t.Errorf("Confidence = %v, want 0", p.Confidence)
	}
	if p.FailureRisk != behavior.DefaultFailureRisk {
		t.Errorf("FailureRisk = %v, want %v", p.FailureRisk, behavior.DefaultFailureRisk)
	}
	if len(p.DomainOptimalHours) != 0 || len(p.TechniqueSuccessRates) != 0 {
		t.Errorf("expected empty pattern maps, got %v / %v", p.DomainOptimalHours, p.TechniqueSuccessRates)
	}
	if len(p.Recommendations) == 0 {
		t.Error("cold-start profile should carry starter recommendations")
	}
}

func TestAnalyzeIgnoresUntimedEvents(t *testing.T) {
	p := New().Analyze(Input{
		UserID:  "u2",
		Now:     testNow,
		History: []behavior.HistoryEvent{{Domain: behavior.Health, Complied: ptr(true)}},
	})
	if p.Confidence != 0 {
		t.Errorf("events without timestamps should be ignored, confidence = %v", p.Confidence)
	}
}

func TestAnalyzeRiskFactors(t *testing.T) {
	old := testNow.Add(-60 * 24 * time.Hour)
	goals := []behavior.Goal{
		{Domain: behavior.Health, Progress: 0.1, CreatedDate: old},
		{Domain: behavior.Finance, Progress: 0.1, CreatedDate: old},
		{Domain: behavior.Learning, Progress: 0.5, CreatedDate: old},
		{Domain: behavior.Social, Progress: 0.9, CreatedDate: old},
		{Domain: behavior.Productivity, Progress: 0.15, CreatedDate: testNow},
		{Domain: behavior.Health, Progress: 0.3, CreatedDate: old, Status: "completed"},
	}
	// Two events, both a month old: low recent activity.
	history := ratedEvents(2, 1, behavior.Health, testNow.Add(-30*24*time.Hour), time.Hour)

	p := New().Analyze(Input{
		UserID:        "u3",
		History:       history,
		Goals:         goals,
		CurrentEnergy: behavior.EnergyLow,
		Now:           testNow,
	})

	want := map[string]float64{
		FactorMediumCompliance: 0.2,
		FactorGoalLoad:         0.1,
		FactorStagnantGoals:    0.3,
		FactorLowActivity:      0.25,
		FactorLowEnergy:        0.15,
	}
	got := make(map[string]float64)
	for _, c := range p.Risk.Contributions {
		got[c.Factor] = c.Value
	}
	if len(got) != len(want) {
		t.Fatalf("contributions = %v, want %v", got, want)
	}
	for k, v := range want {
		if !approx(got[k], v) {
			t.Errorf("contribution %s = %v, want %v", k, got[k], v)
		}
	}
	if p.FailureRisk != 0.95 {
		t.Errorf("FailureRisk = %v, want capped 0.95", p.FailureRisk)
	}
}

func TestAnalyzeTemporalPatterns(t *testing.T) {
	day := testNow.Add(-5 * 24 * time.Hour).Truncate(24 * time.Hour)
	var history []behavior.HistoryEvent
	for i := range 4 {
		d := day.Add(time.Duration(i) * 24 * time.Hour)
		history = append(history,
			behavior.HistoryEvent{Timestamp: d.Add(7 * time.Hour), Domain: behavior.Health, Complied: ptr(true)},
			behavior.HistoryEvent{Timestamp: d.Add(21 * time.Hour), Domain: behavior.Health, Complied: ptr(i == 0)},
		)
	}

	p := New().Analyze(Input{UserID: "u4", History: history, Now: testNow})

	hours := p.DomainOptimalHours[behavior.Health]
	if len(hours) != 2 || hours[0] != 7 || hours[1] != 21 {
		t.Errorf("health optimal hours = %v, want [7 21]", hours)
	}
	if got := p.HourlyCompliance[7]; got != 1 {
		t.Errorf("hour 7 compliance = %v, want 1", got)
	}
	if got := p.HourlyCompliance[21]; !approx(got, 0.25) {
		t.Errorf("hour 21 compliance = %v, want 0.25", got)
	}
}

func TestAnalyzeTemporalNeedsSpread(t *testing.T) {
	day := testNow.Add(-5 * 24 * time.Hour).Truncate(24 * time.Hour)
	var history []behavior.HistoryEvent
	for i := range 3 {
		d := day.Add(time.Duration(i) * 24 * time.Hour)
		history = append(history,
			behavior.HistoryEvent{Timestamp: d.Add(8 * time.Hour), Domain: behavior.Learning, Complied: ptr(true)},
			behavior.HistoryEvent{Timestamp: d.Add(20 * time.Hour), Domain: behavior.Learning, Complied: ptr(true)},
		)
	}
	p := New().Analyze(Input{UserID: "u5", History: history, Now: testNow})
	if hours, ok := p.DomainOptimalHours[behavior.Learning]; ok {
		t.Errorf("no spread between buckets, expected no optimal hours, got %v", hours)
	}
}

func TestComplianceTrend(t *testing.T) {
	tests := []struct {
		name     string
		outcomes []bool
		want     string
	}{
		{"too few", []bool{true, false, true}, behavior.TrendInsufficient},
		{"improving", []bool{false, false, false, false, false, true, true, true, true, true}, behavior.TrendImproving},
		{"declining", []bool{true, true, true, true, true, false, false, false, false, false}, behavior.TrendDeclining},
		{"stable", []bool{true, false, true, false, true, false, true, false, true, false}, behavior.TrendStable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := complianceTrend(tt.outcomes); got != tt.want {
				t.Errorf("complianceTrend() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAnalyzeEnergyPeaks(t *testing.T) {
	history := []behavior.HistoryEvent{
		{Timestamp: testNow.Add(-50 * time.Hour), Energy: behavior.EnergyHigh},
		{Timestamp: testNow.Add(-26 * time.Hour), Energy: behavior.EnergyHigh},
		{Timestamp: testNow.Add(-30 * time.Hour), Energy: behavior.EnergyLow},
		{Timestamp: testNow.Add(-29 * time.Hour), Energy: behavior.EnergyMedium},
	}
	p := New().Analyze(Input{UserID: "u6", History: history, Now: testNow})
	// -50h and -26h both land on hour 16.
	if len(p.PeakEnergyHours) != 1 || p.PeakEnergyHours[0] != 16 {
		t.Errorf("PeakEnergyHours = %v, want [16]", p.PeakEnergyHours)
	}
}

func TestInteractions(t *testing.T) {
	goals := []behavior.Goal{
		{Domain: behavior.Health},
		{Domain: behavior.Finance},
		{Domain: behavior.Health},
		{Domain: "hobbies"},
	}
	got, confidence := Interactions(goals)
	if len(got) != 3 {
		t.Fatalf("got %d interactions, want 3", len(got))
	}
	for _, gi := range got {
		if gi.Impact < -1 || gi.Impact > 1 {
			t.Errorf("impact %v out of range", gi.Impact)
		}
		if gi.SourceDomain == gi.TargetDomain {
			t.Errorf("self interaction %+v", gi)
		}
	}
	if !approx(confidence, 1.0/3) {
		t.Errorf("confidence = %v, want 1/3", confidence)
	}

	hf := LookupInteraction(behavior.Finance, behavior.Health)
	if hf.Type != behavior.Competing || hf.Impact >= 0 {
		t.Errorf("finance/health = %+v, want competing with negative impact", hf)
	}
	unknown := LookupInteraction("hobbies", behavior.Health)
	if unknown.Type != behavior.Neutral || unknown.Impact != neutralImpact {
		t.Errorf("unknown pair = %+v, want neutral %v", unknown, neutralImpact)
	}
}

func TestAvoidHours(t *testing.T) {
	counts := make(map[int]int)
	for h := 9; h < 18; h++ {
		counts[h] = 10
	}
	counts[20] = 1
	quiet := AvoidHours(counts)
	for _, h := range quiet {
		if h >= 9 && h < 18 {
			t.Errorf("active hour %d reported as quiet", h)
		}
	}
	if len(quiet) != 15 {
		t.Errorf("got %d quiet hours, want 15: %v", len(quiet), quiet)
	}
	if AvoidHours(nil) != nil {
		t.Error("no activity should report no avoid hours")
	}
}

func TestPeakHoursDeterministicTies(t *testing.T) {
	counts := map[int]int{14: 5, 9: 5, 11: 7, 3: 1}
	got := PeakHours(counts, 3)
	want := []int{11, 9, 14}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("PeakHours = %v, want %v", got, want)
		}
	}
}

func TestProfileScoresInRange(t *testing.T) {
	history := ratedEvents(30, 17, behavior.Productivity, testNow.Add(-6*24*time.Hour), 3*time.Hour)
	for i := range history {
		history[i].Energy = []behavior.Energy{"low", "medium", "high"}[i%3]
		history[i].Context = map[string]string{"location": []string{"home", "office"}[i%2]}
	}
	p := New().Analyze(Input{
		UserID:  "u7",
		History: history,
		Goals: []behavior.Goal{
			{Domain: behavior.Productivity, Progress: 0.7},
			{Domain: behavior.Learning, Progress: 0.2},
		},
		Now: testNow,
	})

	check := func(name string, v float64) {
		if v < 0 || v > 1 {
			t.Errorf("%s = %v out of [0,1]", name, v)
		}
	}
	check("confidence", p.Confidence)
	check("failure_risk", p.FailureRisk)
	check("overall_compliance", p.OverallCompliance)
	for k, v := range p.TechniqueSuccessRates {
		check("technique "+k, v)
	}
	for k, v := range p.DomainCompliance {
		check("domain "+string(k), v)
	}
	for k, rates := range p.ContextPatterns {
		for v, r := range rates {
			check("context "+k+"="+v, r)
		}
	}
	if len(p.ContextPatterns["location"]) != 2 {
		t.Errorf("location context pattern = %v, want two values", p.ContextPatterns["location"])
	}
	if p.FailureRisk < minFailureRisk || p.FailureRisk > maxFailureRisk {
		t.Errorf("failure risk %v outside [%v,%v]", p.FailureRisk, minFailureRisk, maxFailureRisk)
	}
}
