package technique

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/orbit/pkg/behavior"
)

// Expected-compliance blend weights.
const (
	complianceBase       = 0.4
	complianceHistory    = 0.3
	complianceMotivation = 0.2
	complianceTiming     = 0.1
)

var (
	fallbackHours = []int{9, 10, 11}

	defaultOptimalHours = map[behavior.Domain][]int{
		behavior.Health:       {7, 8, 18, 19},
		behavior.Productivity: {9, 10, 14, 15},
		behavior.Learning:     {10, 11, 20, 21},
		behavior.Finance:      {19, 20, 21},
		behavior.Social:       {12, 18, 19, 20},
	}

	defaultAvoidHours = []int{0, 1, 2, 3, 4, 5, 6}
	defaultBestDays   = []string{"Monday", "Tuesday", "Wednesday"}

	// softener turns directives into permissive phrasing for crisis contexts.
	softener = strings.NewReplacer(
		"I will ", "I could ",
		"Commit to ", "Consider committing to ",
		"Join them!", "You're welcome to join them when it feels right.",
		"Only ", "Just ",
		" must ", " might ",
		" should ", " could ",
		"Imagine achieving", "When you feel ready, imagine achieving",
	)
)

// OptimalHours returns the profile's hours for a domain, then the built-in
// domain default, then 9-11.
func OptimalHours(p *behavior.Profile, d behavior.Domain) []int {
	if p != nil {
		if hours := p.DomainOptimalHours[d]; len(hours) > 0 {
			return hours
		}
	}
	if hours, ok := defaultOptimalHours[d]; ok {
		return hours
	}
	return fallbackHours
}

// SelectAndCompose picks the best technique for the goal and fills its template.
// Identical inputs always produce the same candidate.
func (s *Selector) SelectAndCompose(p *behavior.Profile, goal behavior.Goal, c behavior.Context, exclude ...ID) (Candidate, error) {
	best, ranking, err := s.Select(p, goal, c, exclude...)
	if err != nil {
		return Candidate{}, err
	}
	t := catalog[best.ID]
	crisis := c.Urgency.IsCrisis()

	content := compose(t, p, goal, c)
	if crisis {
		content = softener.Replace(content)
	}

	return Candidate{
		Technique:          best.ID,
		Domain:             goal.Domain,
		Content:            content,
		ExpectedCompliance: ExpectedCompliance(best.ID, p, goal, c),
		Metadata: Metadata{
			GoalID:                 goal.ID,
			GoalTitle:              goal.Title,
			Description:            t.Description,
			Effectiveness:          t.Effectiveness,
			Citations:              slices.Clone(t.Citations),
			SelectionScore:         best.Total,
			Ranking:                ranking,
			Timing:                 recommendTiming(p, goal),
			FollowUp:               followUp(p, crisis),
			PersonalizationFactors: personalizationFactors(p),
			Crisis:                 crisis,
		},
	}, nil
}

// ExpectedCompliance blends base effectiveness, history, motivation fit and timing.
func ExpectedCompliance(id ID, p *behavior.Profile, goal behavior.Goal, c behavior.Context) float64 {
	t, ok := Lookup(id)
	if !ok {
		return 0
	}
	base := t.Effectiveness
	history := p.SuccessRate(id.String())

	motivation := 1.0
	if p != nil {
		switch p.MotivationStyle {
		case "intrinsic":
			if id == MentalContrasting || id == ImplementationIntentions {
				motivation = 1.1
			}
		case "extrinsic":
			if id == SocialProof || id == CommitmentDevice {
				motivation = 1.1
			}
		}
	}

	timing := 0.9
	if slices.Contains(OptimalHours(p, goal.Domain), c.Now.Hour()) {
		timing = 1.1
	}

	return behavior.Clamp01(complianceBase*base +
		complianceHistory*history +
		complianceMotivation*base*motivation +
		complianceTiming*base*timing)
}

func compose(t Technique, p *behavior.Profile, goal behavior.Goal, c behavior.Context) string {
	return strings.NewReplacer(slots(t.ID, p, goal, c)...).Replace(t.Template)
}

func title(goal behavior.Goal, fallback string) string {
	if goal.Title != "" {
		return goal.Title
	}
	return fallback
}

func formatHour(h int) string {
	return time.Date(2000, 1, 1, h, 0, 0, 0, time.UTC).Format("3:04 PM")
}

// slots returns old/new replacement pairs for the technique's template.
func slots(id ID, p *behavior.Profile, goal behavior.Goal, c behavior.Context) []string {
	d := goal.Domain
	switch id {
	case ImplementationIntentions:
		situation, action, place := "I have free time", "work on "+title(goal, "my goal"), "in a quiet space"
		if s, ok := situations[d]; ok {
			situation, action, place = s[0], s[1], s[2]
		}
		return []string{
			"{situation}", situation,
			"{action}", action,
			"{time}", formatHour(OptimalHours(p, d)[0]),
			"{place}", place,
		}
	case HabitStacking:
		habits, ok := existingHabits[d]
		if !ok {
			habits = existingHabits[behavior.Productivity]
		}
		behaviorText, ok := newBehaviors[d]
		if !ok {
			behaviorText = "work on " + title(goal, "my goal")
		}
		return []string{"{existing_habit}", habits[0], "{new_behavior}", behaviorText}
	case TemptationBundling:
		return []string{
			"{enjoyable_activity}", "listen to podcasts",
			"{desired_behavior}", "I work on " + title(goal, "my goal"),
		}
	case SocialProof:
		stat, ok := socialProof[d]
		if !ok {
			stat = proofStat{70, "actively work toward their personal goals"}
		}
		return []string{"{percentage}", fmt.Sprint(stat.percentage), "{behavior}", stat.behavior}
	case LossAversion:
		loss, ok := losses[d]
		if !ok {
			loss = "progress toward your goals"
		}
		return []string{"{specific_loss}", loss, "{action}", "continue working on " + title(goal, "your goal")}
	case FreshStart:
		return []string{
			"{temporal_landmark}", temporalLandmark(c.Now),
			"{new_behavior}", "focusing on " + title(goal, "your goal"),
		}
	case CommitmentDevice:
		return []string{
			"{action}", "work on " + title(goal, "your goal") + " today",
			"{consequence}", "missing out on your evening relaxation time",
		}
	case MentalContrasting:
		return []string{"{goal}", title(goal, "your goal"), "{obstacle}", "lack of time and distractions"}
	case GoalGradient:
		pct := int(behavior.Clamp01(goal.Progress) * 100)
		return []string{"{percentage}", fmt.Sprint(pct), "{remaining}", fmt.Sprintf("%d%% more effort", 100-pct)}
	case ProgressFeedback:
		progress := behavior.Clamp01(goal.Progress)
		msg := "You're building momentum. Every step counts!"
		switch {
		case progress > 0.8:
			msg = "Excellent work! You're almost there!"
		case progress > 0.5:
			msg = "Great progress! Keep up the momentum!"
		}
		return []string{
			"{current_progress}", fmt.Sprintf("%d%% complete", int(progress*100)),
			"{feedback_message}", msg,
		}
	case EnvironmentalDesign:
		change, ok := environmentChanges[d]
		if !ok {
			change = "a dedicated spot for " + title(goal, "your goal")
		}
		return []string{"{environment_change}", change, "{desired_behavior}", "working on " + title(goal, "your goal")}
	}
	return nil
}

func temporalLandmark(now time.Time) string {
	switch {
	case now.IsZero():
		return "new day"
	case now.Month() == time.January && now.Day() == 1:
		return "new year"
	case now.Weekday() == time.Monday:
		return "Monday"
	case now.Day() == 1:
		return "new month"
	default:
		return "new day"
	}
}

func recommendTiming(p *behavior.Profile, goal behavior.Goal) Timing {
	t := Timing{
		OptimalHours: slices.Clone(OptimalHours(p, goal.Domain)),
		AvoidHours:   defaultAvoidHours,
		BestDays:     defaultBestDays,
		Reasoning:    fmt.Sprintf("Based on your %s activity patterns", goal.Domain),
	}
	if p == nil {
		return t
	}
	if len(p.AvoidHours) > 0 {
		t.AvoidHours = slices.Clone(p.AvoidHours)
	}
	if len(p.BestDays) > 0 {
		t.BestDays = make([]string, len(p.BestDays))
		for i, d := range p.BestDays {
			t.BestDays[i] = d.String()
		}
	}
	return t
}

func followUp(p *behavior.Profile, crisis bool) FollowUp {
	f := FollowUp{
		Timing:        "24_hours",
		Type:          "progress_check",
		Escalation:    "add_accountability",
		Reinforcement: "celebrate_progress",
	}
	if crisis || (p != nil && p.FailureRisk >= 0.5) {
		f.Escalation = "increase_support"
	}
	if crisis {
		f.Timing = "4_hours"
		f.Type = "wellbeing_check"
	}
	return f
}

func personalizationFactors(p *behavior.Profile) []string {
	if p == nil {
		return nil
	}
	var factors []string
	if p.MotivationStyle != "" {
		factors = append(factors, "motivation_style_"+p.MotivationStyle)
	}
	traits := make([]string, 0, len(p.PersonalityTraits))
	for k := range p.PersonalityTraits {
		traits = append(traits, k)
	}
	sort.Strings(traits)
	for _, k := range traits {
		switch v := p.PersonalityTraits[k]; {
		case v > 0.7:
			factors = append(factors, "high_"+k)
		case v < 0.3:
			factors = append(factors, "low_"+k)
		}
	}
	return factors
}
