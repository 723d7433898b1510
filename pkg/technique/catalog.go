// Package technique scores a fixed catalog of behavioral techniques against a
// user's profile and composes the winning technique into an intervention.
package technique

import (
	"fmt"

	"github.com/codeGROOVE-dev/orbit/pkg/behavior"
)

// ID identifies a technique. Declaration order is catalog order and breaks scoring ties.
type ID int

// Catalog techniques.
const (
	ImplementationIntentions ID = iota
	HabitStacking
	TemptationBundling
	SocialProof
	LossAversion
	FreshStart
	CommitmentDevice
	MentalContrasting
	GoalGradient
	ProgressFeedback
	EnvironmentalDesign
	numTechniques
)

var names = [numTechniques]string{
	ImplementationIntentions: "implementation_intentions",
	HabitStacking:            "habit_stacking",
	TemptationBundling:       "temptation_bundling",
	SocialProof:              "social_proof",
	LossAversion:             "loss_aversion",
	FreshStart:               "fresh_start_effect",
	CommitmentDevice:         "commitment_device",
	MentalContrasting:        "mental_contrasting",
	GoalGradient:             "goal_gradient_effect",
	ProgressFeedback:         "progress_feedback",
	EnvironmentalDesign:      "environmental_design",
}

func (id ID) String() string {
	if id < 0 || id >= numTechniques {
		return fmt.Sprintf("technique(%d)", int(id))
	}
	return names[id]
}

// Valid reports whether id names a catalog technique.
func (id ID) Valid() bool {
	return id >= 0 && id < numTechniques
}

// MarshalText encodes the technique by name.
func (id ID) MarshalText() ([]byte, error) {
	if !id.Valid() {
		return nil, fmt.Errorf("unknown technique %d", int(id))
	}
	return []byte(names[id]), nil
}

// UnmarshalText decodes a technique name.
func (id *ID) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// Parse maps a technique name to its ID.
func Parse(name string) (ID, error) {
	for i, n := range names {
		if n == name {
			return ID(i), nil
		}
	}
	return -1, fmt.Errorf("unknown technique %q", name)
}

// Technique is an immutable catalog record.
type Technique struct {
	Description   string
	Template      string
	Domains       []behavior.Domain
	UserTypes     []string
	Citations     []string
	Effectiveness float64
	ID            ID
}

// AppliesTo reports whether the technique lists the domain.
func (t Technique) AppliesTo(d behavior.Domain) bool {
	for _, td := range t.Domains {
		if td == d {
			return true
		}
	}
	return false
}

var (
	allDomains = []behavior.Domain{behavior.Health, behavior.Finance, behavior.Productivity, behavior.Learning}

	catalog = [numTechniques]Technique{
		ImplementationIntentions: {
			Description:   "Create specific if-then plans that automatically trigger behavior",
			Effectiveness: 0.85,
			Domains:       []behavior.Domain{behavior.Health, behavior.Productivity, behavior.Learning, behavior.Finance},
			UserTypes:     []string{"conscientious", "organized", "goal-oriented"},
			Template:      "If {situation}, then I will {action} at {time} {place}",
			Citations: []string{
				"Gollwitzer, P. M. (1999). Implementation intentions: Strong effects of simple plans",
				"Sheeran, P. (2006). Implementation intentions and goal achievement: A meta-analysis",
			},
		},
		HabitStacking: {
			Description:   "Link new behaviors to existing strong habits",
			Effectiveness: 0.78,
			Domains:       []behavior.Domain{behavior.Health, behavior.Productivity, behavior.Learning},
			UserTypes:     []string{"routine-oriented", "structured", "consistent"},
			Template:      "After I {existing_habit}, I will {new_behavior}",
			Citations: []string{
				"Clear, J. (2018). Atomic Habits",
				"Wood, W. (2019). Good Habits, Bad Habits",
			},
		},
		TemptationBundling: {
			Description:   "Pair desired behaviors with enjoyable activities",
			Effectiveness: 0.72,
			Domains:       []behavior.Domain{behavior.Health, behavior.Learning, behavior.Productivity},
			UserTypes:     []string{"reward-motivated", "pleasure-seeking", "creative"},
			Template:      "I can only {enjoyable_activity} while {desired_behavior}",
			Citations: []string{
				"Milkman, K. L. (2014). Holding the Hunger Games hostage at the gym",
				"Woolley, K. (2013). The experience matters more than you think",
			},
		},
		SocialProof: {
			Description:   "Show what similar others are doing to influence behavior",
			Effectiveness: 0.80,
			Domains:       []behavior.Domain{behavior.Health, behavior.Finance, behavior.Social, behavior.Learning},
			UserTypes:     []string{"socially-motivated", "competitive", "community-oriented"},
			Template:      "{percentage}% of people like you {behavior}. Join them!",
			Citations: []string{
				"Cialdini, R. B. (2006). Influence: The psychology of persuasion",
				"Goldstein, N. J. (2008). A room with a viewpoint",
			},
		},
		LossAversion: {
			Description:   "Frame in terms of what could be lost rather than gained",
			Effectiveness: 0.75,
			Domains:       []behavior.Domain{behavior.Finance, behavior.Health, behavior.Productivity},
			UserTypes:     []string{"risk-averse", "security-focused", "analytical"},
			Template:      "You could lose {specific_loss} if you don't {action}",
			Citations: []string{
				"Kahneman, D. (1984). Choices, values, and frames",
				"Tversky, A. (1991). Loss aversion in riskless choice",
			},
		},
		FreshStart: {
			Description:   "Leverage temporal landmarks for motivation",
			Effectiveness: 0.70,
			Domains:       allDomains,
			UserTypes:     []string{"optimistic", "goal-oriented", "fresh-start-motivated"},
			Template:      "This {temporal_landmark} is perfect for starting {new_behavior}",
			Citations: []string{
				"Dai, H. (2014). The fresh start effect: Temporal landmarks motivate aspirational behavior",
				"Peetz, J. (2014). The temporal mind in social psychology",
			},
		},
		CommitmentDevice: {
			Description:   "Create stakes or accountability to increase follow-through",
			Effectiveness: 0.82,
			Domains:       allDomains,
			UserTypes:     []string{"competitive", "accountability-responsive", "goal-oriented"},
			Template:      "Commit to {action} or face {consequence}",
			Citations: []string{
				"Bryan, G. (2010). Commitment devices",
				"Rogers, T. (2014). Commitment devices: Using initiatives to change behavior",
			},
		},
		MentalContrasting: {
			Description:   "Contrast desired future with current reality to motivate action",
			Effectiveness: 0.73,
			Domains:       allDomains,
			UserTypes:     []string{"reflective", "goal-oriented", "introspective"},
			Template:      "Imagine achieving {goal}, then consider what's stopping you: {obstacle}",
			Citations: []string{
				"Oettingen, G. (2012). Future thought and behaviour change",
				"Oettingen, G. (2001). Self-regulation of goal-setting",
			},
		},
		GoalGradient: {
			Description:   "Increase motivation as people get closer to their goals",
			Effectiveness: 0.68,
			Domains:       allDomains,
			UserTypes:     []string{"progress-motivated", "achievement-oriented", "competitive"},
			Template:      "You're {percentage}% there! Only {remaining} to go!",
			Citations: []string{
				"Hull, C. L. (1932). The goal-gradient hypothesis and maze learning",
				"Kivetz, R. (2006). The goal-gradient hypothesis resurrected",
			},
		},
		ProgressFeedback: {
			Description:   "Provide regular feedback on progress to maintain motivation",
			Effectiveness: 0.76,
			Domains:       allDomains,
			UserTypes:     []string{"feedback-responsive", "data-driven", "improvement-focused"},
			Template:      "Your progress: {current_progress}. {feedback_message}",
			Citations: []string{
				"Kluger, A. N. (1996). The effects of feedback interventions on performance",
				"Locke, E. A. (2002). Building a practically useful theory of goal setting",
			},
		},
		EnvironmentalDesign: {
			Description:   "Reshape surroundings so the desired behavior becomes the default",
			Effectiveness: 0.74,
			Domains:       []behavior.Domain{behavior.Health, behavior.Productivity, behavior.Finance, behavior.Learning},
			UserTypes:     []string{"structured", "organized", "practical"},
			Template:      "Set up {environment_change} so that {desired_behavior} becomes the easy choice",
			Citations: []string{
				"Thaler, R. H. (2008). Nudge: Improving decisions about health, wealth, and happiness",
				"Wansink, B. (2004). Environmental factors that increase the food intake and consumption volume",
			},
		},
	}
)

func init() {
	for i := range catalog {
		catalog[i].ID = ID(i)
	}
}

// Lookup returns the catalog record for id.
func Lookup(id ID) (Technique, bool) {
	if !id.Valid() {
		return Technique{}, false
	}
	return catalog[id], true
}

// All returns the catalog in declaration order.
func All() []Technique {
	out := make([]Technique, numTechniques)
	copy(out, catalog[:])
	return out
}

// DefaultCrisisPool is the subset used for high or critical urgency.
var DefaultCrisisPool = []ID{ImplementationIntentions, MentalContrasting, ProgressFeedback}
