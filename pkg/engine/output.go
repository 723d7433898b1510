package engine

import (
	"strings"
	"time"

	"github.com/codeGROOVE-dev/orbit/pkg/behavior"
	"github.com/codeGROOVE-dev/orbit/pkg/evaluation"
	"github.com/codeGROOVE-dev/orbit/pkg/technique"
)

// Attempt is one composed candidate and its evaluation.
type Attempt struct {
	Evaluation *evaluation.Result  `json:"evaluation"`
	Candidate  technique.Candidate `json:"candidate"`
}

// Output is the record returned for a request.
type Output struct {
	GeneratedAt       time.Time           `json:"generated_at"`
	Profile           *behavior.Profile   `json:"-"`
	Evaluation        *evaluation.Result  `json:"evaluation"`
	RequestID         string              `json:"request_id"`
	UserID            string              `json:"user_id"`
	Attempts          []Attempt           `json:"attempts,omitempty"`
	Candidate         technique.Candidate `json:"candidate"`
	ProfileConfidence float64             `json:"profile_confidence"`
}

// Approved reports whether the final candidate passed the gate.
func (o *Output) Approved() bool {
	return o.Evaluation != nil && o.Evaluation.Approved
}

// FeedbackEvents returns the events a caller should append to the user's
// history: one rejection per rejected attempt and a delivery event for an
// approved candidate.
func (o *Output) FeedbackEvents() []behavior.HistoryEvent {
	var out []behavior.HistoryEvent
	for _, a := range o.Attempts {
		if a.Evaluation == nil {
			continue
		}
		ev := behavior.HistoryEvent{
			Timestamp: o.GeneratedAt,
			Domain:    a.Candidate.Domain,
			Technique: a.Candidate.Technique.String(),
			Context: map[string]string{
				"request_id": o.RequestID,
				"risk_level": string(a.Evaluation.RiskLevel),
			},
		}
		if a.Evaluation.Approved {
			ev.Kind = behavior.KindDelivered
		} else {
			ev.Kind = behavior.KindRejected
			if len(a.Evaluation.RequiredModifications) > 0 {
				ev.Context["required_modifications"] = strings.Join(a.Evaluation.RequiredModifications, "; ")
			}
		}
		out = append(out, ev)
	}
	return out
}
