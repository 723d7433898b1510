package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/codeGROOVE-dev/orbit/pkg/behavior"
	"github.com/codeGROOVE-dev/orbit/pkg/evaluation"
	"github.com/codeGROOVE-dev/orbit/pkg/history"
	"github.com/codeGROOVE-dev/orbit/pkg/profilecache"
	"github.com/codeGROOVE-dev/orbit/pkg/technique"
)

var wednesday = time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)

var scoreKeys = []string{"safety_score", "relevance_score", "accuracy_score", "success_probability", "engagement_score"}

// stubGen answers every rubric. Techniques for which low returns true get a
// failing safety score.
type stubGen struct {
	low   func(technique string) bool
	score float64
}

func (s stubGen) Generate(_ context.Context, prompt, _ string) (string, error) {
	tech := ""
	for _, line := range strings.Split(prompt, "\n") {
		if name, ok := strings.CutPrefix(line, "Technique: "); ok {
			tech = name
			break
		}
	}
	for _, key := range scoreKeys {
		if !strings.Contains(prompt, `"`+key+`"`) {
			continue
		}
		v := s.score
		if key == "safety_score" && s.low != nil && s.low(tech) {
			v = 0.3
		}
		return fmt.Sprintf(`{%q: %v, "reasoning": "stub", "confidence": 0.9}`, key, v), nil
	}
	return "", errors.New("unrecognized prompt")
}

// firstRejected fails safety for whichever technique it sees first.
func firstRejected() func(string) bool {
	var mu sync.Mutex
	first := ""
	return func(tech string) bool {
		mu.Lock()
		defer mu.Unlock()
		if first == "" {
			first = tech
		}
		return tech == first
	}
}

func newEngine(gen stubGen, opts ...Option) *Engine {
	gate := evaluation.New(gen, evaluation.WithTimeout(time.Second))
	return New(gate, append([]Option{WithClock(func() time.Time { return wednesday })}, opts...)...)
}

func learningRequest(userID string) Request {
	return Request{
		UserID: userID,
		Goal:   behavior.Goal{ID: "g1", Title: "Learn Spanish", Domain: behavior.Learning, Progress: 0.2},
		Context: behavior.Context{
			ActiveGoals: []behavior.Goal{{ID: "g1", Domain: behavior.Learning, Progress: 0.2}},
		},
	}
}

func boolPtr(b bool) *bool { return &b }

func TestRequestValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Request)
		wantMsg string
	}{
		{"missing user", func(r *Request) { r.UserID = "" }, "UserID is required"},
		{"missing goal domain", func(r *Request) { r.Goal.Domain = "" }, "Goal.Domain is required"},
		{"bad urgency", func(r *Request) { r.Context.Urgency = "panic" }, "Urgency must be one of"},
		{"progress out of range", func(r *Request) { r.Goal.Progress = 1.5 }, "Goal.Progress"},
		{"trait out of range", func(r *Request) { r.Traits = map[string]float64{"openness": 2} }, "Traits"},
		{"bad motivation", func(r *Request) { r.MotivationStyle = "greedy" }, "MotivationStyle"},
		{"bad active goal", func(r *Request) { r.Context.ActiveGoals[0].Domain = "" }, "ActiveGoals[0].Domain"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine(stubGen{score: 0.95})
			req := learningRequest("u1")
			tt.mutate(&req)
			out, err := e.Run(context.Background(), req)
			if !errors.Is(err, ErrInvalidRequest) {
				t.Fatalf("err = %v, want ErrInvalidRequest", err)
			}
			if out != nil {
				t.Error("output returned for invalid request")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("err = %q, want it to mention %q", err, tt.wantMsg)
			}
		})
	}
}

func TestColdStartRun(t *testing.T) {
	e := newEngine(stubGen{score: 0.95})
	req := learningRequest("newcomer")
	req.Context.ActiveGoals = nil

	out, err := e.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.ProfileConfidence != 0 {
		t.Errorf("profile confidence = %v, want 0", out.ProfileConfidence)
	}
	if !out.Candidate.Technique.Valid() {
		t.Errorf("technique %d is not a catalog technique", out.Candidate.Technique)
	}
	if out.Candidate.Content == "" {
		t.Error("empty content")
	}
	if !out.Approved() {
		t.Errorf("want approval, got %s", out.Evaluation.Summary())
	}
	if len(out.Attempts) != 1 {
		t.Errorf("attempts = %d, want 1", len(out.Attempts))
	}
	if _, err := uuid.Parse(out.RequestID); err != nil {
		t.Errorf("request id %q is not a uuid: %v", out.RequestID, err)
	}
	if !out.GeneratedAt.Equal(wednesday) {
		t.Errorf("generated at %v, want %v", out.GeneratedAt, wednesday)
	}
}

func TestRegenerationExcludesRejectedTechnique(t *testing.T) {
	e := newEngine(stubGen{score: 0.95, low: firstRejected()})
	out, err := e.Run(context.Background(), learningRequest("u1"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(out.Attempts) != 2 {
		t.Fatalf("attempts = %d, want 2", len(out.Attempts))
	}
	first, second := out.Attempts[0], out.Attempts[1]
	if first.Evaluation.Approved {
		t.Error("first attempt should be rejected")
	}
	if !second.Evaluation.Approved {
		t.Errorf("second attempt should be approved: %s", second.Evaluation.Summary())
	}
	if first.Candidate.Technique == second.Candidate.Technique {
		t.Errorf("retry reused rejected technique %s", first.Candidate.Technique)
	}
	if out.Candidate.Technique != second.Candidate.Technique || !out.Approved() {
		t.Error("output should carry the approved candidate")
	}

	events := out.FeedbackEvents()
	if len(events) != 2 {
		t.Fatalf("feedback events = %d, want 2", len(events))
	}
	if events[0].Kind != behavior.KindRejected || events[1].Kind != behavior.KindDelivered {
		t.Errorf("kinds = %s, %s", events[0].Kind, events[1].Kind)
	}
	if events[0].Context["required_modifications"] == "" {
		t.Error("rejection event carries no required modifications")
	}
	if events[1].Context["request_id"] != out.RequestID {
		t.Error("delivery event missing request id")
	}
}

func TestAllAttemptsRejected(t *testing.T) {
	e := newEngine(stubGen{score: 0.95, low: func(string) bool { return true }}, WithMaxAttempts(3))
	out, err := e.Run(context.Background(), learningRequest("u1"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Approved() {
		t.Error("approved despite failing safety everywhere")
	}
	if len(out.Attempts) != 3 {
		t.Fatalf("attempts = %d, want 3", len(out.Attempts))
	}
	seen := map[technique.ID]bool{}
	for _, a := range out.Attempts {
		if seen[a.Candidate.Technique] {
			t.Errorf("technique %s tried twice", a.Candidate.Technique)
		}
		seen[a.Candidate.Technique] = true
	}
	if out.Candidate.Technique != out.Attempts[2].Candidate.Technique {
		t.Error("output should carry the last rejected candidate")
	}
	for _, ev := range out.FeedbackEvents() {
		if ev.Kind != behavior.KindRejected {
			t.Errorf("kind = %s, want rejected", ev.Kind)
		}
	}
}

func TestHistoryStoreAndProfileCache(t *testing.T) {
	store := history.NewMemory()
	ctx := context.Background()
	var events []behavior.HistoryEvent
	for i := range 10 {
		events = append(events, behavior.HistoryEvent{
			Timestamp: wednesday.Add(-time.Duration(i+1) * 24 * time.Hour),
			Domain:    behavior.Learning,
			Complied:  boolPtr(i%2 == 0),
			Technique: "habit_stacking",
		})
	}
	if err := store.Append(ctx, "u1", events...); err != nil {
		t.Fatalf("Append: %v", err)
	}

	cache := profilecache.New()
	e := newEngine(stubGen{score: 0.95}, WithHistory(store), WithProfileCache(cache))

	first, err := e.Run(ctx, learningRequest("u1"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if first.Profile.RatedEvents != 10 {
		t.Errorf("rated events = %d, want 10 from the store", first.Profile.RatedEvents)
	}
	if first.ProfileConfidence <= 0 {
		t.Errorf("profile confidence = %v, want > 0 with history", first.ProfileConfidence)
	}

	second, err := e.Run(ctx, learningRequest("u1"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if second.Profile != first.Profile {
		t.Error("second run recomputed the profile instead of using the cache")
	}

	if err := e.RecordOutcome(ctx, "u1", first.FeedbackEvents()...); err != nil {
		t.Fatalf("RecordOutcome: %v", err)
	}
	if err := e.RecordOutcome(ctx, "u1", behavior.HistoryEvent{
		Timestamp: wednesday.Add(-time.Hour), Domain: behavior.Learning, Complied: boolPtr(true),
	}); err != nil {
		t.Fatalf("RecordOutcome: %v", err)
	}
	third, err := e.Run(ctx, learningRequest("u1"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if third.Profile == first.Profile {
		t.Error("profile not recomputed after recording an outcome")
	}
	if third.Profile.RatedEvents != 11 {
		t.Errorf("rated events = %d, want 11", third.Profile.RatedEvents)
	}
}

func TestRecordOutcomeWithoutStore(t *testing.T) {
	e := newEngine(stubGen{score: 0.95})
	err := e.RecordOutcome(context.Background(), "u1", behavior.HistoryEvent{Timestamp: wednesday})
	if !errors.Is(err, ErrReadOnlyHistory) {
		t.Errorf("err = %v, want ErrReadOnlyHistory", err)
	}
}

type brokenStore struct{}

func (brokenStore) Events(context.Context, string, time.Time) ([]behavior.HistoryEvent, error) {
	return nil, errors.New("database is locked")
}

func TestHistoryFailureFallsBackToColdStart(t *testing.T) {
	cache := profilecache.New()
	e := newEngine(stubGen{score: 0.95}, WithHistory(brokenStore{}), WithProfileCache(cache))
	out, err := e.Run(context.Background(), learningRequest("u1"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Profile.RatedEvents != 0 {
		t.Errorf("rated events = %d, want 0", out.Profile.RatedEvents)
	}
	if cache.Len() != 0 {
		t.Error("profile built without history was cached")
	}
}

func TestCrisisRequest(t *testing.T) {
	e := newEngine(stubGen{score: 0.95})
	req := learningRequest("u1")
	req.Context.Urgency = behavior.UrgencyCritical
	out, err := e.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !out.Candidate.Metadata.Crisis {
		t.Error("crisis flag not set")
	}
	inPool := false
	for _, id := range technique.DefaultCrisisPool {
		if id == out.Candidate.Technique {
			inPool = true
		}
	}
	if !inPool {
		t.Errorf("technique %s is outside the crisis pool", out.Candidate.Technique)
	}
}

func TestRunCanceled(t *testing.T) {
	e := newEngine(stubGen{score: 0.95})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out, err := e.Run(ctx, learningRequest("u1"))
	if err == nil || out != nil {
		t.Fatalf("Run on canceled context = %v, %v; want error and no output", out, err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
