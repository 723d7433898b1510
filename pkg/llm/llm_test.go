package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{context.Canceled, false},
		{context.DeadlineExceeded, true},
		{fmt.Errorf("call failed: %w", context.DeadlineExceeded), true},
		{errors.New("Error 429: Resource has been exhausted (rate limit)"), true},
		{errors.New("503 Service Unavailable"), true},
		{errors.New("anthropic: overloaded_error"), true},
		{errors.New("invalid API key"), false},
		{errors.New("model not found"), false},
	}
	for _, tt := range tests {
		if got := IsTransient(tt.err); got != tt.want {
			t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"plain", `{"a": 1}`, `{"a": 1}`, false},
		{"json fence", "Sure:\n```json\n{\"a\": 1}\n```\nDone.", `{"a": 1}`, false},
		{"bare fence", "```\n{\"a\": 2}\n```", `{"a": 2}`, false},
		{"surrounded by prose", `The answer is {"a": 3} as requested.`, `{"a": 3}`, false},
		{"no object", "nothing here", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ExtractJSON err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ExtractJSON = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	type reply struct {
		Score float64 `json:"score"`
	}
	tests := []struct {
		name    string
		input   string
		want    float64
		wantErr error
	}{
		{"direct", `{"score": 0.4}`, 0.4, nil},
		{"fenced", "```json\n{\"score\": 0.5}\n```", 0.5, nil},
		{"trailing comma", `{"score": 0.6,}`, 0.6, nil},
		{"single quotes", `{'score': 0.7}`, 0.7, nil},
		{"empty", "   ", 0, ErrEmptyReply},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r reply
			err := DecodeJSON(tt.input, &r)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("DecodeJSON err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeJSON: %v", err)
			}
			if r.Score != tt.want {
				t.Errorf("score = %v, want %v", r.Score, tt.want)
			}
		})
	}
}

func TestRetryTransient(t *testing.T) {
	var calls atomic.Int32
	g := WithRetry(GeneratorFunc(func(context.Context, string, string) (string, error) {
		if calls.Add(1) < 3 {
			return "", errors.New("503 unavailable")
		}
		return "ok", nil
	}), 3, time.Millisecond, nil)

	got, err := g.Generate(context.Background(), "p", "s")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "ok" || calls.Load() != 3 {
		t.Errorf("got %q after %d calls, want ok after 3", got, calls.Load())
	}
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	var calls atomic.Int32
	g := WithRetry(GeneratorFunc(func(context.Context, string, string) (string, error) {
		calls.Add(1)
		return "", errors.New("invalid API key")
	}), 5, time.Millisecond, nil)

	if _, err := g.Generate(context.Background(), "p", "s"); err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestRateLimitPassThrough(t *testing.T) {
	inner := GeneratorFunc(func(context.Context, string, string) (string, error) { return "x", nil })
	if _, ok := WithRateLimit(inner, 0, 0).(GeneratorFunc); !ok {
		t.Error("zero rate should return the generator unchanged")
	}
	limited := WithRateLimit(inner, 1000, 2)
	for range 3 {
		if got, err := limited.Generate(context.Background(), "p", "s"); err != nil || got != "x" {
			t.Fatalf("Generate = %q, %v", got, err)
		}
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := WithRateLimit(inner, 0.001, 1).Generate(ctx, "p", "s"); err == nil {
		t.Error("expected error from canceled context")
	}
}

func countingGenerator(calls *atomic.Int32, fail bool) GeneratorFunc {
	return func(_ context.Context, prompt, system string) (string, error) {
		calls.Add(1)
		if fail {
			return "", errors.New("503 unavailable")
		}
		return system + "|" + prompt, nil
	}
}

func TestReplyCache(t *testing.T) {
	var calls atomic.Int32
	c, err := NewReplyCache(context.Background(), countingGenerator(&calls, false), "model-a", "", time.Hour, nil)
	if err != nil {
		t.Fatalf("NewReplyCache: %v", err)
	}
	for range 3 {
		got, err := c.Generate(context.Background(), "prompt", "system")
		if err != nil || got != "system|prompt" {
			t.Fatalf("Generate = %q, %v", got, err)
		}
	}
	if _, err := c.Generate(context.Background(), "prompt", "other system"); err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestReplyCacheSkipsFailures(t *testing.T) {
	var calls atomic.Int32
	c, err := NewReplyCache(context.Background(), countingGenerator(&calls, true), "m", "", time.Hour, nil)
	if err != nil {
		t.Fatalf("NewReplyCache: %v", err)
	}
	for range 2 {
		if _, err := c.Generate(context.Background(), "p", "s"); err == nil {
			t.Fatal("expected error")
		}
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestReplyCachePersists(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	var calls atomic.Int32

	first, err := NewReplyCache(ctx, countingGenerator(&calls, false), "m", dir, time.Hour, nil)
	if err != nil {
		t.Fatalf("NewReplyCache: %v", err)
	}
	if _, err := first.Generate(ctx, "p", "s"); err != nil {
		t.Fatal(err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	second, err := NewReplyCache(ctx, countingGenerator(&calls, false), "m", dir, time.Hour, nil)
	if err != nil {
		t.Fatalf("NewReplyCache: %v", err)
	}
	defer func() { _ = second.Close() }()
	got, err := second.Generate(ctx, "p", "s")
	if err != nil || got != "s|p" {
		t.Fatalf("Generate = %q, %v", got, err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1 (second answer should come from disk)", calls.Load())
	}
}

func TestOffline(t *testing.T) {
	prompt := "Score it.\n{\n  \"safety_score\": 0.0-1.0,\n  \"reasoning\": \"text\",\n  \"confidence\": 0.0-1.0\n}"
	reply, err := Offline{Score: 0.85}.Generate(context.Background(), prompt, "")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	var fields map[string]any
	if err := json.Unmarshal([]byte(reply), &fields); err != nil {
		t.Fatalf("reply is not JSON: %v", err)
	}
	if fields["safety_score"] != 0.85 || fields["confidence"] != 0.5 || fields["degraded"] != true {
		t.Errorf("fields = %v", fields)
	}
	if _, err := (Offline{}).Generate(context.Background(), "free text", ""); !errors.Is(err, ErrNoJSON) {
		t.Errorf("err = %v, want ErrNoJSON", err)
	}
}

func TestNewUnknownProvider(t *testing.T) {
	if _, err := New(context.Background(), Config{Provider: "smoke-signals"}, nil); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestNewAnthropicRequiresKey(t *testing.T) {
	if _, err := New(context.Background(), Config{Provider: ProviderAnthropic}, nil); err == nil {
		t.Error("expected error without API key")
	}
}
