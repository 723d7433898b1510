package llm

import (
	"context"
	"encoding/json"
	"regexp"
)

var scoreField = regexp.MustCompile(`"([a-z_]+)":\s*0\.0-1\.0`)

// DefaultOfflineScore is neutral: it never clears an approval threshold.
const DefaultOfflineScore = 0.5

// Offline answers scoring prompts locally. Every requested 0.0-1.0 field is
// filled with Score, except confidence, which is always 0.5. Replies carry
// "degraded": true so scorers treat them as stand-ins, not assessments.
type Offline struct {
	Score float64
}

// Generate implements Generator.
func (o Offline) Generate(_ context.Context, prompt, _ string) (string, error) {
	matches := scoreField.FindAllStringSubmatch(prompt, -1)
	if len(matches) == 0 {
		return "", ErrNoJSON
	}
	fields := map[string]any{
		"reasoning": "offline mode: no generation service was consulted",
		"degraded":  true,
	}
	for _, m := range matches {
		if m[1] == "confidence" {
			fields[m[1]] = 0.5
			continue
		}
		fields[m[1]] = o.Score
	}
	b, err := json.Marshal(fields)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
