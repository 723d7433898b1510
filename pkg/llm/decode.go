package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// DecodeJSON unmarshals a reply into v. It tries the reply as-is, then the
// JSON found inside code fences or between the outermost braces, then a
// repaired version of that text.
func DecodeJSON(reply string, v any) error {
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return ErrEmptyReply
	}
	if err := json.Unmarshal([]byte(reply), v); err == nil {
		return nil
	}

	if extracted, err := ExtractJSON(reply); err == nil {
		if err := json.Unmarshal([]byte(extracted), v); err == nil {
			return nil
		}
	}

	repaired, err := jsonrepair.JSONRepair(candidateText(reply))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNoJSON, err)
	}
	if err := json.Unmarshal([]byte(repaired), v); err != nil {
		return fmt.Errorf("%w: %w", ErrNoJSON, err)
	}
	return nil
}

// ExtractJSON pulls a JSON object out of a reply that may contain prose.
func ExtractJSON(text string) (string, error) {
	if isValidJSON(text) {
		return text, nil
	}

	if start := strings.Index(text, "```json"); start != -1 {
		start += len("```json")
		if end := strings.Index(text[start:], "```"); end != -1 {
			jsonText := strings.TrimSpace(text[start : start+end])
			if isValidJSON(jsonText) {
				return jsonText, nil
			}
		}
	}

	if start := strings.Index(text, "```"); start != -1 {
		start += len("```")
		if end := strings.Index(text[start:], "```"); end != -1 {
			jsonText := strings.TrimSpace(text[start : start+end])
			if isValidJSON(jsonText) {
				return jsonText, nil
			}
		}
	}

	if start := strings.Index(text, "{"); start != -1 {
		if end := strings.LastIndex(text, "}"); end > start {
			jsonText := strings.TrimSpace(text[start : end+1])
			if isValidJSON(jsonText) {
				return jsonText, nil
			}
		}
	}

	return "", ErrNoJSON
}

// candidateText narrows a reply to the region most likely to hold the object
// before handing it to the repairer.
func candidateText(text string) string {
	if start := strings.Index(text, "```json"); start != -1 {
		text = text[start+len("```json"):]
		if end := strings.Index(text, "```"); end != -1 {
			text = text[:end]
		}
		return strings.TrimSpace(text)
	}
	if start := strings.Index(text, "{"); start != -1 {
		text = text[start:]
		if end := strings.LastIndex(text, "}"); end != -1 {
			text = text[:end+1]
		}
	}
	return strings.TrimSpace(text)
}

func isValidJSON(s string) bool {
	var js map[string]any
	return json.Unmarshal([]byte(s), &js) == nil
}
