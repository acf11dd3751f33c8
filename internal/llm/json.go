package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var errNoJSON = errors.New("no JSON object in response")

// decodeJSON unmarshals the first JSON object found in a model reply. Models
// often wrap the object in prose or a markdown fence.
func decodeJSON(content string, v any) error {
	raw, err := extractJSON(content)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("decode model JSON: %w", err)
	}
	return nil
}

func extractJSON(content string) (string, error) {
	content = stripThinking(content)
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end < start {
		return "", errNoJSON
	}
	return content[start : end+1], nil
}

func clampScore(v int) int {
	return max(0, min(100, v))
}
