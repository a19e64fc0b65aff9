// Package ai defines the text generation service used to write changelogs.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Schema describes a JSON object of string fields a structured response
// must match.
type Schema struct {
	Fields   []string
	Required []string
}

// ContentSchema is {"content": string}.
var ContentSchema = &Schema{Fields: []string{"content"}, Required: []string{"content"}}

// Generator submits a prompt and returns the generated text. When schema is
// non-nil and the transport supports it, the text is JSON matching schema.
type Generator interface {
	Generate(ctx context.Context, prompt string, schema *Schema) (string, error)
}

// Verifier is implemented by generators that can check they are usable
// before a run starts.
type Verifier interface {
	Verify(ctx context.Context) error
}

// ParseContent extracts the content field of a ContentSchema response.
func ParseContent(text string) (string, error) {
	var res struct {
		Content *string `json:"content"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &res); err != nil {
		return "", fmt.Errorf("ai: invalid structured response: %w", err)
	}
	if res.Content == nil {
		return "", errors.New("ai: structured response has no content field")
	}
	return *res.Content, nil
}

// ExtractJSON returns the outermost {...} object in text, skipping any
// prose or code fences around it.
func ExtractJSON(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return "", false
	}
	return text[start : end+1], true
}
