// Package llm wraps the text-generation model used by the assistant and the
// intent extractor.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
)

// ErrUnavailable is returned when no model is configured.
var ErrUnavailable = errors.New("language model unavailable")

// Generator produces a completion for a single prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Disabled is the Generator used when no API key is configured.
type Disabled struct{}

func (Disabled) Generate(context.Context, string) (string, error) {
	return "", ErrUnavailable
}

// ExtractJSON returns the first JSON object or array embedded in text: from
// the first '{' or '[' to the last matching closer. Models often wrap JSON in
// prose or code fences.
func ExtractJSON(text string) (string, bool) {
	for i := 0; i < len(text); i++ {
		var closer byte
		switch text[i] {
		case '{':
			closer = '}'
		case '[':
			closer = ']'
		default:
			continue
		}
		if end := strings.LastIndexByte(text, closer); end > i {
			return text[i : end+1], true
		}
	}
	return "", false
}

// DecodeJSON extracts the embedded JSON from text and unmarshals it into v.
func DecodeJSON(text string, v any) error {
	raw, ok := ExtractJSON(text)
	if !ok {
		return errors.New("no JSON found in model reply")
	}
	return json.Unmarshal([]byte(raw), v)
}
