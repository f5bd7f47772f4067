package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/custodia-labs/workorder-assistant/internal/core/domain"
)

// extractJSONObject isolates a single JSON object from a model reply.
// An optional ``` or ```json fence is removed; any other prose around
// the object makes the reply malformed.
func extractJSONObject(reply string) (string, error) {
	text := strings.TrimSpace(reply)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```JSON")
		text = strings.TrimPrefix(text, "```")
		end := strings.LastIndex(text, "```")
		if end < 0 {
			return "", fmt.Errorf("%w: unterminated code fence", domain.ErrMalformedOutput)
		}
		text = strings.TrimSpace(text[:end])
	}
	if !strings.HasPrefix(text, "{") || !strings.HasSuffix(text, "}") {
		return "", fmt.Errorf("%w: expected a JSON object", domain.ErrMalformedOutput)
	}
	return text, nil
}

// decodeStrict parses a model reply into v, rejecting unknown keys,
// wrong value types and trailing content.
func decodeStrict(reply string, v any) error {
	text, err := extractJSONObject(reply)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(text)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrMalformedOutput, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing content after object", domain.ErrMalformedOutput)
	}
	return nil
}

// cleanSlot turns empty and placeholder strings into nil.
func cleanSlot(v *string) *string {
	if v == nil {
		return nil
	}
	s := strings.TrimSpace(*v)
	switch strings.ToLower(s) {
	case "", "null", "none", "n/a", "unknown", "없음":
		return nil
	}
	return &s
}

// validConfidence reports whether c is a usable probability.
func validConfidence(c float64) bool {
	return c >= 0 && c <= 1
}

// clamp01 bounds c to [0,1].
func clamp01(c float64) float64 {
	return min(max(c, 0), 1)
}
