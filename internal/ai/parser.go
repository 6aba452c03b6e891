package ai

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var codeBlockRe = regexp.MustCompile("(?s)^```(?:json)?\\s*\\n?(.*?)\\n?```$")

// stripMarkdownCodeBlock removes markdown code fences the model may wrap its
// JSON output in. Handles ```json\n{...}\n``` and bare ``` fences.
func stripMarkdownCodeBlock(response string) string {
	response = strings.TrimSpace(response)
	if matches := codeBlockRe.FindStringSubmatch(response); len(matches) > 1 {
		return strings.TrimSpace(matches[1])
	}
	return response
}

// requiredKeys must all be present in the authority's response, even when
// their values are null.
var requiredKeys = []string{
	"action",
	"confidence",
	"reasoning",
	"entry_poi",
	"target_liquidity",
	"stop_reference",
}

// ParseDecision decodes and validates a raw authority response. It is a
// strict decode-then-validate step: any missing key, unknown action, or
// out-of-range confidence is an error, never a partially trusted decision.
func ParseDecision(raw string) (Decision, error) {
	clean := stripMarkdownCodeBlock(raw)

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(clean), &fields); err != nil {
		return Decision{}, fmt.Errorf("malformed JSON: %w", err)
	}

	for _, key := range requiredKeys {
		if _, ok := fields[key]; !ok {
			return Decision{}, fmt.Errorf("missing required key %q", key)
		}
	}

	var decision Decision
	if err := json.Unmarshal([]byte(clean), &decision); err != nil {
		return Decision{}, fmt.Errorf("invalid field types: %w", err)
	}

	if !decision.Action.Valid() {
		return Decision{}, fmt.Errorf("invalid action %q", decision.Action)
	}
	if decision.Confidence < 0 || decision.Confidence > 100 {
		return Decision{}, fmt.Errorf("confidence %d out of range", decision.Confidence)
	}

	return decision, nil
}
