// Package jsonutil recovers structured key/value output from model responses
// that are supposed to be clean JSON but often arrive fenced, wrapped in
// prose, or partially escaped. Recovery stages run strictest-first; later
// stages are more permissive and only run when earlier ones fail.
package jsonutil

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrEmptyResponse is returned for responses with no content at all.
var ErrEmptyResponse = errors.New("empty response")

// MalformedError means every recovery stage failed. Preview carries up to
// 200 characters of the cleaned response for diagnostics.
type MalformedError struct {
	Preview string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("invalid JSON response: %s...", e.Preview)
}

const previewLimit = 200

var (
	fenceOpen  = regexp.MustCompile("(?m)^```[a-zA-Z]*[ \t]*\n?")
	fenceClose = regexp.MustCompile("(?m)\n?```[ \t]*$")
	bracedSpan = regexp.MustCompile(`\{[\s\S]*\}`)
)

// Recover extracts a string-keyed object from raw model output.
//
// Stage order: strip code fences and parse directly; normalize escaped
// quotes/backslashes and parse the first balanced brace span; greedy-match
// the widest brace-delimited span; give up with a MalformedError. The first
// stage that yields a valid object wins.
func Recover(raw string) (map[string]string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, ErrEmptyResponse
	}

	cleaned := fenceOpen.ReplaceAllString(raw, "")
	cleaned = fenceClose.ReplaceAllString(cleaned, "")
	cleaned = strings.TrimSpace(cleaned)

	if m, ok := parseObject(cleaned); ok {
		return m, nil
	}

	// Models sometimes double-escape the whole payload; undo that before
	// scanning for a balanced object span, which also drops trailing prose.
	fixed := strings.ReplaceAll(cleaned, `\"`, `"`)
	fixed = strings.ReplaceAll(fixed, `\\`, `\`)
	if span, ok := firstBalancedSpan(fixed); ok {
		if m, ok := parseObject(span); ok {
			return m, nil
		}
	}

	if span := bracedSpan.FindString(cleaned); span != "" {
		if m, ok := parseObject(span); ok {
			return m, nil
		}
	}

	preview := cleaned
	if len(preview) > previewLimit {
		preview = preview[:previewLimit]
	}
	return nil, &MalformedError{Preview: preview}
}

// parseObject is a strict whole-input parse with tolerant value typing:
// string values are kept, numbers and bools are stringified, null and
// composite values are dropped.
func parseObject(s string) (map[string]string, bool) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return nil, false
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case string:
			out[k] = val
		case float64, bool:
			out[k] = fmt.Sprint(val)
		}
	}
	return out, true
}

// firstBalancedSpan returns the first top-level {...} span, tracking brace
// depth character by character. Braces inside string literals are counted
// too; the subsequent parse attempt catches any span that cut wrong.
func firstBalancedSpan(s string) (string, bool) {
	depth := 0
	start := -1
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			depth--
			if depth == 0 && start != -1 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
