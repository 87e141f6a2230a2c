package convert

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/archanaanairr/vb6/internal/jsonutil"
)

// Backend is the text-generation service behind the pipeline: a fallible
// function from prompt to text. Implementations must honor ctx cancellation.
type Backend interface {
	Translate(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// Driver invokes the backend with a bounded retry budget and gates every
// response before anything downstream trusts it. It is the terminal quality
// gate: past it, payload content is used verbatim.
type Driver struct {
	backend Backend
	retries int
	logger  *slog.Logger
}

// NewDriver builds a Driver. retries < 0 falls back to DefaultRetries;
// retries counts re-attempts after the first, so retries=3 means 4 attempts.
func NewDriver(backend Backend, retries int, logger *slog.Logger) *Driver {
	if retries < 0 {
		retries = DefaultRetries
	}
	return &Driver{backend: backend, retries: retries, logger: logger}
}

// action is the verdict of validating one attempt's output.
type action int

const (
	actAccept action = iota
	actRetry
	actRepair
)

const incompleteBodyMarker = "/* conversion incomplete: empty body */"

// emptyBodyPattern matches a callable signature closing into an empty brace
// pair, the shape a truncated or lazy response leaves behind.
var emptyBodyPattern = regexp.MustCompile(`\)\s*\{\s*\}`)

// Request drives one prompt through attempt/validate cycles: each attempt is
// accepted, retried, or (for empty callable bodies on the final attempt)
// repaired in place with a marker comment. expectKeys is the schema contract
// for this request; at least one key must be present.
func (d *Driver) Request(ctx context.Context, prompt string, maxTokens int, expectKeys []string) (Result, error) {
	attempts := d.retries + 1
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		raw, err := d.backend.Translate(ctx, prompt, maxTokens)
		if err != nil {
			lastErr = &BackendError{Err: err}
			d.logger.Warn("backend call failed", "attempt", attempt, "attempts", attempts, "error", err)
			continue
		}

		result, act, verr := validate(raw, expectKeys)
		switch act {
		case actAccept:
			return result, nil

		case actRepair:
			if attempt == attempts {
				repaired := repairEmptyBodies(result)
				d.logger.Warn("retries exhausted, annotating empty bodies", "keys", repaired)
				return result, nil
			}
			lastErr = verr
			d.logger.Warn("output has empty callable bodies, retrying", "attempt", attempt, "attempts", attempts)

		default:
			lastErr = verr
			d.logger.Warn("invalid output, retrying", "attempt", attempt, "attempts", attempts, "error", verr)
		}
	}

	return nil, fmt.Errorf("exhausted %d attempts: %w", attempts, lastErr)
}

// validate classifies one attempt's raw output. Parse and schema failures
// are retryable; a structurally valid result whose only defect is empty
// callable bodies is repairable.
func validate(raw string, expectKeys []string) (Result, action, error) {
	parsed, err := jsonutil.Recover(raw)
	if err != nil {
		return nil, actRetry, err
	}

	result := Result(parsed)
	if !hasAnyKey(result, expectKeys) {
		return nil, actRetry, &SchemaError{Found: sortedKeys(result)}
	}

	if keys := emptyBodyKeys(result); len(keys) > 0 {
		return result, actRepair, fmt.Errorf("empty callable body in %s", strings.Join(keys, ", "))
	}

	return result, actAccept, nil
}

func hasAnyKey(result Result, keys []string) bool {
	for _, k := range keys {
		if _, ok := result[k]; ok {
			return true
		}
	}
	return false
}

func sortedKeys(result Result) []string {
	keys := make([]string, 0, len(result))
	for k := range result {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func emptyBodyKeys(result Result) []string {
	var keys []string
	for k, v := range result {
		if k == contextSummaryKey {
			continue
		}
		if emptyBodyPattern.MatchString(v) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// repairEmptyBodies annotates every empty callable body with the marker
// comment instead of fabricating an implementation. Returns the repaired
// keys.
func repairEmptyBodies(result Result) []string {
	keys := emptyBodyKeys(result)
	for _, k := range keys {
		result[k] = emptyBodyPattern.ReplaceAllString(result[k], ") { "+incompleteBodyMarker+" }")
	}
	return keys
}
