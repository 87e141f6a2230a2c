package segment

import "strings"

// State is the parser state of the line scanner. Chunk boundaries are only
// legal in StateNeutral; a chunk sealed mid-body would split a callable or
// record from its end marker.
type State int

const (
	StateNeutral State = iota
	StateInCallable
	StateInRecord
)

func (s State) String() string {
	switch s {
	case StateInCallable:
		return "in_callable"
	case StateInRecord:
		return "in_record"
	default:
		return "neutral"
	}
}

// Chunk is a contiguous slice of a source unit's lines. Ordinals are 1-based
// and contiguous; joining Text fields with "\n" in ordinal order reproduces
// the unit's original line sequence.
type Chunk struct {
	Ordinal int
	Total   int
	Text    string
	State   State // scanner state at the point this chunk was sealed
}

// Vocabulary is the line-prefix keyword table for one unit kind. Prefixes are
// matched against the trimmed line after stripping an optional access
// modifier, so "Private Sub Foo()" and "Sub Foo()" classify identically.
type Vocabulary struct {
	CallableOpen  []string
	CallableClose []string
	RecordOpen    []string
	RecordClose   []string
	Declare       []string
}

// ModuleVocabulary tracks callable boundaries only, which is all plain .bas
// modules need.
var ModuleVocabulary = Vocabulary{
	CallableOpen:  []string{"Sub ", "Function "},
	CallableClose: []string{"End Sub", "End Function"},
}

// ClassVocabulary additionally tracks property accessors, record (Type)
// blocks, and single-line foreign declarations found in .cls files.
var ClassVocabulary = Vocabulary{
	CallableOpen:  []string{"Sub ", "Function ", "Property Get ", "Property Set ", "Property Let "},
	CallableClose: []string{"End Sub", "End Function", "End Property"},
	RecordOpen:    []string{"Type "},
	RecordClose:   []string{"End Type"},
	Declare:       []string{"Declare Function ", "Declare Sub "},
}

var accessModifiers = []string{"Public ", "Private ", "Friend ", "Static "}

type lineClass int

const (
	linePlain lineClass = iota
	lineCallableOpen
	lineCallableClose
	lineRecordOpen
	lineRecordClose
	lineDeclare
)

func (v Vocabulary) classify(line string) lineClass {
	trimmed := strings.TrimSpace(line)
	for {
		stripped := false
		for _, mod := range accessModifiers {
			if strings.HasPrefix(trimmed, mod) {
				trimmed = trimmed[len(mod):]
				stripped = true
			}
		}
		if !stripped {
			break
		}
	}

	switch {
	case hasAnyPrefix(trimmed, v.RecordClose):
		return lineRecordClose
	case hasAnyPrefix(trimmed, v.RecordOpen):
		return lineRecordOpen
	case hasAnyPrefix(trimmed, v.Declare):
		return lineDeclare
	case hasAnyPrefix(trimmed, v.CallableClose):
		return lineCallableClose
	case hasAnyPrefix(trimmed, v.CallableOpen):
		return lineCallableOpen
	default:
		return linePlain
	}
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// Split segments text into chunks no larger than maxChunkSize, cutting only
// at neutral-state line boundaries. A single body larger than the budget is
// kept whole, so one chunk may exceed maxChunkSize. Close lines are always
// appended to the chunk holding their body; once a close lands past 80% of
// the budget the chunk is sealed there rather than at the hard limit.
func Split(text string, vocab Vocabulary, maxChunkSize int) []Chunk {
	if text == "" {
		return nil
	}

	lines := strings.Split(text, "\n")

	var chunks []Chunk
	var current []string
	size := 0
	state := StateNeutral

	seal := func() {
		chunks = append(chunks, Chunk{Text: strings.Join(current, "\n"), State: state})
		current = nil
		size = 0
	}
	appendLine := func(line string) {
		current = append(current, line)
		size += len(line)
	}
	// Cut before a line, per the boundary policy: only when the line would
	// push the chunk over budget, only in neutral state, never leaving an
	// empty chunk behind.
	cutBefore := func(line string) {
		if size+len(line) > maxChunkSize && len(current) > 0 && state == StateNeutral {
			seal()
		}
	}

	for _, line := range lines {
		switch vocab.classify(line) {
		case lineCallableOpen:
			cutBefore(line)
			appendLine(line)
			state = StateInCallable

		case lineCallableClose:
			appendLine(line)
			state = StateNeutral
			if float64(size) > 0.8*float64(maxChunkSize) {
				seal()
			}

		case lineRecordOpen:
			cutBefore(line)
			appendLine(line)
			state = StateInRecord

		case lineRecordClose:
			appendLine(line)
			state = StateNeutral
			if float64(size) > 0.8*float64(maxChunkSize) {
				seal()
			}

		case lineDeclare:
			cutBefore(line)
			appendLine(line)

		default:
			cutBefore(line)
			appendLine(line)
		}
	}

	if len(current) > 0 {
		seal()
	}

	for i := range chunks {
		chunks[i].Ordinal = i + 1
		chunks[i].Total = len(chunks)
	}
	return chunks
}

// Whole wraps an unsegmented unit as its own single chunk, for units below
// the segmentation threshold.
func Whole(text string) []Chunk {
	return []Chunk{{Ordinal: 1, Total: 1, Text: text, State: StateNeutral}}
}
