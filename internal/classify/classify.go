package classify

import (
	"regexp"
	"strings"
	"unicode"
)

const (
	// PurposeService marks classes that do work: foreign declarations or
	// more than two methods. Routed to Services/ in the output tree.
	PurposeService = "service"
	// PurposeModel marks property-dominant data classes. Routed to Models/.
	PurposeModel = "model"
)

var vbNamePattern = regexp.MustCompile(`Attribute VB_Name = "([^"]+)"`)

// ClassName extracts the class name from a .cls file: the VB_Name attribute
// in the first 20 lines, then a Class keyword heuristic in the first 50,
// then "UnknownClass".
func ClassName(text string) string {
	lines := strings.Split(text, "\n")

	for i, line := range lines {
		if i >= 20 {
			break
		}
		if strings.HasPrefix(strings.TrimSpace(line), "Attribute VB_Name =") {
			if m := vbNamePattern.FindStringSubmatch(line); m != nil {
				return m[1]
			}
		}
	}

	for i, line := range lines {
		if i >= 50 {
			break
		}
		if !strings.Contains(line, "Class") {
			continue
		}
		if !strings.Contains(line, "Public") && !strings.Contains(line, "Private") {
			continue
		}
		words := strings.Fields(line)
		for j, word := range words {
			if word == "Class" && j+1 < len(words) {
				return words[j+1]
			}
		}
	}

	return "UnknownClass"
}

var (
	methodKeywords   = []string{"Public Sub", "Private Sub", "Public Function", "Private Function"}
	propertyKeywords = []string{"Property Get", "Property Let", "Property Set"}
)

// Purpose classifies a .cls file as a service or a model. Foreign (Declare)
// statements or more than two methods make it a service; property-dominant
// and plain simple classes are both models.
func Purpose(text string) string {
	methods := 0
	hasDeclare := false

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case containsAny(trimmed, methodKeywords):
			methods++
		case containsAny(trimmed, propertyKeywords):
			// Accessors are not methods for classification purposes.
		case strings.Contains(trimmed, "Declare") &&
			(strings.Contains(trimmed, "Function") || strings.Contains(trimmed, "Sub")):
			hasDeclare = true
		}
	}

	if hasDeclare || methods > 2 {
		return PurposeService
	}
	return PurposeModel
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

// ValidNamespace reports whether s is usable as a C# namespace: letters and
// digits with optional dots and underscores, and at least one alphanumeric
// character.
func ValidNamespace(s string) bool {
	return alnumIgnoring(s, "._")
}

// ProjectName returns stem if it is a safe project name (alphanumeric with
// optional underscores and hyphens), else "MyWorkerService".
func ProjectName(stem string) string {
	if alnumIgnoring(stem, "_-") {
		return stem
	}
	return "MyWorkerService"
}

func alnumIgnoring(s, ignore string) bool {
	count := 0
	for _, r := range s {
		if strings.ContainsRune(ignore, r) {
			continue
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
		count++
	}
	return count > 0
}
