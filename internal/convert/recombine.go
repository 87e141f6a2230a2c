package convert

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// combineModuleParts routes recombination of a module unit back through the
// model: every partial is embedded in one combine prompt so the model can
// deduplicate methods split across chunk boundaries. Inherits the driver's
// retry and recovery semantics.
func (c *Converter) combineModuleParts(ctx context.Context, parts []Result, unitName, namespace string) (Result, error) {
	c.logger.Info("combining converted chunks", "unit", unitName, "parts", len(parts))
	return c.driver.Request(ctx, combinePrompt(parts, unitName, namespace), maxTokensCombine, moduleKeys)
}

var (
	usingLine     = regexp.MustCompile(`^\s*using\s+[\w.]+\s*;\s*$`)
	namespaceLine = regexp.MustCompile(`^\s*namespace\s+[\w.]+\s*[;{]?\s*$`)

	// typeDeclLine anchors duplicate-declaration collapsing; only public
	// type declarations participate.
	typeDeclLine = regexp.MustCompile(`^\s*public\s+(?:class|struct|enum)\s+\w+`)
)

func wrapperDeclPattern(className string) *regexp.Regexp {
	return regexp.MustCompile(`^(?:public\s+|internal\s+)?(?:sealed\s+)?(?:partial\s+)?class\s+` +
		regexp.QuoteMeta(className) + `\b[^{]*\{?\s*$`)
}

// combineClassParts merges class chunk translations locally, without another
// model call: strip each partial's own using/namespace/wrapper header lines,
// join the bodies in chunk order, collapse verbatim-duplicate public type
// blocks, and synthesize a single class wrapper around the merged body.
func combineClassParts(parts []Result, className, namespace string) Result {
	wrapper := wrapperDeclPattern(className)

	var bodies []string
	for _, part := range parts {
		code, ok := part["ClassChunk.cs"]
		if !ok || strings.TrimSpace(code) == "" {
			continue
		}
		if body := stripChunkWrapper(code, wrapper); body != "" {
			bodies = append(bodies, body)
		}
	}

	merged := collapseDuplicateDecls(strings.Join(bodies, "\n\n"))
	return Result{"Class.cs": wrapClass(merged, className, namespace)}
}

// stripChunkWrapper removes header lines from the top of a chunk body (using
// directives, namespace declarations, the chunk's own class wrapper and its
// opening brace) and the matching closing braces from the bottom. Header
// lines only; the first body line ends the scan.
func stripChunkWrapper(code string, wrapper *regexp.Regexp) string {
	lines := strings.Split(code, "\n")

	depth := 0
	expectBrace := false
	start := 0

scan:
	for ; start < len(lines); start++ {
		trimmed := strings.TrimSpace(lines[start])
		switch {
		case trimmed == "":
		case usingLine.MatchString(trimmed):
		case namespaceLine.MatchString(trimmed):
			if strings.HasSuffix(trimmed, "{") {
				depth++
			} else if !strings.HasSuffix(trimmed, ";") {
				expectBrace = true
			}
		case wrapper.MatchString(trimmed):
			if strings.HasSuffix(trimmed, "{") {
				depth++
			} else {
				expectBrace = true
			}
		case trimmed == "{" && expectBrace:
			depth++
			expectBrace = false
		default:
			break scan
		}
	}

	end := len(lines)
	for removed := 0; end > start && removed < depth; {
		trimmed := strings.TrimSpace(lines[end-1])
		if trimmed == "" {
			end--
			continue
		}
		if trimmed == "}" {
			end--
			removed++
			continue
		}
		break
	}

	return strings.Trim(strings.Join(lines[start:end], "\n"), "\n")
}

// collapseDuplicateDecls removes later verbatim repeats of a public type
// block, first occurrence wins. Blocks that differ by a single byte are both
// kept; reconciling near-duplicates is not attempted.
func collapseDuplicateDecls(text string) string {
	lines := strings.Split(text, "\n")
	seen := make(map[string]bool)
	var out []string

	for i := 0; i < len(lines); {
		if typeDeclLine.MatchString(lines[i]) {
			if block, next := captureBlock(lines, i); next > i {
				if seen[block] {
					i = next
					continue
				}
				seen[block] = true
				out = append(out, lines[i:next]...)
				i = next
				continue
			}
		}
		out = append(out, lines[i])
		i++
	}

	return strings.Join(out, "\n")
}

// captureBlock joins the lines of one brace-balanced block starting at
// lines[i]. Returns the block text and the index after its last line, or
// ("", i) when the braces never balance.
func captureBlock(lines []string, i int) (string, int) {
	depth := 0
	opened := false
	for j := i; j < len(lines); j++ {
		for k := 0; k < len(lines[j]); k++ {
			switch lines[j][k] {
			case '{':
				depth++
				opened = true
			case '}':
				depth--
			}
		}
		if opened && depth <= 0 {
			return strings.Join(lines[i:j+1], "\n"), j + 1
		}
	}
	return "", i
}

// wrapClass synthesizes the single class file around a merged body. The
// disposal marker is added only when a partial body itself referenced one.
func wrapClass(body, className, namespace string) string {
	needsDispose := strings.Contains(body, "IDisposable") || strings.Contains(body, "Dispose(")

	var sb strings.Builder
	sb.WriteString("using System;\n")
	sb.WriteString("using System.Runtime.InteropServices;\n\n")
	fmt.Fprintf(&sb, "namespace %s;\n\n", namespace)
	fmt.Fprintf(&sb, "public class %s", className)
	if needsDispose {
		sb.WriteString(" : IDisposable")
	}
	sb.WriteString("\n{\n")
	sb.WriteString(indentLines(body, "    "))
	sb.WriteString("\n}\n")
	return sb.String()
}

func indentLines(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) != "" {
			lines[i] = prefix + line
		}
	}
	return strings.Join(lines, "\n")
}

// ensureUsable re-validates a recombined result: every output file must hold
// a balanced, non-empty body block. Anything structurally unusable triggers
// one whole-unit fallback request with the original un-chunked text.
func (c *Converter) ensureUsable(ctx context.Context, result Result, unit Unit, namespace string) (Result, error) {
	if usable(result) {
		return result, nil
	}

	c.logger.Warn("recombined output structurally unusable, retrying whole unit", "unit", unit.Name)

	prompt := fmt.Sprintf(modulePrompt, namespace, unit.Text)
	keys := moduleKeys
	if unit.Kind == KindClass {
		prompt = fmt.Sprintf(classPrompt, namespace, unit.Text)
		keys = classKeys
	}

	fallback, err := c.driver.Request(ctx, prompt, maxTokensUnit, keys)
	if err != nil {
		return nil, &UnitError{Unit: unit.Name, Reason: fmt.Sprintf("fallback conversion failed: %v", err)}
	}
	return fallback, nil
}

func usable(result Result) bool {
	for k, v := range result {
		if k == contextSummaryKey {
			continue
		}
		if !hasBalancedBody(v) {
			return false
		}
	}
	return true
}

// hasBalancedBody reports whether s contains at least one brace pair, with
// braces balanced overall and non-whitespace content inside some block.
func hasBalancedBody(s string) bool {
	depth, opens := 0, 0
	content := false
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
			opens++
		case '}':
			depth--
			if depth < 0 {
				return false
			}
		case ' ', '\t', '\n', '\r':
		default:
			if depth > 0 {
				content = true
			}
		}
	}
	return depth == 0 && opens > 0 && content
}
