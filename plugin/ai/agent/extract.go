package agent

import (
	"encoding/json"
	"regexp"
	"strings"
)

// ArtifactFormat tells the extractor what kind of span to look for.
type ArtifactFormat int

const (
	// FormatText artifacts are line-oriented source (Mermaid, Markmap, DSL).
	FormatText ArtifactFormat = iota
	// FormatJSON artifacts are a JSON object or array.
	FormatJSON
	// FormatXML artifacts are a single XML element.
	FormatXML
)

var reasoningBlocks = []*regexp.Regexp{
	regexp.MustCompile(`(?is)<think>.*?</think>`),
	regexp.MustCompile(`(?is)<thinking>.*?</thinking>`),
	regexp.MustCompile(`(?is)<design_concept>.*?</design_concept>`),
}

var (
	danglingThink = regexp.MustCompile(`(?is)^\s*<think(ing)?>`)
	codeElement   = regexp.MustCompile(`(?is)<code>(.*?)(</code>|$)`)
)

// ExtractArtifact cleans raw model output down to the artifact it carries.
// It strips reasoning markup, unwraps a <code> element, then looks for the
// first balanced span matching format. Failing that it strips a single code
// fence. It never fails; the worst case is the trimmed input.
func ExtractArtifact(raw string, format ArtifactFormat) string {
	text := raw
	for _, re := range reasoningBlocks {
		text = re.ReplaceAllString(text, "")
	}
	text = stripDanglingThink(text, format)

	if m := codeElement.FindStringSubmatch(text); m != nil {
		text = m[1]
	}
	text = strings.TrimSpace(text)

	switch format {
	case FormatJSON:
		if span, ok := balancedJSONSpan(text); ok {
			if code, ok := codeField(span); ok {
				return stripFence(code)
			}
			return span
		}
	case FormatXML:
		if span, ok := firstElementSpan(text); ok {
			return span
		}
		// The XML may sit JSON-escaped inside a {"code": "..."} envelope.
		if span, ok := balancedJSONSpan(text); ok {
			if code, ok := codeField(span); ok {
				if inner, ok := firstElementSpan(code); ok {
					return inner
				}
				return stripFence(code)
			}
		}
	default:
		if strings.HasPrefix(text, "{") {
			if span, ok := balancedJSONSpan(text); ok {
				if code, ok := codeField(span); ok {
					return stripFence(code)
				}
			}
		}
	}

	return stripFence(text)
}

// stripDanglingThink drops an unclosed leading reasoning block up to the
// first line that opens the artifact. When no line does, nothing is left.
func stripDanglingThink(text string, format ArtifactFormat) string {
	loc := danglingThink.FindStringIndex(text)
	if loc == nil {
		return text
	}
	rest := text[loc[1]:]
	offset := 0
	for _, line := range strings.SplitAfter(rest, "\n") {
		if opensArtifact(strings.TrimSpace(line), format) {
			return rest[offset:]
		}
		offset += len(line)
	}
	return ""
}

func opensArtifact(line string, format ArtifactFormat) bool {
	if strings.HasPrefix(line, "```") || strings.HasPrefix(line, "<code>") {
		return true
	}
	switch format {
	case FormatJSON:
		return strings.HasPrefix(line, "{") || strings.HasPrefix(line, "[")
	case FormatXML:
		return strings.HasPrefix(line, "<")
	}
	return strings.HasPrefix(line, "{") || SniffMindmap(line) || SniffMermaid(line) || SniffInfographic(line)
}

// codeField unwraps a {"code": "..."} envelope.
func codeField(span string) (string, bool) {
	if !strings.HasPrefix(span, "{") {
		return "", false
	}
	var envelope map[string]any
	if err := json.Unmarshal([]byte(span), &envelope); err != nil {
		return "", false
	}
	code, ok := envelope["code"].(string)
	if !ok || strings.TrimSpace(code) == "" {
		return "", false
	}
	return strings.TrimSpace(code), true
}

// balancedJSONSpan returns the first top-level {...} or [...] span whose
// brackets balance, ignoring brackets inside string literals.
func balancedJSONSpan(text string) (string, bool) {
	start := strings.IndexAny(text, "{[")
	if start < 0 {
		return "", false
	}

	var stack []byte
	inString, escaped := false, false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) == 0 || stack[len(stack)-1] != c {
				return "", false
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

// firstElementSpan returns the first complete XML element, skipping
// declarations, comments and processing instructions.
func firstElementSpan(text string) (string, bool) {
	start := -1
	for i := 0; i < len(text)-1; i++ {
		if text[i] == '<' && isNameStart(text[i+1]) {
			start = i
			break
		}
	}
	if start < 0 {
		return "", false
	}

	name := readName(text[start+1:])
	open, closeTag := "<"+name, "</"+name+">"

	depth := 0
	for i := start; i < len(text); {
		next := strings.IndexByte(text[i:], '<')
		if next < 0 {
			return "", false
		}
		i += next

		switch {
		case strings.HasPrefix(text[i:], closeTag):
			depth--
			i += len(closeTag)
			if depth == 0 {
				return text[start:i], true
			}
		case strings.HasPrefix(text[i:], open) && i+len(open) < len(text) && isNameEnd(text[i+len(open)]):
			end, selfClosing := tagEnd(text, i)
			if end < 0 {
				return "", false
			}
			if !selfClosing {
				depth++
			} else if depth == 0 {
				return text[start : end+1], true
			}
			i = end + 1
		default:
			i++
		}
	}
	return "", false
}

// tagEnd finds the closing '>' of the tag starting at i, honoring quoted
// attribute values.
func tagEnd(text string, i int) (int, bool) {
	var quote byte
	for j := i + 1; j < len(text); j++ {
		c := text[j]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
		case '>':
			return j, text[j-1] == '/'
		}
	}
	return -1, false
}

func readName(s string) string {
	end := 0
	for end < len(s) && !isNameEnd(s[end]) {
		end++
	}
	return s[:end]
}

func isNameStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isNameEnd(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '>', '/':
		return true
	}
	return false
}

// stripFence removes a single leading and trailing markdown code fence.
func stripFence(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		if nl := strings.IndexByte(text, '\n'); nl >= 0 {
			text = text[nl+1:]
		} else {
			text = strings.TrimLeft(text, "`")
		}
	}
	if strings.HasSuffix(text, "```") {
		text = strings.TrimSuffix(text, "```")
	}
	return strings.TrimSpace(text)
}
