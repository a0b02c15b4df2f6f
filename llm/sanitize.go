package llm

import (
	"regexp"
	"strings"
)

var (
	leadingFence  = regexp.MustCompile("^```[\\w-]*[ \\t]*\\n?")
	trailingFence = regexp.MustCompile("\\n?```\\s*$")
	// Preambles such as "Tässä analyysi markdown-muodossa:" or "Markdown:".
	markdownPreamble = regexp.MustCompile(`(?i)^[^\n]{0,80}markdown(?:[ -]muodossa)?:[ \t]*\n?`)
	trailingTag      = regexp.MustCompile(`(?i)\s*(?:\(markdown[ -]muodossa\)|\[markdown\])\s*$`)
	extraBlankLines  = regexp.MustCompile(`\n{3,}`)
)

// SanitizeMarkdown removes code fences, "markdown" preambles and trailing
// tags the model wraps its answer in, and collapses runs of blank lines.
func SanitizeMarkdown(text string) string {
	text = strings.TrimSpace(strings.ReplaceAll(text, "\r\n", "\n"))
	if text == "" {
		return text
	}
	text = leadingFence.ReplaceAllString(text, "")
	text = trailingFence.ReplaceAllString(text, "")
	text = markdownPreamble.ReplaceAllString(strings.TrimSpace(text), "")
	text = trailingTag.ReplaceAllString(text, "")
	text = extraBlankLines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// ExtractJSON returns the first balanced JSON object in text, or text
// trimmed of code fences when none is found.
func ExtractJSON(text string) string {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return strings.TrimSpace(trailingFence.ReplaceAllString(leadingFence.ReplaceAllString(strings.TrimSpace(text), ""), ""))
	}

	depth := 0
	inString, escaped := false, false
	for i := start; i < len(text); i++ {
		c := text[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return text[start:]
}
