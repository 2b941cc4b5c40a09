package review

import (
	"encoding/json"
	"strings"
)

// rawDiagnosticLimit bounds how much of an unparseable response is carried
// in a ParseError for diagnostics.
const rawDiagnosticLimit = 1000

// ParseError reports that a model response could not be turned into a
// Result. Raw holds a bounded prefix of the original text.
type ParseError struct {
	Raw string
}

func (e *ParseError) Error() string {
	return "failed to parse LLM response as review result"
}

func newParseError(text string) *ParseError {
	if len(text) > rawDiagnosticLimit {
		text = text[:rawDiagnosticLimit]
	}
	return &ParseError{Raw: text}
}

// extractJSONObject returns the first top-level JSON object embedded in
// text, located by depth-tracked brace matching. Braces inside quoted
// strings are ignored and backslash escapes are respected. Returns "" when
// no balanced object exists.
func extractJSONObject(text string) string {
	start := strings.IndexByte(text, '{')
	if start == -1 {
		return ""
	}
	depth := 0
	inString := false
	escape := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if escape {
			escape = false
			continue
		}
		switch ch {
		case '\\':
			escape = true
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return text[start : i+1]
				}
			}
		}
	}
	return ""
}

// ParseResult extracts a Result from raw model output. It first tries the
// entire text as one JSON object, then falls back to the first embedded
// object found by extractJSONObject (handles responses wrapped in prose or
// code fences). Both failing, it returns a ParseError carrying a diagnostic
// prefix of the text.
func ParseResult(raw string) (*Result, error) {
	if r, err := decodeResult([]byte(raw)); err == nil {
		return r, nil
	}

	if extracted := extractJSONObject(raw); extracted != "" {
		if r, err := decodeResult([]byte(extracted)); err == nil {
			return r, nil
		}
	}

	return nil, newParseError(raw)
}

// streamLine is the NDJSON envelope emitted by streaming-aware models.
type streamLine struct {
	Type   string          `json:"type"`
	Result json.RawMessage `json:"result"`
}

// ParseStreamResult extracts the final Result from accumulated NDJSON
// stream output. Lines are scanned from the last backward; the first line
// that is a JSON object with type "result" and a nested result payload
// wins. When no such line exists the whole text is handed to ParseResult,
// which covers providers that ignore the line convention and return a
// single JSON blob.
func ParseStreamResult(raw string) (*Result, error) {
	lines := strings.Split(strings.TrimSpace(raw), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		var sl streamLine
		if err := json.Unmarshal([]byte(line), &sl); err != nil {
			continue
		}
		if sl.Type != "result" || len(sl.Result) == 0 {
			continue
		}
		r, err := decodeResult(sl.Result)
		if err != nil {
			return nil, newParseError(raw)
		}
		return r, nil
	}
	return ParseResult(raw)
}

// StripFences removes a surrounding markdown code fence from text, if
// present. Some models wrap JSON output in ```json blocks despite
// instructions.
func StripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	lines := strings.SplitN(text, "\n", 2)
	if len(lines) > 1 {
		text = lines[1]
	}
	if idx := strings.LastIndex(text, "```"); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}
