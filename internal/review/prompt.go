package review

import (
	"fmt"
	"strings"
)

// SystemPrompt instructs the model to return one JSON object matching the
// Result schema.
const SystemPrompt = `You are an expert code reviewer. Analyze the provided source code and return your review as raw JSON matching this exact schema:

{
  "summary": "Brief overall assessment of the code quality",
  "issues": [
    {
      "line": <line number or null>,
      "severity": "info" | "warning" | "error",
      "message": "Description of the issue",
      "suggestion": "How to fix it, or null"
    }
  ],
  "suggestions": ["General improvement suggestion"],
  "corrected_code": "The full corrected source code with all issues fixed, or null"
}

corrected_code rules:
- If any issues were found, provide the FULL corrected source file with all fixes applied.
- Preserve the original formatting and indentation style.
- If no changes are needed, corrected_code MUST be null (not an empty string).
- corrected_code must contain the complete file, not a partial snippet or diff.

Return ONLY valid JSON. No markdown fences, no extra text.`

// StreamSystemPrompt instructs the model to emit NDJSON: one issue object
// per line, terminated by a single result line carrying the complete review.
const StreamSystemPrompt = `You are an expert code reviewer. Output your review as NDJSON (newline-delimited JSON):
one JSON object per line, no markdown, no extra text.

Line types:

{"type":"issue","line":<number or null>,"severity":"info"|"warning"|"error","message":"...","suggestion":"...or null"}
{"type":"result","result":{"summary":"...","issues":[...all issues...],"suggestions":["..."],"corrected_code":"...or null"}}

Rules:
- Output one issue line per issue found.
- The LAST line MUST be a "result" line containing the complete review.
- The "issues" array in the result MUST include every issue from the preceding lines.
- If any issues were found, "corrected_code" must contain the FULL corrected source file with all fixes applied. Preserve original formatting and indentation.
- If no changes are needed, "corrected_code" MUST be null (not an empty string).
- "corrected_code" must be the complete file, not a partial snippet or diff.
- Every line must be valid JSON. No other output.`

var strictnessDirectives = map[Strictness]string{
	StrictnessLenient: "Be lenient and only flag clear bugs or critical issues.",
	StrictnessNormal:  "Use standard code review strictness.",
	StrictnessStrict:  "Be strict and flag all potential issues, including style and best practices.",
}

var detailDirectives = map[DetailLevel]string{
	DetailBrief:  "Keep explanations brief and concise.",
	DetailNormal: "Provide clear explanations for each issue.",
	DetailDeep:   "Provide detailed explanations with examples for each issue.",
}

var languageDirectives = map[OutputLanguage]string{
	OutputEnglish:  "Write all natural-language fields (summary, issue messages, suggestions) in English.",
	OutputJapanese: "Write all natural-language fields (summary, issue messages, suggestions) in Japanese. Do NOT translate JSON keys.",
}

// BuildUserPrompt renders the user-facing instruction: the code verbatim in
// a fenced block followed by one directive per settings dimension. It is
// deterministic and never truncates the code.
func BuildUserPrompt(code, language string, settings Settings) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Review the following %s code:\n\n```%s\n%s\n```", language, language, code)

	b.WriteString("\n\n")
	b.WriteString(strictnessDirectives[settings.Strictness])
	b.WriteString("\n\n")
	b.WriteString(detailDirectives[settings.DetailLevel])

	if len(settings.FocusAreas) > 0 {
		areas := make([]string, len(settings.FocusAreas))
		for i, f := range settings.FocusAreas {
			areas[i] = string(f)
		}
		fmt.Fprintf(&b, "\n\nFocus on: %s.", strings.Join(areas, ", "))
	}

	b.WriteString("\n\n")
	b.WriteString(languageDirectives[settings.OutputLanguage])

	return b.String()
}
