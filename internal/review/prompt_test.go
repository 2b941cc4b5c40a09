package review

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildUserPrompt(t *testing.T) {
	t.Run("includes code verbatim in fenced block", func(t *testing.T) {
		code := "def f(x):\n    return x * 2\n"
		prompt := BuildUserPrompt(code, "python", DefaultSettings())

		assert.Contains(t, prompt, "Review the following python code:")
		assert.Contains(t, prompt, "```python\n"+code+"\n```")
	})

	t.Run("directive order is strictness, detail, focus, language", func(t *testing.T) {
		settings := Settings{
			Strictness:     StrictnessStrict,
			DetailLevel:    DetailDeep,
			FocusAreas:     []FocusArea{FocusSecurity, FocusPerformance},
			OutputLanguage: OutputJapanese,
		}
		prompt := BuildUserPrompt("x = 1", "python", settings)

		iStrict := strings.Index(prompt, strictnessDirectives[StrictnessStrict])
		iDetail := strings.Index(prompt, detailDirectives[DetailDeep])
		iFocus := strings.Index(prompt, "Focus on: security, performance.")
		iLang := strings.Index(prompt, languageDirectives[OutputJapanese])

		assert.Greater(t, iStrict, 0)
		assert.Greater(t, iDetail, iStrict)
		assert.Greater(t, iFocus, iDetail)
		assert.Greater(t, iLang, iFocus)
	})

	t.Run("no focus clause when focus areas empty", func(t *testing.T) {
		prompt := BuildUserPrompt("x = 1", "python", DefaultSettings())
		assert.NotContains(t, prompt, "Focus on:")
	})

	t.Run("deterministic for identical inputs", func(t *testing.T) {
		settings := Settings{
			Strictness:     StrictnessLenient,
			DetailLevel:    DetailBrief,
			FocusAreas:     []FocusArea{FocusReadability},
			OutputLanguage: OutputEnglish,
		}
		a := BuildUserPrompt("code", "go", settings)
		b := BuildUserPrompt("code", "go", settings)
		assert.Equal(t, a, b)
	})

	t.Run("long code is never truncated", func(t *testing.T) {
		code := strings.Repeat("x", 100_000)
		prompt := BuildUserPrompt(code, "python", DefaultSettings())
		assert.Contains(t, prompt, code)
	})
}

func TestSystemPrompts(t *testing.T) {
	t.Run("single-shot prompt names every schema field", func(t *testing.T) {
		for _, field := range []string{`"summary"`, `"issues"`, `"suggestions"`, `"corrected_code"`, `"severity"`} {
			assert.Contains(t, SystemPrompt, field)
		}
		assert.Contains(t, SystemPrompt, "Return ONLY valid JSON")
	})

	t.Run("stream prompt demands a terminal result line", func(t *testing.T) {
		assert.Contains(t, StreamSystemPrompt, `{"type":"result"`)
		assert.Contains(t, StreamSystemPrompt, `LAST line MUST be a "result" line`)
		assert.Contains(t, StreamSystemPrompt, "NDJSON")
	})
}
