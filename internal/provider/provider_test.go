package provider

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmallory/revu/internal/review"
)

func TestNew(t *testing.T) {
	t.Run("openai", func(t *testing.T) {
		g, err := New(Config{Name: "openai", APIKey: "sk-test", Model: "gpt-4o-mini"})
		require.NoError(t, err)
		assert.Equal(t, "openai", g.Name())

		_, ok := AsStreamGenerator(g)
		assert.True(t, ok, "openai supports streaming")
	})

	t.Run("anthropic", func(t *testing.T) {
		g, err := New(Config{Name: "anthropic", APIKey: "sk-test", Model: "claude-haiku-4-5-20251001"})
		require.NoError(t, err)
		assert.Equal(t, "anthropic", g.Name())

		_, ok := AsStreamGenerator(g)
		assert.False(t, ok, "anthropic is single-shot only")
	})

	t.Run("missing API key", func(t *testing.T) {
		for _, name := range []string{"openai", "anthropic"} {
			_, err := New(Config{Name: name})
			var perr *Error
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, CodeNotConfigured, perr.Code)
		}
	})

	t.Run("unknown provider name", func(t *testing.T) {
		_, err := New(Config{Name: "bard"})
		var perr *Error
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, CodeNotConfigured, perr.Code)
		assert.Contains(t, perr.Message, "bard")
	})
}

func TestError(t *testing.T) {
	t.Run("formats with and without cause", func(t *testing.T) {
		e := &Error{Code: CodeProviderError, Message: "boom"}
		assert.Equal(t, "provider_error: boom", e.Error())

		cause := errors.New("tcp reset")
		e = &Error{Code: CodeProviderError, Message: "boom", Err: cause}
		assert.Contains(t, e.Error(), "tcp reset")
		assert.Equal(t, cause, errors.Unwrap(e))
	})

	t.Run("matches through wrapping", func(t *testing.T) {
		wrapped := fmt.Errorf("outer: %w", ErrStreamingNotSupported("anthropic"))
		var perr *Error
		require.ErrorAs(t, wrapped, &perr)
		assert.Equal(t, CodeNotSupported, perr.Code)
		assert.Equal(t, "anthropic", perr.Details["provider"])
	})
}

func TestWrapParseFailure(t *testing.T) {
	t.Run("parse error gains provider details", func(t *testing.T) {
		_, parseErr := review.ParseResult("not json")
		err := wrapParseFailure("openai", parseErr)

		var perr *Error
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, CodeProviderError, perr.Code)
		assert.Equal(t, "openai", perr.Details["provider"])
		assert.Equal(t, "not json", perr.Details["raw_output"])
	})

	t.Run("other errors pass through", func(t *testing.T) {
		cause := context.DeadlineExceeded
		assert.Equal(t, cause, wrapParseFailure("openai", cause))
	})
}
