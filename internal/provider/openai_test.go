package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmallory/revu/internal/review"
)

const openaiResultContent = `{"summary":"fine","issues":[],"suggestions":[],"corrected_code":null}`

func completionBody(content string) string {
	b, _ := json.Marshal(map[string]any{
		"id":     "chatcmpl-test",
		"object": "chat.completion",
		"choices": []map[string]any{
			{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": "stop",
			},
		},
	})
	return string(b)
}

// newTestOpenAI points the provider at a local fake of the chat
// completions endpoint.
func newTestOpenAI(t *testing.T, handler http.HandlerFunc) *OpenAI {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	p, err := NewOpenAI(Config{Name: "openai", APIKey: "sk-test", Model: "gpt-4o-mini", BaseURL: ts.URL + "/v1"})
	require.NoError(t, err)
	return p
}

func TestOpenAIGenerateReview(t *testing.T) {
	t.Run("requests JSON object mode", func(t *testing.T) {
		var gotFormat string
		p := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			var req struct {
				ResponseFormat *struct {
					Type string `json:"type"`
				} `json:"response_format"`
			}
			_ = json.Unmarshal(body, &req)
			if req.ResponseFormat != nil {
				gotFormat = req.ResponseFormat.Type
			}
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, completionBody(openaiResultContent))
		})

		result, err := p.GenerateReview(context.Background(), "x = 1", "python", review.DefaultSettings())
		require.NoError(t, err)
		assert.Equal(t, "fine", result.Summary)
		assert.Equal(t, "json_object", gotFormat)
	})

	t.Run("retries once without JSON mode on 400", func(t *testing.T) {
		var calls []bool // per call: was response_format present
		p := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			hasFormat := strings.Contains(string(body), "response_format")
			calls = append(calls, hasFormat)

			w.Header().Set("Content-Type", "application/json")
			if hasFormat {
				w.WriteHeader(http.StatusBadRequest)
				fmt.Fprint(w, `{"error":{"message":"response_format not supported","type":"invalid_request_error"}}`)
				return
			}
			fmt.Fprint(w, completionBody(openaiResultContent))
		})

		result, err := p.GenerateReview(context.Background(), "x = 1", "python", review.DefaultSettings())
		require.NoError(t, err)
		assert.Equal(t, "fine", result.Summary)
		assert.Equal(t, []bool{true, false}, calls)
	})

	t.Run("non-400 failures are not retried", func(t *testing.T) {
		var callCount int
		p := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
			callCount++
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprint(w, `{"error":{"message":"rate limited","type":"rate_limit_error"}}`)
		})

		_, err := p.GenerateReview(context.Background(), "x = 1", "python", review.DefaultSettings())
		var perr *Error
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, CodeProviderError, perr.Code)
		assert.Equal(t, http.StatusTooManyRequests, perr.Details["status_code"])
		assert.Equal(t, 1, callCount)
	})

	t.Run("fenced response is still parsed", func(t *testing.T) {
		p := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, completionBody("```json\n"+openaiResultContent+"\n```"))
		})

		result, err := p.GenerateReview(context.Background(), "x = 1", "python", review.DefaultSettings())
		require.NoError(t, err)
		assert.Equal(t, "fine", result.Summary)
	})

	t.Run("unparseable response is a provider error with raw output", func(t *testing.T) {
		p := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, completionBody("I cannot review this code."))
		})

		_, err := p.GenerateReview(context.Background(), "x = 1", "python", review.DefaultSettings())
		var perr *Error
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, CodeProviderError, perr.Code)
		assert.Equal(t, "I cannot review this code.", perr.Details["raw_output"])
	})
}

func TestOpenAIGenerateReviewStream(t *testing.T) {
	chunk := func(content string) string {
		b, _ := json.Marshal(map[string]any{
			"id":     "chatcmpl-test",
			"object": "chat.completion.chunk",
			"choices": []map[string]any{
				{"index": 0, "delta": map[string]any{"content": content}},
			},
		})
		return "data: " + string(b) + "\n\n"
	}

	p := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, chunk(`{"type":"issue",`))
		fmt.Fprint(w, chunk(`"message":"m"}`+"\n"))
		// role-only delta must be skipped, not surfaced as empty fragment
		fmt.Fprint(w, "data: {\"id\":\"chatcmpl-test\",\"object\":\"chat.completion.chunk\",\"choices\":[{\"index\":0,\"delta\":{}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	stream, err := p.GenerateReviewStream(context.Background(), "x = 1", "python", review.DefaultSettings())
	require.NoError(t, err)
	defer stream.Close()

	var frags []string
	for {
		frag, err := stream.Recv()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		frags = append(frags, frag)
	}
	assert.Equal(t, []string{`{"type":"issue",`, `"message":"m"}` + "\n"}, frags)
}
