package provider

import (
	"context"
	"errors"
	"io"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/jmallory/revu/internal/review"
)

// OpenAI generates reviews through the OpenAI chat completions API. It
// supports both single-shot and streaming generation.
type OpenAI struct {
	client *openai.Client
	model  string
}

// NewOpenAI builds the OpenAI provider. The API key is required; BaseURL
// may point at any OpenAI-compatible service.
func NewOpenAI(cfg Config) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, ErrNotConfigured("OpenAI API key not configured")
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &OpenAI{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
	}, nil
}

func (p *OpenAI) Name() string { return "openai" }

// GenerateReview performs one blocking completion in JSON-object mode and
// parses the response. If the service rejects JSON-object mode with a 400,
// the call is retried exactly once without it; any other failure surfaces
// as a provider error.
func (p *OpenAI) GenerateReview(ctx context.Context, code, language string, settings review.Settings) (*review.Result, error) {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: review.SystemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: review.BuildUserPrompt(code, language, settings)},
	}

	raw, err := p.complete(ctx, messages, true)
	if err != nil {
		if statusCode(err) == http.StatusBadRequest {
			raw, err = p.complete(ctx, messages, false)
		}
		if err != nil {
			return nil, p.wrapAPIError(err)
		}
	}

	result, err := review.ParseResult(review.StripFences(raw))
	if err != nil {
		return nil, wrapParseFailure(p.Name(), err)
	}
	return result, nil
}

// GenerateReviewStream opens an incremental completion and surfaces the
// raw deltas unmodified, fragment by fragment.
func (p *OpenAI) GenerateReviewStream(ctx context.Context, code, language string, settings review.Settings) (Stream, error) {
	stream, err := p.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: review.StreamSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: review.BuildUserPrompt(code, language, settings)},
		},
		Stream: true,
	})
	if err != nil {
		return nil, p.wrapAPIError(err)
	}
	return &openaiStream{inner: stream, provider: p}, nil
}

func (p *OpenAI) complete(ctx context.Context, messages []openai.ChatCompletionMessage, jsonMode bool) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:    p.model,
		Messages: messages,
	}
	if jsonMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

func (p *OpenAI) wrapAPIError(err error) *Error {
	var perr *Error
	if errors.As(err, &perr) {
		return perr
	}
	details := map[string]any{"provider": p.Name()}
	if code := statusCode(err); code != 0 {
		details["status_code"] = code
	}
	return &Error{
		Code:    CodeProviderError,
		Message: "OpenAI API error: " + err.Error(),
		Details: details,
		Err:     err,
	}
}

// statusCode extracts the HTTP status from go-openai error types; 0 when
// the error carries none (e.g. transport failures).
func statusCode(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}

type openaiStream struct {
	inner    *openai.ChatCompletionStream
	provider *OpenAI
}

// Recv returns the next non-empty content delta. Empty deltas (role
// markers, finish chunks) are skipped.
func (s *openaiStream) Recv() (string, error) {
	for {
		resp, err := s.inner.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", io.EOF
			}
			return "", s.provider.wrapAPIError(err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		if delta := resp.Choices[0].Delta.Content; delta != "" {
			return delta, nil
		}
	}
}

func (s *openaiStream) Close() error { return s.inner.Close() }
