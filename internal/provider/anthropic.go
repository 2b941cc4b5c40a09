package provider

import (
	"context"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/jmallory/revu/internal/review"
)

const anthropicMaxTokens = 8192

// Anthropic generates reviews through the Anthropic Messages API. It is
// single-shot only: it intentionally does not implement StreamGenerator,
// so the streaming endpoint rejects it up front rather than mid-request.
type Anthropic struct {
	api   *anthropic.Client
	model anthropic.Model
}

// NewAnthropic builds the Anthropic provider. The API key is required.
func NewAnthropic(cfg Config) (*Anthropic, error) {
	if cfg.APIKey == "" {
		return nil, ErrNotConfigured("Anthropic API key not configured")
	}
	client := anthropic.NewClient(option.WithAPIKey(cfg.APIKey))
	return &Anthropic{
		api:   &client,
		model: anthropic.Model(cfg.Model),
	}, nil
}

func (p *Anthropic) Name() string { return "anthropic" }

// GenerateReview performs one blocking Messages call and parses the text
// response. Anthropic has no JSON-object request mode, so the schema lives
// entirely in the system prompt and fences are stripped before parsing.
func (p *Anthropic) GenerateReview(ctx context.Context, code, language string, settings review.Settings) (*review.Result, error) {
	msg, err := p.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     p.model,
		MaxTokens: anthropicMaxTokens,
		System: []anthropic.TextBlockParam{
			{Text: review.SystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(review.BuildUserPrompt(code, language, settings))),
		},
	})
	if err != nil {
		return nil, &Error{
			Code:    CodeProviderError,
			Message: "Anthropic API error: " + err.Error(),
			Details: map[string]any{"provider": p.Name()},
			Err:     err,
		}
	}

	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}
	if text == "" {
		return nil, NewError("no text content in API response", map[string]any{"provider": p.Name()})
	}

	result, err := review.ParseResult(review.StripFences(text))
	if err != nil {
		return nil, wrapParseFailure(p.Name(), err)
	}
	return result, nil
}
