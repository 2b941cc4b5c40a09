// Package provider abstracts the external LLM services that generate code
// reviews. Single-shot generation and incremental streaming are separate
// capabilities: every provider is a Generator, and only those that also
// satisfy StreamGenerator can drive the streaming endpoint.
package provider

import (
	"context"

	"github.com/jmallory/revu/internal/review"
)

// Generator produces a complete, validated review in one blocking call.
type Generator interface {
	// GenerateReview obtains raw text from the backing service and parses
	// it into a review.Result.
	GenerateReview(ctx context.Context, code, language string, settings review.Settings) (*review.Result, error)

	// Name identifies the provider in session records and error details.
	Name() string
}

// StreamGenerator produces raw model output incrementally. The returned
// Stream is lazy, single-pass, and non-restartable.
type StreamGenerator interface {
	Generator
	GenerateReviewStream(ctx context.Context, code, language string, settings review.Settings) (Stream, error)
}

// Stream yields raw text fragments as the service emits them.
type Stream interface {
	// Recv returns the next fragment. io.EOF signals normal end of stream.
	Recv() (string, error)
	Close() error
}

// Config holds the externally supplied provider settings, read once at
// construction.
type Config struct {
	Name            string // "openai" or "anthropic"
	APIKey          string
	Model           string
	BaseURL         string // optional override for OpenAI-compatible services
}

// New constructs a provider by name. A missing credential is a
// configuration error, not a transport failure.
func New(cfg Config) (Generator, error) {
	switch cfg.Name {
	case "openai":
		return NewOpenAI(cfg)
	case "anthropic":
		return NewAnthropic(cfg)
	default:
		return nil, ErrNotConfigured("unknown provider: " + cfg.Name)
	}
}

// AsStreamGenerator probes the streaming capability. The second return is
// false when the provider only supports single-shot generation.
func AsStreamGenerator(g Generator) (StreamGenerator, bool) {
	sg, ok := g.(StreamGenerator)
	return sg, ok
}

// wrapParseFailure converts a parse failure into a provider error carrying
// the diagnostic prefix of the raw response.
func wrapParseFailure(name string, err error) error {
	if pe, ok := err.(*review.ParseError); ok {
		return &Error{
			Code:    CodeProviderError,
			Message: "failed to parse LLM response as review result",
			Details: map[string]any{"provider": name, "raw_output": pe.Raw},
		}
	}
	return err
}
