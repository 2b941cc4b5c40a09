// Package stream orchestrates one streaming review request end to end:
// open the provider stream, re-segment fragments into lines, enforce the
// accumulator ceiling, persist the outcome, and emit an ordered event
// sequence that always terminates with a done sentinel.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/jmallory/revu/internal/models"
	"github.com/jmallory/revu/internal/provider"
	"github.com/jmallory/revu/internal/review"
	"github.com/jmallory/revu/internal/store"
)

const (
	// DefaultMaxChars bounds the full-text accumulator for one session.
	DefaultMaxChars = 2_000_000

	// errorRawLimit bounds the raw capture persisted with an error record.
	errorRawLimit = 2000
)

// Request is one streaming review invocation.
type Request struct {
	UserID    string
	Code      string
	Language  string
	Settings  review.Settings
	Execution *models.ExecutionResult
}

// Controller drives a single streaming session. Instances are per-request
// and must not be shared.
type Controller struct {
	store    store.Store
	provider provider.StreamGenerator
	maxChars int
	logger   *slog.Logger
}

// NewController builds a controller. maxChars <= 0 selects
// DefaultMaxChars; a nil logger selects slog.Default.
func NewController(s store.Store, p provider.StreamGenerator, maxChars int, logger *slog.Logger) *Controller {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{store: s, provider: p, maxChars: maxChars, logger: logger}
}

// Run executes the session. The event sequence seen by the sink matches
// meta? token* (result|error) done, and done is emitted even when an
// earlier step fails. The session and its user message are committed
// before any streaming, so a mid-stream disconnect leaves a resolvable
// session. Run reports all request-level failures through the error event
// and never returns one to the transport.
func (c *Controller) Run(ctx context.Context, req Request, sink Sink) {
	defer func() {
		// The done sentinel is unconditional while the client is still
		// connected; a failed send only means it just went away.
		if ctx.Err() != nil {
			return
		}
		_ = sink.Send(Event{Name: EventDone, Data: struct{}{}})
	}()

	session, err := c.openSession(ctx, req)
	if err != nil {
		_ = sink.Send(Event{Name: EventError, Data: classify(err, c.logger)})
		return
	}

	if err := sink.Send(Event{Name: EventMeta, Data: MetaPayload{SessionID: session.ID}}); err != nil {
		return
	}

	buffer, failure := c.consume(ctx, req, sink)
	if ctx.Err() != nil {
		// Client disconnected: stop without emitting further events.
		// Already-committed rows stay.
		return
	}

	if failure == nil {
		result, parseErr := review.ParseStreamResult(buffer)
		if parseErr != nil {
			failure = parseErr
		} else if persistErr := c.persistResult(ctx, session.ID, result); persistErr != nil {
			failure = persistErr
		} else {
			_ = sink.Send(Event{Name: EventResult, Data: result})
			return
		}
	}

	c.persistError(session.ID, buffer)
	_ = sink.Send(Event{Name: EventError, Data: classify(failure, c.logger)})
}

// openSession creates the durable session plus the initial user turn and
// commits before any event is emitted.
func (c *Controller) openSession(ctx context.Context, req Request) (*models.ReviewSession, error) {
	settingsJSON, err := json.Marshal(req.Settings)
	if err != nil {
		return nil, err
	}

	session := &models.ReviewSession{
		UserID:   req.UserID,
		Code:     req.Code,
		Language: req.Language,
		Provider: c.provider.Name(),
		Settings: settingsJSON,
	}
	if req.Execution != nil {
		execJSON, err := json.Marshal(req.Execution)
		if err != nil {
			return nil, err
		}
		session.Execution = execJSON
	}

	userContent, err := json.Marshal(map[string]any{
		"type":     "user_code",
		"code":     req.Code,
		"language": req.Language,
	})
	if err != nil {
		return nil, err
	}
	userMsg := &models.ReviewMessage{Role: models.RoleUser, Content: userContent}

	if err := c.store.CreateSession(ctx, session, userMsg); err != nil {
		return nil, err
	}
	return session, nil
}

// consume pulls fragments from the provider until the stream ends, the
// accumulator ceiling is breached, or the context is cancelled. Completed
// lines are emitted as token events as they form; a residual partial line
// is flushed at the end. The returned buffer holds everything received so
// far, even on failure.
func (c *Controller) consume(ctx context.Context, req Request, sink Sink) (string, error) {
	var full strings.Builder
	var lineBuf string

	src, err := c.provider.GenerateReviewStream(ctx, req.Code, req.Language, req.Settings)
	if err != nil {
		return "", err
	}
	defer func() { _ = src.Close() }()

	for {
		if ctx.Err() != nil {
			return full.String(), ctx.Err()
		}

		frag, err := src.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return full.String(), err
		}

		full.WriteString(frag)
		if full.Len() > c.maxChars {
			return full.String(), &provider.Error{
				Code:    provider.CodeResponseTooLarge,
				Message: "Response exceeded maximum size",
				Details: map[string]any{"max_chars": c.maxChars},
			}
		}

		lineBuf += frag
		for {
			nl := strings.IndexByte(lineBuf, '\n')
			if nl < 0 {
				break
			}
			line := strings.TrimSpace(lineBuf[:nl])
			lineBuf = lineBuf[nl+1:]
			if line == "" {
				continue
			}
			if err := sink.Send(Event{Name: EventToken, Data: TokenPayload{Chunk: line}}); err != nil {
				return full.String(), err
			}
		}
	}

	if remaining := strings.TrimSpace(lineBuf); remaining != "" {
		if err := sink.Send(Event{Name: EventToken, Data: TokenPayload{Chunk: remaining}}); err != nil {
			return full.String(), err
		}
	}

	return full.String(), nil
}

func (c *Controller) persistResult(ctx context.Context, sessionID string, result *review.Result) error {
	content, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return c.store.AppendMessage(ctx, &models.ReviewMessage{
		SessionID: sessionID,
		Role:      models.RoleAssistant,
		Content:   content,
	})
}

// persistError records a truncated raw capture as the assistant turn. The
// write is best effort and isolated: its own failure is logged and
// swallowed, never surfaced to the client. A fresh context is used so a
// disconnected client cannot veto the diagnostic record.
func (c *Controller) persistError(sessionID, raw string) {
	if len(raw) > errorRawLimit {
		raw = raw[:errorRawLimit]
	}
	content, err := json.Marshal(map[string]any{
		"type": "error",
		"raw":  raw,
	})
	if err != nil {
		c.logger.Error("marshal error message", "session_id", sessionID, "error", err)
		return
	}
	msg := &models.ReviewMessage{
		SessionID: sessionID,
		Role:      models.RoleAssistant,
		Content:   content,
	}
	if err := c.store.AppendMessage(context.Background(), msg); err != nil {
		c.logger.Error("failed to persist error message", "session_id", sessionID, "error", err)
	}
}

// classify maps a failure from the streaming or finalizing states onto a
// terminal error payload. Provider errors pass their machine code through;
// parse failures become provider errors carrying the raw prefix; anything
// unanticipated maps to internal_error with no details to avoid leaking
// internals.
func classify(err error, logger *slog.Logger) ErrorPayload {
	var perr *provider.Error
	if errors.As(err, &perr) {
		details := perr.Details
		if details == nil {
			details = map[string]any{}
		}
		return ErrorPayload{Code: perr.Code, Message: perr.Message, Details: details}
	}

	var parseErr *review.ParseError
	if errors.As(err, &parseErr) {
		return ErrorPayload{
			Code:    provider.CodeProviderError,
			Message: "Failed to parse LLM response as review result",
			Details: map[string]any{"raw_output": parseErr.Raw},
		}
	}

	logger.Error("unexpected error during review stream", "error", err)
	return ErrorPayload{Code: "internal_error", Message: "An unexpected error occurred"}
}
