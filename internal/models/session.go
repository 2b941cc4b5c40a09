package models

import (
	"encoding/json"
	"time"
)

// MessageRole distinguishes the two turns stored per review exchange.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// ReviewSession is one review request and its transcript. Settings and
// Execution are stored as JSON documents; nil means not supplied.
type ReviewSession struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Code      string          `json:"code"`
	Language  string          `json:"language"`
	Provider  string          `json:"provider"`
	Settings  json.RawMessage `json:"settings_json,omitempty"`
	Execution json.RawMessage `json:"execution_json,omitempty"`
	CreatedAt time.Time       `json:"created_at"`

	// Messages is populated only by detail lookups.
	Messages []*ReviewMessage `json:"messages,omitempty"`
}

// ReviewMessage is one turn in a session: the user's submitted code, the
// assistant's structured result, or an assistant error record.
type ReviewMessage struct {
	ID        string          `json:"id"`
	SessionID string          `json:"session_id"`
	Role      MessageRole     `json:"role"`
	Content   json.RawMessage `json:"content_json"`
	CreatedAt time.Time       `json:"created_at"`
}

// ExecutionResult captures a client-side run of the submitted code,
// attached to the session for context.
type ExecutionResult struct {
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	ExitCode   int    `json:"exit_code"`
	DurationMS int64  `json:"duration_ms"`
}
