package store

import (
	"context"

	"github.com/jmallory/revu/internal/models"
)

// SessionListFilter specifies filters and paging for listing sessions.
type SessionListFilter struct {
	UserID string
	Limit  int
	Offset int
}

// Store defines the persistence interface for review sessions and their
// message transcripts.
type Store interface {
	// CreateSession inserts the session and its initial user message in
	// one transaction.
	CreateSession(ctx context.Context, session *models.ReviewSession, userMsg *models.ReviewMessage) error
	GetSession(ctx context.Context, id string) (*models.ReviewSession, error)
	// GetSessionDetail loads a session with its messages in append order.
	GetSessionDetail(ctx context.Context, id string) (*models.ReviewSession, error)
	ListSessions(ctx context.Context, filter SessionListFilter) ([]*models.ReviewSession, error)
	// DeleteSession removes the session; messages cascade.
	DeleteSession(ctx context.Context, id string) error

	AppendMessage(ctx context.Context, msg *models.ReviewMessage) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
