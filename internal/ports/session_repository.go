package ports

import (
	"context"

	"shopify-embed-auth/internal/domain"
)

// SessionRepository defines the interface for session persistence.
// Store has upsert semantics keyed by session ID. Retrieve and Delete
// report a miss as domain.ErrSessionNotFound; retrieval never fabricates
// an empty session.
type SessionRepository interface {
	Store(ctx context.Context, session *domain.Session) error
	Retrieve(ctx context.Context, id string) (*domain.Session, error)
	Delete(ctx context.Context, id string) error
}

// UserSessionRepository is a SessionRepository that additionally maintains
// a user-id index over online sessions, written in the same operation as
// the primary record so the two can never disagree.
type UserSessionRepository interface {
	SessionRepository

	// RetrieveByUserID returns the online session of the given admin user,
	// or domain.ErrSessionNotFound
	RetrieveByUserID(ctx context.Context, userID int64) (*domain.Session, error)
}
