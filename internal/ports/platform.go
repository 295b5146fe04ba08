package ports

import (
	"context"

	"shopify-embed-auth/internal/domain"
)

// PlatformContext defines the interface for request-scoped platform
// activation. Activate derives a context prepared for API calls on behalf
// of the session; Deactivate releases whatever Activate acquired. The two
// always run as a pair within a single request, so worker goroutines never
// observe another request's session.
type PlatformContext interface {
	Activate(ctx context.Context, session *domain.Session) (context.Context, error)
	Deactivate(ctx context.Context)

	// ConfiguredScopes returns the scopes the app is currently configured
	// to require
	ConfiguredScopes() []string
}

// SessionTokenDecoder defines the interface for verifying embedded session
// tokens. Decode fails with domain.ErrInvalidSessionToken for anything
// undecodable, forged or expired.
type SessionTokenDecoder interface {
	Decode(ctx context.Context, token string) (*domain.SessionTokenClaims, error)
}

// EncryptionService defines the interface for access-token encryption at rest
type EncryptionService interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}
