package shopify

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"shopify-embed-auth/internal/domain"
	"shopify-embed-auth/internal/ports"
)

// AdminPlatform implements ports.PlatformContext on top of the client
// pool. Activate warms a pooled client for the session and binds the
// session into the context; Deactivate unwinds the request-scoped part
// while the pooled client stays for the next request.
type AdminPlatform struct {
	pool   *ClientPool
	scopes []string
	logger zerolog.Logger
}

// NewAdminPlatform creates a platform context with the configured scopes
func NewAdminPlatform(pool *ClientPool, scopes []string, logger zerolog.Logger) ports.PlatformContext {
	return &AdminPlatform{pool: pool, scopes: scopes, logger: logger}
}

// Activate prepares a context for API calls on behalf of the session
func (p *AdminPlatform) Activate(ctx context.Context, session *domain.Session) (context.Context, error) {
	if session == nil {
		return ctx, fmt.Errorf("no session to activate")
	}
	if !session.Pending() {
		if _, err := p.pool.ClientFor(session); err != nil {
			return ctx, fmt.Errorf("failed to activate session: %w", err)
		}
	}

	p.logger.Debug().
		Str("shop", session.Shop).
		Bool("online", session.IsOnline).
		Msg("session activated")

	return domain.WithActiveSession(ctx, session), nil
}

// Deactivate releases the request-scoped activation
func (p *AdminPlatform) Deactivate(ctx context.Context) {
	if session := domain.ActiveSessionFromContext(ctx); session != nil {
		p.logger.Debug().
			Str("shop", session.Shop).
			Msg("session deactivated")
	}
}

// ConfiguredScopes returns a copy of the scopes the app requires
func (p *AdminPlatform) ConfiguredScopes() []string {
	return append([]string(nil), p.scopes...)
}
