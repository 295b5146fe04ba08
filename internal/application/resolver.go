package application

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"shopify-embed-auth/internal/domain"
	"shopify-embed-auth/internal/ports"
)

// SessionResolver turns request credentials into a stored session. A
// session token always wins over the legacy cookie; cookie resolution is
// the fallback for requests that carry no token at all. Resolution only
// reads, it never creates or refreshes state, and its result is only
// meaningful for the request that supplied the credentials.
type SessionResolver struct {
	sessions ports.SessionRepository
	decoder  ports.SessionTokenDecoder
	logger   zerolog.Logger
}

// NewSessionResolver creates a new session resolver
func NewSessionResolver(sessions ports.SessionRepository, decoder ports.SessionTokenDecoder, logger zerolog.Logger) *SessionResolver {
	return &SessionResolver{
		sessions: sessions,
		decoder:  decoder,
		logger:   logger,
	}
}

// Resolve finds the session the request's credentials point at.
// wantsOnline selects the per-user key when resolving from a token; the
// cookie path is keyed by the cookie's own session id either way. A store
// miss surfaces as domain.ErrSessionNotFound, a tokenless cookieless
// request as domain.ErrCookieNotFound.
func (r *SessionResolver) Resolve(ctx context.Context, creds Credentials, wantsOnline bool) (*domain.Session, error) {
	if creds.SessionToken != "" {
		return r.resolveFromToken(ctx, creds.SessionToken, wantsOnline)
	}

	if creds.CookieSessionID == "" {
		return nil, domain.ErrCookieNotFound
	}
	session, err := r.sessions.Retrieve(ctx, creds.CookieSessionID)
	if err != nil {
		return nil, err
	}
	r.logger.Debug().Str("shop", session.Shop).Str("source", "cookie").Msg("resolved session")
	return session, nil
}

func (r *SessionResolver) resolveFromToken(ctx context.Context, token string, wantsOnline bool) (*domain.Session, error) {
	claims, err := r.decoder.Decode(ctx, token)
	if err != nil {
		return nil, err
	}

	var session *domain.Session
	if wantsOnline {
		session, err = r.resolveOnline(ctx, claims)
	} else {
		session, err = r.sessions.Retrieve(ctx, domain.OfflineSessionID(claims.Shop))
	}
	if err != nil {
		return nil, err
	}
	r.logger.Debug().Str("shop", session.Shop).Str("source", "token").Bool("online", wantsOnline).Msg("resolved session")
	return session, nil
}

func (r *SessionResolver) resolveOnline(ctx context.Context, claims *domain.SessionTokenClaims) (*domain.Session, error) {
	if claims.UserID == 0 {
		return nil, fmt.Errorf("%w: online token carries no user id", domain.ErrInvalidSessionToken)
	}
	// Prefer the user index when the store maintains one
	if users, ok := r.sessions.(ports.UserSessionRepository); ok {
		return users.RetrieveByUserID(ctx, claims.UserID)
	}
	return r.sessions.Retrieve(ctx, domain.OnlineSessionID(claims.Shop, claims.UserID))
}
