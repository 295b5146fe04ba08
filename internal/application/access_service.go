package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"shopify-embed-auth/internal/domain"
	"shopify-embed-auth/internal/ports"
)

// Outcome is the terminal state of an access decision
type Outcome int

const (
	// OutcomeAuthorized lets the request proceed with its session active
	OutcomeAuthorized Outcome = iota

	// OutcomeReauthRequired sends the merchant back through authentication
	OutcomeReauthRequired

	// OutcomeBlocked means the decision itself failed; the request is
	// answered with an error, not a redirect
	OutcomeBlocked
)

// String implements fmt.Stringer for metrics labels and logs
func (o Outcome) String() string {
	switch o {
	case OutcomeAuthorized:
		return "authorized"
	case OutcomeReauthRequired:
		return "reauth_required"
	default:
		return "blocked"
	}
}

// Decision tells the transport layer exactly what to do with a request
type Decision struct {
	Outcome Outcome

	// Session is the resolved session, set only when authorized
	Session *domain.Session

	// LoginURL is where to send the merchant, set when reauth is required
	LoginURL string

	// ClearSession directs the transport to drop the session cookie
	ClearSession bool

	// SignalTokenRequired directs the transport to emit the
	// X-Shopify-API-Request-Failure-Unauthorized header
	SignalTokenRequired bool

	// TopLevelRedirect means the redirect must escape the admin iframe
	TopLevelRedirect bool
}

// AccessService drives a request from unauthenticated through resolution
// to a decision. It owns the ordering rules: the storage-access probe
// gates cookie flows, shop switching beats scope checking, and scope
// checking beats authorization.
type AccessService struct {
	resolver       *SessionResolver
	validator      *ScopeValidator
	planner        *RedirectPlanner
	itp            *ITPDetector
	sessions       ports.SessionRepository
	logger         zerolog.Logger
	onlineSessions bool
}

// NewAccessService creates a new access service. onlineSessions selects
// per-user sessions over shop-wide ones when resolving tokens.
func NewAccessService(
	resolver *SessionResolver,
	validator *ScopeValidator,
	planner *RedirectPlanner,
	itp *ITPDetector,
	sessions ports.SessionRepository,
	logger zerolog.Logger,
	onlineSessions bool,
) *AccessService {
	return &AccessService{
		resolver:       resolver,
		validator:      validator,
		planner:        planner,
		itp:            itp,
		sessions:       sessions,
		logger:         logger,
		onlineSessions: onlineSessions,
	}
}

// Authorize resolves the request's credentials and decides whether it may
// proceed. Missing or broken credentials produce a reauth decision, never
// an error; only infrastructure failures block the request.
func (s *AccessService) Authorize(ctx context.Context, req *RequestInfo) (*Decision, error) {
	requestedShop := s.RequestedShop(req)

	if d := s.storageAccessProbe(req, requestedShop); d != nil {
		return d, nil
	}

	session, err := s.resolver.Resolve(ctx, req.Credentials(), s.onlineSessions)
	if err != nil {
		if domain.RecoverableAuthError(err) {
			s.logger.Debug().Err(err).Str("shop", requestedShop).Str("path", req.Path).Msg("no usable session")
			return s.reauth(req, requestedShop, false), nil
		}
		return &Decision{Outcome: OutcomeBlocked}, fmt.Errorf("failed to resolve session: %w", err)
	}

	// Pending and expired sessions cannot authenticate anything
	if session.Pending() || session.Expired() {
		s.logger.Debug().Str("shop", session.Shop).Bool("pending", session.Pending()).Msg("session not usable yet")
		return s.reauth(req, s.shopFor(requestedShop, session), false), nil
	}

	// Switching shops discards the old shop's session no matter how
	// sufficient its scopes are
	if s.validator.NeedsReauth(session, requestedShop) {
		if err := s.discard(ctx, session); err != nil {
			return &Decision{Outcome: OutcomeBlocked}, err
		}
		s.logger.Info().
			Str("session_shop", session.Shop).
			Str("requested_shop", requestedShop).
			Msg("shop changed, restarting auth")
		d := s.reauth(req, requestedShop, false)
		d.ClearSession = true
		return d, nil
	}

	if !s.validator.CoversConfigured(session) {
		s.logger.Info().Str("shop", session.Shop).Msg("granted scopes out of date, restarting auth")
		return s.reauth(req, session.Shop, false), nil
	}

	return &Decision{Outcome: OutcomeAuthorized, Session: session}, nil
}

// HandleUpstreamError translates a failure from an Admin API call made
// with the active session. A 401 means the token died upstream: the
// session is destroyed and the merchant goes back through OAuth. Any
// other failure is returned unchanged for the caller to surface.
func (s *AccessService) HandleUpstreamError(ctx context.Context, req *RequestInfo, session *domain.Session, err error) (*Decision, error) {
	if !errors.Is(err, domain.ErrUpstreamUnauthorized) {
		return nil, err
	}

	shop := s.RequestedShop(req)
	if session != nil {
		if shop == "" {
			shop = session.Shop
		}
		if delErr := s.sessions.Delete(ctx, session.ID); delErr != nil && !errors.Is(delErr, domain.ErrSessionNotFound) {
			s.logger.Error().Err(delErr).Str("shop", session.Shop).Msg("failed to delete invalidated session")
		}
	}
	s.logger.Info().Str("shop", shop).Msg("access token rejected upstream, restarting auth")

	d := s.reauth(req, shop, false)
	d.ClearSession = true
	return d, nil
}

// RequestedShop returns the shop the request claims to target: the
// explicit shop parameter wins, then a shop named by the referer, then
// nothing. Values that fail sanitization count as absent.
func (s *AccessService) RequestedShop(req *RequestInfo) string {
	if shop := req.ShopParam(); shop != "" {
		return shop
	}
	return req.RefererShop()
}

// storageAccessProbe decides whether a top-level round trip must grant
// cookie storage before a cookie flow can even start. Requests that carry
// a token or an actual cookie have already proven they do not need it.
func (s *AccessService) storageAccessProbe(req *RequestInfo, shop string) *Decision {
	if req.SessionToken != "" || req.CookieSessionID != "" {
		return nil
	}
	if !req.Embedded || req.TopLevelGranted {
		return nil
	}
	if !s.itp.IsAffected(req.UserAgent) && !s.itp.CanPartitionCookies(req.UserAgent) {
		return nil
	}
	s.logger.Debug().Str("shop", shop).Str("user_agent", req.UserAgent).Msg("storage access probe required")
	return s.reauth(req, shop, true)
}

func (s *AccessService) reauth(req *RequestInfo, shop string, topLevel bool) *Decision {
	return &Decision{
		Outcome:             OutcomeReauthRequired,
		LoginURL:            s.planner.LoginURL(shop, req, topLevel),
		SignalTokenRequired: true,
		TopLevelRedirect:    topLevel,
	}
}

func (s *AccessService) discard(ctx context.Context, session *domain.Session) error {
	if err := s.sessions.Delete(ctx, session.ID); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
		return fmt.Errorf("failed to discard session: %w", err)
	}
	return nil
}

func (s *AccessService) shopFor(requestedShop string, session *domain.Session) string {
	if requestedShop != "" {
		return requestedShop
	}
	return session.Shop
}
