package shopify

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"shopify-embed-auth/internal/domain"
	"shopify-embed-auth/internal/ports"
)

const (
	// pendingSessionTTL bounds how long a started handshake stays valid
	pendingSessionTTL = 10 * time.Minute

	// defaultOnlineSessionTTL bounds online sessions when the token
	// exchange does not report an expiry
	defaultOnlineSessionTTL = 24 * time.Hour
)

// AuthBegin is the result of starting an OAuth round trip: where to send
// the merchant and the pending session whose id goes into the cookie.
type AuthBegin struct {
	AuthorizeURL   string
	PendingSession *domain.Session
}

// OAuthService drives the install and re-auth handshake. BeginAuth parks
// a pending session and hands back the consent URL; ValidateCallback
// checks the returning state and hmac, trades the code for a grant and
// stores the final session under its canonical key.
type OAuthService struct {
	sessions ports.SessionRepository
	auth     ports.AuthClient
	logger   zerolog.Logger

	scopes      []string
	redirectURI string
	online      bool
}

// NewOAuthService creates a new OAuth service. online selects per-user
// grants for the final session.
func NewOAuthService(
	sessions ports.SessionRepository,
	auth ports.AuthClient,
	scopes []string,
	redirectURI string,
	online bool,
	logger zerolog.Logger,
) *OAuthService {
	return &OAuthService{
		sessions:    sessions,
		auth:        auth,
		logger:      logger,
		scopes:      scopes,
		redirectURI: redirectURI,
		online:      online,
	}
}

// BeginAuth starts the handshake for a shop. returnTo is where the
// merchant should land afterwards; anything that is not an app-relative
// path is dropped.
func (s *OAuthService) BeginAuth(ctx context.Context, rawShop, returnTo string) (*AuthBegin, error) {
	shop, err := domain.SanitizeShopDomain(rawShop)
	if err != nil {
		return nil, err
	}

	state, err := generateNonce()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state nonce: %w", err)
	}

	pending := domain.NewPendingSession(uuid.NewString(), shop, state)
	pending.ReturnTo = domain.SafeReturnPath(returnTo, "")
	expires := time.Now().Add(pendingSessionTTL)
	pending.ExpiresAt = &expires
	if err := s.sessions.Store(ctx, pending); err != nil {
		return nil, fmt.Errorf("failed to store pending session: %w", err)
	}

	authURL, err := s.auth.AuthorizeURL(shop, s.scopes, s.redirectURI, state, s.online)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("shop", shop).
		Bool("online", s.online).
		Msg("starting oauth handshake")

	return &AuthBegin{AuthorizeURL: authURL, PendingSession: pending}, nil
}

// ValidateCallback completes the handshake. pendingID comes from the
// cookie set at BeginAuth; callbackURL is the full URL the platform
// redirected to. It returns the stored session and the recorded return
// address, empty when none was recorded.
func (s *OAuthService) ValidateCallback(ctx context.Context, pendingID string, callbackURL *url.URL) (*domain.Session, string, error) {
	query := callbackURL.Query()

	shop, err := domain.SanitizeShopDomain(query.Get("shop"))
	if err != nil {
		return nil, "", err
	}

	if pendingID == "" {
		return nil, "", fmt.Errorf("callback without pending session: %w", domain.ErrCookieNotFound)
	}
	pending, err := s.sessions.Retrieve(ctx, pendingID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to retrieve pending session: %w", err)
	}

	if pending.Expired() {
		return nil, "", fmt.Errorf("pending session expired: %w", domain.ErrSessionNotFound)
	}
	if !pending.Pending() {
		return nil, "", fmt.Errorf("session already completed oauth: %w", domain.ErrInvalidOAuthState)
	}
	if state := query.Get("state"); state == "" || state != pending.State {
		return nil, "", domain.ErrInvalidOAuthState
	}
	if pending.Shop != shop {
		return nil, "", fmt.Errorf("callback shop %s does not match pending shop %s: %w", shop, pending.Shop, domain.ErrInvalidOAuthState)
	}

	ok, err := s.auth.VerifyCallback(callbackURL)
	if err != nil {
		return nil, "", fmt.Errorf("failed to verify callback: %w", err)
	}
	if !ok {
		return nil, "", domain.ErrInvalidHMAC
	}

	code := query.Get("code")
	if code == "" {
		return nil, "", fmt.Errorf("callback carried no authorization code")
	}

	grant, err := s.auth.ExchangeCode(ctx, shop, code)
	if err != nil {
		return nil, "", err
	}

	session := sessionFromGrant(shop, grant)
	if err := s.sessions.Store(ctx, session); err != nil {
		return nil, "", fmt.Errorf("failed to store session: %w", err)
	}

	// The pending placeholder is spent; a not-found here just means it
	// already expired
	if err := s.sessions.Delete(ctx, pendingID); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
		s.logger.Warn().Err(err).Str("shop", shop).Msg("failed to delete pending session")
	}

	s.logger.Info().
		Str("shop", shop).
		Bool("online", session.IsOnline).
		Strs("scopes", session.Scopes).
		Msg("oauth handshake completed")

	return session, pending.ReturnTo, nil
}

// sessionFromGrant builds the session a grant persists as. Online grants
// without a reported expiry still get one so stale user sessions age out.
func sessionFromGrant(shop string, grant *domain.AccessGrant) *domain.Session {
	if !grant.Online() {
		return domain.NewOfflineSession(shop, grant.AccessToken, grant.Scopes)
	}

	ttl := grant.ExpiresIn
	if ttl <= 0 {
		ttl = defaultOnlineSessionTTL
	}
	return domain.NewOnlineSession(shop, grant.AccessToken, grant.Scopes, grant.AssociatedUser, time.Now().Add(ttl))
}

func generateNonce() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
