package domain

import "errors"

// Sentinel errors for the session protocol. The first three are the
// recoverable "no usable session" family: callers answer them with a
// redirect to login, never with a 5xx. Everything else is surfaced to the
// caller that triggered it.
var (
	// ErrSessionNotFound marks a store lookup that matched nothing
	ErrSessionNotFound = errors.New("session not found")

	// ErrCookieNotFound marks a cookie-based resolution attempt on a
	// request that carries no session cookie
	ErrCookieNotFound = errors.New("session cookie not found")

	// ErrInvalidSessionToken covers undecodable, forged and expired
	// session tokens
	ErrInvalidSessionToken = errors.New("invalid session token")

	// ErrShopMismatch reports a stored session belonging to a different
	// shop than the one the request targets
	ErrShopMismatch = errors.New("session shop does not match requested shop")

	// ErrScopeMismatch reports a session whose granted scopes no longer
	// cover the configured ones
	ErrScopeMismatch = errors.New("session scopes do not cover configured scopes")

	// ErrInvalidShopDomain reports shop input that is missing or outside
	// *.myshopify.com
	ErrInvalidShopDomain = errors.New("invalid shop domain")

	// ErrHostNotFound reports a missing or undecodable host parameter;
	// callers fall back to the app root instead of failing
	ErrHostNotFound = errors.New("host parameter not found")

	// ErrUpstreamUnauthorized reports a 401 from the platform API: the
	// stored access token is no longer valid and the session must go
	ErrUpstreamUnauthorized = errors.New("platform rejected the access token")

	// ErrInvalidOAuthState reports an OAuth callback whose state nonce does
	// not match the pending session that started the handshake
	ErrInvalidOAuthState = errors.New("oauth state mismatch")

	// ErrInvalidHMAC reports an OAuth callback whose query signature does
	// not verify against the app secret
	ErrInvalidHMAC = errors.New("invalid hmac signature")
)

// RecoverableAuthError reports whether err belongs to the family of
// resolution failures that mean "ask the merchant to authenticate again"
// rather than "the request failed".
func RecoverableAuthError(err error) bool {
	return errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrCookieNotFound) ||
		errors.Is(err, ErrInvalidSessionToken) ||
		errors.Is(err, ErrShopMismatch) ||
		errors.Is(err, ErrScopeMismatch)
}
