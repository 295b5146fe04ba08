package middleware

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"shopify-embed-auth/internal/application"
	"shopify-embed-auth/internal/ports"
)

// CookieConfig controls the cookies the middleware writes
type CookieConfig struct {
	// Domain scopes the cookies; empty means host-only
	Domain string

	// Secure must be true in production. Embedded cookies use
	// SameSite=None, which browsers only accept together with Secure.
	Secure bool
}

// Authenticator guards embedded routes. Every request is authorized by
// the access service and either proceeds with its session activated or is
// turned away toward login: XHR callers get a 401 they can react to,
// browsers get the redirect itself.
type Authenticator struct {
	access   *application.AccessService
	platform ports.PlatformContext
	metrics  *Metrics
	cookies  CookieConfig
	logger   zerolog.Logger
}

// NewAuthenticator creates a new authentication middleware
func NewAuthenticator(
	access *application.AccessService,
	platform ports.PlatformContext,
	metrics *Metrics,
	cookies CookieConfig,
	logger zerolog.Logger,
) *Authenticator {
	return &Authenticator{
		access:   access,
		platform: platform,
		metrics:  metrics,
		cookies:  cookies,
		logger:   logger,
	}
}

// Middleware returns the handler wrapper enforcing authentication
func (a *Authenticator) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			req := BuildRequestInfo(r)

			decision, err := a.access.Authorize(r.Context(), req)
			a.observe(req, decision)
			if err != nil {
				a.logger.Error().Err(err).Str("path", r.URL.Path).Msg("authorization failed")
				http.Error(w, "Internal server error", http.StatusInternalServerError)
				return
			}

			if decision.Outcome != application.OutcomeAuthorized {
				a.RedirectToLogin(w, r, req, decision)
				return
			}

			ctx, err := a.platform.Activate(r.Context(), decision.Session)
			if err != nil {
				a.logger.Error().Err(err).Str("shop", decision.Session.Shop).Msg("failed to activate session")
				http.Error(w, "Internal server error", http.StatusInternalServerError)
				return
			}
			defer a.platform.Deactivate(ctx)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RedirectToLogin answers a request that must authenticate first. It also
// serves handlers that hit a dead token mid-request and already hold a
// reauth decision from the access service.
func (a *Authenticator) RedirectToLogin(w http.ResponseWriter, r *http.Request, req *application.RequestInfo, decision *application.Decision) {
	if decision.ClearSession {
		a.ClearSessionCookie(w)
	}
	if req.XHR {
		if decision.SignalTokenRequired {
			w.Header().Set("X-Shopify-API-Request-Failure-Unauthorized", "true")
		}
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	http.Redirect(w, r, decision.LoginURL, http.StatusFound)
}

// SetSessionCookie binds a session id to the browser. ttl zero means a
// session cookie that dies with the browser.
func (a *Authenticator) SetSessionCookie(w http.ResponseWriter, sessionID string, ttl time.Duration) {
	cookie := &http.Cookie{
		Name:     SessionCookieName,
		Value:    sessionID,
		Path:     "/",
		Domain:   a.cookies.Domain,
		HttpOnly: true,
		Secure:   a.cookies.Secure,
		SameSite: http.SameSiteNoneMode,
	}
	if ttl > 0 {
		cookie.MaxAge = int(ttl.Seconds())
	}
	http.SetCookie(w, cookie)
}

// ClearSessionCookie expires the session cookie
func (a *Authenticator) ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   a.cookies.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.cookies.Secure,
		SameSite: http.SameSiteNoneMode,
	})
}

// GrantTopLevelCookie records that the browser completed the top-level
// storage access round trip
func (a *Authenticator) GrantTopLevelCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     TopLevelCookieName,
		Value:    "true",
		Path:     "/",
		Domain:   a.cookies.Domain,
		Secure:   a.cookies.Secure,
		SameSite: http.SameSiteNoneMode,
	})
}

func (a *Authenticator) observe(req *application.RequestInfo, decision *application.Decision) {
	if a.metrics == nil {
		return
	}
	credential := "none"
	switch {
	case req.SessionToken != "":
		credential = "token"
	case req.CookieSessionID != "":
		credential = "cookie"
	}
	a.metrics.ObserveResolution(credential)
	if decision != nil {
		a.metrics.ObserveDecision(decision.Outcome)
	}
}
