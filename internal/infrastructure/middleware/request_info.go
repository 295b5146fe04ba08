package middleware

import (
	"net/http"
	"strings"

	"shopify-embed-auth/internal/application"
)

const (
	// SessionCookieName carries the session id for cookie-based requests
	// and the pending session id while an OAuth round trip is in flight
	SessionCookieName = "shopify_app_session"

	// TopLevelCookieName marks that the browser already granted cookie
	// storage through the top-level redirect flow
	TopLevelCookieName = "shopify.granted_storage_access"
)

// BuildRequestInfo projects an inbound request into the shape the access
// service decides on
func BuildRequestInfo(r *http.Request) *application.RequestInfo {
	info := &application.RequestInfo{
		Method:    r.Method,
		Path:      r.URL.Path,
		Query:     r.URL.Query(),
		Referer:   r.Referer(),
		UserAgent: r.UserAgent(),
	}

	info.SessionToken = bearerToken(r)
	headerToken := info.SessionToken != ""
	if info.SessionToken == "" {
		// Top-level navigations inside the admin cannot attach headers;
		// the signed token rides in the session query parameter instead
		info.SessionToken = info.Query.Get("session")
	}
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		info.CookieSessionID = cookie.Value
	}
	if cookie, err := r.Cookie(TopLevelCookieName); err == nil && cookie.Value != "" {
		info.TopLevelGranted = true
	}

	// App Bridge fetches carry either the XHR marker or a bearer token;
	// both mean a redirect response would go nowhere useful. A token in
	// the query is a navigation and can still follow redirects.
	info.XHR = r.Header.Get("X-Requested-With") == "XMLHttpRequest" || headerToken
	info.Embedded = info.Query.Get("embedded") == "1" || info.HostParam() != ""
	info.PendingReturnTo = info.Query.Get("return_to")

	return info
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(auth) <= len(prefix) || !strings.EqualFold(auth[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(auth[len(prefix):])
}
