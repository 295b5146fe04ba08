package application

import (
	"net/url"

	"github.com/rs/zerolog"

	"shopify-embed-auth/internal/domain"
)

// reservedParams are the protocol's own query parameters; they never
// survive into a return address
var reservedParams = map[string]struct{}{
	"shop":      {},
	"hmac":      {},
	"timestamp": {},
	"locale":    {},
	"protocol":  {},
	"return_to": {},
}

// RedirectPlanner builds the login redirects the access decision hands to
// the transport layer
type RedirectPlanner struct {
	loginPath string
	logger    zerolog.Logger
}

// NewRedirectPlanner creates a new redirect planner. loginPath is the
// app-relative page that starts authentication.
func NewRedirectPlanner(loginPath string, logger zerolog.Logger) *RedirectPlanner {
	if loginPath == "" {
		loginPath = "/login"
	}
	return &RedirectPlanner{loginPath: loginPath, logger: logger}
}

// LoginPath returns the bare login page path
func (p *RedirectPlanner) LoginPath() string {
	return p.loginPath
}

// LoginURL builds the login redirect for the current request. The shop is
// included only when the caller actually has one, the return address only
// when there is somewhere worth returning to, and top_level only when the
// redirect must break out of the iframe.
func (p *RedirectPlanner) LoginURL(shop string, req *RequestInfo, topLevel bool) string {
	params := url.Values{}
	if shop != "" {
		params.Set("shop", shop)
	}
	if returnTo := p.ReturnTo(req); returnTo != "" {
		params.Set("return_to", returnTo)
	}
	if topLevel {
		params.Set("top_level", "true")
	}
	if len(params) == 0 {
		return p.loginPath
	}
	return p.loginPath + "?" + params.Encode()
}

// ReturnTo derives where the merchant should land after authenticating: a
// previously recorded pending address wins, otherwise the current path
// with the reserved parameters stripped. The bare root with nothing else
// to carry yields no return address at all.
func (p *RedirectPlanner) ReturnTo(req *RequestInfo) string {
	if req == nil {
		return ""
	}
	if pending := domain.SafeReturnPath(req.PendingReturnTo, ""); pending != "" {
		return pending
	}

	query := url.Values{}
	for key, values := range req.Query {
		if _, reserved := reservedParams[key]; reserved {
			continue
		}
		query[key] = values
	}

	path := req.Path
	if path == "" {
		path = "/"
	}
	if path == "/" && len(query) == 0 {
		return ""
	}
	if len(query) == 0 {
		return path
	}
	return path + "?" + query.Encode()
}
