package application

import (
	"shopify-embed-auth/internal/domain"
	"shopify-embed-auth/internal/ports"
)

// ScopeValidator checks stored sessions against the scopes the app is
// configured to require
type ScopeValidator struct {
	platform ports.PlatformContext
}

// NewScopeValidator creates a new scope validator
func NewScopeValidator(platform ports.PlatformContext) *ScopeValidator {
	return &ScopeValidator{platform: platform}
}

// IsSufficient reports whether the session's granted scopes cover every
// required scope. Comparison is literal set containment; write scopes do
// not imply their read counterparts. A session with no recorded scopes
// predates scope tracking and is accepted as sufficient.
func (v *ScopeValidator) IsSufficient(session *domain.Session, required []string) bool {
	if session == nil {
		return false
	}
	if len(session.Scopes) == 0 {
		return true
	}
	granted := make(map[string]struct{}, len(session.Scopes))
	for _, scope := range session.Scopes {
		granted[scope] = struct{}{}
	}
	for _, scope := range required {
		if _, ok := granted[scope]; !ok {
			return false
		}
	}
	return true
}

// CoversConfigured reports whether the session still covers the scopes
// the app is configured with right now
func (v *ScopeValidator) CoversConfigured(session *domain.Session) bool {
	return v.IsSufficient(session, v.platform.ConfiguredScopes())
}

// NeedsReauth reports whether a stored session belongs to a different shop
// than the one the request targets. Switching shops always restarts OAuth,
// however sufficient the old session's scopes are.
func (v *ScopeValidator) NeedsReauth(session *domain.Session, requestedShop string) bool {
	if session == nil || requestedShop == "" {
		return false
	}
	return session.Shop != requestedShop
}
