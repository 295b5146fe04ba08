package domain

import "time"

// SessionTokenClaims is the verified payload of an embedded session token.
// Shop is derived from the dest claim, UserID from sub, SessionID from sid.
type SessionTokenClaims struct {
	Shop      string
	UserID    int64
	SessionID string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// AccessGrant is the decoded result of an OAuth code exchange. ExpiresIn
// and the user fields are only set for online grants.
type AccessGrant struct {
	AccessToken    string
	Scopes         []string
	ExpiresIn      time.Duration
	AssociatedUser *AssociatedUser
	UserScopes     []string
}

// Online reports whether the grant carries a user-level token
func (g *AccessGrant) Online() bool {
	return g.AssociatedUser != nil
}
