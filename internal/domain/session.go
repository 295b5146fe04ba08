package domain

import (
	"fmt"
	"strings"
	"time"
)

// AssociatedUser identifies the admin user an online session was granted for
type AssociatedUser struct {
	ID            int64  `json:"id" bson:"id"`
	FirstName     string `json:"first_name" bson:"first_name"`
	LastName      string `json:"last_name" bson:"last_name"`
	Email         string `json:"email" bson:"email"`
	EmailVerified bool   `json:"email_verified" bson:"email_verified"`
	AccountOwner  bool   `json:"account_owner" bson:"account_owner"`
	Locale        string `json:"locale" bson:"locale"`
	Collaborator  bool   `json:"collaborator" bson:"collaborator"`
}

// Session represents an authenticated link between the app and a shop.
// Offline sessions are keyed by the shop domain and do not expire; online
// sessions are keyed by shop plus user and expire with the user's token.
// A session created at the start of an OAuth round trip has no access token
// yet and carries the state nonce to verify on callback.
type Session struct {
	ID             string          `json:"id" bson:"_id"`
	Shop           string          `json:"shop" bson:"shop"`
	State          string          `json:"state" bson:"state"`
	AccessToken    string          `json:"access_token" bson:"access_token"`
	Scopes         []string        `json:"scopes" bson:"scopes"`
	IsOnline       bool            `json:"is_online" bson:"is_online"`
	AssociatedUser *AssociatedUser `json:"associated_user,omitempty" bson:"associated_user,omitempty"`
	ReturnTo       string          `json:"return_to,omitempty" bson:"return_to,omitempty"`
	ExpiresAt      *time.Time      `json:"expires_at,omitempty" bson:"expires_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at" bson:"updated_at"`
}

// OfflineSessionID returns the store key of a shop's offline session.
// There is exactly one offline session per shop, so the shop domain is
// the key itself.
func OfflineSessionID(shop string) string {
	return shop
}

// OnlineSessionID returns the store key of a shop/user online session.
func OnlineSessionID(shop string, userID int64) string {
	return fmt.Sprintf("%s_%d", shop, userID)
}

// NewOfflineSession builds a shop-level session with no expiry
func NewOfflineSession(shop, accessToken string, scopes []string) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:          OfflineSessionID(shop),
		Shop:        shop,
		AccessToken: accessToken,
		Scopes:      scopes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// NewOnlineSession builds a user-level session that expires with the
// user's token
func NewOnlineSession(shop, accessToken string, scopes []string, user *AssociatedUser, expiresAt time.Time) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:             OnlineSessionID(shop, user.ID),
		Shop:           shop,
		AccessToken:    accessToken,
		Scopes:         scopes,
		IsOnline:       true,
		AssociatedUser: user,
		ExpiresAt:      &expiresAt,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// NewPendingSession builds the placeholder stored while an OAuth round
// trip is in flight; state is the nonce verified on callback
func NewPendingSession(id, shop, state string) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:        id,
		Shop:      shop,
		State:     state,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Pending reports whether the session is still waiting for OAuth to complete
func (s *Session) Pending() bool {
	return s.AccessToken == ""
}

// Expired reports whether the session's expiry has passed. Sessions
// without an expiry never expire.
func (s *Session) Expired() bool {
	if s.ExpiresAt == nil {
		return false
	}
	return time.Now().After(*s.ExpiresAt)
}

// UserID returns the associated user's id, or zero for offline sessions
func (s *Session) UserID() int64 {
	if s.AssociatedUser == nil {
		return 0
	}
	return s.AssociatedUser.ID
}

// Clone returns a deep copy. Stores hand out clones so callers can never
// mutate persisted state through a retrieved session.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	clone := *s
	if s.Scopes != nil {
		clone.Scopes = append([]string(nil), s.Scopes...)
	}
	if s.AssociatedUser != nil {
		user := *s.AssociatedUser
		clone.AssociatedUser = &user
	}
	if s.ExpiresAt != nil {
		expires := *s.ExpiresAt
		clone.ExpiresAt = &expires
	}
	return &clone
}

// ParseScopes splits a comma-separated scope string as returned by the
// token exchange ("read_products,write_orders") into a clean slice
func ParseScopes(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	scopes := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			scopes = append(scopes, p)
		}
	}
	return scopes
}
