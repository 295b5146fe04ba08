package ports

import (
	"context"
	"net/url"

	goshopify "github.com/bold-commerce/go-shopify/v4"

	"shopify-embed-auth/internal/domain"
)

// AuthClient defines the interface for the OAuth handshake with the platform
type AuthClient interface {
	// AuthorizeURL builds the platform authorization page for a shop.
	// Online grants request a per-user token instead of the shop token.
	AuthorizeURL(shop string, scopes []string, redirectURI, state string, online bool) (string, error)

	// ExchangeCode trades an authorization code for an access grant
	ExchangeCode(ctx context.Context, shop, code string) (*domain.AccessGrant, error)

	// VerifyCallback checks the hmac signature on an OAuth callback URL
	VerifyCallback(u *url.URL) (bool, error)
}

// AdminClient defines the interface for the authenticated Admin API calls
// made on behalf of a session. Implementations translate an upstream 401
// into domain.ErrUpstreamUnauthorized; every other upstream failure passes
// through untouched.
type AdminClient interface {
	GetShop(ctx context.Context, session *domain.Session) (*goshopify.Shop, error)
	ListProducts(ctx context.Context, session *domain.Session) ([]goshopify.Product, error)
}
