package shopify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/rs/zerolog"

	"shopify-embed-auth/internal/domain"
	"shopify-embed-auth/internal/ports"
)

// AdminClient makes Admin API calls on behalf of a session. An upstream
// 401 becomes domain.ErrUpstreamUnauthorized so the access layer can
// discard the dead session; every other upstream failure passes through
// untouched.
type AdminClient struct {
	pool   *ClientPool
	logger zerolog.Logger
}

// NewAdminClient creates a new admin client adapter
func NewAdminClient(pool *ClientPool, logger zerolog.Logger) ports.AdminClient {
	return &AdminClient{pool: pool, logger: logger}
}

// GetShop fetches the shop record the session belongs to
func (c *AdminClient) GetShop(ctx context.Context, session *domain.Session) (*goshopify.Shop, error) {
	client, err := c.pool.ClientFor(session)
	if err != nil {
		return nil, err
	}
	shop, err := client.Shop.Get(ctx, nil)
	if err != nil {
		return nil, c.translate(err, session, "get shop")
	}
	return shop, nil
}

// ListProducts lists the products visible to the session
func (c *AdminClient) ListProducts(ctx context.Context, session *domain.Session) ([]goshopify.Product, error) {
	client, err := c.pool.ClientFor(session)
	if err != nil {
		return nil, err
	}
	products, err := client.Product.List(ctx, nil)
	if err != nil {
		return nil, c.translate(err, session, "list products")
	}
	return products, nil
}

// translate maps platform authentication failures onto the domain error
// the access layer reacts to. A revoked token also evicts the pooled
// client so a re-auth starts clean.
func (c *AdminClient) translate(err error, session *domain.Session, op string) error {
	if IsUnauthorized(err) {
		c.pool.Evict(session)
		c.logger.Warn().
			Str("shop", session.Shop).
			Str("operation", op).
			Msg("platform rejected access token")
		return fmt.Errorf("failed to %s: %w", op, domain.ErrUpstreamUnauthorized)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

// IsUnauthorized recognizes an upstream 401 either as the library's typed
// response error or, for errors that already lost their type, by the
// usual markers in the message.
func IsUnauthorized(err error) bool {
	if err == nil {
		return false
	}

	var respErr goshopify.ResponseError
	if errors.As(err, &respErr) {
		return respErr.Status == http.StatusUnauthorized
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"401", "unauthorized", "invalid api key or access token"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
