package application

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopify-embed-auth/internal/domain"
	"shopify-embed-auth/internal/ports"
)

func newTestAccessService(store ports.SessionRepository, decoder ports.SessionTokenDecoder, configured []string, online bool) *AccessService {
	platform := &stubPlatform{scopes: configured}
	resolver := NewSessionResolver(store, decoder, zerolog.Nop())
	return NewAccessService(
		resolver,
		NewScopeValidator(platform),
		NewRedirectPlanner("/login", zerolog.Nop()),
		NewITPDetector(),
		store,
		zerolog.Nop(),
		online,
	)
}

func TestAuthorizeValidTokenRequest(t *testing.T) {
	store := newStubStore(onlineSession(testShop, 42))
	decoder := &stubDecoder{claims: &domain.SessionTokenClaims{Shop: testShop, UserID: 42}}
	service := newTestAccessService(store, decoder, []string{"read_products"}, true)

	req := &RequestInfo{
		Path:         "/api/products",
		Query:        url.Values{"shop": {testShop}},
		SessionToken: "jwt",
		Embedded:     true,
		XHR:          true,
	}

	decision, err := service.Authorize(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAuthorized, decision.Outcome)
	require.NotNil(t, decision.Session)
	assert.Equal(t, testShop, decision.Session.Shop)
	assert.False(t, decision.ClearSession)
}

func TestAuthorizeWithoutCredentials(t *testing.T) {
	service := newTestAccessService(newStubStore(), &stubDecoder{}, nil, false)

	req := &RequestInfo{Path: "/products", Query: url.Values{"shop": {testShop}}}

	decision, err := service.Authorize(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, OutcomeReauthRequired, decision.Outcome)
	assert.True(t, decision.SignalTokenRequired)
	assert.Contains(t, decision.LoginURL, "shop=my-store.myshopify.com")
	assert.Contains(t, decision.LoginURL, "return_to=%2Fproducts")
}

func TestAuthorizeInsufficientScopesKeepsSession(t *testing.T) {
	offline := domain.NewOfflineSession(testShop, "shpat", []string{"read_products"})
	store := newStubStore(offline)
	decoder := &stubDecoder{claims: &domain.SessionTokenClaims{Shop: testShop}}
	service := newTestAccessService(store, decoder, []string{"read_products", "write_orders"}, false)

	req := &RequestInfo{Path: "/", Query: url.Values{"shop": {testShop}}, SessionToken: "jwt"}

	decision, err := service.Authorize(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, OutcomeReauthRequired, decision.Outcome)
	assert.False(t, decision.ClearSession, "scope reauth keeps the stored session")
	assert.True(t, store.has(offline.ID))
}

func TestAuthorizeLegacySessionWithoutScopes(t *testing.T) {
	offline := domain.NewOfflineSession(testShop, "shpat", nil)
	store := newStubStore(offline)
	decoder := &stubDecoder{claims: &domain.SessionTokenClaims{Shop: testShop}}
	service := newTestAccessService(store, decoder, []string{"read_products", "write_orders"}, false)

	req := &RequestInfo{Path: "/", Query: url.Values{"shop": {testShop}}, SessionToken: "jwt"}

	decision, err := service.Authorize(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAuthorized, decision.Outcome)
}

func TestAuthorizeShopMismatchClearsSession(t *testing.T) {
	offline := domain.NewOfflineSession(testShop, "shpat", []string{"read_products"})
	store := newStubStore(offline)
	service := newTestAccessService(store, &stubDecoder{}, []string{"read_products"}, false)

	req := &RequestInfo{
		Path:            "/",
		Query:           url.Values{"shop": {"other-store.myshopify.com"}},
		CookieSessionID: offline.ID,
	}

	decision, err := service.Authorize(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, OutcomeReauthRequired, decision.Outcome)
	assert.True(t, decision.ClearSession)
	assert.Contains(t, decision.LoginURL, "shop=other-store.myshopify.com")
	assert.False(t, store.has(offline.ID), "old shop's session must be discarded")
}

func TestAuthorizePendingSession(t *testing.T) {
	pending := domain.NewPendingSession("cookie-id", testShop, "nonce")
	store := newStubStore(pending)
	service := newTestAccessService(store, &stubDecoder{}, nil, false)

	req := &RequestInfo{Path: "/", Query: url.Values{}, CookieSessionID: "cookie-id"}

	decision, err := service.Authorize(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, OutcomeReauthRequired, decision.Outcome)
	assert.True(t, store.has("cookie-id"), "pending session stays for the callback to finish")
}

func TestAuthorizeExpiredSession(t *testing.T) {
	expired := domain.NewOnlineSession(testShop, "shpat", nil,
		&domain.AssociatedUser{ID: 42}, time.Now().Add(-time.Minute))
	store := newStubStore(expired)
	decoder := &stubDecoder{claims: &domain.SessionTokenClaims{Shop: testShop, UserID: 42}}
	service := newTestAccessService(store, decoder, nil, true)

	req := &RequestInfo{Path: "/", Query: url.Values{}, SessionToken: "jwt"}

	decision, err := service.Authorize(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, OutcomeReauthRequired, decision.Outcome)
	assert.Contains(t, decision.LoginURL, "shop=my-store.myshopify.com")
}

func TestAuthorizeStorageAccessProbe(t *testing.T) {
	service := newTestAccessService(newStubStore(), &stubDecoder{}, nil, false)

	req := &RequestInfo{
		Path:      "/",
		Query:     url.Values{"shop": {testShop}},
		UserAgent: uaSafariMac,
		Embedded:  true,
	}

	decision, err := service.Authorize(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, OutcomeReauthRequired, decision.Outcome)
	assert.True(t, decision.TopLevelRedirect)
	assert.Contains(t, decision.LoginURL, "top_level=true")
}

func TestAuthorizeProbeSkippedOnceGranted(t *testing.T) {
	service := newTestAccessService(newStubStore(), &stubDecoder{}, nil, false)

	req := &RequestInfo{
		Path:            "/",
		Query:           url.Values{"shop": {testShop}},
		UserAgent:       uaSafariMac,
		Embedded:        true,
		TopLevelGranted: true,
	}

	decision, err := service.Authorize(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, OutcomeReauthRequired, decision.Outcome)
	assert.False(t, decision.TopLevelRedirect)
}

func TestAuthorizeProbeSkippedForTokenRequests(t *testing.T) {
	store := newStubStore(domain.NewOfflineSession(testShop, "shpat", nil))
	decoder := &stubDecoder{claims: &domain.SessionTokenClaims{Shop: testShop}}
	service := newTestAccessService(store, decoder, nil, false)

	req := &RequestInfo{
		Path:         "/",
		Query:        url.Values{"shop": {testShop}},
		UserAgent:    uaSafariMac,
		Embedded:     true,
		SessionToken: "jwt",
	}

	decision, err := service.Authorize(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAuthorized, decision.Outcome)
}

func TestAuthorizeInfrastructureFailureBlocks(t *testing.T) {
	store := newStubStore()
	store.retrieveErr = errors.New("connection refused")
	service := newTestAccessService(store, &stubDecoder{}, nil, false)

	req := &RequestInfo{Path: "/", Query: url.Values{}, CookieSessionID: "any"}

	decision, err := service.Authorize(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, OutcomeBlocked, decision.Outcome)
}

func TestHandleUpstreamUnauthorized(t *testing.T) {
	offline := domain.NewOfflineSession(testShop, "shpat", nil)
	store := newStubStore(offline)
	service := newTestAccessService(store, &stubDecoder{}, nil, false)

	req := &RequestInfo{Path: "/api/products", Query: url.Values{}}
	upstreamErr := fmt.Errorf("get shop: %w", domain.ErrUpstreamUnauthorized)

	decision, err := service.HandleUpstreamError(context.Background(), req, offline, upstreamErr)
	require.NoError(t, err)
	assert.Equal(t, OutcomeReauthRequired, decision.Outcome)
	assert.True(t, decision.ClearSession)
	assert.Contains(t, decision.LoginURL, "shop=my-store.myshopify.com")
	assert.False(t, store.has(offline.ID))
}

func TestHandleUpstreamOtherErrorsPropagate(t *testing.T) {
	offline := domain.NewOfflineSession(testShop, "shpat", nil)
	store := newStubStore(offline)
	service := newTestAccessService(store, &stubDecoder{}, nil, false)

	upstreamErr := errors.New("502 bad gateway")

	decision, err := service.HandleUpstreamError(context.Background(), &RequestInfo{Query: url.Values{}}, offline, upstreamErr)
	assert.Nil(t, decision)
	require.ErrorIs(t, err, upstreamErr)
	assert.True(t, store.has(offline.ID), "non-401 failures leave the session alone")
}

func TestRequestedShopPrecedence(t *testing.T) {
	service := newTestAccessService(newStubStore(), &stubDecoder{}, nil, false)

	refererWithShop := "https://admin.shopify.com/store/other?shop=other-store.myshopify.com"

	fromParam := &RequestInfo{Query: url.Values{"shop": {testShop}}, Referer: refererWithShop}
	assert.Equal(t, testShop, service.RequestedShop(fromParam), "explicit parameter wins")

	fromReferer := &RequestInfo{Query: url.Values{}, Referer: refererWithShop}
	assert.Equal(t, "other-store.myshopify.com", service.RequestedShop(fromReferer))

	badParam := &RequestInfo{Query: url.Values{"shop": {"evil.com"}}, Referer: refererWithShop}
	assert.Equal(t, "other-store.myshopify.com", service.RequestedShop(badParam), "unusable parameter falls through")

	neither := &RequestInfo{Query: url.Values{}}
	assert.Empty(t, service.RequestedShop(neither))
}
