package application

import (
	"net/url"

	"shopify-embed-auth/internal/domain"
)

// Credentials carries everything a request offered as proof of identity
type Credentials struct {
	// SessionToken is the bearer session token, when the request sent one
	SessionToken string

	// CookieSessionID is the session id from the legacy cookie
	CookieSessionID string
}

// RequestInfo captures the parts of an inbound request the access
// decision reads. The transport layer assembles it once per request;
// nothing here outlives the request.
type RequestInfo struct {
	Method    string
	Path      string
	Query     url.Values
	Referer   string
	UserAgent string

	SessionToken    string
	CookieSessionID string

	// TopLevelGranted is true when the storage-access probe cookie was
	// present on the request
	TopLevelGranted bool

	// XHR marks programmatic requests that must receive a 401 instead of
	// a redirect they cannot follow
	XHR bool

	// Embedded marks requests served inside the admin iframe
	Embedded bool

	// PendingReturnTo is a return address recorded before an OAuth round
	// trip started
	PendingReturnTo string
}

// Credentials returns the identity material the request carried
func (ri *RequestInfo) Credentials() Credentials {
	return Credentials{
		SessionToken:    ri.SessionToken,
		CookieSessionID: ri.CookieSessionID,
	}
}

// ShopParam returns the sanitized shop named by the request's own query,
// or empty when absent or unusable
func (ri *RequestInfo) ShopParam() string {
	shop, err := domain.SanitizeShopDomain(ri.Query.Get("shop"))
	if err != nil {
		return ""
	}
	return shop
}

// RefererShop returns the sanitized shop named by the referer's query,
// or empty when absent or unusable
func (ri *RequestInfo) RefererShop() string {
	if ri.Referer == "" {
		return ""
	}
	ref, err := url.Parse(ri.Referer)
	if err != nil {
		return ""
	}
	shop, err := domain.SanitizeShopDomain(ref.Query().Get("shop"))
	if err != nil {
		return ""
	}
	return shop
}

// HostParam returns the raw base64 host parameter, when present
func (ri *RequestInfo) HostParam() string {
	return ri.Query.Get("host")
}
