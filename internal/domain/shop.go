package domain

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

const myshopifySuffix = ".myshopify.com"

var (
	shopDomainPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9\-]*\.myshopify\.com$`)
	adminHostPattern  = regexp.MustCompile(`^([a-z0-9][a-z0-9\-]*\.myshopify\.com/admin|admin\.shopify\.com/store/[a-z0-9\-]+)$`)
)

// SanitizeShopDomain normalizes raw shop input ("my-store",
// "My-Store.myshopify.com", "https://my-store.myshopify.com/") to the bare
// *.myshopify.com host. Anything outside the platform domain fails with
// ErrInvalidShopDomain so redirect targets can never be attacker chosen.
func SanitizeShopDomain(raw string) (string, error) {
	shop := strings.ToLower(strings.TrimSpace(raw))
	if shop == "" {
		return "", ErrInvalidShopDomain
	}
	if strings.Contains(shop, "://") {
		u, err := url.Parse(shop)
		if err != nil || u.Host == "" {
			return "", fmt.Errorf("%w: %q", ErrInvalidShopDomain, raw)
		}
		shop = u.Host
	}
	shop = strings.TrimSuffix(shop, "/")
	if host, _, found := strings.Cut(shop, ":"); found {
		shop = host
	}
	if !strings.Contains(shop, ".") {
		shop += myshopifySuffix
	}
	if !shopDomainPattern.MatchString(shop) {
		return "", fmt.Errorf("%w: %q", ErrInvalidShopDomain, raw)
	}
	return shop, nil
}

// EmbeddedAppURL resolves the admin page the app is framed under from the
// base64 host parameter Shopify appends to embedded requests, producing
// the address to send the merchant back to after authentication. A missing
// or undecodable parameter fails with ErrHostNotFound; callers fall back
// to the app root.
func EmbeddedAppURL(hostParam, clientID string) (string, error) {
	if hostParam == "" {
		return "", ErrHostNotFound
	}
	host, err := decodeHostParam(hostParam)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("https://%s/apps/%s", host, clientID), nil
}

// decodeHostParam tolerates both base64 alphabets and absent padding,
// which vary across platform surfaces.
func decodeHostParam(hostParam string) (string, error) {
	trimmed := strings.TrimRight(hostParam, "=")
	decoded, err := base64.RawURLEncoding.DecodeString(trimmed)
	if err != nil {
		decoded, err = base64.RawStdEncoding.DecodeString(trimmed)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrHostNotFound, err)
	}
	host := strings.ToLower(strings.TrimSuffix(string(decoded), "/"))
	if !adminHostPattern.MatchString(host) {
		return "", fmt.Errorf("%w: %q is not an admin host", ErrHostNotFound, host)
	}
	return host, nil
}
