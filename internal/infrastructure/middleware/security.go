package middleware

import (
	"net/http"

	"shopify-embed-auth/internal/domain"
)

// SecurityHeadersMiddleware sets the headers an embedded app must send:
// a frame-ancestors policy that lets the requesting shop's admin iframe
// the app and nobody else, plus nosniff. Requests that do not name a
// valid shop get a deny-all policy.
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ancestors := "'none'"
			if shop, err := domain.SanitizeShopDomain(r.URL.Query().Get("shop")); err == nil {
				ancestors = "https://" + shop + " https://admin.shopify.com"
			}
			w.Header().Set("Content-Security-Policy", "frame-ancestors "+ancestors)
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	}
}
