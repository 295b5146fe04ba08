package shopify

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"shopify-embed-auth/internal/domain"
)

// tokenLeeway is the clock skew tolerated between Shopify and the app
// when checking exp and nbf
const tokenLeeway = 30 * time.Second

// sessionTokenClaims is the raw claim set of an App Bridge session token
type sessionTokenClaims struct {
	jwt.RegisteredClaims
	Dest string `json:"dest"`
	Sid  string `json:"sid"`
}

// SessionTokenDecoder verifies embedded session tokens: HS256 JWTs signed
// with the app secret, audience set to the app's client id, dest naming
// the shop. Every verification failure collapses into
// domain.ErrInvalidSessionToken because the caller's answer is the same
// either way, a fresh token round trip.
type SessionTokenDecoder struct {
	secret   []byte
	clientID string
}

// NewSessionTokenDecoder creates a new session token decoder
func NewSessionTokenDecoder(secret, clientID string) *SessionTokenDecoder {
	return &SessionTokenDecoder{secret: []byte(secret), clientID: clientID}
}

// Decode verifies the token and extracts the claims the resolver needs
func (d *SessionTokenDecoder) Decode(_ context.Context, token string) (*domain.SessionTokenClaims, error) {
	claims := &sessionTokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, d.keyFunc,
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithAudience(d.clientID),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(tokenLeeway),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidSessionToken, err)
	}
	if !parsed.Valid {
		return nil, domain.ErrInvalidSessionToken
	}

	shop, err := shopFromDest(claims.Dest)
	if err != nil {
		return nil, err
	}
	if err := checkIssuer(claims.Issuer, shop); err != nil {
		return nil, err
	}

	var userID int64
	if claims.Subject != "" {
		userID, err = strconv.ParseInt(claims.Subject, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: sub is not a user id", domain.ErrInvalidSessionToken)
		}
	}

	result := &domain.SessionTokenClaims{
		Shop:      shop,
		UserID:    userID,
		SessionID: claims.Sid,
	}
	if claims.IssuedAt != nil {
		result.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		result.ExpiresAt = claims.ExpiresAt.Time
	}
	return result, nil
}

func (d *SessionTokenDecoder) keyFunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return d.secret, nil
}

// shopFromDest extracts and sanitizes the shop domain from the dest claim
func shopFromDest(dest string) (string, error) {
	if dest == "" {
		return "", fmt.Errorf("%w: missing dest claim", domain.ErrInvalidSessionToken)
	}
	u, err := url.Parse(dest)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("%w: malformed dest claim", domain.ErrInvalidSessionToken)
	}
	shop, err := domain.SanitizeShopDomain(u.Host)
	if err != nil {
		return "", fmt.Errorf("%w: dest is not a platform shop", domain.ErrInvalidSessionToken)
	}
	return shop, nil
}

// checkIssuer requires iss to be the admin URL of the same shop dest
// names. A token whose issuer and destination disagree was minted for a
// different shop.
func checkIssuer(issuer, shop string) error {
	if issuer == "" {
		return fmt.Errorf("%w: missing iss claim", domain.ErrInvalidSessionToken)
	}
	if strings.TrimSuffix(issuer, "/") != "https://"+shop+"/admin" {
		return fmt.Errorf("%w: issuer does not match destination", domain.ErrInvalidSessionToken)
	}
	return nil
}
