// Package auth authenticates API callers with HS256 bearer tokens and
// maps token claims to the user identity the rest of the system keys
// state on. When no signing secret is configured the API runs open and
// trusts the caller-supplied user id.
package auth

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is the authenticated caller. Subject is the stable principal
// (the oid claim when present, otherwise sub); Tenant is the tid claim.
type Identity struct {
	Subject string
	Tenant  string
}

// Unauthorized means the request carried no usable credentials.
type Unauthorized struct {
	Reason string
}

func (e *Unauthorized) Error() string { return "unauthorized: " + e.Reason }

// Forbidden means the credentials were valid but not acceptable here.
type Forbidden struct {
	Reason string
}

func (e *Forbidden) Error() string { return "forbidden: " + e.Reason }

// Authorizer resolves a request to an identity. A nil identity with a
// nil error means authentication is disabled and the caller is trusted.
type Authorizer interface {
	Authenticate(r *http.Request) (*Identity, error)
}

// Anonymous disables authentication.
type Anonymous struct{}

func (Anonymous) Authenticate(*http.Request) (*Identity, error) { return nil, nil }

type tokenClaims struct {
	ObjectID string `json:"oid,omitempty"`
	Tenant   string `json:"tid,omitempty"`
	jwt.RegisteredClaims
}

// JWTAuthorizer validates HS256 bearer tokens. Audience is enforced
// only when set.
type JWTAuthorizer struct {
	secret   []byte
	audience string
}

func NewJWTAuthorizer(secret, audience string) *JWTAuthorizer {
	return &JWTAuthorizer{secret: []byte(secret), audience: audience}
}

func (a *JWTAuthorizer) Authenticate(r *http.Request) (*Identity, error) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return nil, &Unauthorized{Reason: "missing bearer token"}
	}
	raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if raw == "" {
		return nil, &Unauthorized{Reason: "missing bearer token"}
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256"})}
	if a.audience != "" {
		opts = append(opts, jwt.WithAudience(a.audience))
	}

	var claims tokenClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenInvalidAudience) {
			return nil, &Forbidden{Reason: "token audience not accepted"}
		}
		return nil, &Unauthorized{Reason: "invalid bearer token"}
	}
	if !token.Valid {
		return nil, &Unauthorized{Reason: "invalid bearer token"}
	}

	subject := strings.TrimSpace(claims.ObjectID)
	if subject == "" {
		subject = strings.TrimSpace(claims.Subject)
	}
	if subject == "" {
		return nil, &Unauthorized{Reason: "bearer token is missing required subject claims"}
	}
	return &Identity{Subject: subject, Tenant: strings.TrimSpace(claims.Tenant)}, nil
}

// IssueToken mints an HS256 token for the given principal. Used by the
// CLI and tests; production callers bring tokens from their own issuer.
func IssueToken(secret, subject, tenant, audience string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := tokenClaims{
		Tenant: tenant,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if audience != "" {
		claims.Audience = jwt.ClaimStrings{audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// FromEnv builds the authorizer from CLOUDTUTOR_AUTH_SECRET and
// CLOUDTUTOR_AUTH_AUDIENCE. No secret means open access.
func FromEnv() Authorizer {
	secret := os.Getenv("CLOUDTUTOR_AUTH_SECRET")
	if secret == "" {
		return Anonymous{}
	}
	return NewJWTAuthorizer(secret, os.Getenv("CLOUDTUTOR_AUTH_AUDIENCE"))
}

// EffectiveUserID decides which user id the request operates on. With
// auth disabled the requested id wins; with auth enabled the token
// identity wins so callers cannot read or write each other's state.
func EffectiveUserID(requested string, id *Identity) string {
	if id == nil {
		return requested
	}
	if id.Tenant != "" {
		return fmt.Sprintf("%s:%s", id.Tenant, id.Subject)
	}
	return "auth:" + id.Subject
}

// RateLimitKey buckets authenticated callers by principal and anonymous
// callers by client address.
func RateLimitKey(id *Identity, remoteAddr string) string {
	if id != nil && id.Subject != "" {
		return "user:" + id.Subject
	}
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	if host == "" {
		host = "unknown"
	}
	return "ip:" + host
}
