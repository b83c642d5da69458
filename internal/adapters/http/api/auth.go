package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the identity payload the service accepts on user-scoped
// endpoints. Sub is the OIDC subject users are keyed by; email and name are
// carried along for display.
type Claims struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Authenticator verifies HMAC-signed bearer tokens. The service never issues
// tokens itself; the identity provider in front of it does.
type Authenticator struct {
	secret  []byte
	enabled bool
}

// NewAuthenticator creates a bearer token verifier. A disabled authenticator
// rejects every request, which keeps the user endpoints mounted but inert.
func NewAuthenticator(secret string, enabled bool) *Authenticator {
	return &Authenticator{secret: []byte(secret), enabled: enabled}
}

// Authenticate extracts and verifies the bearer token on r. Expiry and
// not-before are enforced when the token carries them.
func (a *Authenticator) Authenticate(r *http.Request) (*Claims, error) {
	if a == nil || !a.enabled {
		return nil, ErrAuthDisabled
	}
	raw := bearerToken(r)
	if raw == "" {
		return nil, fmt.Errorf("%w: missing bearer token", ErrUnauthorized)
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, fmt.Errorf("%w: token carries no subject", ErrUnauthorized)
	}
	return claims, nil
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}
