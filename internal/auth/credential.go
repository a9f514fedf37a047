package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

var (
	ErrNoCredential      = errors.New("missing authorization")
	ErrInvalidFormat     = errors.New("invalid authorization format")
	ErrExpiredCredential = errors.New("credential expired")
)

// Credential is an opaque bearer token issued to the signed-in user. The zero
// value means anonymous.
type Credential struct {
	token string
}

func New(token string) Credential {
	return Credential{token: strings.TrimSpace(token)}
}

// FromHeader reads "Authorization: Bearer <token>". An empty header yields an
// anonymous credential and no error.
func FromHeader(h string) (Credential, error) {
	h = strings.TrimSpace(h)
	if h == "" {
		return Credential{}, nil
	}
	parts := strings.Fields(h)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return Credential{}, ErrInvalidFormat
	}
	return New(parts[1]), nil
}

// FromRequest is FromHeader applied to r.
func FromRequest(r *http.Request) (Credential, error) {
	return FromHeader(r.Header.Get("Authorization"))
}

func (c Credential) Present() bool { return c.token != "" }

// Check reports whether the credential may be sent. Tokens are not verified
// here; when one is JWT-shaped and carries an exp claim in the past it is
// refused so the user is asked to sign in again instead of hitting a 401.
func (c Credential) Check(now time.Time) error {
	if !c.Present() {
		return ErrNoCredential
	}
	exp, ok := c.expiry()
	if ok && !now.Before(exp) {
		return ErrExpiredCredential
	}
	return nil
}

func (c Credential) expiry() (time.Time, bool) {
	if strings.Count(c.token, ".") != 2 {
		return time.Time{}, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(c.token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// TokenSource exposes the credential to an oauth2.Transport.
func (c Credential) TokenSource() oauth2.TokenSource {
	t := &oauth2.Token{AccessToken: c.token, TokenType: "Bearer"}
	if exp, ok := c.expiry(); ok {
		t.Expiry = exp
	}
	return oauth2.StaticTokenSource(t)
}

// String never reveals the token.
func (c Credential) String() string {
	if !c.Present() {
		return "anonymous"
	}
	return "bearer(redacted)"
}
