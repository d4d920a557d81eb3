// Package session validates the patient bearer token and carries it through
// request handling as an explicit session object. Tokens are minted by the
// clinic backend's auth service; the gateway only validates and forwards.
package session

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNotAuthenticated is returned for absent, malformed, or expired tokens.
// Handlers translate it into a login redirect, not an inline error.
var ErrNotAuthenticated = errors.New("no active session")

type contextKey string

const sessionKey contextKey = "bookingSession"

// Session is one authenticated patient session.
type Session struct {
	// ID is the JWT subject; booking flow state is scoped to it.
	ID string
	// Token is the raw bearer token, forwarded verbatim to the backend.
	Token string
}

// FromRequest extracts and validates the bearer token on r.
func FromRequest(secret string, r *http.Request) (Session, error) {
	auth := r.Header.Get("Authorization")
	if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
		return Session{}, ErrNotAuthenticated
	}
	tokenString := strings.TrimPrefix(auth, "Bearer ")

	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return Session{}, ErrNotAuthenticated
	}
	if claims.Subject == "" {
		return Session{}, ErrNotAuthenticated
	}
	return Session{ID: claims.Subject, Token: tokenString}, nil
}

// NewContext stores the session on ctx.
func NewContext(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// FromContext returns the session placed on ctx by the auth middleware.
func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey).(Session)
	return s, ok
}
