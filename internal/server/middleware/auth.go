// Package middleware provides HTTP middleware for request identification and authorization.
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// ContextKey is a typed key for context values to avoid collisions.
type ContextKey string

// principalKey is the context key for storing the authenticated principal.
const principalKey ContextKey = "principal"

// TokenValidator validates bearer tokens.
// This allows the middleware to work with any token service implementation.
type TokenValidator interface {
	ValidateToken(tokenString string) (Principal, error)
}

// Principal identifies the caller a validated token was issued to.
type Principal interface {
	GetPrincipal() string
}

// AuthOption configures AuthMiddleware.
type AuthOption func(*authOptions)

type authOptions struct {
	unauthorized http.HandlerFunc
}

// WithUnauthorizedHandler replaces the plain-text 401 written on rejected requests.
func WithUnauthorizedHandler(h http.HandlerFunc) AuthOption {
	return func(o *authOptions) {
		o.unauthorized = h
	}
}

func defaultUnauthorized(w http.ResponseWriter, _ *http.Request) {
	http.Error(w, "Unauthorized", http.StatusUnauthorized)
}

// AuthMiddleware creates middleware that validates bearer tokens and adds the principal to the request context.
func AuthMiddleware(validator TokenValidator, opts ...AuthOption) func(http.Handler) http.Handler {
	o := authOptions{unauthorized: defaultUnauthorized}
	for _, opt := range opts {
		opt(&o)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := bearerToken(r)
			if !ok {
				o.unauthorized(w, r)
				return
			}

			claims, err := validator.ValidateToken(tokenString)
			if err != nil {
				o.unauthorized(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), principalKey, claims.GetPrincipal())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken extracts the token from an "Authorization: Bearer <token>" header.
// The scheme is matched case-insensitively.
func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}

	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}

	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

// GetPrincipal extracts the authenticated principal from the request context.
func GetPrincipal(r *http.Request) (string, error) {
	principal, ok := r.Context().Value(principalKey).(string)
	if !ok {
		return "", fmt.Errorf("principal not found in request context")
	}
	return principal, nil
}

// PrincipalKey returns the context key for the principal (for testing purposes).
func PrincipalKey() ContextKey {
	return principalKey
}
