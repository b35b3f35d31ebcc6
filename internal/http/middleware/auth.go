// Package middleware enforces the role policy on API routes.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/MrJamesThe3rd/receivables/internal/auth"
	"github.com/MrJamesThe3rd/receivables/internal/http/httpio"
)

type claimsKey struct{}

type Authenticator struct {
	svc *auth.Service
}

func NewAuthenticator(svc *auth.Service) *Authenticator {
	return &Authenticator{svc: svc}
}

// Require rejects requests without a valid bearer token (401) or whose role
// lacks the capability (403). Accepted requests carry the claims in their context.
func (a *Authenticator) Require(c auth.Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearer(r)
			if !ok {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}

			claims, err := a.svc.Authorize(token, c)
			if err != nil {
				httpio.Error(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

func bearer(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")

	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", false
	}

	return strings.TrimSpace(token), true
}

func WithClaims(ctx context.Context, c *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

// ClaimsFrom returns the claims stored by Require.
func ClaimsFrom(ctx context.Context) (*auth.Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*auth.Claims)
	return c, ok
}
