package auth

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const emailContextKey contextKey = "modelmesh_email"

// Middleware gates /api/** and /v1/** behind either a valid session cookie
// (email set) or a Bearer PAT. Everything else (health, the login/OIDC
// endpoints themselves) passes through unauthenticated.
type Middleware struct {
	Store *Store
	PAT   *PATIssuer
}

func NewMiddleware(store *Store, pat *PATIssuer) *Middleware {
	return &Middleware{Store: store, PAT: pat}
}

func (m *Middleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !requiresAuth(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		if email, ok := m.authorize(r); ok {
			ctx := context.WithValue(r.Context(), emailContextKey, email)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	})
}

func (m *Middleware) authorize(r *http.Request) (string, bool) {
	if bearer, ok := bearerToken(r); ok {
		if sub, err := m.PAT.Verify(bearer); err == nil {
			return sub, true
		}
		return "", false
	}

	sess := m.Store.Read(r)
	if sess.Email != "" {
		return sess.Email, true
	}
	return "", false
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return "", false
	}
	return strings.TrimPrefix(h, prefix), true
}

func requiresAuth(path string) bool {
	return strings.HasPrefix(path, "/api/") || strings.HasPrefix(path, "/v1/")
}

// EmailFromContext retrieves the authenticated email stashed by Require.
func EmailFromContext(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(emailContextKey).(string)
	return email, ok
}
