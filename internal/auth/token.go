package auth

import (
	"crypto/subtle"
	"net/http"
)

// SingleToken implements the single-shared-secret login mode: GET
// /login?token=T compares T against the configured secret and, on match,
// sets an email of the form "user@<host>" in the session. It exists as
// the low-friction alternative to OIDC for self-hosted single-user
// deployments, and is mutually exclusive with OIDC at the config layer.
type SingleToken struct {
	Secret string
	Store  *Store
}

func NewSingleToken(secret string, store *Store) *SingleToken {
	return &SingleToken{Secret: secret, Store: store}
}

// LoginHandler implements GET /login. The token comparison is constant
// time so response latency cannot be used to brute-force the secret.
func (s *SingleToken) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" || !tokensEqual(token, s.Secret) {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		if err := s.Store.Write(w, Session{Email: "user@" + r.Host}); err != nil {
			http.Error(w, "failed to store session", http.StatusInternalServerError)
			return
		}
		http.Redirect(w, r, "/", http.StatusFound)
	}
}

func tokensEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
