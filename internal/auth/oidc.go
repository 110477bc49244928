package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"

	oidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// OIDC drives the authorization-code + PKCE login flow. PKCE verifier and
// nonce live in the same signed session cookie as the eventual email claim
// (spec's session-state definition), rather than in separate short-lived
// cookies.
type OIDC struct {
	Provider     *oidc.Provider
	OAuth2Config *oauth2.Config
	Verifier     *oidc.IDTokenVerifier
	Store        *Store
}

func NewOIDC(ctx context.Context, issuerURL, clientID, clientSecret, redirectURL string, store *Store) (*OIDC, error) {
	provider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, fmt.Errorf("auth: discover OIDC provider: %w", err)
	}
	conf := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     provider.Endpoint(),
		RedirectURL:  redirectURL,
		Scopes:       []string{oidc.ScopeOpenID, "email", "profile"},
	}
	verifier := provider.Verifier(&oidc.Config{ClientID: clientID})
	return &OIDC{Provider: provider, OAuth2Config: conf, Verifier: verifier, Store: store}, nil
}

type idTokenClaims struct {
	Email  string `json:"email"`
	AtHash string `json:"at_hash"`
}

// BeginHandler implements GET /auth: generate a PKCE verifier and nonce,
// store both in the session cookie, and redirect to the provider.
func (o *OIDC) BeginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		verifier, err := randToken(32)
		if err != nil {
			http.Error(w, "failed to generate PKCE verifier", http.StatusInternalServerError)
			return
		}
		nonce, err := randToken(16)
		if err != nil {
			http.Error(w, "failed to generate nonce", http.StatusInternalServerError)
			return
		}

		if err := o.Store.Write(w, Session{PKCEVerifier: verifier, Nonce: nonce}); err != nil {
			http.Error(w, "failed to store session", http.StatusInternalServerError)
			return
		}

		challenge := pkceChallenge(verifier)
		authURL := o.OAuth2Config.AuthCodeURL(nonce,
			oidc.Nonce(nonce),
			oauth2.SetAuthURLParam("code_challenge", challenge),
			oauth2.SetAuthURLParam("code_challenge_method", "S256"),
		)
		http.Redirect(w, r, authURL, http.StatusFound)
	}
}

// CallbackHandler implements GET /auth/callback. It requires the PKCE
// verifier and nonce it itself stored on /auth; a replayed or forged
// callback with no live PKCE/nonce in the session is rejected, which is
// what makes scenario 6 (replaying a used code after PKCE/nonce were
// cleared) return 401.
func (o *OIDC) CallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		sess := o.Store.Read(r)
		if sess.PKCEVerifier == "" || sess.Nonce == "" {
			http.Error(w, "no pending authorization", http.StatusUnauthorized)
			return
		}

		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}

		token, err := o.OAuth2Config.Exchange(ctx, code, oauth2.SetAuthURLParam("code_verifier", sess.PKCEVerifier))
		if err != nil {
			http.Error(w, "code exchange failed", http.StatusUnauthorized)
			return
		}
		rawIDToken, ok := token.Extra("id_token").(string)
		if !ok {
			http.Error(w, "missing id_token", http.StatusUnauthorized)
			return
		}
		idToken, err := o.Verifier.Verify(ctx, rawIDToken)
		if err != nil {
			http.Error(w, "id token verification failed", http.StatusUnauthorized)
			return
		}
		if idToken.Nonce != sess.Nonce {
			http.Error(w, "nonce mismatch", http.StatusUnauthorized)
			return
		}

		var claims idTokenClaims
		if err := idToken.Claims(&claims); err != nil {
			http.Error(w, "malformed claims", http.StatusUnauthorized)
			return
		}
		if claims.AtHash != "" {
			if err := verifyAccessTokenHash(claims.AtHash, token.AccessToken); err != nil {
				http.Error(w, "access token hash mismatch", http.StatusUnauthorized)
				return
			}
		}
		if claims.Email == "" {
			http.Error(w, "email claim required", http.StatusForbidden)
			return
		}

		if err := o.Store.Write(w, Session{Email: claims.Email}); err != nil {
			http.Error(w, "failed to store session", http.StatusInternalServerError)
			return
		}
		http.Redirect(w, r, "/", http.StatusFound)
	}
}

// verifyAccessTokenHash recomputes at_hash as defined by the OIDC core
// spec (left half of SHA-256 of the access token, base64url, no padding)
// and compares it against the ID token's claim. Absence of the claim is
// accepted elsewhere; a present-but-mismatched hash is always rejected.
func verifyAccessTokenHash(claimed, accessToken string) error {
	sum := sha256.Sum256([]byte(accessToken))
	got := base64.RawURLEncoding.EncodeToString(sum[:len(sum)/2])
	if got != claimed {
		return fmt.Errorf("auth: at_hash mismatch")
	}
	return nil
}

func randToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func pkceChallenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
