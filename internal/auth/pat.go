package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// patClaims is deliberately minimal: a subject email and an expiry, no
// roles or scopes, matching the spec's personal-access-token model.
type patClaims struct {
	jwt.RegisteredClaims
}

// PATIssuer signs and verifies personal access tokens as HMAC-SHA256 JWTs.
type PATIssuer struct {
	secret []byte
}

func NewPATIssuer(secret []byte) *PATIssuer {
	return &PATIssuer{secret: secret}
}

// Issue mints a PAT for the given subject, expiring after expirationDays.
func (p *PATIssuer) Issue(subject string, expirationDays int) (string, error) {
	now := time.Now()
	claims := patClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(expirationDays) * 24 * time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(p.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign PAT: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a PAT, returning its subject. An expired or
// tampered token is rejected; jwt.ParseWithClaims already enforces exp.
func (p *PATIssuer) Verify(raw string) (string, error) {
	claims := &patClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("auth: unexpected signing method %v", t.Header["alg"])
		}
		return p.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("auth: verify PAT: %w", err)
	}
	if !token.Valid {
		return "", fmt.Errorf("auth: invalid PAT")
	}
	return claims.Subject, nil
}
