package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPATIssueAndVerifyRoundTrip(t *testing.T) {
	issuer := NewPATIssuer([]byte("pat-secret"))

	token, err := issuer.Issue("user@example.com", 30)
	require.NoError(t, err)

	sub, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", sub)
}

func TestPATVerifyRejectsExpiredToken(t *testing.T) {
	issuer := NewPATIssuer([]byte("pat-secret"))

	claims := patClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user@example.com",
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-48 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-24 * time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("pat-secret"))
	require.NoError(t, err)

	_, err = issuer.Verify(signed)
	assert.Error(t, err)
}

func TestPATVerifyRejectsWrongSecret(t *testing.T) {
	issuer := NewPATIssuer([]byte("pat-secret"))
	token, err := issuer.Issue("user@example.com", 30)
	require.NoError(t, err)

	wrongIssuer := NewPATIssuer([]byte("different-secret"))
	_, err = wrongIssuer.Verify(token)
	assert.Error(t, err)
}

func TestPATVerifyRejectsMalformedToken(t *testing.T) {
	issuer := NewPATIssuer([]byte("pat-secret"))
	_, err := issuer.Verify("not-a-jwt")
	assert.Error(t, err)
}
