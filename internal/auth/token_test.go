package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-secret")

func TestGenerateAndParseToken(t *testing.T) {
	tok, err := GenerateToken("a@b.co", "sess-1", secret, time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(tok, secret)
	require.NoError(t, err)
	assert.Equal(t, "a@b.co", claims.Email)
	assert.Equal(t, "sess-1", claims.SessionID)
	assert.Equal(t, "a@b.co", claims.Subject)
}

func TestParseToken_WrongSecret(t *testing.T) {
	tok, err := GenerateToken("a@b.co", "sess-1", secret, time.Hour)
	require.NoError(t, err)

	_, err = ParseToken(tok, []byte("other"))
	assert.ErrorIs(t, err, jwt.ErrSignatureInvalid)
}

func TestParseToken_Expired(t *testing.T) {
	tok, err := GenerateToken("a@b.co", "sess-1", secret, -time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(tok, secret)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestParseToken_MissingSession(t *testing.T) {
	tok, err := GenerateToken("a@b.co", "", secret, time.Hour)
	require.NoError(t, err)

	_, err = ParseToken(tok, secret)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseToken_Garbage(t *testing.T) {
	_, err := ParseToken("not-a-token", secret)
	assert.Error(t, err)
}
