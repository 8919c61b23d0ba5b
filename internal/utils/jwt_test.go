package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketua/marketplace-backend/internal/models"
)

func TestJWTSignerRoundTrip(t *testing.T) {
	signer := NewJWTSigner("secret")

	token, claims, err := signer.Sign(models.TokenTypeRefresh, 7, time.Minute)
	require.NoError(t, err)
	assert.NotEmpty(t, claims.ID)
	assert.Equal(t, "7", claims.Subject)

	parsed, err := signer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, models.TokenTypeRefresh, parsed.TokenType)
	assert.Equal(t, uint(7), parsed.UserID)
	assert.Equal(t, claims.ID, parsed.ID)
}

func TestJWTSignerRejectsForeignAndExpiredTokens(t *testing.T) {
	signer := NewJWTSigner("secret")

	token, _, err := signer.Sign(models.TokenTypeAccess, 1, time.Minute)
	require.NoError(t, err)
	_, err = NewJWTSigner("other").Parse(token)
	assert.Error(t, err)

	expired, _, err := signer.Sign(models.TokenTypeAccess, 1, -time.Minute)
	require.NoError(t, err)
	_, err = signer.Parse(expired)
	assert.Error(t, err)

	_, err = signer.Parse("not-a-token")
	assert.Error(t, err)
}

func TestJWTClaimNames(t *testing.T) {
	token, _, err := NewJWTSigner("secret").Sign(models.TokenTypeAccess, 3, time.Minute)
	require.NoError(t, err)

	raw := jwt.MapClaims{}
	_, _, err = jwt.NewParser().ParseUnverified(token, raw)
	require.NoError(t, err)
	assert.Equal(t, "access", raw["type"])
	assert.Equal(t, "3", raw["sub"])
	assert.Contains(t, raw, "exp")
	assert.Contains(t, raw, "jti")
	assert.NotContains(t, raw, "token_type")
}
