package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAccessToken_Success(t *testing.T) {
	signed, err := GenerateAccessToken("test-issuer", "uid-123", time.Hour, "secret-key")
	require.NoError(t, err)
	require.NotEmpty(t, signed)

	claims := &jwt.RegisteredClaims{}
	_, err = jwt.ParseWithClaims(signed, claims, func(*jwt.Token) (any, error) {
		return []byte("secret-key"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "test-issuer", claims.Issuer)
	assert.Equal(t, "uid-123", claims.Subject)
}

func TestGenerateAccessToken_InvalidParams(t *testing.T) {
	tests := []struct {
		name   string
		issuer string
		ttl    time.Duration
		key    string
	}{
		{"empty issuer", "", time.Hour, "key"},
		{"zero ttl", "iss", 0, "key"},
		{"empty key", "iss", time.Hour, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := GenerateAccessToken(tt.issuer, "sub", tt.ttl, tt.key)
			assert.Error(t, err)
		})
	}
}

func TestAccessTokenExpiry(t *testing.T) {
	t.Run("valid token", func(t *testing.T) {
		signed, err := GenerateAccessToken("iss", "sub", time.Hour, "k")
		require.NoError(t, err)

		exp, ok := AccessTokenExpiry(signed)
		require.True(t, ok)
		assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)
	})

	t.Run("expired token still parses", func(t *testing.T) {
		signed, err := GenerateAccessToken("iss", "sub", -time.Minute, "k")
		require.NoError(t, err)

		exp, ok := AccessTokenExpiry(signed)
		require.True(t, ok)
		assert.True(t, exp.Before(time.Now()))
	})

	t.Run("opaque token", func(t *testing.T) {
		_, ok := AccessTokenExpiry("not-a-jwt")
		assert.False(t, ok)
	})
}

func TestParseBearerToken(t *testing.T) {
	tok, err := ParseBearerToken("Bearer abc.def")
	require.NoError(t, err)
	assert.Equal(t, "abc.def", tok)

	_, err = ParseBearerToken("Bearer")
	assert.Error(t, err)

	_, err = ParseBearerToken("Basic abc")
	assert.Error(t, err)
}
