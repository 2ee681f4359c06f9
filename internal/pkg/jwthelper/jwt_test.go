package jwthelper

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var key = []byte("test-signing-key-0123456789")

func TestGenerateAndParse(t *testing.T) {
	token, err := GenerateToken(key, 42, "CHEF", "go-test", time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(key, token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "CHEF", claims.Role)
	assert.Equal(t, "go-test", claims.UserAgent)
	assert.Equal(t, "42", claims.Subject)
}

func TestParseToken_Rejects(t *testing.T) {
	expired, err := GenerateToken(key, 1, "ADMIN", "", -time.Minute)
	require.NoError(t, err)
	other, err := GenerateToken([]byte("another-key-0123456789"), 1, "ADMIN", "", time.Hour)
	require.NoError(t, err)

	for name, token := range map[string]string{
		"expired":   expired,
		"wrong key": other,
		"garbage":   "not.a.token",
		"empty":     "",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseToken(key, token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}
