package utils

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParseToken(t *testing.T) {
	token, err := GenerateToken("secret", 42, time.Hour)
	require.NoError(t, err)

	id, err := ParseToken("secret", token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}

func TestParseToken_Rejects(t *testing.T) {
	token, err := GenerateToken("secret", 1, time.Hour)
	require.NoError(t, err)
	_, err = ParseToken("other", token)
	assert.Error(t, err, "wrong secret")

	expired, err := GenerateToken("secret", 1, -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken("secret", expired)
	assert.True(t, errors.Is(err, jwt.ErrTokenExpired))

	_, err = ParseToken("secret", "not-a-token")
	assert.Error(t, err)

	noUser, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = ParseToken("secret", noUser)
	assert.ErrorIs(t, err, ErrInvalidClaims)
}
