package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthService_RoundTrip(t *testing.T) {
	service := NewAuthService("test-secret")

	token, err := service.GenerateJWT(42)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userID, err := service.ValidateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)
}

func TestAuthService_WrongSecret(t *testing.T) {
	token, err := NewAuthService("secret-a").GenerateJWT(42)
	require.NoError(t, err)

	_, err = NewAuthService("secret-b").ValidateJWT(token)
	assert.Error(t, err)
}

func TestAuthService_Garbage(t *testing.T) {
	_, err := NewAuthService("test-secret").ValidateJWT("not-a-token")
	assert.Error(t, err)
}
