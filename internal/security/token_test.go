package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTokenManager_RoundTrip(t *testing.T) {
	tm := NewTokenManager("test-secret-0123456789abcdef-0123456789", time.Hour)

	token, err := tm.GenerateAccessToken("lender-1", false)
	assert.NoError(t, err)
	assert.NotEmpty(t, token)

	claims, err := tm.ValidateToken(token)
	assert.NoError(t, err)
	assert.Equal(t, "lender-1", claims.Principal)
	assert.False(t, claims.Admin)
	assert.Equal(t, "lender-1", claims.Subject)
}

func TestTokenManager_AdminClaim(t *testing.T) {
	tm := NewTokenManager("test-secret-0123456789abcdef-0123456789", time.Hour)

	token, err := tm.GenerateAccessToken("admin", true)
	assert.NoError(t, err)

	claims, err := tm.ValidateToken(token)
	assert.NoError(t, err)
	assert.True(t, claims.Admin)
}

func TestTokenManager_RejectsWrongSecret(t *testing.T) {
	tm := NewTokenManager("test-secret-0123456789abcdef-0123456789", time.Hour)
	other := NewTokenManager("another-secret-fedcba9876543210-87654321", time.Hour)

	token, err := tm.GenerateAccessToken("lender-1", false)
	assert.NoError(t, err)

	_, err = other.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_RejectsExpiredToken(t *testing.T) {
	tm := &tokenManager{secret: []byte("test-secret-0123456789abcdef"), expiry: -time.Minute}

	token, err := tm.GenerateAccessToken("lender-1", false)
	assert.NoError(t, err)

	_, err = tm.ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestTokenManager_RejectsGarbage(t *testing.T) {
	tm := NewTokenManager("test-secret-0123456789abcdef-0123456789", time.Hour)

	_, err := tm.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
