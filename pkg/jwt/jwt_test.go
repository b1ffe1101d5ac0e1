package jwt

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndVerify(t *testing.T) {
	manager := NewJWTManager("test-secret", 24*time.Hour)

	token, issued, err := manager.GenerateToken(7, "admin@myapp.com", "super_admin")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.NotEmpty(t, issued.ID)

	claims, err := manager.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.AdminID)
	assert.Equal(t, "admin@myapp.com", claims.Email)
	assert.Equal(t, "super_admin", claims.Role)
	assert.Equal(t, issued.ID, claims.ID)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func TestGenerateToken_UniqueIDs(t *testing.T) {
	manager := NewJWTManager("test-secret", time.Hour)
	_, a, err := manager.GenerateToken(1, "a@b.c", "super_admin")
	require.NoError(t, err)
	_, b, err := manager.GenerateToken(1, "a@b.c", "super_admin")
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestVerifyToken_Expired(t *testing.T) {
	manager := NewJWTManager("test-secret", -time.Minute)
	token, _, err := manager.GenerateToken(1, "a@b.c", "super_admin")
	require.NoError(t, err)

	_, err = manager.VerifyToken(token)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTokenExpired))
}

func TestVerifyToken_WrongSecret(t *testing.T) {
	token, _, err := NewJWTManager("secret-a", time.Hour).GenerateToken(1, "a@b.c", "super_admin")
	require.NoError(t, err)

	_, err = NewJWTManager("secret-b", time.Hour).VerifyToken(token)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrTokenExpired))
}

func TestVerifyToken_Garbage(t *testing.T) {
	_, err := NewJWTManager("secret", time.Hour).VerifyToken("not.a.token")
	assert.Error(t, err)
}
