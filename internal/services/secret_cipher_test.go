package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecretCipher_RoundTrip(t *testing.T) {
	c := NewSecretCipher("0123456789abcdef0123456789abcdef")

	enc, err := c.Encrypt("tenant-db-password")
	require.NoError(t, err)
	assert.NotEqual(t, "tenant-db-password", enc)

	again, err := c.Encrypt("tenant-db-password")
	require.NoError(t, err)
	assert.NotEqual(t, enc, again, "nonce should differ per encryption")

	dec, err := c.Decrypt(enc)
	require.NoError(t, err)
	assert.Equal(t, "tenant-db-password", dec)
}

func TestSecretCipher_WrongKey(t *testing.T) {
	enc, err := NewSecretCipher("0123456789abcdef0123456789abcdef").Encrypt("secret")
	require.NoError(t, err)

	_, err = NewSecretCipher("ffffffffffffffffffffffffffffffff").Decrypt(enc)
	assert.Error(t, err)

	_, err = NewSecretCipher("").Decrypt("not base64!!")
	assert.Error(t, err)
}

func TestSecretCipher_Empty(t *testing.T) {
	c := NewSecretCipher("short")

	enc, err := c.Encrypt("")
	require.NoError(t, err)
	assert.Empty(t, enc)

	dec, err := c.Decrypt("")
	require.NoError(t, err)
	assert.Empty(t, dec)
}
