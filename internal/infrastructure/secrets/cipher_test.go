package secrets

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCipher(t *testing.T) *CredentialCipher {
	t.Helper()
	key, err := GenerateKey()
	require.NoError(t, err)
	c, err := NewCredentialCipher(key)
	require.NoError(t, err)
	return c
}

func TestCredentialCipher_SealOpen(t *testing.T) {
	c := newTestCipher(t)

	sealed, err := c.Seal("cs_live_123")
	require.NoError(t, err)
	assert.True(t, IsSealed(sealed))
	assert.NotContains(t, sealed, "cs_live_123")

	again, err := c.Seal("cs_live_123")
	require.NoError(t, err)
	assert.NotEqual(t, sealed, again, "every seal uses a fresh nonce")

	plain, err := c.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "cs_live_123", plain)
}

func TestCredentialCipher_Empty(t *testing.T) {
	c := newTestCipher(t)

	sealed, err := c.Seal("")
	require.NoError(t, err)
	assert.Empty(t, sealed)

	plain, err := c.Open("")
	require.NoError(t, err)
	assert.Empty(t, plain)
}

func TestCredentialCipher_OpenErrors(t *testing.T) {
	c := newTestCipher(t)
	other := newTestCipher(t)

	sealed, err := c.Seal("secret")
	require.NoError(t, err)

	tests := []struct {
		name    string
		value   string
		wantErr error
	}{
		{name: "plaintext", value: "secret", wantErr: ErrMalformed},
		{name: "bad base64", value: sealedPrefix + "!!!", wantErr: ErrMalformed},
		{name: "too short", value: sealedPrefix + base64.StdEncoding.EncodeToString([]byte("short")), wantErr: ErrMalformed},
		{name: "tampered", value: sealed[:len(sealed)-4] + strings.Repeat("A", 4), wantErr: ErrDecryptFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Open(tt.value)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	_, err = other.Open(sealed)
	assert.ErrorIs(t, err, ErrDecryptFailed, "a different key cannot open the value")
}

func TestNewCredentialCipher_InvalidKey(t *testing.T) {
	for _, key := range []string{"", "not-base64!", base64.StdEncoding.EncodeToString([]byte("too short"))} {
		_, err := NewCredentialCipher(key)
		assert.ErrorIs(t, err, ErrInvalidKey, key)
	}
}

func TestNewDerivedCipher_IsDeterministic(t *testing.T) {
	a, err := NewDerivedCipher("dev-passphrase", "storesync")
	require.NoError(t, err)
	b, err := NewDerivedCipher("dev-passphrase", "storesync")
	require.NoError(t, err)

	sealed, err := a.Seal("secret")
	require.NoError(t, err)
	plain, err := b.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "secret", plain)
}
