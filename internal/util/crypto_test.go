package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealOpenAESGCM(t *testing.T) {
	key, err := RandomBytes(AESKeySize)
	require.NoError(t, err)
	aad := []byte("header")

	blob, err := SealAESGCM([]byte("plaintext"), key, aad)
	require.NoError(t, err)

	got, err := OpenAESGCM(blob, key, aad)
	require.NoError(t, err)
	assert.Equal(t, []byte("plaintext"), got)
}

func TestOpenAESGCM_RejectsModifiedAAD(t *testing.T) {
	key, err := RandomBytes(AESKeySize)
	require.NoError(t, err)

	blob, err := SealAESGCM([]byte("plaintext"), key, []byte("header"))
	require.NoError(t, err)

	_, err = OpenAESGCM(blob, key, []byte("tampered"))
	assert.Error(t, err)
}

func TestOpenAESGCM_RejectsModifiedCiphertext(t *testing.T) {
	key, err := RandomBytes(AESKeySize)
	require.NoError(t, err)

	blob, err := SealAESGCM([]byte("plaintext"), key, nil)
	require.NoError(t, err)

	blob[len(blob)-1] ^= 0x01
	_, err = OpenAESGCM(blob, key, nil)
	assert.Error(t, err)
}

func TestSealAESGCM_RejectsBadKeySize(t *testing.T) {
	_, err := SealAESGCM([]byte("p"), []byte("short"), nil)
	assert.Error(t, err)
	_, err = OpenAESGCM([]byte("blob"), []byte("short"), nil)
	assert.Error(t, err)
}

func TestOpenAESGCM_RejectsTruncatedBlob(t *testing.T) {
	key, err := RandomBytes(AESKeySize)
	require.NoError(t, err)

	_, err = OpenAESGCM([]byte{0x01, 0x02}, key, nil)
	assert.Error(t, err)
}

func TestDeriveKey(t *testing.T) {
	a, err := DeriveKey("secret-one", []byte("salt"), []byte("info"))
	require.NoError(t, err)
	require.Len(t, a, AESKeySize)

	// Deterministic for identical inputs.
	b, err := DeriveKey("secret-one", []byte("salt"), []byte("info"))
	require.NoError(t, err)
	assert.Equal(t, a, b)

	// Distinct for any changed input.
	c, err := DeriveKey("secret-two", []byte("salt"), []byte("info"))
	require.NoError(t, err)
	assert.NotEqual(t, a, c)

	d, err := DeriveKey("secret-one", []byte("other"), []byte("info"))
	require.NoError(t, err)
	assert.NotEqual(t, a, d)
}

func TestDeriveKey_NormalizesSecret(t *testing.T) {
	// Precomposed U+00E9 vs "e" plus combining acute: same key after NFKD.
	a, err := DeriveKey("caf\u00e9", []byte("salt"), nil)
	require.NoError(t, err)
	b, err := DeriveKey("cafe\u0301", []byte("salt"), nil)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestRandomSecret(t *testing.T) {
	s, err := RandomSecret(48)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(s), 48)

	s2, err := RandomSecret(48)
	require.NoError(t, err)
	assert.NotEqual(t, s, s2)
}
