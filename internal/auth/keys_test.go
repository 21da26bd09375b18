// FilePath: internal/auth/keys_test.go
package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateKeyWithHash(t *testing.T) {
	key, hash, salt, err := GenerateKeyWithHash()
	require.NoError(t, err)

	assert.Len(t, key, KeyLength)
	assert.True(t, ValidKeyFormat(key))
	assert.NotEmpty(t, hash)
	assert.NotEmpty(t, salt)
	assert.NotEqual(t, key, hash)
}

func TestVerifyKey(t *testing.T) {
	key, hash, salt, err := GenerateKeyWithHash()
	require.NoError(t, err)

	assert.True(t, VerifyKey(key, hash, salt))
	assert.False(t, VerifyKey("wrong-key-wrong-key-wrong-key-00", hash, salt))
	assert.False(t, VerifyKey(key, hash, "different-salt-00"))
}

func TestHashKeyDeterministic(t *testing.T) {
	h1 := HashKey("some-api-key", "some-salt")
	h2 := HashKey("some-api-key", "some-salt")
	assert.Equal(t, h1, h2)

	h3 := HashKey("some-api-key", "other-salt")
	assert.NotEqual(t, h1, h3)
}

func TestKeysAreUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 32; i++ {
		key, err := GenerateKey()
		require.NoError(t, err)
		assert.False(t, seen[key])
		seen[key] = true
	}
}

func TestValidKeyFormat(t *testing.T) {
	assert.True(t, ValidKeyFormat("abcdefghijklmnopqrstuvwxyz-_0123"))
	assert.False(t, ValidKeyFormat(""))
	assert.False(t, ValidKeyFormat("too-short"))
	assert.False(t, ValidKeyFormat("abcdefghijklmnopqrstuvwxyz-_01234"))
	assert.False(t, ValidKeyFormat("abcdefghijklmnopqrstuvwxyz!!0123"))
}
