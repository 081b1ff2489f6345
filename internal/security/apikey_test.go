package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testParams = Argon2Params{
	Time:    1,
	Memory:  16 * 1024,
	Threads: 1,
	KeyLen:  32,
	SaltLen: 16,
}

func TestGenerateSecretShape(t *testing.T) {
	plaintext, prefix, err := GenerateSecret()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(plaintext, "sk_"))
	assert.Contains(t, plaintext, prefix)

	gotPrefix, secret, err := SplitSecret(plaintext)
	require.NoError(t, err)
	assert.Equal(t, prefix, gotPrefix)
	assert.NotEmpty(t, secret)
	assert.NotContains(t, secret, prefix)
}

func TestGenerateSecretUnique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 32; i++ {
		plaintext, prefix, err := GenerateSecret()
		require.NoError(t, err)
		_, dup := seen[prefix]
		assert.False(t, dup, "prefix collision")
		seen[prefix] = struct{}{}
		seen[plaintext] = struct{}{}
	}
}

func TestSplitSecretMalformed(t *testing.T) {
	cases := []string{
		"",
		"sk_",
		"sk_onlyprefix",
		"sk__missingprefix",
		"sk_prefix_",
		"pk_prefix_secret",
		"not a secret at all",
	}
	for _, presented := range cases {
		_, _, err := SplitSecret(presented)
		assert.ErrorIs(t, err, ErrMalformedSecret, "input %q", presented)
	}
}

func TestHashAndVerifySecret(t *testing.T) {
	hash, err := HashSecretWithParams("correct-horse", testParams)
	require.NoError(t, err)

	assert.NotContains(t, string(hash), "correct-horse")

	ok, err := VerifySecret("correct-horse", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifySecret("wrong-horse", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifySecretGarbageHash(t *testing.T) {
	_, err := VerifySecret("anything", []byte("not-an-encoded-hash"))
	assert.Error(t, err)
}

func TestHashSecretFreshSalt(t *testing.T) {
	first, err := HashSecretWithParams("same-secret", testParams)
	require.NoError(t, err)
	second, err := HashSecretWithParams("same-secret", testParams)
	require.NoError(t, err)

	assert.NotEqual(t, first, second, "salts must differ per credential")

	for _, hash := range [][]byte{first, second} {
		ok, err := VerifySecret("same-secret", hash)
		require.NoError(t, err)
		assert.True(t, ok)
	}
}
