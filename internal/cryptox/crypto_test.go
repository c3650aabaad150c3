package cryptox

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObfuscateReveal_RoundTrip(t *testing.T) {
	cases := []string{
		"",
		"hello",
		"a longer message with spaces and punctuation?!",
		"пример текста вне ASCII",
		"😀 emoji 🤝",
		strings.Repeat("x", 500), // longer than the secret, forces cycling
	}

	for _, plaintext := range cases {
		token := Obfuscate(plaintext)
		assert.Equal(t, plaintext, Reveal(token), "round trip for %q", plaintext)
	}
}

func TestObfuscate_NotPlaintext(t *testing.T) {
	const msg = "meet me at noon"
	token := Obfuscate(msg)
	assert.NotEqual(t, msg, token)
	assert.NotContains(t, token, "noon")

	// stored form must be valid base64, i.e. storable as a string field
	_, err := base64.StdEncoding.DecodeString(token)
	require.NoError(t, err)
}

func TestReveal_MalformedToken(t *testing.T) {
	assert.Equal(t, RevealErrorPlaceholder, Reveal("%%% not base64 %%%"))
}

func TestHashVerifySecret(t *testing.T) {
	encoded := HashSecret("Mylover10")

	assert.True(t, VerifySecret(encoded, "Mylover10"))
	assert.False(t, VerifySecret(encoded, "mylover10"))
	assert.False(t, VerifySecret(encoded, ""))
}

func TestHashSecret_SaltsDiffer(t *testing.T) {
	a := HashSecret("pw")
	b := HashSecret("pw")
	assert.NotEqual(t, a, b)

	assert.True(t, VerifySecret(a, "pw"))
	assert.True(t, VerifySecret(b, "pw"))
}

func TestVerifySecret_Malformed(t *testing.T) {
	assert.False(t, VerifySecret("no-separator", "pw"))
	assert.False(t, VerifySecret("zz:zz", "pw"))
	assert.False(t, VerifySecret("abcd:zz", "pw"))
}
