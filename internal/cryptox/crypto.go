// Package cryptox holds the two credential/content primitives of CloudChat:
// reversible message-content obfuscation and one-way credential hashing.
//
// Obfuscation is NOT a security control. The shared secret ships inside
// every client build, so it only hides stored message bodies from casual
// inspection, not from an adversary holding the client.
package cryptox

import (
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/cloudchat-app/cloudchat/internal/common"
	"golang.org/x/crypto/argon2"
)

// obfuscationSecret is the fixed shared secret every client knows.
const obfuscationSecret = "r9zRkEgZDOmQkPlwSexj2SpaCTDcKZYwYc9XmIazrLgVsHT1VlXoLUAj7664BvyNTYOutRIfJ9nnleTNpEip3kdwF"

// RevealErrorPlaceholder is returned by Reveal for corrupt tokens so that
// message rendering never fails on a bad record.
const RevealErrorPlaceholder = "*** Decryption Error ***"

func xorWithSecret(in []byte) []byte {
	out := make([]byte, len(in))
	for i, b := range in {
		out[i] = b ^ obfuscationSecret[i%len(obfuscationSecret)]
	}
	return out
}

// Obfuscate XORs the plaintext against the shared secret cycled to the
// plaintext's length and base64-encodes the result for storage as a string.
func Obfuscate(plaintext string) string {
	return base64.StdEncoding.EncodeToString(xorWithSecret([]byte(plaintext)))
}

// Reveal is the exact inverse of Obfuscate. Malformed input yields
// RevealErrorPlaceholder rather than an error.
func Reveal(token string) string {
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return RevealErrorPlaceholder
	}
	return string(xorWithSecret(raw))
}

// argon2id parameters, matching the values used for key derivation
// elsewhere in the codebase's lineage.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
	saltLen      = 16
)

// HashSecret derives an argon2id hash of the credential secret under a
// fresh random salt and encodes both as "hex(salt):hex(key)" so the whole
// credential fits one string field.
func HashSecret(secret string) string {
	salt := common.GenerateRandByteArray(saltLen)
	key := argon2.IDKey([]byte(secret), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	return fmt.Sprintf("%s:%s", hex.EncodeToString(salt), hex.EncodeToString(key))
}

// VerifySecret re-derives the key from candidate under the encoded salt and
// compares in constant time. Malformed encodings verify as false.
func VerifySecret(encoded, candidate string) bool {
	parts := strings.SplitN(encoded, ":", 2)
	if len(parts) != 2 {
		return false
	}
	salt, err := hex.DecodeString(parts[0])
	if err != nil {
		return false
	}
	key, err := hex.DecodeString(parts[1])
	if err != nil {
		return false
	}
	candidateKey := argon2.IDKey([]byte(candidate), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	return subtle.ConstantTimeCompare(key, candidateKey) == 1
}
