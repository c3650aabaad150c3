package common

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// GenerateRandByteArray returns size cryptographically random bytes.
// It panics if the system random source fails, which is unrecoverable anyway.
func GenerateRandByteArray(size int) []byte {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return b
}

// MakeRandHexString generates a random hexadecimal string of the given size.
// The size parameter is the number of random bytes, so the resulting string
// is twice as long.
func MakeRandHexString(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// NowMillis returns the current time in integer milliseconds, the timestamp
// representation used in persisted records.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}

// MillisToTime converts an integer-millis timestamp back to time.Time.
func MillisToTime(ms int64) time.Time {
	return time.UnixMilli(ms)
}

// WipeByteArray zeroes the buffer in place. Nil-safe.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
