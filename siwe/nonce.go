package siwe

import (
	"crypto/rand"
	"fmt"
)

// NonceLength is the length of generated nonces.
const NonceLength = 32

const (
	minNonceLength = 8
	maxNonceLength = 64
)

// Only [a-zA-Z0-9]: characters such as '-' or '_' break some message parsers.
const nonceAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// GenerateNonce returns a random alphanumeric nonce of NonceLength characters.
func GenerateNonce() (string, error) {
	out := make([]byte, 0, NonceLength)
	buf := make([]byte, NonceLength*2)
	// 248 is the largest multiple of 62 below 256; rejecting above it keeps the draw uniform.
	const limit = 256 - 256%len(nonceAlphabet)
	for len(out) < NonceLength {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("read random: %w", err)
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, nonceAlphabet[int(b)%len(nonceAlphabet)])
			if len(out) == NonceLength {
				break
			}
		}
	}
	return string(out), nil
}

// ValidNonceFormat reports whether s is 8-64 alphanumeric characters.
func ValidNonceFormat(s string) bool {
	if len(s) < minNonceLength || len(s) > maxNonceLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !((c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')) {
			return false
		}
	}
	return true
}
