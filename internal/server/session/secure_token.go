package session

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
)

// DefaultTokenLength is the number of random bytes of a token.
const DefaultTokenLength = 32

// SecureToken generates a unique random token made of length random bytes.
// The token is URL-safe base64 without padding, so 32 bytes give 43 characters.
func SecureToken(length int) string {
	if length < 0 {
		panic("session: negative token length")
	}

	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		panic(err) // crypto/rand never fails on supported platforms
	}

	return base64.RawURLEncoding.EncodeToString(b)
}

// SecureCompare compares the givens strings in a constant time.
// So length info is not leaked via timing attacks.
func SecureCompare(s1, s2 string) bool {
	return subtle.ConstantTimeCompare([]byte(s1), []byte(s2)) == 1
}
