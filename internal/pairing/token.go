package pairing

import (
	"crypto/subtle"
	"strings"
)

// SameToken performs constant-time comparison of two client keys.
func SameToken(a, b string) bool {
	// ConstantTimeCompare returns 0 for different lengths, which is correct.
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// RedactToken keeps the first four characters of a client key for log output.
func RedactToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 4 {
		return strings.Repeat("*", len(token))
	}
	return token[:4] + strings.Repeat("*", 8)
}
