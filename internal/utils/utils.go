package utils

import (
	"crypto/rand"

	"github.com/pairpoints/pairpoints-backend/internal/validation"
)

// matchingCodeCharset deliberately matches what the code validator accepts.
const matchingCodeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateMatchingCode generates a random human-shareable matching code of
// the canonical length. Uniqueness is the caller's concern.
func GenerateMatchingCode() (string, error) {
	b := make([]byte, validation.MatchingCodeLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	for i := range b {
		b[i] = matchingCodeCharset[int(b[i])%len(matchingCodeCharset)]
	}
	return string(b), nil
}
