package util

import (
	"crypto/rand"
	"fmt"
)

const alphanumeric = "abcdefghijklmnopqrstuvwxyz0123456789"

// idLength is the random suffix length of generated ids.
const idLength = 9

// NewID returns an opaque id of the form "<prefix>-<random>", e.g.
// "plan-x4k29dq1z", using cryptographic randomness.
func NewID(prefix string) (string, error) {
	bytes := make([]byte, idLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate id: %w", err)
	}
	for i := range bytes {
		bytes[i] = alphanumeric[int(bytes[i])%len(alphanumeric)]
	}
	return prefix + "-" + string(bytes), nil
}

// MustNewID is NewID for call sites that cannot propagate an error. The only
// failure mode is the system entropy source being unavailable.
func MustNewID(prefix string) string {
	id, err := NewID(prefix)
	if err != nil {
		panic(err)
	}
	return id
}
