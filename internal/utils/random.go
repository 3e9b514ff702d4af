package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// RandomHex generates a cryptographically secure random hex string of
// 2*bytes characters
func RandomHex(bytes int) (string, error) {
	b := make([]byte, bytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}
