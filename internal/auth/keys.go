// Package auth issues and verifies the access tokens handed to devices.
package auth

import (
	"crypto/rand"
	"fmt"
)

// PASETO v4 requires a 256-bit (32-byte) symmetric key.
const keyLength = 32

// GenerateKey returns a fresh random key. Keys live only in memory, so every token
// becomes invalid when the process restarts and devices simply re-authenticate.
func GenerateKey() ([]byte, error) {
	key := make([]byte, keyLength)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate auth key: %w", err)
	}
	return key, nil
}
