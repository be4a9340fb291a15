package session

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

const clientIDBytes = 32

// GenerateID returns a new client scope id with 256 bits of entropy.
func GenerateID() (string, error) {
	b := make([]byte, clientIDBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("session: failed to generate id: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// ValidID reports whether id looks like something GenerateID produced.
// Cookies failing this check are replaced rather than used as storage keys.
func ValidID(id string) bool {
	b, err := base64.RawURLEncoding.DecodeString(id)
	return err == nil && len(b) == clientIDBytes
}
