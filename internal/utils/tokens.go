package utils

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

const defaultRefreshBytes = 32

// NewRefreshToken returns an opaque, URL-safe random token. Refresh tokens
// are stored server-side, so nothing is encoded in them.
func NewRefreshToken(nBytes int) (string, error) {
	if nBytes < 16 {
		nBytes = defaultRefreshBytes
	}
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
