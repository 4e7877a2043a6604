package domain

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// MinPasswordBytes is the least entropy NewPassword accepts.
const MinPasswordBytes = 16

// NewPassword returns n random bytes encoded as unpadded URL-safe base64.
// It backs both the store access secret and the one-time bundle password.
func NewPassword(n int) (string, error) {
	if n < MinPasswordBytes {
		return "", fmt.Errorf("password entropy %d bytes is below %d", n, MinPasswordBytes)
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
