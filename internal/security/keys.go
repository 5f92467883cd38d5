package security

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const sessionKeyInfo = "admingate/admin_session/v1"

// DeriveSessionKey expands the configured secret into the codec signing key so
// the raw secret is never used directly as an HMAC key.
func DeriveSessionKey(secret string) ([]byte, error) {
	if len(secret) < 32 {
		return nil, errors.New("session secret must be at least 32 bytes")
	}
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte(sessionKeyInfo))
	key := make([]byte, 32)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("derive session key: %w", err)
	}
	return key, nil
}
