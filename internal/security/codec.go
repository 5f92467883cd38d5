package security

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/youthorg/admingate/internal/domain"
)

const tokenSeparator = "."

var ErrInvalidToken = errors.New("invalid session token")

// TokenCodec signs session payloads as base64url(json) + "." + base64url(hmac).
type TokenCodec struct {
	key          []byte
	acceptLegacy bool
}

func NewTokenCodec(key []byte, acceptLegacy bool) (*TokenCodec, error) {
	if len(key) < 32 {
		return nil, fmt.Errorf("token codec key must be at least 32 bytes, got %d", len(key))
	}
	return &TokenCodec{key: append([]byte(nil), key...), acceptLegacy: acceptLegacy}, nil
}

func (c *TokenCodec) Encode(payload domain.SessionToken) (string, error) {
	if payload.Version == domain.LegacyTokenVersion {
		payload.Version = domain.CurrentTokenVersion
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal session token: %w", err)
	}
	encoded := base64.RawURLEncoding.EncodeToString(raw)
	return encoded + tokenSeparator + base64.RawURLEncoding.EncodeToString(c.sign(encoded)), nil
}

// Decode verifies and parses a token. Every failure is ErrInvalidToken.
func (c *TokenCodec) Decode(token string) (domain.SessionToken, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.SessionToken{}, ErrInvalidToken
	}
	if c.acceptLegacy && looksLikeLegacyJSON(token) {
		return decodeLegacy(token)
	}
	parts := strings.Split(token, tokenSeparator)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return domain.SessionToken{}, ErrInvalidToken
	}
	tag, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return domain.SessionToken{}, ErrInvalidToken
	}
	if !hmac.Equal(tag, c.sign(parts[0])) {
		return domain.SessionToken{}, ErrInvalidToken
	}
	raw, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return domain.SessionToken{}, ErrInvalidToken
	}
	var payload domain.SessionToken
	if err := strictUnmarshal(raw, &payload); err != nil {
		return domain.SessionToken{}, ErrInvalidToken
	}
	if payload.Version != domain.CurrentTokenVersion || payload.UserID == "" || payload.SessionID == "" {
		return domain.SessionToken{}, ErrInvalidToken
	}
	return payload, nil
}

func (c *TokenCodec) sign(encoded string) []byte {
	mac := hmac.New(sha256.New, c.key)
	mac.Write([]byte(encoded))
	return mac.Sum(nil)
}

// legacyToken is the untagged JSON cookie written before signing was
// introduced. It is accepted unverified only while SESSION_ACCEPT_LEGACY_TOKENS
// is on, and is migrated to the current struct at this boundary.
type legacyToken struct {
	ID          string             `json:"id"`
	SessionID   string             `json:"sessionId"`
	Username    string             `json:"username"`
	Role        string             `json:"role"`
	Permissions []string           `json:"permissions"`
	Name        string             `json:"name"`
	Location    *domain.Location   `json:"location"`
	DeviceInfo  *domain.DeviceInfo `json:"deviceInfo"`
}

func looksLikeLegacyJSON(token string) bool {
	return strings.HasPrefix(token, "{") && strings.HasSuffix(token, "}")
}

func decodeLegacy(token string) (domain.SessionToken, error) {
	var legacy legacyToken
	if err := json.Unmarshal([]byte(token), &legacy); err != nil {
		return domain.SessionToken{}, ErrInvalidToken
	}
	if legacy.ID == "" || legacy.SessionID == "" {
		return domain.SessionToken{}, ErrInvalidToken
	}
	return domain.SessionToken{
		Version:     domain.LegacyTokenVersion,
		UserID:      legacy.ID,
		SessionID:   legacy.SessionID,
		Username:    legacy.Username,
		Role:        legacy.Role,
		Permissions: legacy.Permissions,
		DisplayName: legacy.Name,
		Location:    legacy.Location,
		Device:      legacy.DeviceInfo,
	}, nil
}

func strictUnmarshal(raw []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("trailing data after token payload")
	}
	return nil
}
