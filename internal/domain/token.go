package domain

import "time"

const (
	// LegacyTokenVersion marks a payload migrated from the untagged JSON cookie format.
	LegacyTokenVersion  = 0
	CurrentTokenVersion = 1
)

// SessionToken is the cookie payload. It is self-contained and signed, but
// only meaningful while the referenced SessionRecord exists.
type SessionToken struct {
	Version     int         `json:"v"`
	UserID      string      `json:"uid"`
	SessionID   string      `json:"sid"`
	Username    string      `json:"username"`
	Role        string      `json:"role"`
	Permissions []string    `json:"permissions,omitempty"`
	DisplayName string      `json:"name,omitempty"`
	Location    *Location   `json:"location,omitempty"`
	Device      *DeviceInfo `json:"device,omitempty"`
	IssuedAt    int64       `json:"iat"`
	ExpiresAt   int64       `json:"exp"`
}

func (t SessionToken) IsLegacy() bool { return t.Version == LegacyTokenVersion }

// Expired reports whether the absolute expiry has passed. Legacy payloads
// carry no expiry and rely on the record staleness sweep instead.
func (t SessionToken) Expired(now time.Time) bool {
	if t.ExpiresAt == 0 {
		return false
	}
	return now.UnixMilli() >= t.ExpiresAt
}
