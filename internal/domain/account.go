package domain

import (
	"slices"
	"time"
)

const (
	PermissionAll = "*"

	PermPostsRead   = "posts:read"
	PermPostsWrite  = "posts:write"
	PermPostsDelete = "posts:delete"
	PermActivity    = "activity:read"
)

// Account is owned by the user directory; the session subsystem reads it and
// only writes IsBlocked.
type Account struct {
	ID            string     `gorm:"primaryKey;size:128" json:"id"`
	Email         string     `gorm:"uniqueIndex;size:255" json:"email"`
	Username      string     `gorm:"size:255" json:"username"`
	DisplayName   string     `gorm:"size:255" json:"displayName"`
	Role          string     `gorm:"size:64;not null" json:"role"`
	Permissions   []string   `gorm:"serializer:json" json:"permissions"`
	ExternalID    string     `gorm:"size:128;index" json:"externalId,omitempty"`
	IsBlocked     bool       `gorm:"not null;default:false" json:"isBlocked"`
	BlockedAt     *time.Time `json:"blockedAt,omitempty"`
	BlockedReason string     `gorm:"size:255" json:"blockedReason,omitempty"`
	Protected     bool       `gorm:"not null;default:false" json:"protected"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// HasElevatedAuthority reports top-level admin role or a catch-all grant.
func HasElevatedAuthority(role string, permissions []string, elevatedRole string) bool {
	if elevatedRole != "" && role == elevatedRole {
		return true
	}
	return slices.Contains(permissions, PermissionAll)
}

func HasPermission(permissions []string, required string) bool {
	for _, p := range permissions {
		if p == PermissionAll || p == required {
			return true
		}
	}
	return false
}
