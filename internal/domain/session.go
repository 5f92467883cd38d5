package domain

import "time"

const (
	DefaultMaxSessions = 2
	DefaultStaleAfter  = 25 * time.Hour
)

type DeviceInfo struct {
	Brand string `gorm:"size:64" json:"brand,omitempty" bson:"brand,omitempty"`
	Model string `gorm:"size:128" json:"model,omitempty" bson:"model,omitempty"`
	OS    string `gorm:"size:64" json:"os,omitempty" bson:"os,omitempty"`
}

func (d DeviceInfo) IsZero() bool {
	return d.Brand == "" && d.Model == "" && d.OS == ""
}

// Describe renders the device for activity log messages.
func (d DeviceInfo) Describe() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{d.Brand, d.Model, d.OS} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return "unknown device"
	}
	out := parts[0]
	for _, p := range parts[1:] {
		out += " " + p
	}
	return out
}

type Location struct {
	Address   *string  `gorm:"size:512" json:"address,omitempty" bson:"address,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty" bson:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty" bson:"longitude,omitempty"`
	Accuracy  *float64 `json:"accuracy,omitempty" bson:"accuracy,omitempty"`
}

func (l *Location) IsZero() bool {
	return l == nil || (l.Address == nil && l.Latitude == nil && l.Longitude == nil && l.Accuracy == nil)
}

// SessionRecord is the server-side proof that a device is signed in. The
// token held by the device is meaningless once its record is gone.
type SessionRecord struct {
	SessionID  string     `gorm:"primaryKey;size:64" json:"sessionId" bson:"_id"`
	UserID     string     `gorm:"index;size:128;not null" json:"userId" bson:"userId"`
	UserName   string     `gorm:"size:255" json:"userName" bson:"userName"`
	Role       string     `gorm:"size:64" json:"role" bson:"role"`
	DeviceInfo DeviceInfo `gorm:"embedded;embeddedPrefix:device_" json:"deviceInfo" bson:"deviceInfo"`
	Location   *Location  `gorm:"embedded;embeddedPrefix:location_" json:"location,omitempty" bson:"location,omitempty"`
	CreatedAt  int64      `gorm:"index;not null;autoCreateTime:false" json:"createdAt" bson:"createdAt"`
	LastActive int64      `gorm:"not null" json:"lastActive" bson:"lastActive"`
}

func (SessionRecord) TableName() string { return "active_sessions" }

// IsStale reports whether the record is older than staleAfter at now.
// Staleness is computed by readers; stores never expire records on their own.
func (s SessionRecord) IsStale(now time.Time, staleAfter time.Duration) bool {
	return s.CreatedAt < now.Add(-staleAfter).UnixMilli()
}

func PartitionStale(records []SessionRecord, now time.Time, staleAfter time.Duration) (active, stale []SessionRecord) {
	for _, rec := range records {
		if rec.IsStale(now, staleAfter) {
			stale = append(stale, rec)
			continue
		}
		active = append(active, rec)
	}
	return active, stale
}
