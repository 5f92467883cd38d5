package domain

import "time"

type ActivityAction string

const (
	ActivityLogin          ActivityAction = "LOGIN"
	ActivityLogout         ActivityAction = "LOGOUT"
	ActivityRevokeSession  ActivityAction = "REVOKE_SESSION"
	ActivityUpdateLocation ActivityAction = "UPDATE_LOCATION"
	ActivityAutoBlock      ActivityAction = "AUTO_BLOCK"
	ActivityUnblock        ActivityAction = "UNBLOCK"
	ActivityCreatePost     ActivityAction = "CREATE_POST"
	ActivityDeletePost     ActivityAction = "DELETE_POST"
)

// SystemActor is recorded as the actor of entries written by automatic policies.
const SystemActor = "system"

type ActivityLog struct {
	ID             string         `gorm:"primaryKey;size:64" json:"id"`
	ActorID        string         `gorm:"index;size:128;not null" json:"actorId"`
	ActorName      string         `gorm:"size:255" json:"actorName"`
	Action         ActivityAction `gorm:"index;size:32;not null" json:"action"`
	Target         string         `gorm:"size:255" json:"target,omitempty"`
	Detail         string         `gorm:"size:1024" json:"detail,omitempty"`
	SystemAuthored bool           `gorm:"not null;default:false" json:"systemAuthored"`
	CreatedAt      time.Time      `gorm:"index" json:"createdAt"`
}
