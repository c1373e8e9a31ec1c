package models

import "time"

// NotificationType names what happened to the recipient.
type NotificationType string

const (
	NotificationFriendRequest  NotificationType = "friend_request"
	NotificationFriendAccepted NotificationType = "friend_accepted"
	NotificationLike           NotificationType = "like"
	NotificationComment        NotificationType = "comment"
	NotificationChallenge      NotificationType = "challenge"
	NotificationGroupInvite    NotificationType = "group_invite"
)

// Notification is one entry in a user's inbox. It is stored even when the
// live push fails, so users who were offline still see it.
type Notification struct {
	ID        uint             `gorm:"primaryKey" json:"id"`
	UserID    uint             `gorm:"not null;index:idx_notifications_inbox,priority:1" json:"user_id"`
	ActorID   uint             `gorm:"not null" json:"actor_id"`
	Type      NotificationType `gorm:"type:varchar(32);not null" json:"type"`
	RelatedID uint             `json:"related_id,omitempty"`
	Read      bool             `gorm:"column:is_read;not null;default:false" json:"read"`
	CreatedAt time.Time        `gorm:"index:idx_notifications_inbox,priority:2" json:"created_at"`

	Actor *User `gorm:"foreignKey:ActorID" json:"actor,omitempty"`
}

// TableName specifies the table name for GORM
func (Notification) TableName() string {
	return "notifications"
}
