package models

import "time"

// GroupRole defines a member's role in a group.
type GroupRole string

const (
	// GroupRoleOwner is held by the group's creator.
	GroupRoleOwner GroupRole = "owner"
	// GroupRoleMember is the default role.
	GroupRoleMember GroupRole = "member"
)

// Group is a community group neighbors can join.
type Group struct {
	ID              uint   `gorm:"primaryKey" json:"id"`
	Name            string `gorm:"size:80;not null" json:"name"`
	Description     string `gorm:"type:text" json:"description"`
	AvatarURL       string `json:"avatar_url"`
	CreatedByUserID uint   `gorm:"not null;index" json:"created_by_user_id"`
	CreatedByUser   *User  `gorm:"foreignKey:CreatedByUserID" json:"created_by_user,omitempty"`
	// MemberCount is not persisted; computed at query time
	MemberCount int `gorm:"->;-:migration" json:"member_count"`
	// Joined reports whether the requesting user is a member (computed)
	Joined    bool      `gorm:"-" json:"joined"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Group) TableName() string {
	return "community_groups"
}

// GroupMembership maps users to groups and tracks role.
type GroupMembership struct {
	GroupID   uint      `gorm:"primaryKey;autoIncrement:false" json:"group_id"`
	UserID    uint      `gorm:"primaryKey;autoIncrement:false;index" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Role      GroupRole `gorm:"type:varchar(20);not null;default:'member'" json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM
func (GroupMembership) TableName() string {
	return "group_memberships"
}
