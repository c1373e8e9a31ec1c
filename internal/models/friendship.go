package models

import "time"

// FriendshipStatus represents the status of a follow request.
type FriendshipStatus string

const (
	// FriendshipStatusPending indicates a request awaiting the addressee.
	FriendshipStatusPending FriendshipStatus = "pending"
	// FriendshipStatusAccepted indicates both users follow each other.
	FriendshipStatusAccepted FriendshipStatus = "accepted"
)

// Friendship is a follow request between two users. Once accepted the
// relationship is mutual: each side appears in the other's following set.
type Friendship struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	RequesterID uint             `gorm:"not null;uniqueIndex:idx_friendship_users" json:"requester_id"`
	AddresseeID uint             `gorm:"not null;uniqueIndex:idx_friendship_users" json:"addressee_id"`
	Status      FriendshipStatus `gorm:"type:varchar(20);default:'pending';index:idx_friendships_status" json:"status"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`

	Requester *User `gorm:"foreignKey:RequesterID" json:"requester,omitempty"`
	Addressee *User `gorm:"foreignKey:AddresseeID" json:"addressee,omitempty"`
}

// TableName specifies the table name for GORM
func (Friendship) TableName() string {
	return "friendships"
}

// Other returns the participant that is not userID.
func (f *Friendship) Other(userID uint) uint {
	if f.RequesterID == userID {
		return f.AddresseeID
	}
	return f.RequesterID
}
