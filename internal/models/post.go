package models

import (
	"time"

	"gorm.io/gorm"
)

// Post represents a shared content item.
type Post struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Content  string `gorm:"type:text;not null" json:"content"`
	ImageURL string `json:"image_url,omitempty"`
	UserID   uint   `gorm:"not null;index" json:"user_id"`
	User     User   `gorm:"foreignKey:UserID" json:"user"`
	// LikesCount is not persisted; computed at query time
	LikesCount int `gorm:"->;-:migration" json:"likes_count"`
	// CommentsCount is not persisted; computed at query time
	CommentsCount int `gorm:"->;-:migration" json:"comments_count"`
	// Liked indicates whether the current requesting user liked this post (computed)
	Liked bool `gorm:"-" json:"liked"`
	// LikedBy holds the ids of users who liked the post, filled on single-post reads.
	LikedBy   []uint         `gorm:"-" json:"liked_by,omitempty"`
	CreatedAt time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// RankAuthor returns the author used for the affinity term.
func (p *Post) RankAuthor() uint { return p.UserID }

// RankCreatedAt returns the creation time used for the recency term.
func (p *Post) RankCreatedAt() time.Time { return p.CreatedAt }

// RankLikes returns the like count used for the engagement term.
func (p *Post) RankLikes() int { return p.LikesCount }
