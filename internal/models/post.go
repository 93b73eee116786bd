package models

import (
	"time"
)

// Post is a submitted link or text post. Points and CommentCount are caches of
// count(post_upvotes) and count(comments) and only move through relative updates.
type Post struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"not null;index" json:"userId"`
	Author       User      `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author"`
	Title        string    `gorm:"size:255;not null" json:"title"`
	URL          *string   `json:"url"`
	Content      *string   `gorm:"type:text" json:"content"`
	Points       int       `gorm:"not null;default:0;index" json:"points"`
	CommentCount int       `gorm:"not null;default:0" json:"commentCount"`
	CreatedAt    time.Time `gorm:"index" json:"createdAt"`

	PostUpvotes []PostUpvote `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"postUpvotes"`
}
