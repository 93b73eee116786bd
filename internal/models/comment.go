package models

import (
	"time"
)

// Comment is a node in a post's comment forest. Top-level comments have no parent and depth 0,
// replies sit one level below their parent. CommentCount counts direct replies only.
type Comment struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	UserID          uint      `gorm:"not null;index" json:"userId"`
	Author          User      `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author"`
	PostID          uint      `gorm:"not null;index" json:"postId"`
	Post            Post      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	ParentCommentID *uint     `gorm:"index" json:"parentCommentId"` // Nullable for top-level comments
	ParentComment   *Comment  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Content         string    `gorm:"type:text;not null" json:"content"`
	Points          int       `gorm:"not null;default:0" json:"points"`
	Depth           int       `gorm:"not null;default:0" json:"depth"`
	CommentCount    int       `gorm:"not null;default:0" json:"commentCount"`
	CreatedAt       time.Time `gorm:"index" json:"createdAt"`

	CommentUpvotes []CommentUpvote `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"commentUpvotes"`
}
