package models

import (
	"time"
)

// PostUpvote is the proof that a user has voted on a post. At most one row per (user, post);
// the vote ledger guarantees it and the unique index backs it up.
type PostUpvote struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_post_upvote_user" json:"postId"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_post_upvote_user;index" json:"userId"`
	User      User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	CreatedAt time.Time `json:"createdAt"`
}

// CommentUpvote is the comment counterpart of PostUpvote.
type CommentUpvote struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CommentID uint      `gorm:"not null;uniqueIndex:idx_comment_upvote_user" json:"commentId"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_comment_upvote_user;index" json:"userId"`
	User      User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	CreatedAt time.Time `json:"createdAt"`
}

// All lists every model in migration order.
func All() []any {
	return []any{
		&User{},
		&Post{},
		&Comment{},
		&PostUpvote{},
		&CommentUpvote{},
	}
}
