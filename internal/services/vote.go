package services

import (
	"context"

	"gorm.io/gorm"

	"hnlite/internal/db"
	"hnlite/internal/models"
)

// VoteResult is the target's state after a toggle.
type VoteResult struct {
	Points  int
	Upvoted bool
}

// voteTarget describes one votable table and its ledger table.
type voteTarget struct {
	name     string
	target   func() any
	ledger   func() any
	newVote  func(targetID, userID uint) any
	fk       string
	notFound error
}

var (
	commentTarget = voteTarget{
		name:     "comment",
		target:   func() any { return &models.Comment{} },
		ledger:   func() any { return &models.CommentUpvote{} },
		newVote:  func(t, u uint) any { return &models.CommentUpvote{CommentID: t, UserID: u} },
		fk:       "comment_id",
		notFound: ErrCommentNotFound,
	}
	postTarget = voteTarget{
		name:     "post",
		target:   func() any { return &models.Post{} },
		ledger:   func() any { return &models.PostUpvote{} },
		newVote:  func(t, u uint) any { return &models.PostUpvote{PostID: t, UserID: u} },
		fk:       "post_id",
		notFound: ErrPostNotFound,
	}
)

// VoteLedger owns the one-vote-per-user-per-target rule and the points cache that mirrors it.
type VoteLedger struct {
	db *gorm.DB
}

func NewVoteLedger(conn *gorm.DB) *VoteLedger {
	return &VoteLedger{db: conn}
}

// ToggleCommentVote adds userID's upvote to the comment, or retracts it if one exists.
// It is a strict toggle: two calls leave the comment where it started.
func (l *VoteLedger) ToggleCommentVote(ctx context.Context, commentID, userID uint) (VoteResult, error) {
	return l.toggle(ctx, commentTarget, commentID, userID)
}

// TogglePostVote is ToggleCommentVote for posts.
func (l *VoteLedger) TogglePostVote(ctx context.Context, postID, userID uint) (VoteResult, error) {
	return l.toggle(ctx, postTarget, postID, userID)
}

func (l *VoteLedger) toggle(ctx context.Context, t voteTarget, targetID, userID uint) (VoteResult, error) {
	var res VoteResult
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 锁住目标行: concurrent toggles on the same target queue up here, which turns the
		// exists-check below and the insert/delete into one atomic step.
		var ids []uint
		if err := db.ForUpdate(tx.Model(t.target())).Where("id = ?", targetID).Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return t.notFound
		}

		var existing []uint
		if err := tx.Model(t.ledger()).
			Where(t.fk+" = ? AND user_id = ?", targetID, userID).
			Limit(1).
			Pluck("id", &existing).Error; err != nil {
			return err
		}

		delta := 1
		if len(existing) > 0 {
			delta = -1
			if err := tx.Delete(t.ledger(), existing[0]).Error; err != nil {
				return err
			}
		} else if err := tx.Create(t.newVote(targetID, userID)).Error; err != nil {
			return err
		}

		if err := incrementCounter(tx, t.target(), targetID, colPoints, delta, t.notFound); err != nil {
			return err
		}

		var points []int
		if err := tx.Model(t.target()).Where("id = ?", targetID).Pluck(colPoints, &points).Error; err != nil {
			return err
		}
		if len(points) == 0 {
			return t.notFound
		}
		res = VoteResult{Points: points[0], Upvoted: delta > 0}
		return nil
	})
	if err != nil {
		return VoteResult{}, classify(err)
	}

	direction := "up"
	if !res.Upvoted {
		direction = "retract"
	}
	voteToggles.WithLabelValues(t.name, direction).Inc()
	return res, nil
}
