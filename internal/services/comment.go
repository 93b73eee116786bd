package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"hnlite/internal/db"
	"hnlite/internal/models"
)

// CommentService creates comments while keeping the comment counters in step, and
// serves the comment tree one level at a time.
type CommentService struct {
	db        *gorm.DB
	maxLength int
}

func NewCommentService(conn *gorm.DB, maxLength int) *CommentService {
	return &CommentService{db: conn, maxLength: maxLength}
}

func (s *CommentService) validateContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", invalid("content", "content cannot be empty")
	}
	if utf8.RuneCountInString(content) > s.maxLength {
		return "", invalid("content", fmt.Sprintf("content must be at most %d characters", s.maxLength))
	}
	return content, nil
}

// CreateReply inserts a reply under parentID. The parent's and the post's comment
// counters move in the same transaction as the insert; if either row is gone nothing is written.
func (s *CommentService) CreateReply(ctx context.Context, parentID uint, content string, author models.User) (CommentView, error) {
	content, err := s.validateContent(content)
	if err != nil {
		return CommentView{}, err
	}

	var comment models.Comment
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var parent models.Comment
		res := db.ForUpdate(tx.Select("id", "post_id", "depth")).
			Where("id = ?", parentID).
			Limit(1).
			Find(&parent)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrCommentNotFound
		}

		if err := incrementCounter(tx, &models.Comment{}, parent.ID, colCommentCount, 1, ErrCommentNotFound); err != nil {
			return err
		}
		if err := incrementCounter(tx, &models.Post{}, parent.PostID, colCommentCount, 1, ErrPostNotFound); err != nil {
			return err
		}

		parentRef := parent.ID
		comment = models.Comment{
			UserID:          author.ID,
			PostID:          parent.PostID,
			ParentCommentID: &parentRef,
			Content:         content,
			Depth:           parent.Depth + 1,
		}
		return tx.Create(&comment).Error
	})
	if err != nil {
		return CommentView{}, classify(err)
	}

	commentsCreated.WithLabelValues("comment").Inc()
	return newCommentView(comment, author), nil
}

// CreatePostComment inserts a top-level comment (depth 0) on postID and bumps the post's counter.
func (s *CommentService) CreatePostComment(ctx context.Context, postID uint, content string, author models.User) (CommentView, error) {
	content, err := s.validateContent(content)
	if err != nil {
		return CommentView{}, err
	}

	var comment models.Comment
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []uint
		if err := db.ForUpdate(tx.Model(&models.Post{})).Where("id = ?", postID).Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return ErrPostNotFound
		}

		if err := incrementCounter(tx, &models.Post{}, postID, colCommentCount, 1, ErrPostNotFound); err != nil {
			return err
		}

		comment = models.Comment{
			UserID:  author.ID,
			PostID:  postID,
			Content: content,
			Depth:   0,
		}
		return tx.Create(&comment).Error
	})
	if err != nil {
		return CommentView{}, classify(err)
	}

	commentsCreated.WithLabelValues("post").Inc()
	return newCommentView(comment, author), nil
}

// newCommentView is the view of a comment that was just created: no votes, no children.
func newCommentView(c models.Comment, author models.User) CommentView {
	c.Author = author
	v := commentView(c, 0)
	children := []CommentView{}
	v.ChildComments = &children
	return v
}

// ListReplies returns one page of the direct replies to parentID. It never recurses;
// clients build deeper levels with further calls.
func (s *CommentService) ListReplies(ctx context.Context, parentID uint, q ListQuery, viewerID uint) (Page[CommentView], error) {
	return s.list(ctx, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("parent_comment_id = ?", parentID)
	}, q, viewerID)
}

// ListPostComments returns one page of postID's top-level comments.
func (s *CommentService) ListPostComments(ctx context.Context, postID uint, q ListQuery, viewerID uint) (Page[CommentView], error) {
	return s.list(ctx, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("post_id = ? AND parent_comment_id IS NULL", postID)
	}, q, viewerID)
}

func (s *CommentService) list(ctx context.Context, scope func(*gorm.DB) *gorm.DB, q ListQuery, viewerID uint) (Page[CommentView], error) {
	conn := s.db.WithContext(ctx)

	var total int64
	if err := conn.Model(&models.Comment{}).Scopes(scope).Count(&total).Error; err != nil {
		return Page[CommentView]{}, err
	}
	pagination := Pagination{Page: q.Page, TotalPages: TotalPages(total, q.Limit)}
	if q.pastEnd(total) {
		return Page[CommentView]{Items: []CommentView{}, Pagination: pagination}, nil
	}

	query := conn.Model(&models.Comment{}).Scopes(scope, q.orderBy).
		Preload("Author", selectAuthor).
		Offset(q.offset()).
		Limit(q.Limit)
	if viewerID != 0 {
		// at most one row per comment thanks to the (comment_id, user_id) unique index
		query = query.Preload("CommentUpvotes", "user_id = ?", viewerID)
	}

	var rows []models.Comment
	if err := query.Find(&rows).Error; err != nil {
		return Page[CommentView]{}, err
	}

	items := make([]CommentView, 0, len(rows))
	for _, c := range rows {
		items = append(items, commentView(c, viewerID))
	}
	return Page[CommentView]{Items: items, Pagination: pagination}, nil
}
