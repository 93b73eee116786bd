package services

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"hnlite/internal/models"
	"hnlite/internal/utils"
)

type SortBy string

const (
	SortPoints SortBy = "points"
	SortRecent SortBy = "recent"
)

type Order string

const (
	OrderAsc  Order = "asc"
	OrderDesc Order = "desc"
)

// ListQuery is an already validated listing request. Page is 1-indexed.
type ListQuery struct {
	Page   int
	Limit  int
	SortBy SortBy
	Order  Order

	// post listings only
	Author string
	Site   string
}

func (q ListQuery) offset() int {
	return (q.Page - 1) * q.Limit
}

// pastEnd reports whether q.Page lies beyond the last page of total rows.
// Such pages are answered without a query, so offset never overflows.
func (q ListQuery) pastEnd(total int64) bool {
	return q.Page > TotalPages(total, q.Limit)
}

// orderBy sorts on the requested key with id as tie-break, both in the requested direction.
func (q ListQuery) orderBy(tx *gorm.DB) *gorm.DB {
	col := "points"
	if q.SortBy == SortRecent {
		col = "created_at"
	}
	desc := q.Order != OrderAsc
	return tx.
		Order(clause.OrderByColumn{Column: clause.Column{Name: col}, Desc: desc}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: desc})
}

type Pagination struct {
	Page       int `json:"page"`
	TotalPages int `json:"totalPages"`
}

type Page[T any] struct {
	Items      []T
	Pagination Pagination
}

// TotalPages is ceil(total/limit).
func TotalPages(total int64, limit int) int {
	if limit <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}

type Author struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
}

type UpvoteView struct {
	UserID uint `json:"userId"`
}

// CommentView is the wire shape of a comment.
type CommentView struct {
	ID              uint           `json:"id"`
	UserID          uint           `json:"userId"`
	Content         string         `json:"content"`
	ContentHTML     string         `json:"contentHtml"`
	Points          int            `json:"points"`
	Depth           int            `json:"depth"`
	CommentCount    int            `json:"commentCount"`
	CreatedAt       time.Time      `json:"createdAt"`
	PostID          uint           `json:"postId"`
	ParentCommentID *uint          `json:"parentCommentId"`
	CommentUpvotes  []UpvoteView   `json:"commentUpvotes"`
	Author          Author         `json:"author"`
	IsUpvoted       *bool          `json:"isUpvoted,omitempty"`
	ChildComments   *[]CommentView `json:"childComments,omitempty"`
}

// PostView is the wire shape of a post.
type PostView struct {
	ID           uint      `json:"id"`
	Title        string    `json:"title"`
	URL          *string   `json:"url"`
	Content      *string   `json:"content"`
	ContentHTML  string    `json:"contentHtml"`
	Points       int       `json:"points"`
	CommentCount int       `json:"commentCount"`
	CreatedAt    time.Time `json:"createdAt"`
	Author       Author    `json:"author"`
	IsUpvoted    bool      `json:"isUpvoted"`
}

func authorOf(u models.User) Author {
	return Author{ID: u.ID, Username: u.Username}
}

// commentView annotates c for viewerID. viewerID 0 is an anonymous caller and gets no vote state.
func commentView(c models.Comment, viewerID uint) CommentView {
	v := CommentView{
		ID:              c.ID,
		UserID:          c.UserID,
		Content:         c.Content,
		ContentHTML:     utils.RenderMarkdown(c.Content),
		Points:          c.Points,
		Depth:           c.Depth,
		CommentCount:    c.CommentCount,
		CreatedAt:       c.CreatedAt.UTC(),
		PostID:          c.PostID,
		ParentCommentID: c.ParentCommentID,
		CommentUpvotes:  []UpvoteView{},
		Author:          authorOf(c.Author),
	}
	if viewerID == 0 {
		return v
	}
	for _, up := range c.CommentUpvotes {
		if up.UserID == viewerID {
			v.CommentUpvotes = append(v.CommentUpvotes, UpvoteView{UserID: up.UserID})
			break
		}
	}
	upvoted := len(v.CommentUpvotes) > 0
	v.IsUpvoted = &upvoted
	return v
}

func postView(p models.Post, viewerID uint) PostView {
	v := PostView{
		ID:           p.ID,
		Title:        p.Title,
		URL:          p.URL,
		Content:      p.Content,
		Points:       p.Points,
		CommentCount: p.CommentCount,
		CreatedAt:    p.CreatedAt.UTC(),
		Author:       authorOf(p.Author),
	}
	if p.Content != nil {
		v.ContentHTML = utils.RenderMarkdown(*p.Content)
	}
	if viewerID != 0 {
		for _, up := range p.PostUpvotes {
			if up.UserID == viewerID {
				v.IsUpvoted = true
				break
			}
		}
	}
	return v
}

func selectAuthor(tx *gorm.DB) *gorm.DB {
	return tx.Select("id", "username")
}
