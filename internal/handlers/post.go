package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"hnlite/internal/config"
	"hnlite/internal/middleware"
	"hnlite/internal/services"
	"hnlite/internal/utils"
)

type PostHandler struct {
	base
	cfg      config.Config
	posts    *services.PostService
	comments *services.CommentService
	votes    *services.VoteLedger
}

func NewPostHandler(cfg config.Config, posts *services.PostService, comments *services.CommentService, votes *services.VoteLedger, log *zap.Logger) *PostHandler {
	useFormTagNames()
	return &PostHandler{
		base:     base{log: log},
		cfg:      cfg,
		posts:    posts,
		comments: comments,
		votes:    votes,
	}
}

type postForm struct {
	Title   string `form:"title" json:"title" binding:"required"`
	URL     string `form:"url" json:"url"`
	Content string `form:"content" json:"content"`
}

// Create POST /posts 发布
func (h *PostHandler) Create(c *gin.Context) {
	var form postForm
	if err := c.ShouldBind(&form); err != nil {
		utils.FormError(c, bindMessage(err))
		return
	}
	user, _ := middleware.CurrentUser(c)

	post, err := h.posts.Create(c.Request.Context(), services.NewPost{
		Title:   form.Title,
		URL:     form.URL,
		Content: form.Content,
	}, *user)
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, http.StatusCreated, "Post created", post)
}

// List GET /posts
func (h *PostHandler) List(c *gin.Context) {
	q, ok := bindList(c, h.cfg)
	if !ok {
		return
	}
	res, err := h.posts.List(c.Request.Context(), q, middleware.ViewerID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.SuccessPage(c, "Posts fetched", res.Items, page(res.Pagination))
}

// Get GET /posts/:id
func (h *PostHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "post")
	if !ok {
		return
	}
	post, err := h.posts.Get(c.Request.Context(), id, middleware.ViewerID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Post fetched", post)
}

type postVoteData struct {
	Count     int  `json:"count"`
	IsUpvoted bool `json:"isUpvoted"`
}

// Upvote POST /posts/:id/upvote
func (h *PostHandler) Upvote(c *gin.Context) {
	id, ok := pathID(c, "post")
	if !ok {
		return
	}
	user, _ := middleware.CurrentUser(c)

	res, err := h.votes.TogglePostVote(c.Request.Context(), id, user.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Post updated", postVoteData{Count: res.Points, IsUpvoted: res.Upvoted})
}

// Comment POST /posts/:id/comment 发表顶层评论
func (h *PostHandler) Comment(c *gin.Context) {
	id, ok := pathID(c, "post")
	if !ok {
		return
	}
	var form contentForm
	if err := c.ShouldBind(&form); err != nil {
		utils.FormError(c, bindMessage(err))
		return
	}
	user, _ := middleware.CurrentUser(c)

	comment, err := h.comments.CreatePostComment(c.Request.Context(), id, form.Content, *user)
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Comment Created", comment)
}

// Comments GET /posts/:id/comments 顶层评论
func (h *PostHandler) Comments(c *gin.Context) {
	id, ok := pathID(c, "post")
	if !ok {
		return
	}
	q, ok := bindList(c, h.cfg)
	if !ok {
		return
	}
	res, err := h.comments.ListPostComments(c.Request.Context(), id, q, middleware.ViewerID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.SuccessPage(c, "Comments fetched", res.Items, page(res.Pagination))
}
