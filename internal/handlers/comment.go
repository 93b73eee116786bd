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

type CommentHandler struct {
	base
	cfg      config.Config
	comments *services.CommentService
	votes    *services.VoteLedger
}

func NewCommentHandler(cfg config.Config, comments *services.CommentService, votes *services.VoteLedger, log *zap.Logger) *CommentHandler {
	useFormTagNames()
	return &CommentHandler{
		base:     base{log: log},
		cfg:      cfg,
		comments: comments,
		votes:    votes,
	}
}

type contentForm struct {
	Content string `form:"content" json:"content" binding:"required"`
}

// Create POST /comments/:id 回复评论
func (h *CommentHandler) Create(c *gin.Context) {
	parentID, ok := pathID(c, "comment")
	if !ok {
		return
	}
	var form contentForm
	if err := c.ShouldBind(&form); err != nil {
		utils.FormError(c, bindMessage(err))
		return
	}
	user, _ := middleware.CurrentUser(c)

	comment, err := h.comments.CreateReply(c.Request.Context(), parentID, form.Content, *user)
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Comment Created", comment)
}

type commentVoteData struct {
	Count          int                   `json:"count"`
	CommentUpvotes []services.UpvoteView `json:"commentUpvotes"`
}

// Upvote POST /comments/:id/upvote 点赞/取消点赞
func (h *CommentHandler) Upvote(c *gin.Context) {
	id, ok := pathID(c, "comment")
	if !ok {
		return
	}
	user, _ := middleware.CurrentUser(c)

	res, err := h.votes.ToggleCommentVote(c.Request.Context(), id, user.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	data := commentVoteData{Count: res.Points, CommentUpvotes: []services.UpvoteView{}}
	if res.Upvoted {
		data.CommentUpvotes = append(data.CommentUpvotes, services.UpvoteView{UserID: user.ID})
	}
	utils.Success(c, http.StatusOK, "Comment updated", data)
}

// List GET /comments/:id/comments 一层子评论, 分页
func (h *CommentHandler) List(c *gin.Context) {
	id, ok := pathID(c, "comment")
	if !ok {
		return
	}
	q, ok := bindList(c, h.cfg)
	if !ok {
		return
	}

	res, err := h.comments.ListReplies(c.Request.Context(), id, q, middleware.ViewerID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.SuccessPage(c, "Comments fetched", res.Items, page(res.Pagination))
}
