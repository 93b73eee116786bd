package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"hnlite/internal/config"
	"hnlite/internal/middleware"
	"hnlite/internal/services"
	"hnlite/internal/utils"
)

// base carries what every handler needs to answer a failed request.
type base struct {
	log *zap.Logger
}

// fail maps a service error onto the error envelope. Anything outside the
// service taxonomy is logged and reported as a 500 without detail.
func (b base) fail(c *gin.Context, err error) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		utils.FormError(c, verr.Message)
	case errors.Is(err, services.ErrValidation):
		utils.FormError(c, err.Error())
	case errors.Is(err, services.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, utils.ErrorResponse{Error: "Incorrect username or password", IsFormError: true})
	case errors.Is(err, services.ErrUnauthorized):
		utils.Error(c, http.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, services.ErrCommentNotFound):
		utils.Error(c, http.StatusNotFound, "Comment not found")
	case errors.Is(err, services.ErrPostNotFound):
		utils.Error(c, http.StatusNotFound, "Post not found")
	case errors.Is(err, services.ErrNotFound):
		utils.Error(c, http.StatusNotFound, "Not found")
	case errors.Is(err, services.ErrUsernameTaken):
		c.JSON(http.StatusConflict, utils.ErrorResponse{Error: "Username already used", IsFormError: true})
	case errors.Is(err, services.ErrConflict):
		utils.Error(c, http.StatusConflict, "Conflicting update, please retry")
	default:
		b.log.Error("request failed",
			zap.String("request_id", c.GetString(middleware.RequestIDKey)),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		utils.Error(c, http.StatusInternalServerError, "Internal server error")
	}
}

// pathID reads the numeric :id param, answering 400 itself when it is malformed.
func pathID(c *gin.Context, name string) (uint, bool) {
	id, ok := utils.ParseID(c.Param("id"))
	if !ok {
		utils.Error(c, http.StatusBadRequest, fmt.Sprintf("Invalid %s id", name))
	}
	return id, ok
}

// listParams is the query string shared by every paginated listing.
type listParams struct {
	Page   *int   `form:"page" binding:"omitempty,min=1"`
	Limit  *int   `form:"limit" binding:"omitempty,min=1"`
	SortBy string `form:"sortBy" binding:"omitempty,oneof=points recent"`
	Order  string `form:"order" binding:"omitempty,oneof=asc desc"`
	Author string `form:"author" binding:"omitempty,max=31"`
	Site   string `form:"site" binding:"omitempty,max=255"`
}

// bindList validates the listing query and fills in defaults. It answers 400 itself on bad input.
func bindList(c *gin.Context, cfg config.Config) (services.ListQuery, bool) {
	var p listParams
	if err := c.ShouldBindQuery(&p); err != nil {
		utils.Error(c, http.StatusBadRequest, bindMessage(err))
		return services.ListQuery{}, false
	}
	if p.Limit != nil && *p.Limit > cfg.PageMaxLimit {
		utils.Error(c, http.StatusBadRequest, fmt.Sprintf("limit must be at most %d", cfg.PageMaxLimit))
		return services.ListQuery{}, false
	}

	q := services.ListQuery{
		Page:   1,
		Limit:  cfg.PageDefaultLimit,
		SortBy: services.SortBy(p.SortBy),
		Order:  services.Order(p.Order),
		Author: p.Author,
		Site:   p.Site,
	}
	if p.Page != nil {
		q.Page = *p.Page
	}
	if p.Limit != nil {
		q.Limit = *p.Limit
	}
	if q.SortBy == "" {
		q.SortBy = services.SortPoints
	}
	if q.Order == "" {
		q.Order = services.OrderDesc
	}
	return q, true
}

var registerTagNames sync.Once

// useFormTagNames makes validator report fields by their form/json names.
func useFormTagNames() {
	registerTagNames.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			for _, tag := range []string{"form", "json"} {
				name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
				if name != "" && name != "-" {
					return name
				}
			}
			return f.Name
		})
	})
}

// bindMessage turns a binding error into a message fit for the client.
func bindMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Invalid request parameters"
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

func page(p services.Pagination) utils.Pagination {
	return utils.Pagination(p)
}
