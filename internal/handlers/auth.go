package handlers

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"hnlite/internal/middleware"
	"hnlite/internal/models"
	"hnlite/internal/services"
	"hnlite/internal/utils"
)

type AuthHandler struct {
	base
	auth *services.AuthService
}

func NewAuthHandler(auth *services.AuthService, log *zap.Logger) *AuthHandler {
	useFormTagNames()
	return &AuthHandler{base: base{log: log}, auth: auth}
}

type credentialsForm struct {
	Username string `form:"username" json:"username" binding:"required"`
	Password string `form:"password" json:"password" binding:"required"`
}

type userData struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
}

func (h *AuthHandler) startSession(c *gin.Context, user models.User) error {
	session := sessions.Default(c)
	session.Clear()
	session.Set(middleware.SessionUserKey, user.ID)
	return session.Save()
}

// Signup POST /auth/signup 注册后直接登录
func (h *AuthHandler) Signup(c *gin.Context) {
	var form credentialsForm
	if err := c.ShouldBind(&form); err != nil {
		utils.FormError(c, bindMessage(err))
		return
	}
	user, err := h.auth.Signup(c.Request.Context(), form.Username, form.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.startSession(c, user); err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, http.StatusCreated, "User created", userData{ID: user.ID, Username: user.Username})
}

// Login POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var form credentialsForm
	if err := c.ShouldBind(&form); err != nil {
		utils.FormError(c, bindMessage(err))
		return
	}
	user, err := h.auth.Login(c.Request.Context(), form.Username, form.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.startSession(c, user); err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Logged in", userData{ID: user.ID, Username: user.Username})
}

// Logout GET /auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	if err := session.Save(); err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Logged out", nil)
}

// Me GET /auth/user
func (h *AuthHandler) Me(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	utils.Success(c, http.StatusOK, "User fetched", userData{ID: user.ID, Username: user.Username})
}
