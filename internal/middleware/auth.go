package middleware

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"hnlite/internal/models"
	"hnlite/internal/services"
	"hnlite/internal/utils"
)

const (
	CheckUserKey = "user"
	// SessionUserKey is the session field holding the logged-in user's id.
	SessionUserKey = "user_id"
)

// AuthRequired rejects the request with 401 unless LoadUser found a user.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentUser(c); !ok {
			utils.Error(c, http.StatusUnauthorized, "Unauthorized")
			c.Abort()
			return
		}
		c.Next()
	}
}

// LoadUser retrieves user from session and sets to context.
// A session pointing at a deleted user is cleared and the request continues anonymously.
func LoadUser(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		id, ok := session.Get(SessionUserKey).(uint)
		if !ok || id == 0 {
			c.Next()
			return
		}

		user, err := auth.UserByID(c.Request.Context(), id)
		if err != nil {
			session.Delete(SessionUserKey)
			_ = session.Save()
			c.Next()
			return
		}
		c.Set(CheckUserKey, &user)
		c.Next()
	}
}

// CurrentUser returns the user LoadUser attached to the request.
func CurrentUser(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get(CheckUserKey)
	if !ok {
		return nil, false
	}
	u, ok := v.(*models.User)
	return u, ok && u != nil
}

// ViewerID is the current user's id, or 0 for anonymous requests.
func ViewerID(c *gin.Context) uint {
	if u, ok := CurrentUser(c); ok {
		return u.ID
	}
	return 0
}
