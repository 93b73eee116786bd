package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"hnlite/internal/utils"
)

// Health GET /healthz pings the database.
func Health(conn *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := conn.DB()
		if err == nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			utils.Error(c, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		utils.Success(c, http.StatusOK, "ok", nil)
	}
}
