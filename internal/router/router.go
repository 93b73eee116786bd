package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"hnlite/internal/config"
	"hnlite/internal/handlers"
	"hnlite/internal/middleware"
	"hnlite/internal/services"
)

const sessionName = "hnlite_session"

// New builds the engine with the full middleware chain and every route.
func New(cfg config.Config, conn *gorm.DB, log *zap.Logger) *gin.Engine {
	r := gin.New()

	auth := services.NewAuthService(conn)

	store := cookie.NewStore([]byte(cfg.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int((30 * 24 * time.Hour).Seconds()),
		HttpOnly: true,
		Secure:   cfg.SessionSecure,
		SameSite: http.SameSiteLaxMode,
	})

	r.Use(
		middleware.RequestID(),
		ginzap.Ginzap(log.Named("http"), time.RFC3339, true),
		ginzap.RecoveryWithZap(log, true),
		middleware.Metrics(),
		cors.New(cors.Config{
			AllowOrigins:     cfg.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", middleware.RequestIDHeader},
			ExposeHeaders:    []string{middleware.RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
		sessions.Sessions(sessionName, store),
		middleware.LoadUser(auth),
	)

	RegisterRoutes(r, cfg, conn, auth, log)
	return r
}

func RegisterRoutes(r *gin.Engine, cfg config.Config, conn *gorm.DB, auth *services.AuthService, log *zap.Logger) {
	votes := services.NewVoteLedger(conn)
	comments := services.NewCommentService(conn, cfg.CommentMaxLength)
	posts := services.NewPostService(conn)

	// Handlers
	authHandler := handlers.NewAuthHandler(auth, log)
	commentHandler := handlers.NewCommentHandler(cfg, comments, votes, log)
	postHandler := handlers.NewPostHandler(cfg, posts, comments, votes, log)

	limiter := middleware.NewRateLimiter(cfg.RateLimitPerMin)

	r.GET("/healthz", handlers.Health(conn))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 公共路由 (Public Routes)
	r.GET("/posts", postHandler.List)                    // 文章列表
	r.GET("/posts/:id", postHandler.Get)                 // 文章详情
	r.GET("/posts/:id/comments", postHandler.Comments)   // 顶层评论
	r.GET("/comments/:id/comments", commentHandler.List) // 子评论

	authGroup := r.Group("/auth")
	{
		authGroup.POST("/signup", limiter.Middleware(), authHandler.Signup) // 注册
		authGroup.POST("/login", limiter.Middleware(), authHandler.Login)   // 登录
		authGroup.GET("/logout", authHandler.Logout)                        // 退出登录
		authGroup.GET("/user", middleware.AuthRequired(), authHandler.Me)   // 当前用户
	}

	// 受保护路由 (Protected Routes)
	authorized := r.Group("/")
	authorized.Use(middleware.AuthRequired(), limiter.Middleware())
	{
		authorized.POST("/posts", postHandler.Create)                  // 发布文章
		authorized.POST("/posts/:id/upvote", postHandler.Upvote)       // 文章点赞
		authorized.POST("/posts/:id/comment", postHandler.Comment)     // 发表评论
		authorized.POST("/comments/:id", commentHandler.Create)        // 回复评论
		authorized.POST("/comments/:id/upvote", commentHandler.Upvote) // 评论点赞
	}
}
