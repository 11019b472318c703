package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"resumeMatcher/internal/api/middleware"
	"resumeMatcher/internal/auth"
	"resumeMatcher/internal/database"
	"resumeMatcher/internal/job"
	"resumeMatcher/internal/resume"
	"resumeMatcher/internal/worker"
)

// Services 汇总路由需要的业务依赖。Redis 为空时不启用登录限流与 WebSocket 推送。
type Services struct {
	Tokens         middleware.TokenValidator
	Sessions       *auth.SessionService
	Jobs           *job.Service
	Resumes        *resume.Service
	Redis          redis.UniversalClient
	Guard          *LoginGuard
	Logger         *slog.Logger
	AllowedOrigins []string
	MaxUploadBytes int64
}

// RegisterRoutes 注册 /v1 下的业务路由。
func RegisterRoutes(router *gin.Engine, svc Services) {
	authHandler := NewAuthHandler(svc.Sessions, svc.Guard)
	jobHandler := NewJobHandler(svc.Jobs)
	requireAuth := middleware.AuthMiddleware(svc.Tokens)
	optionalAuth := middleware.OptionalAuthMiddleware(svc.Tokens)
	recruiterOnly := middleware.RequireRole(database.RoleRecruiter)

	v1 := router.Group("/v1")
	{
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/resume-login", authHandler.ResumeLogin)
			authGroup.GET("/me", requireAuth, authHandler.Me)
		}

		jobGroup := v1.Group("/jobs")
		{
			jobGroup.GET("", optionalAuth, jobHandler.List)
			jobGroup.GET("/mine", requireAuth, recruiterOnly, jobHandler.Mine)
			jobGroup.GET("/:id", optionalAuth, jobHandler.Get)
			jobGroup.POST("", requireAuth, recruiterOnly, jobHandler.Create)
			jobGroup.PUT("/:id", requireAuth, recruiterOnly, jobHandler.Update)
			jobGroup.DELETE("/:id", requireAuth, recruiterOnly, jobHandler.Delete)
		}

		if svc.Resumes != nil {
			resumeHandler := NewResumeHandler(svc.Resumes, svc.MaxUploadBytes)
			resumeGroup := v1.Group("/resumes")
			resumeGroup.Use(requireAuth)
			{
				resumeGroup.POST("/upload", resumeHandler.Upload)
				resumeGroup.POST("", resumeHandler.Create)
				resumeGroup.GET("", resumeHandler.List)
				resumeGroup.GET("/:id", resumeHandler.Get)
				resumeGroup.DELETE("/:id", resumeHandler.Delete)
				resumeGroup.GET("/:id/download-link", resumeHandler.GetDownloadLink)
				resumeGroup.GET("/:id/matches", resumeHandler.Matches)
			}
		}

		if svc.Redis != nil {
			wsHandler := NewWsHandler(worker.NewRedisSubscriber(svc.Redis), svc.Tokens, svc.Logger, svc.AllowedOrigins)
			v1.GET("/ws", wsHandler.HandleConnection)
		}
	}
}
