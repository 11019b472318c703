package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"resumeMatcher/internal/api/middleware"
	"resumeMatcher/internal/metrics"
)

// NewRouter 构建带公共中间件的 Gin 引擎，并暴露 /health 与 /metrics。
func NewRouter(logger *slog.Logger, internalSecret string) *gin.Engine {
	if logger == nil {
		logger = slog.Default()
	}
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.CorrelationIDMiddleware(),
		middleware.SlogLoggerMiddleware(logger),
		metrics.GinMiddleware(),
	)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", middleware.InternalSecretMiddleware(internalSecret), metrics.Handler())

	return router
}
