package router

import (
	"time"

	"basegraph.app/chat/internal/http/handler"
	"basegraph.app/chat/internal/http/middleware"
	"basegraph.app/chat/internal/service"
	"basegraph.app/chat/internal/upstream"
	"github.com/gin-gonic/gin"
)

type RouterConfig struct {
	DashboardURL   string
	IsProduction   bool
	SessionTTL     time.Duration
	MaxUploadBytes int64
}

func SetupRoutes(router *gin.Engine, services *service.Services, client upstream.Client, cfg RouterConfig) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	var requireAuth []gin.HandlerFunc
	if services.AuthEnabled() {
		requireAuth = append(requireAuth, middleware.RequireAuth(services.Auth()))

		authHandler := handler.NewAuthHandler(services.Auth(), cfg.DashboardURL, cfg.IsProduction, cfg.SessionTTL)
		AuthRouter(router.Group("/auth"), authHandler, requireAuth...)
	}

	chatHandler := handler.NewChatHandler(client, cfg.MaxUploadBytes)
	ChatRouter(router.Group("/api/chat", requireAuth...), chatHandler)
}
