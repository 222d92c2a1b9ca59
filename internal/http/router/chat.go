package router

import (
	"basegraph.app/chat/internal/http/handler"
	"github.com/gin-gonic/gin"
)

func ChatRouter(rg *gin.RouterGroup, h *handler.ChatHandler) {
	rg.POST("", h.Submit)
	rg.DELETE("", h.Clear)
	rg.GET("/history", h.History)
	rg.POST("/clear", h.Clear)
}
