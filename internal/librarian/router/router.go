// Package router provides librarian service routing.
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/librarian/internal/librarian/handler"
	"github.com/kart-io/librarian/pkg/server"
)

// Register registers the librarian service routes.
func Register(srv *server.Server, assistantHandler *handler.AssistantHandler) {
	logger.Info("Registering routes...")

	engine := srv.Engine()

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := engine.Group("/v1")
	{
		assistant := v1.Group("/assistant")
		{
			assistant.POST("/ask", assistantHandler.Ask)
			assistant.GET("/stats", assistantHandler.Stats)
		}
	}

	logger.Info("HTTP routes registered")
}
