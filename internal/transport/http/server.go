package http

import (
	"github.com/gin-gonic/gin"

	"fortress-assistant/internal/bootstrap"
	"fortress-assistant/internal/transport/http/handler"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler()
	router.GET("/healthz", healthHandler.Check)

	documentHandler := handler.NewDocumentHandler(app.RAGService, app.Config.RAG.MaxUploadMB)
	queryHandler := handler.NewQueryHandler(app.QueryService)
	chatHandler := handler.NewChatHandler(app.ChatService)
	statusHandler := handler.NewStatusHandler(
		app.RAGService,
		app.ChatService,
		app.Store,
		app.AIClient,
		app.Config.LLM,
		app.StartedAt,
	)

	v1 := router.Group("/api/v1")
	v1.POST("/documents", documentHandler.Upload)
	v1.GET("/documents", documentHandler.List)
	v1.DELETE("/documents/:filename", documentHandler.Delete)

	v1.POST("/query", queryHandler.Ask)

	v1.POST("/chat", chatHandler.Send)
	v1.GET("/conversation", chatHandler.History)
	v1.POST("/conversation/clear", chatHandler.Clear)

	v1.GET("/status", statusHandler.Status)

	return router
}
