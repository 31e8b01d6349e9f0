package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"fortress-assistant/internal/ai"
	"fortress-assistant/internal/app"
	"fortress-assistant/internal/config"
	"fortress-assistant/internal/storage"
	"fortress-assistant/internal/transport/http/response"
)

// StatusHandler reports system state: model server reachability, index
// shape and the current conversation. Read-only.
type StatusHandler struct {
	ragService  *app.RAGService
	chatService *app.ChatService
	store       *storage.Store
	client      *ai.Client
	llm         config.LLMConfig
	startedAt   time.Time
}

func NewStatusHandler(
	ragService *app.RAGService,
	chatService *app.ChatService,
	store *storage.Store,
	client *ai.Client,
	llm config.LLMConfig,
	startedAt time.Time,
) *StatusHandler {
	return &StatusHandler{
		ragService:  ragService,
		chatService: chatService,
		store:       store,
		client:      client,
		llm:         llm,
		startedAt:   startedAt,
	}
}

func (h *StatusHandler) Status(c *gin.Context) {
	response.OK(c, gin.H{
		"llm_reachable":      h.client.Ping(c.Request.Context(), h.llm.BaseURL),
		"model":              h.llm.Model,
		"embedding_model":    h.llm.EmbeddingModel,
		"index_loaded":       h.ragService.EntryCount() > 0,
		"index_dimension":    h.ragService.Dim(),
		"index_entries":      h.ragService.EntryCount(),
		"index_disk_bytes":   h.store.IndexDiskSize(),
		"document_count":     len(h.ragService.Sources()),
		"conversation_count": h.chatService.ExchangeCount(),
		"uptime_seconds":     int(time.Since(h.startedAt).Seconds()),
	})
}
