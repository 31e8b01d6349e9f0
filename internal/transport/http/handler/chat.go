package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"fortress-assistant/internal/ai"
	"fortress-assistant/internal/app"
	"fortress-assistant/internal/transport/http/response"
)

// ChatHandler serves plain chat without document retrieval, plus the
// conversation history endpoints.
type ChatHandler struct {
	chatService *app.ChatService
}

func NewChatHandler(chatService *app.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

type chatRequest struct {
	Message string `json:"message" binding:"required"`
}

func (h *ChatHandler) Send(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	reply, err := h.chatService.Send(c.Request.Context(), req.Message)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrMessageEmpty):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, ai.ErrCompletionUnavailable):
			response.Error(c, http.StatusServiceUnavailable, response.CodeLLMUnavailable, err.Error())
		case errors.Is(err, app.ErrCompletionFailed):
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "chat failed")
		}
		return
	}

	response.OK(c, gin.H{"response": reply.Content, "timestamp": reply.Timestamp})
}

func (h *ChatHandler) History(c *gin.Context) {
	response.OK(c, gin.H{"messages": h.chatService.History()})
}

func (h *ChatHandler) Clear(c *gin.Context) {
	h.chatService.Clear()
	response.OK(c, gin.H{"status": "cleared"})
}
