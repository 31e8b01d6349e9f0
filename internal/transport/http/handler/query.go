package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"fortress-assistant/internal/ai"
	"fortress-assistant/internal/app"
	"fortress-assistant/internal/transport/http/response"
)

// QueryHandler serves RAG-augmented questions.
type QueryHandler struct {
	queryService *app.QueryService
}

func NewQueryHandler(queryService *app.QueryService) *QueryHandler {
	return &QueryHandler{queryService: queryService}
}

type queryRequest struct {
	Message string `json:"message" binding:"required"`
}

// Ask answers a question using retrieved document context.
func (h *QueryHandler) Ask(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	result, err := h.queryService.Ask(c.Request.Context(), req.Message)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrMessageEmpty):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, ai.ErrCompletionUnavailable):
			response.Error(c, http.StatusServiceUnavailable, response.CodeLLMUnavailable, err.Error())
		case errors.Is(err, app.ErrCompletionFailed):
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "query failed")
		}
		return
	}

	sources := result.Sources
	if sources == nil {
		sources = []string{}
	}
	response.OK(c, gin.H{
		"response": result.Answer,
		"sources":  sources,
	})
}
