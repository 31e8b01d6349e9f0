package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"fortress-assistant/internal/ai"
	"fortress-assistant/internal/app"
	"fortress-assistant/internal/extract"
	"fortress-assistant/internal/transport/http/response"
)

// DocumentHandler serves upload, listing and removal of indexed documents.
type DocumentHandler struct {
	ragService *app.RAGService
	maxUpload  int64
}

func NewDocumentHandler(ragService *app.RAGService, maxUploadMB int) *DocumentHandler {
	if maxUploadMB <= 0 {
		maxUploadMB = 10
	}
	return &DocumentHandler{
		ragService: ragService,
		maxUpload:  int64(maxUploadMB) << 20,
	}
}

type uploadResponse struct {
	Status     string `json:"status"`
	Filename   string `json:"filename"`
	Message    string `json:"message"`
	ChunkCount int    `json:"chunk_count"`
}

// Upload accepts a multipart form with "file" and ingests it.
func (h *DocumentHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing file")
		return
	}
	if file.Size > h.maxUpload {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "file too large")
		return
	}

	f, err := file.Open()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "failed to read file")
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "failed to read file")
		return
	}

	result, err := h.ragService.Ingest(c.Request.Context(), file.Filename, data)
	if err != nil {
		switch {
		case errors.Is(err, extract.ErrUnsupportedFormat):
			response.Error(c, http.StatusUnsupportedMediaType, response.CodeUnsupportedFormat, err.Error())
		case errors.Is(err, extract.ErrExtraction):
			response.Error(c, http.StatusUnprocessableEntity, response.CodeExtractionFailed, err.Error())
		case errors.Is(err, ai.ErrEmbeddingUnavailable):
			response.Error(c, http.StatusServiceUnavailable, response.CodeRAGUnavailable,
				"document search is unavailable: embedding model not reachable")
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "ingest failed: "+err.Error())
		}
		return
	}

	response.OK(c, uploadResponse{
		Status:     "success",
		Filename:   result.Filename,
		Message:    result.Message,
		ChunkCount: result.ChunkCount,
	})
}

// List returns the distinct indexed source filenames.
func (h *DocumentHandler) List(c *gin.Context) {
	sources := h.ragService.Sources()
	if sources == nil {
		sources = []string{}
	}
	response.OK(c, gin.H{"documents": sources})
}

// Delete removes one document from the index and the evidence store.
func (h *DocumentHandler) Delete(c *gin.Context) {
	filename := c.Param("filename")
	if filename == "" {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing filename")
		return
	}
	if err := h.ragService.RemoveDocument(c.Request.Context(), filename); err != nil {
		switch {
		case errors.Is(err, app.ErrDocumentNotFound):
			response.Error(c, http.StatusNotFound, response.CodeDocumentNotFound, err.Error())
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "delete failed: "+err.Error())
		}
		return
	}
	response.OK(c, gin.H{"deleted": filename})
}
