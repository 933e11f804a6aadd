package handlers

import (
	"context"
	"net/http"

	"gxpcheck-backend/models"

	"github.com/gin-gonic/gin"
)

// DocumentStore is the slice of the analysis service backing the document
// endpoints
type DocumentStore interface {
	Stats(ctx context.Context) (models.VectorStoreStats, error)
	SearchDocuments(ctx context.Context, query string, topK int) ([]models.Chunk, error)
	DocumentChunks(ctx context.Context, documentID string) ([]models.Chunk, error)
	DeleteDocument(ctx context.Context, documentID string) (int64, error)
}

// DocumentHandler handles HTTP requests for stored-document queries
type DocumentHandler struct {
	store DocumentStore
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(store DocumentStore) *DocumentHandler {
	return &DocumentHandler{store: store}
}

// GetStats handles GET /api/documents/stats
func (h *DocumentHandler) GetStats(c *gin.Context) {
	stats, err := h.store.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "STATS_FAILED",
				"message": err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"stats":  stats,
	})
}

// SearchRequest is the body of POST /api/documents/search
type SearchRequest struct {
	Query    string `json:"query" binding:"required"`
	NResults int    `json:"n_results"`
}

// SearchDocuments handles POST /api/documents/search
func (h *DocumentHandler) SearchDocuments(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "MISSING_QUERY",
				"message": "Search query is required",
			},
		})
		return
	}
	if req.NResults <= 0 {
		req.NResults = 5
	}

	results, err := h.store.SearchDocuments(c.Request.Context(), req.Query, req.NResults)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "SEARCH_FAILED",
				"message": err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"results": results,
	})
}

// GetDocumentChunks handles GET /api/documents/:id/chunks
func (h *DocumentHandler) GetDocumentChunks(c *gin.Context) {
	documentID := c.Param("id")

	chunks, err := h.store.DocumentChunks(c.Request.Context(), documentID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "CHUNKS_FAILED",
				"message": err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":       "success",
		"document_id":  documentID,
		"chunks":       chunks,
		"total_chunks": len(chunks),
	})
}

// DeleteDocument handles DELETE /api/documents/:id
func (h *DocumentHandler) DeleteDocument(c *gin.Context) {
	documentID := c.Param("id")

	deleted, err := h.store.DeleteDocument(c.Request.Context(), documentID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DELETE_FAILED",
				"message": err.Error(),
			},
		})
		return
	}
	if deleted == 0 {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "Document not found",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":         "success",
		"chunks_deleted": deleted,
	})
}
