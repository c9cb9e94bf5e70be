package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/timmy/gallery/internal/domain"
	"github.com/timmy/gallery/internal/logger"
	"github.com/timmy/gallery/internal/service"
)

// AIHandler handles enrichment and semantic search endpoints.
type AIHandler struct {
	enrichment *service.EnrichmentService
	search     *service.SearchService
}

// NewAIHandler creates a new AI handler.
// Parameters:
//   - enrichment: enrichment orchestrator.
//   - search: retrieval service.
//
// Returns:
//   - *AIHandler: initialized handler.
func NewAIHandler(enrichment *service.EnrichmentService, search *service.SearchService) *AIHandler {
	return &AIHandler{enrichment: enrichment, search: search}
}

// AnalyzeImageRequest asks for a caption of an arbitrary image.
type AnalyzeImageRequest struct {
	ImageURL string `json:"image_url"`
}

// BatchAnalysisRequest lists photos to enrich.
type BatchAnalysisRequest struct {
	PhotoIDs []string `json:"photo_ids"`
}

// SemanticSearchRequest is a natural-language photo query.
type SemanticSearchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

// AnalyzeImage handles POST /api/v1/ai/analyze/image.
func (h *AIHandler) AnalyzeImage(c *gin.Context) {
	var req AnalyzeImageRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.ImageURL) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image_url is required"})
		return
	}

	result := h.enrichment.AnalyzeImage(c.Request.Context(), req.ImageURL)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"image_url":   req.ImageURL,
			"description": result.Description,
			"hashtags":    result.Hashtags,
			"status":      domain.EnrichmentCompleted,
		},
	})
}

// AnalyzePhoto handles POST /api/v1/ai/analyze/photo/:id.
func (h *AIHandler) AnalyzePhoto(c *gin.Context) {
	photoID := c.Param("id")
	ctx := logger.SetPhotoID(c.Request.Context(), photoID)

	err := h.enrichment.EnrichOne(ctx, photoID)
	switch {
	case err == nil:
	case errors.Is(err, service.ErrPhotoNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Photo not found"})
		return
	case errors.Is(err, service.ErrNoImageURL):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Photo has no image URL"})
		return
	case errors.Is(err, service.ErrQueueFull), errors.Is(err, service.ErrDispatcherClosed):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	default:
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start analysis: " + err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success":  true,
		"message":  "Analysis started",
		"photo_id": photoID,
		"status":   domain.EnrichmentProcessing,
	})
}

// AnalyzeBatch handles POST /api/v1/ai/analyze/batch.
func (h *AIHandler) AnalyzeBatch(c *gin.Context) {
	var req BatchAnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.PhotoIDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "photo_ids list is required"})
		return
	}

	result, err := h.enrichment.EnrichBatch(c.Request.Context(), req.PhotoIDs)
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Batch analysis failed: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": fmt.Sprintf("Queued %d photos for analysis", len(result.Queued)),
		"queued":  result.Queued,
		"skipped": result.Skipped,
	})
}

// AnalysisStatus handles GET /api/v1/ai/analyze/status/:id.
func (h *AIHandler) AnalysisStatus(c *gin.Context) {
	view, err := h.enrichment.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrPhotoNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Photo not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, view)
}

// SemanticSearch handles POST /api/v1/ai/search/semantic.
func (h *AIHandler) SemanticSearch(c *gin.Context) {
	var req SemanticSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	results, err := h.search.SearchPhotos(c.Request.Context(), req.Query, req.Limit)
	if err != nil {
		if errors.Is(err, service.ErrEmptyQuery) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "query is required"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Search failed: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"query":   req.Query,
		"results": results,
		"total":   len(results),
	})
}

// Stats handles GET /api/v1/ai/stats.
func (h *AIHandler) Stats(c *gin.Context) {
	stats, err := h.enrichment.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get stats: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}
