package handlers

import (
	"net/http"

	"newsmill/internal/config"
	"newsmill/internal/feeds"
	"newsmill/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// StatusReporter reports background worker state
type StatusReporter interface {
	GetStatus() map[string]interface{}
}

// FeedHandler serves the generation readiness gate
type FeedHandler struct {
	feedService   *feeds.FeedService
	workerService StatusReporter
	videoMinScore int
	roundup       config.Roundup
}

// NewFeedHandler creates a new feed handler
func NewFeedHandler(feedService *feeds.FeedService, workerService StatusReporter, videoMinScore int, roundup config.Roundup) *FeedHandler {
	if roundup.Size <= 0 {
		roundup.Size = 5
	}
	if roundup.Hours <= 0 {
		roundup.Hours = 24
	}
	return &FeedHandler{
		feedService:   feedService,
		workerService: workerService,
		videoMinScore: videoMinScore,
		roundup:       roundup,
	}
}

// ReadyForGeneration handles GET /api/projects/:id/articles/ready
func (h *FeedHandler) ReadyForGeneration(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	limit, ok := boundedQuery(c, "limit", 10, 1, 100)
	if !ok {
		return
	}

	query := feeds.GenerationQuery{
		ProjectID:        &id,
		Limit:            limit,
		ContentType:      c.DefaultQuery("content_type", models.FormatVideo),
		RequireProcessed: c.DefaultQuery("processed", "true") != "false",
	}
	if query.ContentType == models.FormatVideo {
		query.MinScore = h.videoMinScore
	}

	feedResponse, err := h.feedService.ReadyForGeneration(c.Request.Context(), query)
	if err != nil {
		respondError(c, err, "generation candidates")
		return
	}
	c.JSON(http.StatusOK, feedResponse)
}

// AudioRoundup handles GET /api/projects/:id/articles/audio-roundup
func (h *FeedHandler) AudioRoundup(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	hours, ok := boundedQuery(c, "hours", h.roundup.Hours, 1, 168)
	if !ok {
		return
	}
	limit, ok := boundedQuery(c, "limit", h.roundup.Size, 1, 50)
	if !ok {
		return
	}

	feedResponse, err := h.feedService.ReadyForAudioRoundup(c.Request.Context(), feeds.RoundupQuery{
		ProjectID: &id,
		Hours:     hours,
		Limit:     limit,
	})
	if err != nil {
		respondError(c, err, "roundup candidates")
		return
	}
	c.JSON(http.StatusOK, feedResponse)
}

type usageRequest struct {
	ArticleIDs []uuid.UUID `json:"article_ids"`
	UsageType  string      `json:"usage_type"`
	PostID     *uuid.UUID  `json:"post_id"`
}

// RecordUsage handles POST /api/articles/usage
func (h *FeedHandler) RecordUsage(c *gin.Context) {
	var req usageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	recorded, err := h.feedService.RecordUsage(c.Request.Context(), req.ArticleIDs, req.UsageType, req.PostID)
	if err != nil {
		respondError(c, err, "usage")
		return
	}
	c.JSON(http.StatusOK, gin.H{"recorded": recorded})
}

// HealthCheck handles GET /health
func (h *FeedHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "newsmill",
	})
}

// WorkerStatus handles GET /api/worker/status
func (h *FeedHandler) WorkerStatus(c *gin.Context) {
	if h.workerService == nil {
		c.JSON(http.StatusOK, gin.H{"worker_status": gin.H{"running": false}})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"worker_status": h.workerService.GetStatus(),
	})
}
