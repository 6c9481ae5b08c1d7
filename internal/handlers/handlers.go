// Package handlers exposes the pipeline over a gin JSON API.
package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"newsmill/internal/feeds"
	"newsmill/internal/pipeline"
	"newsmill/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// parseID reads a uuid path parameter, answering 400 when it is malformed
func parseID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid %s format", name)})
		return uuid.Nil, false
	}
	return id, true
}

// optionalProjectID reads the project_id query parameter when present
func optionalProjectID(c *gin.Context) (*uuid.UUID, bool) {
	raw := c.Query("project_id")
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid project_id format"})
		return nil, false
	}
	return &id, true
}

// boundedQuery reads an integer query parameter that must fall in min..max
func boundedQuery(c *gin.Context, key string, def, min, max int) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return def, true
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < min || value > max {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("%s must be an integer within %d..%d", key, min, max)})
		return 0, false
	}
	return value, true
}

// respondError maps service errors onto status codes
func respondError(c *gin.Context, err error, what string) {
	switch {
	case errors.Is(err, services.ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": what + " not found"})
	case errors.Is(err, services.ErrInvalidInput), errors.Is(err, feeds.ErrInvalidUsage):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, pipeline.ErrPipelineBusy):
		c.JSON(http.StatusConflict, gin.H{"error": "pipeline_busy"})
	default:
		log.Printf("❌ Request %s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to process " + what,
			"details": err.Error(),
		})
	}
}
