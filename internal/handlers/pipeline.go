package handlers

import (
	"errors"
	"net/http"

	"newsmill/internal/events"
	"newsmill/internal/pipeline"
	"newsmill/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PipelineHandler triggers scrapes, access checks and pipeline runs
type PipelineHandler struct {
	scrape *services.ScrapeService
	access *services.AccessService
	orch   *pipeline.Orchestrator
	hub    *events.Hub
}

// NewPipelineHandler creates a new pipeline handler
func NewPipelineHandler(scrape *services.ScrapeService, access *services.AccessService, orch *pipeline.Orchestrator, hub *events.Hub) *PipelineHandler {
	return &PipelineHandler{scrape: scrape, access: access, orch: orch, hub: hub}
}

// ScrapeSource handles POST /api/sources/:id/scrape
func (h *PipelineHandler) ScrapeSource(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	maxItems, ok := boundedQuery(c, "max_items", 10, 1, 50)
	if !ok {
		return
	}
	outcome, err := h.scrape.ScrapeSourceByID(c.Request.Context(), id, maxItems)
	if err != nil {
		respondError(c, err, "source")
		return
	}
	c.JSON(http.StatusOK, outcome)
}

// ScrapeProject handles POST /api/projects/:id/scrape. Every enabled
// source is scraped whether or not it is due.
func (h *PipelineHandler) ScrapeProject(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	maxItems, ok := boundedQuery(c, "max_items", 10, 1, 50)
	if !ok {
		return
	}
	outcomes, err := h.scrape.ScrapeProject(c.Request.Context(), id, maxItems, true)
	if err != nil {
		respondError(c, err, "project")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"project_id": id,
		"scraped":    services.TotalScraped(outcomes),
		"results":    outcomes,
	})
}

// CheckSourceAccess handles POST /api/sources/:id/check-access
func (h *PipelineHandler) CheckSourceAccess(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	sample, ok := boundedQuery(c, "sample", 3, 1, 10)
	if !ok {
		return
	}
	report, err := h.access.CheckSourceByID(c.Request.Context(), id, sample)
	if err != nil {
		respondError(c, err, "source")
		return
	}
	c.JSON(http.StatusOK, report)
}

// CheckProjectAccess handles POST /api/projects/:id/check-access
func (h *PipelineHandler) CheckProjectAccess(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	sample, ok := boundedQuery(c, "sample", 3, 1, 10)
	if !ok {
		return
	}
	reports, err := h.access.CheckProject(c.Request.Context(), id, sample)
	if err != nil {
		respondError(c, err, "project")
		return
	}
	c.JSON(http.StatusOK, gin.H{"project_id": id, "results": reports})
}

// RunProjectPipeline handles POST /api/projects/:id/pipeline. A run that
// fails inside a stage is still reported with status "error".
func (h *PipelineHandler) RunProjectPipeline(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	maxItems, ok := boundedQuery(c, "max_items", 10, 1, 50)
	if !ok {
		return
	}
	run, err := h.orch.RunProject(c.Request.Context(), id, maxItems)
	if run == nil {
		respondError(c, err, "project")
		return
	}
	c.JSON(http.StatusOK, run)
}

// RunAllPipelines handles POST /api/pipeline/run
func (h *PipelineHandler) RunAllPipelines(c *gin.Context) {
	maxItems, ok := boundedQuery(c, "max_items", 10, 1, 50)
	if !ok {
		return
	}
	runs, failures, err := h.orch.RunAll(c.Request.Context(), maxItems)
	if err != nil {
		respondError(c, err, "pipeline run")
		return
	}

	busy := []uuid.UUID{}
	errs := map[string]string{}
	for projectID, ferr := range failures {
		if errors.Is(ferr, pipeline.ErrPipelineBusy) {
			busy = append(busy, projectID)
			continue
		}
		errs[projectID.String()] = ferr.Error()
	}
	c.JSON(http.StatusOK, gin.H{
		"pipeline_runs": len(runs),
		"runs":          runs,
		"busy":          busy,
		"errors":        errs,
	})
}

// ListRuns handles GET /api/pipeline/runs
func (h *PipelineHandler) ListRuns(c *gin.Context) {
	projectID, ok := optionalProjectID(c)
	if !ok {
		return
	}
	limit, ok := boundedQuery(c, "limit", 50, 1, 200)
	if !ok {
		return
	}
	runs, err := h.orch.ListRuns(c.Request.Context(), projectID, limit)
	if err != nil {
		respondError(c, err, "pipeline runs")
		return
	}
	c.JSON(http.StatusOK, runs)
}

// Events handles GET /api/pipeline/events as a websocket stream
func (h *PipelineHandler) Events(c *gin.Context) {
	h.hub.ServeWS(c.Writer, c.Request)
}
