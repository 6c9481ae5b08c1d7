package handlers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"newsmill/internal/auth"
	"newsmill/internal/services"

	"github.com/gin-gonic/gin"
)

// AdminHandler handles project and source management
type AdminHandler struct {
	admin         *services.AdminService
	tokens        *auth.TokenManager
	adminPassword string
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(admin *services.AdminService, tokens *auth.TokenManager, adminPassword string) *AdminHandler {
	return &AdminHandler{admin: admin, tokens: tokens, adminPassword: adminPassword}
}

// AdminAuth returns basic auth middleware for the admin user
func (h *AdminHandler) AdminAuth() gin.HandlerFunc {
	return gin.BasicAuth(gin.Accounts{
		"admin": h.adminPassword,
	})
}

// IssueToken handles POST /api/auth/token
func (h *AdminHandler) IssueToken(c *gin.Context) {
	if !h.tokens.Enabled() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "API tokens are disabled"})
		return
	}

	var req struct {
		Subject string `json:"subject"`
		TTL     string `json:"ttl"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.Subject == "" {
		req.Subject = c.GetString(gin.AuthUserKey)
	}
	ttl := 30 * 24 * time.Hour
	if req.TTL != "" {
		parsed, err := time.ParseDuration(req.TTL)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "ttl must be a positive duration"})
			return
		}
		ttl = parsed
	}

	token, err := h.tokens.Issue(req.Subject, ttl)
	if err != nil {
		respondError(c, err, "token")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"subject":    req.Subject,
		"expires_at": time.Now().UTC().Add(ttl),
	})
}

// ListProjects handles GET /api/projects
func (h *AdminHandler) ListProjects(c *gin.Context) {
	projects, err := h.admin.ListProjects()
	if err != nil {
		respondError(c, err, "projects")
		return
	}
	c.JSON(http.StatusOK, projects)
}

// CreateProject handles POST /api/projects
func (h *AdminHandler) CreateProject(c *gin.Context) {
	var in services.ProjectInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	project, err := h.admin.CreateProject(in)
	if err != nil {
		respondError(c, err, "project")
		return
	}
	c.JSON(http.StatusCreated, project)
}

// UpdateProject handles PATCH /api/projects/:id
func (h *AdminHandler) UpdateProject(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var in services.ProjectInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	project, err := h.admin.UpdateProject(id, in)
	if err != nil {
		respondError(c, err, "project")
		return
	}
	c.JSON(http.StatusOK, project)
}

// DeleteProject handles DELETE /api/projects/:id
func (h *AdminHandler) DeleteProject(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.admin.DeleteProject(id); err != nil {
		respondError(c, err, "project")
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// ListSources handles GET /api/projects/:id/sources
func (h *AdminHandler) ListSources(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	sources, err := h.admin.ListSources(id)
	if err != nil {
		respondError(c, err, "project")
		return
	}
	c.JSON(http.StatusOK, sources)
}

// CreateSource handles POST /api/projects/:id/sources
func (h *AdminHandler) CreateSource(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var in services.SourceInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	source, err := h.admin.CreateSource(id, in)
	if err != nil {
		respondError(c, err, "project")
		return
	}
	c.JSON(http.StatusCreated, source)
}

// UpdateSource handles PATCH /api/sources/:id
func (h *AdminHandler) UpdateSource(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var in services.SourceInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	source, err := h.admin.UpdateSource(id, in)
	if err != nil {
		respondError(c, err, "source")
		return
	}
	c.JSON(http.StatusOK, source)
}

// DeleteSource handles DELETE /api/sources/:id
func (h *AdminHandler) DeleteSource(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.admin.DeleteSource(id); err != nil {
		respondError(c, err, "source")
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// ListSourceItems handles GET /api/sources/:id/items
func (h *AdminHandler) ListSourceItems(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	limit, ok := boundedQuery(c, "limit", 20, 1, 50)
	if !ok {
		return
	}
	items, err := h.admin.ListSourceItems(id, limit)
	if err != nil {
		respondError(c, err, "source")
		return
	}
	c.JSON(http.StatusOK, items)
}
