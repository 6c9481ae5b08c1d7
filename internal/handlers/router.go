package handlers

import (
	"strconv"
	"time"

	"newsmill/internal/auth"
	"newsmill/internal/metrics"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router groups the handlers mounted by NewRouter
type Router struct {
	Admin    *AdminHandler
	Pipeline *PipelineHandler
	Feed     *FeedHandler
	Preview  *PreviewHandler
	Tokens   *auth.TokenManager
}

// metricsMiddleware records request counts and latency per route
func metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// NewRouter builds the gin engine with every API route
func NewRouter(r Router) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Logger(), gin.Recovery(), metricsMiddleware())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}
	engine.Use(cors.New(corsConfig))

	engine.GET("/health", r.Feed.HealthCheck)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	engine.POST("/api/auth/token", r.Admin.AdminAuth(), r.Admin.IssueToken)

	api := engine.Group("/api", r.Tokens.Middleware())
	{
		api.GET("/worker/status", r.Feed.WorkerStatus)

		projects := api.Group("/projects")
		{
			projects.GET("", r.Admin.ListProjects)
			projects.POST("", r.Admin.CreateProject)
			projects.PATCH("/:id", r.Admin.UpdateProject)
			projects.DELETE("/:id", r.Admin.DeleteProject)
			projects.GET("/:id/sources", r.Admin.ListSources)
			projects.POST("/:id/sources", r.Admin.CreateSource)
			projects.POST("/:id/scrape", r.Pipeline.ScrapeProject)
			projects.POST("/:id/check-access", r.Pipeline.CheckProjectAccess)
			projects.POST("/:id/pipeline", r.Pipeline.RunProjectPipeline)
			projects.GET("/:id/articles/ready", r.Feed.ReadyForGeneration)
			projects.GET("/:id/articles/audio-roundup", r.Feed.AudioRoundup)
		}

		sources := api.Group("/sources")
		{
			sources.PATCH("/:id", r.Admin.UpdateSource)
			sources.DELETE("/:id", r.Admin.DeleteSource)
			sources.GET("/:id/items", r.Admin.ListSourceItems)
			sources.POST("/:id/scrape", r.Pipeline.ScrapeSource)
			sources.POST("/:id/check-access", r.Pipeline.CheckSourceAccess)
		}

		pipelineGroup := api.Group("/pipeline")
		{
			pipelineGroup.POST("/run", r.Pipeline.RunAllPipelines)
			pipelineGroup.GET("/runs", r.Pipeline.ListRuns)
			pipelineGroup.GET("/events", r.Pipeline.Events)
		}

		articles := api.Group("/articles")
		{
			articles.POST("/usage", r.Feed.RecordUsage)
			articles.GET("/:id/preview", r.Preview.ServeArticlePreview)
		}
	}

	return engine
}
