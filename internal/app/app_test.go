package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"newsmill/internal/config"
	"newsmill/internal/models"
	"newsmill/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupApp(t *testing.T) *App {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, models.AutoMigrate(db))

	a, err := Build(context.Background(), config.Default(), db)
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

func TestBuildWithoutExternalServices(t *testing.T) {
	a := setupApp(t)

	assert.False(t, a.LLM.Configured())
	assert.NotNil(t, a.Orchestrator)
	assert.Equal(t, 0, a.Hub.Clients())
	assert.False(t, a.Tokens.Enabled())

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	a.Router(nil).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBuildAddsConfiguredLoginRules(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Scrape.LoginRules = []config.LoginRule{{Name: "gazette", Domain: "gazette.example", Markers: []string{"gazette pass"}}}
	a, err := Build(context.Background(), cfg, db)
	require.NoError(t, err)
	t.Cleanup(a.Close)

	longText := strings.Repeat("The council approved the new transit budget on Tuesday. ", 20)
	detector := a.Scraper.Detector()
	assert.Equal(t, "login_wall", detector.Detect("<p>Gazette Pass</p>", longText, 200, "https://gazette.example/story"))
	assert.Equal(t, "login_wall", detector.Detect("<p>Subscribe to continue</p>", longText, 200, "https://other.example/story"))
	assert.Empty(t, detector.Detect("<p>Gazette Pass</p>", longText, 200, "https://other.example/story"))
}

func TestTasksReportCounts(t *testing.T) {
	a := setupApp(t)
	ctx := context.Background()

	name := "Motorsport"
	project, err := a.Admin.CreateProject(services.ProjectInput{Name: &name})
	require.NoError(t, err)

	raw := "The stewards handed out a grid penalty. The team will appeal. More news follows."
	require.NoError(t, a.DB.Create(&models.Article{
		ProjectID: &project.ID,
		SourceURL: "https://news.test/penalty",
		Title:     "Grid penalty",
		RawText:   &raw,
		ScrapedAt: time.Now().UTC(),
	}).Error)

	summary, err := a.ScrapeTask(nil, 10)(ctx)
	require.NoError(t, err)
	assert.Equal(t, "scraped=0", summary)

	summary, err = a.IngestTask(nil, 20, false)(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ingested_sources=0", summary)

	summary, err = a.ExtractTask(&project.ID, 20)(ctx)
	require.NoError(t, err)
	assert.Equal(t, "extracted=1", summary)

	// no API key configured, so nothing is judged and nothing is marked failed
	summary, err = a.JudgeTask(nil, 50)(ctx)
	require.NoError(t, err)
	assert.Equal(t, "judged=0", summary)

	summary, err = a.PipelineTask(nil, 10)(ctx)
	require.NoError(t, err)
	assert.Equal(t, "pipeline_runs=1", summary)

	summary, err = a.PipelineTask(&project.ID, 10)(ctx)
	require.NoError(t, err)
	assert.Equal(t, "pipeline_runs=1", summary)

	summary, err = a.CleanupTask(48, true)(ctx)
	require.NoError(t, err)
	assert.Equal(t, "source_items_deleted=0 articles_wiped=0", summary)

	runs, err := a.Orchestrator.ListRuns(ctx, &project.ID, 10)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestScheduledJobs(t *testing.T) {
	a := setupApp(t)

	jobs := a.ScheduledJobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, "pipeline", jobs[0].Name)
	assert.Equal(t, "@every 1h", jobs[0].Spec)
	assert.Equal(t, "cleanup", jobs[1].Name)
	assert.Equal(t, "@every 6h", jobs[1].Spec)
}

func TestSeedIsIdempotent(t *testing.T) {
	a := setupApp(t)

	summary, err := a.Seed()
	require.NoError(t, err)
	assert.Equal(t, "projects_created=1 sources_created=2", summary)

	summary, err = a.Seed()
	require.NoError(t, err)
	assert.Equal(t, "projects_created=0 sources_created=0", summary)

	var count int64
	require.NoError(t, a.DB.Model(&models.Source{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}
