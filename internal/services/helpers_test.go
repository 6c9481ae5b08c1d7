package services

import (
	"context"
	"testing"
	"time"

	"newsmill/internal/llm"
	"newsmill/internal/models"
	"newsmill/internal/scraper"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	// every pooled connection would otherwise get its own empty database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return db
}

func fixedClock(at time.Time) Clock {
	return func() time.Time { return at }
}

func createProject(t *testing.T, db *gorm.DB) *models.Project {
	project := &models.Project{
		Name:                   "Paddock",
		UnusableScoreThreshold: models.DefaultUnusableScoreThreshold,
		UnusableAgeHours:       models.DefaultUnusableAgeHours,
	}
	require.NoError(t, db.Create(project).Error)
	return project
}

func createSource(t *testing.T, db *gorm.DB, projectID uuid.UUID, sourceType models.SourceType, url string) *models.Source {
	source := &models.Source{
		ProjectID: projectID,
		Name:      "source " + url,
		Type:      sourceType,
		URL:       url,
		Enabled:   true,
	}
	require.NoError(t, db.Create(source).Error)
	return source
}

type articleOpt func(*models.Article)

func withScore(score int) articleOpt {
	return func(a *models.Article) {
		a.JudgeScore = &score
		a.Scored = true
		a.Processed = true
	}
}

func withHash(hash string) articleOpt {
	return func(a *models.Article) { a.ContentHash = &hash }
}

func scrapedAt(at time.Time) articleOpt {
	return func(a *models.Article) { a.ScrapedAt = at }
}

func withRaw(text string) articleOpt {
	return func(a *models.Article) { a.RawText = &text }
}

func createArticle(t *testing.T, db *gorm.DB, projectID uuid.UUID, opts ...articleOpt) *models.Article {
	article := &models.Article{
		ProjectID: &projectID,
		SourceURL: "https://news.example/" + uuid.NewString(),
		Title:     "story",
		ScrapedAt: time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(article)
	}
	require.NoError(t, db.Create(article).Error)
	return article
}

func reload(t *testing.T, db *gorm.DB, id uuid.UUID) *models.Article {
	var article models.Article
	require.NoError(t, db.First(&article, "id = ?", id).Error)
	return &article
}

// MockScraper is a mock implementation of SourceScraper
type MockScraper struct {
	mock.Mock
}

func (m *MockScraper) Scrape(ctx context.Context, source *models.Source, maxItems int) scraper.Result {
	args := m.Called(source.URL, maxItems)
	return args.Get(0).(scraper.Result)
}

// MockFetcher is a mock implementation of PageFetcher
type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) FetchPage(ctx context.Context, auth models.SourceConfig, pageURL string) (*scraper.PageFetch, error) {
	args := m.Called(pageURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*scraper.PageFetch), args.Error(1)
}

// MockSummarizer is a mock implementation of llm.Summarizer
type MockSummarizer struct {
	mock.Mock
}

func (m *MockSummarizer) Summarize(ctx context.Context, raw string) (llm.Summary, error) {
	args := m.Called(raw)
	return args.Get(0).(llm.Summary), args.Error(1)
}

// MockJudge is a mock implementation of llm.Judge
type MockJudge struct {
	mock.Mock
}

func (m *MockJudge) Judge(ctx context.Context, summary string) (llm.Verdict, error) {
	args := m.Called(summary)
	return args.Get(0).(llm.Verdict), args.Error(1)
}
