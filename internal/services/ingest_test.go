package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"newsmill/internal/models"
	"newsmill/internal/scraper"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIngestCollapsesTrackingVariants(t *testing.T) {
	db := setupTestDB(t)
	project := createProject(t, db)
	a := createSource(t, db, project.ID, models.SourceTypeRSS, "https://a.example/rss")
	b := createSource(t, db, project.ID, models.SourceTypeRSS, "https://b.example/rss")

	now := time.Now().UTC()
	require.NoError(t, db.Create(&models.SourceItem{SourceID: a.ID, URL: "https://x.com/a?utm_source=y", Content: "body", ScrapedAt: now}).Error)
	require.NoError(t, db.Create(&models.SourceItem{SourceID: b.ID, URL: "https://x.com/a", Content: "body", ScrapedAt: now.Add(-time.Minute)}).Error)

	service := NewIngestService(db, nil, 20000)
	created, err := service.Ingest(context.Background(), IngestOptions{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	again, err := service.Ingest(context.Background(), IngestOptions{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 0, again)

	var articles []models.Article
	require.NoError(t, db.Find(&articles).Error)
	require.Len(t, articles, 1)
	assert.Equal(t, "https://x.com/a", articles[0].SourceURL)
}

func TestIngestSkipsItemsWithoutText(t *testing.T) {
	db := setupTestDB(t)
	project := createProject(t, db)
	source := createSource(t, db, project.ID, models.SourceTypeRSS, "https://a.example/rss")
	require.NoError(t, db.Create(&models.SourceItem{SourceID: source.ID, URL: "https://x.com/empty", ScrapedAt: time.Now().UTC()}).Error)
	require.NoError(t, db.Create(&models.SourceItem{SourceID: source.ID, URL: "https://x.com/raw", Raw: "raw only", ScrapedAt: time.Now().UTC()}).Error)

	created, err := NewIngestService(db, nil, 20000).Ingest(context.Background(), IngestOptions{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	var article models.Article
	require.NoError(t, db.First(&article).Error)
	assert.Equal(t, "raw only", *article.RawText)
}

func TestIngestFetchFull(t *testing.T) {
	db := setupTestDB(t)
	project := createProject(t, db)
	source := createSource(t, db, project.ID, models.SourceTypePage, "https://a.example/")
	now := time.Now().UTC()
	for _, url := range []string{"https://x.com/full", "https://x.com/gated", "https://x.com/broken"} {
		require.NoError(t, db.Create(&models.SourceItem{SourceID: source.ID, URL: url, Content: "teaser " + url, ScrapedAt: now}).Error)
	}

	fetcher := new(MockFetcher)
	fetcher.On("FetchPage", "https://x.com/full").Return(&scraper.PageFetch{StatusCode: 200, Text: "the whole story"}, nil)
	fetcher.On("FetchPage", "https://x.com/gated").Return(&scraper.PageFetch{StatusCode: 200, Text: "sign in", LoginReason: "login_wall"}, nil)
	fetcher.On("FetchPage", "https://x.com/broken").Return(nil, errors.New("connection refused"))

	service := NewIngestService(db, fetcher, 10)
	created, err := service.Ingest(context.Background(), IngestOptions{Limit: 10, FetchFull: true})
	require.NoError(t, err)
	assert.Equal(t, 3, created)

	texts := map[string]string{}
	var articles []models.Article
	require.NoError(t, db.Find(&articles).Error)
	for _, a := range articles {
		texts[a.SourceURL] = *a.RawText
	}
	assert.Equal(t, "the whole ", texts["https://x.com/full"])
	assert.Equal(t, "teaser htt", texts["https://x.com/gated"])
	assert.Equal(t, "teaser htt", texts["https://x.com/broken"])

	var stored models.Source
	require.NoError(t, db.First(&stored, "id = ?", source.ID).Error)
	require.NotNil(t, stored.Config.Detected)
	assert.Equal(t, "login_wall", stored.Config.Detected.Reason)
	fetcher.AssertExpectations(t)
}
