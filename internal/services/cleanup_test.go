package services

import (
	"context"
	"testing"
	"time"

	"newsmill/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanup(t *testing.T) {
	db := setupTestDB(t)
	project := createProject(t, db)
	source := createSource(t, db, project.ID, models.SourceTypeRSS, "https://a.example/rss")
	now := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	old := now.Add(-72 * time.Hour)

	require.NoError(t, db.Create(&models.SourceItem{SourceID: source.ID, URL: "https://x.com/old", ScrapedAt: old}).Error)
	require.NoError(t, db.Create(&models.SourceItem{SourceID: source.ID, URL: "https://x.com/new", ScrapedAt: now}).Error)

	retire := func(a *models.Article) {
		require.NoError(t, db.Model(a).Update("unusable", true).Error)
	}

	wiped := createArticle(t, db, project.ID, withRaw("old body"), scrapedAt(old))
	retire(wiped)
	posted := createArticle(t, db, project.ID, withRaw("posted body"), scrapedAt(old))
	retire(posted)
	used := createArticle(t, db, project.ID, withRaw("used body"), scrapedAt(old))
	retire(used)
	recent := createArticle(t, db, project.ID, withRaw("recent body"), scrapedAt(now))
	retire(recent)
	usable := createArticle(t, db, project.ID, withRaw("usable body"), scrapedAt(old))

	require.NoError(t, db.Create(&models.Post{ArticleID: &posted.ID, ContentType: "video"}).Error)
	require.NoError(t, db.Create(&models.ArticleUsage{ArticleID: used.ID, UsageType: models.UsageAudioRoundup}).Error)

	service := NewCleanupService(db)
	service.now = fixedClock(now)
	summary, err := service.Run(context.Background(), 48, true)
	require.NoError(t, err)

	assert.Equal(t, int64(1), summary.SourceItemsDeleted)
	assert.Equal(t, 1, summary.ArticlesWiped)

	var remaining int64
	db.Model(&models.SourceItem{}).Count(&remaining)
	assert.Equal(t, int64(1), remaining)

	assert.Nil(t, reload(t, db, wiped.ID).RawText)
	assert.NotNil(t, reload(t, db, posted.ID).RawText)
	assert.NotNil(t, reload(t, db, used.ID).RawText)
	assert.NotNil(t, reload(t, db, recent.ID).RawText)
	assert.NotNil(t, reload(t, db, usable.ID).RawText)
}

func TestCleanupKeepUnusable(t *testing.T) {
	db := setupTestDB(t)
	project := createProject(t, db)
	now := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)

	article := createArticle(t, db, project.ID, withRaw("body"), scrapedAt(now.Add(-100*time.Hour)))
	require.NoError(t, db.Model(article).Update("unusable", true).Error)

	service := NewCleanupService(db)
	service.now = fixedClock(now)
	summary, err := service.Run(context.Background(), 48, false)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.ArticlesWiped)
	assert.NotNil(t, reload(t, db, article.ID).RawText)
}
