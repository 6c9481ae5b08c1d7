package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"newsmill/internal/config"
	"newsmill/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const threeEntryFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Paddock News</title>
  <link>https://paddock.example</link>
  <description>Racing</description>
  <item>
    <title>Race recap</title>
    <link>https://paddock.example/race-recap</link>
    <description>&lt;p&gt;The race was won on the final lap.&lt;/p&gt;</description>
    <pubDate>Mon, 06 Jan 2025 10:00:00 GMT</pubDate>
  </item>
  <item>
    <title>No link here</title>
    <description>Orphan entry</description>
  </item>
  <item>
    <title>Qualifying report</title>
    <link>https://paddock.example/qualifying</link>
    <description>Pole by a tenth.</description>
  </item>
</channel>
</rss>`

func testScraper() *Scraper {
	cfg := config.Default().Scrape
	cfg.RequestTimeout = 5 * time.Second
	return New(cfg)
}

func TestShouldScrape(t *testing.T) {
	now := time.Date(2025, 1, 6, 12, 0, 0, 0, time.UTC)
	at := func(d time.Duration) *time.Time {
		ts := now.Add(-d)
		return &ts
	}

	tests := []struct {
		name     string
		last     *time.Time
		interval int
		expected bool
	}{
		{"never scraped", nil, 6, true},
		{"exactly at interval", at(6 * time.Hour), 6, true},
		{"one second short", at(6*time.Hour - time.Second), 6, false},
		{"well past interval", at(48 * time.Hour), 6, true},
		{"just scraped", at(time.Minute), 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := &models.Source{LastScrapedAt: tt.last, ScrapeIntervalHours: tt.interval}
			assert.Equal(t, tt.expected, ShouldScrape(source, now))
		})
	}
}

func TestScrapeRSSSkipsEntriesWithoutLink(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, threeEntryFeed)
	}))
	defer server.Close()

	source := &models.Source{Type: models.SourceTypeRSS, URL: server.URL}
	result := testScraper().Scrape(context.Background(), source, 10)

	require.NoError(t, result.Err)
	assert.Equal(t, StatusOK, result.Status)
	require.Len(t, result.Items, 2)

	first := result.Items[0]
	assert.Equal(t, "Race recap", first.Title)
	assert.Equal(t, "https://paddock.example/race-recap", first.URL)
	assert.Equal(t, "The race was won on the final lap.", first.Content)
	assert.Contains(t, first.Raw, "final lap")
	require.NotNil(t, first.PublishedAt)
	assert.Equal(t, 2025, first.PublishedAt.Year())

	assert.Equal(t, "https://paddock.example/qualifying", result.Items[1].URL)
	assert.Nil(t, result.Items[1].PublishedAt)
}

func TestScrapeRSSRespectsMaxItems(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, threeEntryFeed)
	}))
	defer server.Close()

	source := &models.Source{Type: models.SourceTypeRSS, URL: server.URL}
	result := testScraper().Scrape(context.Background(), source, 1)

	require.Len(t, result.Items, 1)
	assert.Equal(t, "Race recap", result.Items[0].Title)
}

func TestScrapeSendsConfiguredAuth(t *testing.T) {
	tests := []struct {
		name   string
		config models.SourceConfig
		check  func(t *testing.T, r *http.Request)
	}{
		{
			name:   "basic",
			config: models.SourceConfig{AuthRequired: true, AuthType: models.AuthTypeBasic, Username: "u", Password: "p"},
			check: func(t *testing.T, r *http.Request) {
				user, pass, ok := r.BasicAuth()
				assert.True(t, ok)
				assert.Equal(t, "u", user)
				assert.Equal(t, "p", pass)
			},
		},
		{
			name:   "cookie",
			config: models.SourceConfig{AuthRequired: true, AuthType: models.AuthTypeCookie, Cookie: "session=abc"},
			check: func(t *testing.T, r *http.Request) {
				assert.Equal(t, "session=abc", r.Header.Get("Cookie"))
			},
		},
		{
			name:   "header",
			config: models.SourceConfig{AuthRequired: true, AuthType: models.AuthTypeHeader, HeaderName: "X-Token", HeaderValue: "t0k"},
			check: func(t *testing.T, r *http.Request) {
				assert.Equal(t, "t0k", r.Header.Get("X-Token"))
			},
		},
		{
			name:   "auth not required",
			config: models.SourceConfig{AuthType: models.AuthTypeHeader, HeaderName: "X-Token", HeaderValue: "t0k"},
			check: func(t *testing.T, r *http.Request) {
				assert.Empty(t, r.Header.Get("X-Token"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen *http.Request
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = r.Clone(context.Background())
				fmt.Fprint(w, threeEntryFeed)
			}))
			defer server.Close()

			source := &models.Source{Type: models.SourceTypeRSS, URL: server.URL, Config: tt.config}
			result := testScraper().Scrape(context.Background(), source, 10)
			require.NoError(t, result.Err)
			require.NotNil(t, seen)
			assert.Equal(t, config.DefaultUserAgent, seen.Header.Get("User-Agent"))
			tt.check(t, seen)
		})
	}
}

func TestScrapeAuthChallenge(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	source := &models.Source{Type: models.SourceTypeRSS, URL: server.URL}
	result := testScraper().Scrape(context.Background(), source, 10)

	assert.Error(t, result.Err)
	assert.Empty(t, result.Items)
	assert.Equal(t, "http_403", result.AuthReason)
	assert.Equal(t, "auth_required: http_403", result.Status)
}

func TestScrapeErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	source := &models.Source{Type: models.SourceTypeRSS, URL: server.URL}
	result := testScraper().Scrape(context.Background(), source, 10)

	assert.Error(t, result.Err)
	assert.Equal(t, "error: http_500", result.Status)
	assert.Empty(t, result.AuthReason)
}

func TestScrapeUnparseableFeed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "definitely not a feed")
	}))
	defer server.Close()

	source := &models.Source{Type: models.SourceTypeRSS, URL: server.URL}
	result := testScraper().Scrape(context.Background(), source, 10)

	assert.ErrorIs(t, result.Err, ErrParse)
	assert.Equal(t, "error: parse", result.Status)
}

func TestScrapeUnknownSourceType(t *testing.T) {
	source := &models.Source{Type: models.SourceType("gopher"), URL: "gopher://example"}
	result := testScraper().Scrape(context.Background(), source, 10)

	assert.ErrorIs(t, result.Err, ErrUnknownSourceType)
	assert.Equal(t, "unknown source_type: gopher", result.Status)
	assert.Empty(t, result.Items)
}

func TestScrapePage(t *testing.T) {
	body := `<html><head><title>Season preview</title></head><body><article>` +
		strings.Repeat("<p>The new season brings sweeping technical changes to every team on the grid.</p>", 10) +
		`</article></body></html>`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, body)
	}))
	defer server.Close()

	source := &models.Source{Type: models.SourceTypePage, URL: server.URL}
	result := testScraper().Scrape(context.Background(), source, 10)

	require.NoError(t, result.Err)
	assert.Equal(t, StatusOK, result.Status)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "Season preview", result.Items[0].Title)
	assert.Equal(t, server.URL, result.Items[0].URL)
	assert.Contains(t, result.Items[0].Content, "sweeping technical changes")
}

func TestScrapePageLoginWall(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><p>Subscribe to continue reading this story.</p></body></html>`)
	}))
	defer server.Close()

	source := &models.Source{Type: models.SourceTypePage, URL: server.URL}
	result := testScraper().Scrape(context.Background(), source, 10)

	assert.NoError(t, result.Err)
	assert.Equal(t, ReasonLoginWall, result.AuthReason)
	assert.Equal(t, "auth_required: login_wall", result.Status)
}

func TestErrorKind(t *testing.T) {
	assert.Equal(t, "timeout", ErrorKind(context.DeadlineExceeded))
	assert.Equal(t, "http_502", ErrorKind(&HTTPStatusError{StatusCode: 502}))
	assert.Equal(t, "parse", ErrorKind(fmt.Errorf("%w: bad", ErrParse)))
	assert.Equal(t, "internal", ErrorKind(fmt.Errorf("boom")))
}
