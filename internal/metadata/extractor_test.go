package metadata

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<!DOCTYPE html>
<html lang="en">
<head>
  <title>Plain Title | Test News</title>
  <meta name="description" content="Plain description">
  <meta property="og:title" content="Test News Article - Breaking Tech News">
  <meta property="og:site_name" content="Test News Site">
  <meta property="og:image" content="https://example.com/image.jpg">
  <meta property="article:published_time" content="2024-03-05T10:30:00Z">
</head>
<body><p>Body text</p></body>
</html>`

func TestExtract(t *testing.T) {
	metadata := Extract(samplePage)

	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{"Title", metadata.Title, "Test News Article - Breaking Tech News"},
		{"Description", metadata.Description, "Plain description"},
		{"SiteName", metadata.SiteName, "Test News Site"},
		{"ImageURL", metadata.ImageURL, "https://example.com/image.jpg"},
		{"Language", metadata.Language, "en"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("Expected %s = %q, got %q", tt.name, tt.expected, tt.got)
			}
		})
	}

	require.NotNil(t, metadata.PublishedAt)
	assert.True(t, metadata.PublishedAt.Equal(time.Date(2024, 3, 5, 10, 30, 0, 0, time.UTC)))
}

func TestExtractFallsBackToTitleTag(t *testing.T) {
	metadata := Extract(`<html><head><title> Only Title </title></head><body></body></html>`)
	assert.Equal(t, "Only Title", metadata.Title)
	assert.Nil(t, metadata.PublishedAt)
}

func TestExtractJSONLDDate(t *testing.T) {
	page := `<html><head>
<script type="application/ld+json">{"@context":"https://schema.org","@graph":[{"@type":"NewsArticle","datePublished":"2023-11-02"}]}</script>
</head><body></body></html>`

	metadata := Extract(page)
	require.NotNil(t, metadata.PublishedAt)
	assert.Equal(t, "2023-11-02", metadata.PublishedAt.Format("2006-01-02"))
}

func TestExtractEmptyInput(t *testing.T) {
	metadata := Extract("")
	assert.Equal(t, "", metadata.Title)
}
