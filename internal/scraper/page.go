package scraper

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"newsmill/internal/metadata"
	"newsmill/internal/models"
)

const pageAccept = "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8"

// PageFetch is the result of fetching and reading one HTML page
type PageFetch struct {
	URL         string
	StatusCode  int
	HTML        string
	Text        string
	Metadata    *metadata.PageMetadata
	LoginReason string
}

// Gated reports whether the page was an auth challenge or a login wall
func (p *PageFetch) Gated() bool {
	return p.LoginReason != ""
}

// FetchPage downloads a page with the given source credentials, extracts its
// text and runs login wall detection. An auth challenge is not an error: it
// comes back as a PageFetch with LoginReason set.
func (s *Scraper) FetchPage(ctx context.Context, auth models.SourceConfig, pageURL string) (*PageFetch, error) {
	resp, err := s.get(ctx, pageURL, pageAccept, &auth)
	if err != nil {
		var authErr *AuthRequiredError
		if errors.As(err, &authErr) {
			status := http.StatusForbidden
			if authErr.Reason == "http_401" {
				status = http.StatusUnauthorized
			}
			return &PageFetch{URL: authErr.URL, StatusCode: status, LoginReason: authErr.Reason}, nil
		}
		return nil, err
	}

	htmlContent := string(resp.body)
	text := ExtractText(htmlContent, resp.finalURL)
	return &PageFetch{
		URL:         resp.finalURL,
		StatusCode:  resp.statusCode,
		HTML:        htmlContent,
		Text:        text,
		Metadata:    metadata.Extract(htmlContent),
		LoginReason: s.detector.Detect(htmlContent, text, resp.statusCode, resp.finalURL),
	}, nil
}

// scrapePage turns a single page source into one item
func (s *Scraper) scrapePage(ctx context.Context, source *models.Source, _ int) (fetchOutcome, error) {
	page, err := s.FetchPage(ctx, source.Config, source.URL)
	if err != nil {
		return fetchOutcome{}, err
	}
	if page.StatusCode == http.StatusUnauthorized || page.StatusCode == http.StatusForbidden {
		return fetchOutcome{}, &AuthRequiredError{Reason: page.LoginReason, URL: page.URL}
	}

	title := source.URL
	var item Item
	if meta := page.Metadata; meta != nil {
		if t := strings.TrimSpace(meta.Title); t != "" {
			title = t
		}
		item.PublishedAt = meta.PublishedAt
	}
	item.Title = title
	item.URL = source.URL
	item.Content = Truncate(page.Text, s.config.MaxContentChars)
	item.Raw = item.Content

	outcome := fetchOutcome{items: []Item{item}}
	if page.Gated() {
		outcome.detection = &AuthRequiredError{Reason: page.LoginReason, URL: page.URL}
	}
	return outcome, nil
}
