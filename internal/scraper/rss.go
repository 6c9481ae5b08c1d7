package scraper

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"newsmill/internal/models"

	"github.com/mmcdole/gofeed"
)

const feedAccept = "application/rss+xml, application/atom+xml, application/xml;q=0.9, text/xml;q=0.8, */*;q=0.5"

// scrapeFeed handles RSS, Atom and YouTube channel feeds
func (s *Scraper) scrapeFeed(ctx context.Context, source *models.Source, maxItems int) (fetchOutcome, error) {
	resp, err := s.get(ctx, source.URL, feedAccept, &source.Config)
	if err != nil {
		return fetchOutcome{}, err
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(resp.body))
	if err != nil {
		return fetchOutcome{}, fmt.Errorf("%w: %v", ErrParse, err)
	}

	entries := feed.Items
	if len(entries) > maxItems {
		entries = entries[:maxItems]
	}

	items := make([]Item, 0, len(entries))
	for _, entry := range entries {
		link := entryLink(entry)
		if link == "" {
			continue
		}

		body := entry.Content
		if strings.TrimSpace(body) == "" {
			body = entry.Description
		}

		items = append(items, Item{
			Title:       strings.TrimSpace(entry.Title),
			URL:         link,
			Content:     Truncate(HTMLToText(body), s.config.MaxContentChars),
			Raw:         Truncate(entry.Description, s.config.MaxContentChars),
			PublishedAt: entryPublished(entry),
		})
	}
	return fetchOutcome{items: items}, nil
}

// entryLink prefers the entry link and falls back to a GUID that is itself a URL
func entryLink(entry *gofeed.Item) string {
	if link := strings.TrimSpace(entry.Link); link != "" {
		return link
	}
	guid := strings.TrimSpace(entry.GUID)
	if strings.HasPrefix(guid, "http://") || strings.HasPrefix(guid, "https://") {
		return guid
	}
	return ""
}

func entryPublished(entry *gofeed.Item) *time.Time {
	var t *time.Time
	switch {
	case entry.PublishedParsed != nil:
		t = entry.PublishedParsed
	case entry.UpdatedParsed != nil:
		t = entry.UpdatedParsed
	default:
		return nil
	}
	utc := t.UTC()
	return &utc
}
