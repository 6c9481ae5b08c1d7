package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"newsmill/internal/models"
)

var redditSorts = map[string]bool{"top": true, "new": true, "hot": true, "rising": true}

var mediaExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".mp4", ".mov", ".webm"}

type redditListing struct {
	Data struct {
		Children []struct {
			Data redditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditPost struct {
	Title       string  `json:"title"`
	URL         string  `json:"url"`
	Permalink   string  `json:"permalink"`
	Selftext    string  `json:"selftext"`
	PostHint    string  `json:"post_hint"`
	IsSelf      bool    `json:"is_self"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	Subreddit   string  `json:"subreddit"`
	Author      string  `json:"author"`
	CreatedUTC  float64 `json:"created_utc"`
	Preview     struct {
		Images []struct {
			Source struct {
				URL string `json:"url"`
			} `json:"source"`
		} `json:"images"`
	} `json:"preview"`
}

// NormalizeRedditListingURL turns a subreddit URL into its JSON listing URL.
// URLs already pointing at a .json listing only get missing limit and
// raw_json parameters. Non-reddit URLs are returned unchanged.
func NormalizeRedditListingURL(raw string, maxItems int) string {
	if raw == "" {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil || !strings.Contains(strings.ToLower(u.Host), "reddit.com") {
		return raw
	}

	if strings.HasSuffix(u.Path, ".json") || strings.HasSuffix(u.Path, ".json/") {
		q := u.Query()
		if q.Get("limit") == "" {
			q.Set("limit", strconv.Itoa(maxItems))
		}
		if q.Get("raw_json") == "" {
			q.Set("raw_json", "1")
		}
		u.RawQuery = q.Encode()
		return u.String()
	}

	var parts []string
	for _, p := range strings.Split(u.Path, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}

	subreddit := ""
	for i, p := range parts {
		if p == "r" && i+1 < len(parts) {
			subreddit = parts[i+1]
			break
		}
	}
	if subreddit == "" && len(parts) > 0 && strings.HasPrefix(parts[0], "r") {
		subreddit = strings.Replace(parts[0], "r", "", 1)
	}
	if subreddit == "" {
		return raw
	}

	sort := "top"
	for _, p := range parts {
		if redditSorts[p] {
			sort = p
			break
		}
	}
	timeframe := u.Query().Get("t")
	if timeframe == "" {
		timeframe = "day"
	}

	params := url.Values{}
	params.Set("limit", strconv.Itoa(maxItems))
	params.Set("t", timeframe)
	params.Set("raw_json", "1")
	return fmt.Sprintf("https://www.reddit.com/r/%s/%s/.json?%s", subreddit, sort, params.Encode())
}

// redditImageURL returns the image a post points at, if any
func redditImageURL(post redditPost) string {
	if post.PostHint == "image" && post.URL != "" {
		return post.URL
	}
	if len(post.Preview.Images) > 0 {
		if src := post.Preview.Images[0].Source.URL; src != "" {
			return html.UnescapeString(src)
		}
	}
	return ""
}

func looksLikeMedia(link string) bool {
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	ext := strings.ToLower(path.Ext(u.Path))
	for _, m := range mediaExtensions {
		if ext == m {
			return true
		}
	}
	return false
}

func isRedditHost(link string) bool {
	u, err := url.Parse(link)
	return err == nil && strings.Contains(strings.ToLower(u.Host), "reddit.com")
}

func (s *Scraper) scrapeReddit(ctx context.Context, source *models.Source, maxItems int) (fetchOutcome, error) {
	listingURL := NormalizeRedditListingURL(source.URL, maxItems)
	resp, err := s.get(ctx, listingURL, "application/json", &source.Config)
	if err != nil {
		return fetchOutcome{}, err
	}

	var listing redditListing
	if err := json.Unmarshal(resp.body, &listing); err != nil {
		return fetchOutcome{}, fmt.Errorf("failed to decode reddit listing: %w", err)
	}

	children := listing.Data.Children
	if len(children) > maxItems {
		children = children[:maxItems]
	}

	items := make([]Item, 0, len(children))
	for _, child := range children {
		items = append(items, s.redditItem(ctx, child.Data))
	}
	return fetchOutcome{items: items}, nil
}

func (s *Scraper) redditItem(ctx context.Context, post redditPost) Item {
	link := post.URL
	itemURL := link
	if post.Permalink != "" {
		itemURL = "https://www.reddit.com" + post.Permalink
	}

	imageURL := redditImageURL(post)
	articleText := ""
	if link != "" && !post.IsSelf && imageURL == "" {
		articleText = s.linkedArticleText(ctx, link)
	}
	caption := ""
	if imageURL != "" && s.captioner != nil {
		caption = s.captioner.Caption(ctx, imageURL)
	}

	var parts []string
	if post.Selftext != "" {
		parts = append(parts, post.Selftext)
	}
	if articleText != "" {
		parts = append(parts, articleText)
	}
	switch {
	case caption != "":
		parts = append(parts, "Image description: "+caption)
	case imageURL != "":
		parts = append(parts, "Image URL: "+imageURL)
	}
	if len(parts) == 0 {
		parts = append(parts, post.Title)
	}

	raw := fmt.Sprintf("score=%d | comments=%d | subreddit=%s | author=%s",
		post.Score, post.NumComments, post.Subreddit, post.Author)

	item := Item{
		Title:   post.Title,
		URL:     itemURL,
		Content: TruncateAtWord(strings.TrimSpace(strings.Join(parts, "\n\n")), s.config.MaxContentChars),
		Raw:     TruncateAtWord(raw, s.config.MaxContentChars),
	}
	if post.CreatedUTC > 0 {
		sec := int64(post.CreatedUTC)
		published := time.Unix(sec, 0).UTC()
		item.PublishedAt = &published
	}
	return item
}

// linkedArticleText fetches the page a link post points at. Source
// credentials are not forwarded to third party hosts and failures yield "".
func (s *Scraper) linkedArticleText(ctx context.Context, link string) string {
	if looksLikeMedia(link) || isRedditHost(link) {
		return ""
	}
	resp, err := s.get(ctx, link, "text/html", nil)
	if err != nil {
		return ""
	}
	return ExtractText(string(resp.body), resp.finalURL)
}
