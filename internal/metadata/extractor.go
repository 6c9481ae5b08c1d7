package metadata

import (
	"encoding/json"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// PageMetadata holds the <head> metadata of a scraped page
type PageMetadata struct {
	Title       string
	Description string
	SiteName    string
	ImageURL    string
	Language    string
	PublishedAt *time.Time
}

// publishedLayouts are tried in order for article:published_time and JSON-LD dates
var publishedLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Extract parses HTML and collects title, Open Graph, JSON-LD date and language
// hints. Open Graph values win over plain <title> and description tags.
func Extract(htmlContent string) *PageMetadata {
	metadata := &PageMetadata{}
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return metadata
	}

	var htmlTitle, plainDescription string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "html":
				if lang := attr(n, "lang"); lang != "" && metadata.Language == "" {
					metadata.Language = lang
				}
			case "title":
				if htmlTitle == "" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
					htmlTitle = strings.TrimSpace(n.FirstChild.Data)
				}
			case "meta":
				extractMeta(n, metadata, &plainDescription)
			case "script":
				if attr(n, "type") == "application/ld+json" && n.FirstChild != nil {
					extractJSONLDDate(n.FirstChild.Data, metadata)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if metadata.Title == "" {
		metadata.Title = htmlTitle
	}
	if metadata.Description == "" {
		metadata.Description = plainDescription
	}
	return metadata
}

func extractMeta(n *html.Node, metadata *PageMetadata, plainDescription *string) {
	property := attr(n, "property")
	name := attr(n, "name")
	content := strings.TrimSpace(attr(n, "content"))
	if content == "" {
		return
	}

	switch {
	case property == "og:title" && metadata.Title == "":
		metadata.Title = content
	case property == "og:description" && metadata.Description == "":
		metadata.Description = content
	case property == "og:image" && metadata.ImageURL == "":
		metadata.ImageURL = content
	case property == "og:site_name" && metadata.SiteName == "":
		metadata.SiteName = content
	case property == "article:published_time" || property == "article:published":
		if metadata.PublishedAt == nil {
			metadata.PublishedAt = parseTime(content)
		}
	case name == "description" || name == "twitter:description":
		if *plainDescription == "" {
			*plainDescription = content
		}
	}
}

func extractJSONLDDate(jsonldText string, metadata *PageMetadata) {
	if metadata.PublishedAt != nil {
		return
	}
	var data interface{}
	if err := json.Unmarshal([]byte(strings.TrimSpace(jsonldText)), &data); err != nil {
		return
	}

	var objects []map[string]interface{}
	switch v := data.(type) {
	case map[string]interface{}:
		objects = append(objects, v)
		if graph, ok := v["@graph"].([]interface{}); ok {
			for _, item := range graph {
				if obj, ok := item.(map[string]interface{}); ok {
					objects = append(objects, obj)
				}
			}
		}
	case []interface{}:
		for _, item := range v {
			if obj, ok := item.(map[string]interface{}); ok {
				objects = append(objects, obj)
			}
		}
	}

	for _, obj := range objects {
		if published, ok := obj["datePublished"].(string); ok {
			if t := parseTime(published); t != nil {
				metadata.PublishedAt = t
				return
			}
		}
	}
}

func parseTime(value string) *time.Time {
	for _, layout := range publishedLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
