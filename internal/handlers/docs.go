package handlers

import (
	"fmt"
	"html"
	"net/http"
	"strings"

	"newsmill/internal/feeds"
	"newsmill/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/russross/blackfriday/v2"
)

// PreviewHandler renders articles as HTML for editors
type PreviewHandler struct {
	feeds *feeds.FeedService
}

// NewPreviewHandler creates a new preview handler
func NewPreviewHandler(feedService *feeds.FeedService) *PreviewHandler {
	return &PreviewHandler{feeds: feedService}
}

// renderMarkdown converts markdown to HTML. Raw HTML in the input is dropped.
func renderMarkdown(content string) string {
	extensions := blackfriday.CommonExtensions | blackfriday.AutoHeadingIDs
	renderer := blackfriday.NewHTMLRenderer(blackfriday.HTMLRendererParameters{
		Flags: blackfriday.CommonHTMLFlags | blackfriday.SkipHTML,
	})
	return string(blackfriday.Run([]byte(content), blackfriday.WithRenderer(renderer), blackfriday.WithExtensions(extensions)))
}

// ServeArticlePreview handles GET /api/articles/:id/preview
func (h *PreviewHandler) ServeArticlePreview(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	article, err := h.feeds.Article(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "article")
		return
	}

	var body strings.Builder
	if article.Summary != "" {
		body.WriteString("## Summary\n\n")
		body.WriteString(article.Summary)
		body.WriteString("\n\n")
	}
	if text := article.Text(); text != "" {
		body.WriteString("## Content\n\n")
		body.WriteString(text)
		body.WriteString("\n")
	}

	page := h.wrapWithTheme(renderMarkdown(body.String()), article)
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.String(http.StatusOK, page)
}

func articleFacts(article *models.Article) string {
	score := "unscored"
	if article.Scored {
		score = fmt.Sprintf("score %d/10", article.Score())
	}
	facts := []string{score}
	if len(article.FormatAssignments) > 0 {
		facts = append(facts, "formats: "+strings.Join(article.FormatAssignments, ", "))
	}
	if article.Unusable {
		facts = append(facts, "unusable: "+article.UnusableReason)
	}
	if article.FailedStage != "" {
		facts = append(facts, "failed at "+article.FailedStage)
	}
	return strings.Join(facts, " · ")
}

// wrapWithTheme wraps the rendered article with the preview styling
func (h *PreviewHandler) wrapWithTheme(content string, article *models.Article) string {
	title := html.EscapeString(article.Title)
	return `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>` + title + ` - Newsmill</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Oxygen, Ubuntu, Cantarell, sans-serif;
            line-height: 1.6;
            color: #333;
            background: #f8f9fa;
            padding: 20px;
        }

        .container {
            max-width: 900px;
            margin: 0 auto;
        }

        .header {
            background: linear-gradient(135deg, #2563eb 0%, #3b82f6 100%);
            color: white;
            padding: 2rem;
            margin-bottom: 2rem;
            border-radius: 12px;
        }

        .header a {
            color: white;
            opacity: 0.85;
        }

        .content {
            background: white;
            padding: 2.5rem;
            border-radius: 12px;
            border: 1px solid #e5e7eb;
        }

        .content h2 {
            font-size: 1.4rem;
            color: #2563eb;
        }

        .content p {
            margin-bottom: 1rem;
            color: #374151;
        }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>` + title + `</h1>
            <div class="meta">` + html.EscapeString(articleFacts(article)) + `</div>
            <a href="` + html.EscapeString(article.SourceURL) + `">` + html.EscapeString(article.SourceWebsite) + `</a>
        </div>
        <div class="content">
` + content + `
        </div>
    </div>
</body>
</html>`
}
