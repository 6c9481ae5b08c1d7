package scraper

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

var (
	blankLines = regexp.MustCompile(`\n\s*\n+`)
	spaceRuns  = regexp.MustCompile(`[ \t\f\r]+`)
)

// noiseSelectors are stripped before falling back to whole-body text
const noiseSelectors = "script, style, nav, footer, header, aside, form, iframe, noscript, .sidebar, #sidebar, .ad, .advertisement, .popup, .modal, .cookie-banner"

var mainContentSelectors = []string{
	"article", "main", ".entry-content", ".post-content", ".article-body", "[role='main']", "#content",
}

// ExtractText returns the readable body text of an HTML document. Readability
// is tried first; when it yields nothing a goquery walk over the likely
// content containers is used.
func ExtractText(htmlContent, pageURL string) string {
	if strings.TrimSpace(htmlContent) == "" {
		return ""
	}

	parsed, _ := url.Parse(pageURL)
	if parsed == nil {
		parsed = &url.URL{}
	}
	if article, err := readability.FromReader(strings.NewReader(htmlContent), parsed); err == nil {
		if text := cleanText(article.TextContent); text != "" {
			return text
		}
	}
	return fallbackText(htmlContent)
}

func fallbackText(htmlContent string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return ""
	}
	doc.Find(noiseSelectors).Remove()

	for _, selector := range mainContentSelectors {
		var b strings.Builder
		doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			s.Find("p, h1, h2, h3, h4, li, blockquote, pre").Each(func(_ int, item *goquery.Selection) {
				b.WriteString(strings.TrimSpace(item.Text()))
				b.WriteString("\n\n")
			})
		})
		if text := cleanText(b.String()); text != "" {
			return text
		}
	}
	return cleanText(doc.Find("body").Text())
}

// HTMLToText flattens an HTML fragment such as a feed entry body to plain text
func HTMLToText(fragment string) string {
	if !strings.Contains(fragment, "<") {
		return cleanText(fragment)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return cleanText(fragment)
	}
	doc.Find("script, style").Remove()
	doc.Find("p, br, li, h1, h2, h3, h4, div").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})
	return cleanText(doc.Text())
}

func cleanText(text string) string {
	text = spaceRuns.ReplaceAllString(text, " ")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	text = strings.Join(lines, "\n")
	text = blankLines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// Truncate cuts s to at most max runes
func Truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

// TruncateAtWord cuts s to at most max runes, backing off to the last space
// so words are not split. Text without spaces is cut hard.
func TruncateAtWord(s string, max int) string {
	cut := Truncate(s, max)
	if len(cut) == len(s) {
		return s
	}
	if i := strings.LastIndex(cut, " "); i > 0 {
		return strings.TrimRight(cut[:i], " ")
	}
	return cut
}
