package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncateAtWord(t *testing.T) {
	assert.Equal(t, "short", TruncateAtWord("short", 10))
	assert.Equal(t, "hello", TruncateAtWord("hello world", 8))
	assert.Equal(t, "abcdefgh", TruncateAtWord("abcdefghijkl", 8))
}

func TestTruncateIsRuneSafe(t *testing.T) {
	assert.Equal(t, "héé", Truncate("héééé", 3))
	assert.Equal(t, "abc", Truncate("abc", 0))
}

func TestHTMLToText(t *testing.T) {
	assert.Equal(t, "plain words", HTMLToText("  plain   words "))
	assert.Equal(t, "One\n\nTwo", HTMLToText("<p>One</p>\n\n\n<p>Two</p>"))
}

func TestExtractTextFallsBackToBody(t *testing.T) {
	text := ExtractText(`<html><body><nav>Menu</nav><div>Short note</div><script>var x;</script></body></html>`, "https://news.example/a")
	assert.Contains(t, text, "Short note")
	assert.NotContains(t, text, "var x")
}
