package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalizeURL(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Strips utm params", "https://x.com/a?utm_source=y&utm_medium=z", "https://x.com/a"},
		{"Keeps plain URL", "https://x.com/a", "https://x.com/a"},
		{"Strips click ids", "https://x.com/a?fbclid=1&gclid=2&id=7", "https://x.com/a?id=7"},
		{"Strips ref and refsrc", "https://x.com/a?ref=home&refsrc=feed", "https://x.com/a"},
		{"Drops fragment", "https://x.com/a?id=7#comments", "https://x.com/a?id=7"},
		{"Uppercase utm key", "https://x.com/a?UTM_Campaign=spring", "https://x.com/a"},
		{"Keeps path and port", "http://x.com:8080/p/q?page=2", "http://x.com:8080/p/q?page=2"},
		{"Trailing question mark", "https://x.com/a?", "https://x.com/a"},
		{"Unparseable input", "not a url", "not a url"},
		{"Keeps semicolon pairs", "https://x.com/story?id=1;print=1", "https://x.com/story?id=1;print=1"},
		{"Keeps malformed escapes", "https://x.com/s?q=100%&id=7", "https://x.com/s?q=100%&id=7"},
		{"Keeps query order", "https://x.com/a?b=2&utm_source=y&a=1", "https://x.com/a?b=2&a=1"},
		{"Strips encoded tracking key", "https://x.com/a?utm%5Fsource=y&id=3", "https://x.com/a?id=3"},
		{"Lowercases host", "https://WWW.X.com/Path?id=1", "https://www.x.com/Path?id=1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CanonicalizeURL(tt.input))
		})
	}
}

func TestCanonicalizeURLIsIdempotent(t *testing.T) {
	inputs := []string{
		"https://x.com/a?utm_source=y",
		"https://x.com/a?b=2&a=1&utm_term=t#frag",
		"https://news.example.org/story/123?id=9&q=hello+world",
		"https://x.com/%7Euser/a?x=%2F",
		"https://X.com/story?id=1;print=1&fbclid=z",
		"https://x.com/s?q=100%&id=7",
	}
	for _, input := range inputs {
		once := CanonicalizeURL(input)
		assert.Equal(t, once, CanonicalizeURL(once), "input %s", input)
	}
}

func TestDistinctQueriesStayDistinct(t *testing.T) {
	pairs := [][2]string{
		{"https://x.com/story?id=1;print=1", "https://x.com/story?id=2;print=1"},
		{"https://x.com/s?q=100%&id=7", "https://x.com/s?id=7"},
	}
	for _, p := range pairs {
		assert.NotEqual(t, CanonicalizeURL(p[0]), CanonicalizeURL(p[1]), "%s vs %s", p[0], p[1])
	}
}

func TestTrackingVariantsCollapse(t *testing.T) {
	assert.Equal(t,
		CanonicalizeURL("https://x.com/a"),
		CanonicalizeURL("https://x.com/a?utm_source=y"),
	)
}

func TestHostname(t *testing.T) {
	assert.Equal(t, "example.com", Hostname("https://Example.com:443/path"))
	assert.Equal(t, "", Hostname("::"))
}

func TestContentHash(t *testing.T) {
	t.Run("empty text has no hash", func(t *testing.T) {
		assert.Nil(t, ContentHash(""))
		assert.Nil(t, ContentHash("  \n\t "))
	})

	t.Run("case and whitespace are ignored", func(t *testing.T) {
		a := ContentHash("Hello   World\n")
		b := ContentHash("  hello world")
		require.NotNil(t, a)
		require.NotNil(t, b)
		assert.Equal(t, *a, *b)
		assert.Len(t, *a, 64)
	})

	t.Run("different text differs", func(t *testing.T) {
		a := ContentHash("first story")
		b := ContentHash("second story")
		assert.NotEqual(t, *a, *b)
	})

	t.Run("known digest", func(t *testing.T) {
		// sha256("abc")
		assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", *ContentHash(" ABC "))
	})
}
