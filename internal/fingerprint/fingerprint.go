// Package fingerprint normalizes URLs and article text so the same story is
// recognized across sources and re-scrapes.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
)

// trackingParams are dropped from every canonical URL, along with any utm_* key
var trackingParams = map[string]struct{}{
	"fbclid": {},
	"gclid":  {},
	"ref":    {},
	"refsrc": {},
}

// CanonicalizeURL removes tracking parameters and the fragment and lowercases
// the host. Path and the remaining query pairs survive byte for byte, in their
// original order. Applying it twice is a no-op.
func CanonicalizeURL(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return rawURL // Return original if parsing fails
	}

	parsed.Host = strings.ToLower(parsed.Host)
	parsed.RawQuery = stripTracking(parsed.RawQuery)
	parsed.ForceQuery = false
	parsed.Fragment = ""
	parsed.RawFragment = ""
	return parsed.String()
}

// stripTracking filters the raw query text pair by pair. Pairs are never
// re-encoded, so values holding ';' or stray '%' are kept as they came.
func stripTracking(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}
	kept := make([]string, 0, strings.Count(rawQuery, "&")+1)
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		key, _, _ := strings.Cut(pair, "=")
		if decoded, err := url.QueryUnescape(key); err == nil {
			key = decoded
		}
		if isTrackingParam(key) {
			continue
		}
		kept = append(kept, pair)
	}
	return strings.Join(kept, "&")
}

func isTrackingParam(key string) bool {
	lower := strings.ToLower(key)
	if strings.HasPrefix(lower, "utm_") {
		return true
	}
	_, ok := trackingParams[lower]
	return ok
}

// Hostname returns the host of a URL without port, or "" when it cannot be parsed
func Hostname(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Hostname())
}

// NormalizeText lowercases and collapses all whitespace runs to single spaces
func NormalizeText(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// ContentHash returns the SHA-256 hex digest of the normalized text, or nil
// when nothing is left after normalization.
func ContentHash(text string) *string {
	normalized := NormalizeText(text)
	if normalized == "" {
		return nil
	}
	sum := sha256.Sum256([]byte(normalized))
	hash := hex.EncodeToString(sum[:])
	return &hash
}
