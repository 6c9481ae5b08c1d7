package scraper

import (
	"fmt"
	"net/url"
	"strings"

	"newsmill/internal/config"
)

// ReasonLoginWall is recorded when page content looks gated
const ReasonLoginWall = "login_wall"

// softTextLimit is the extracted-text length under which soft keywords count
const softTextLimit = 400

var hardPhrases = []string{
	"sign in to continue",
	"log in to continue",
	"login to continue",
	"subscribe to continue",
	"subscribe to read",
	"subscribers only",
	"member only",
	"members only",
	"create a free account to continue",
	"already a subscriber",
}

var softKeywords = []string{
	"login",
	"log in",
	"sign in",
	"subscribe",
	"subscriber",
	"subscription",
	"paywall",
	"register",
	"sign up",
}

// LoginRule is a site specific login wall check. Domain selects the hosts it
// applies to and Content inspects the lowercased HTML and text.
type LoginRule struct {
	Name    string
	Domain  func(host string) bool
	Content func(htmlLower, textLower string) bool
	Reason  string
}

// DomainMarkersRule builds a rule for a domain (and its subdomains) that
// fires only when every marker appears in the page.
func DomainMarkersRule(name, domain string, markers ...string) LoginRule {
	domain = strings.ToLower(domain)
	return LoginRule{
		Name: name,
		Domain: func(host string) bool {
			return host == domain || strings.HasSuffix(host, "."+domain)
		},
		Content: func(htmlLower, textLower string) bool {
			for _, marker := range markers {
				if !strings.Contains(htmlLower, marker) && !strings.Contains(textLower, marker) {
					return false
				}
			}
			return len(markers) > 0
		},
		Reason: ReasonLoginWall,
	}
}

// ConfiguredLoginRules converts config file rules into marker rules. Entries
// without a domain or markers are skipped.
func ConfiguredLoginRules(rules []config.LoginRule) []LoginRule {
	var out []LoginRule
	for _, r := range rules {
		if r.Domain == "" || len(r.Markers) == 0 {
			continue
		}
		markers := make([]string, len(r.Markers))
		for i, m := range r.Markers {
			markers[i] = strings.ToLower(m)
		}
		name := r.Name
		if name == "" {
			name = r.Domain
		}
		out = append(out, DomainMarkersRule(name, r.Domain, markers...))
	}
	return out
}

// DefaultLoginRules returns the built in site rules
func DefaultLoginRules() []LoginRule {
	return []LoginRule{
		DomainMarkersRule("autosport-plus", "autosport.com", "autosport plus", "subscribe"),
		DomainMarkersRule("motorsport-prime", "motorsport.com", "motorsport prime", "subscribe"),
	}
}

// LoginDetector decides whether a fetched page is gated
type LoginDetector struct {
	rules []LoginRule
}

// NewLoginDetector creates a detector with the given site rules, or the
// defaults when none are passed.
func NewLoginDetector(rules ...LoginRule) *LoginDetector {
	if len(rules) == 0 {
		rules = DefaultLoginRules()
	}
	return &LoginDetector{rules: rules}
}

// Detect returns a reason string when the page requires a login, or "" when
// it does not. Checks run in order: status code, hard phrases, soft keywords
// on short pages, then site rules.
func (d *LoginDetector) Detect(htmlContent, text string, status int, pageURL string) string {
	if status == 401 || status == 403 {
		return fmt.Sprintf("http_%d", status)
	}

	htmlLower := strings.ToLower(htmlContent)
	textLower := strings.ToLower(text)

	for _, phrase := range hardPhrases {
		if strings.Contains(htmlLower, phrase) || strings.Contains(textLower, phrase) {
			return ReasonLoginWall
		}
	}

	if len([]rune(strings.TrimSpace(text))) < softTextLimit {
		for _, keyword := range softKeywords {
			if strings.Contains(textLower, keyword) {
				return ReasonLoginWall
			}
		}
	}

	host := ""
	if u, err := url.Parse(pageURL); err == nil {
		host = strings.ToLower(u.Hostname())
	}
	for _, rule := range d.rules {
		if rule.Domain != nil && !rule.Domain(host) {
			continue
		}
		if rule.Content != nil && rule.Content(htmlLower, textLower) {
			if rule.Reason != "" {
				return rule.Reason
			}
			return ReasonLoginWall
		}
	}
	return ""
}

var defaultDetector = NewLoginDetector()

// DetectLoginRequired runs the default detector
func DetectLoginRequired(htmlContent, text string, status int, pageURL string) string {
	return defaultDetector.Detect(htmlContent, text, status, pageURL)
}
