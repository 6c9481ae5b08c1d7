// Package scraper fetches candidate items from configured sources. It knows
// nothing about persistence: callers receive a Result and decide what to store.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"newsmill/internal/config"
	"newsmill/internal/models"
)

// ErrUnknownSourceType is reported for sources no fetcher is registered for
var ErrUnknownSourceType = errors.New("unknown source type")

// StatusOK is the status recorded for a clean scrape
const StatusOK = "ok"

// Item is one candidate produced by a scrape
type Item struct {
	Title       string
	URL         string
	Content     string
	Raw         string
	PublishedAt *time.Time
}

// Result is the recorded outcome of scraping one source. Failures are carried
// in Status and Err instead of being returned, so one bad source never stops a batch.
type Result struct {
	Items      []Item
	Status     string
	AuthReason string
	AuthURL    string
	Err        error
}

// Captioner describes images linked from posts
type Captioner interface {
	Caption(ctx context.Context, imageURL string) string
}

// fetchOutcome carries items together with a login wall that was detected
// on an otherwise successful response.
type fetchOutcome struct {
	items     []Item
	detection *AuthRequiredError
}

type fetchFunc func(ctx context.Context, source *models.Source, maxItems int) (fetchOutcome, error)

// Scraper dispatches sources to per-type fetchers
type Scraper struct {
	config     config.Scrape
	httpClient *http.Client
	captioner  Captioner
	detector   *LoginDetector
	fetchers   map[models.SourceType]fetchFunc
}

// Option customizes a Scraper
type Option func(*Scraper)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(s *Scraper) { s.httpClient = client }
}

// WithCaptioner sets the image caption collaborator used for Reddit image posts
func WithCaptioner(c Captioner) Option {
	return func(s *Scraper) { s.captioner = c }
}

// WithLoginDetector replaces the default login wall detector
func WithLoginDetector(d *LoginDetector) Option {
	return func(s *Scraper) { s.detector = d }
}

// New creates a scraper with a fetcher registered for every known source type
func New(cfg config.Scrape, opts ...Option) *Scraper {
	if cfg.MaxContentChars <= 0 {
		cfg.MaxContentChars = 4000
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = config.DefaultUserAgent
	}

	s := &Scraper{
		config: cfg,
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("stopped after 10 redirects")
				}
				return nil
			},
		},
		detector: NewLoginDetector(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.fetchers = map[models.SourceType]fetchFunc{
		models.SourceTypeRSS:     s.scrapeFeed,
		models.SourceTypeYouTube: s.scrapeFeed,
		models.SourceTypeReddit:  s.scrapeReddit,
		models.SourceTypePage:    s.scrapePage,
		models.SourceTypeWebsite: s.scrapePage,
	}
	return s
}

// Detector returns the login wall detector in use
func (s *Scraper) Detector() *LoginDetector {
	return s.detector
}

// Scrape fetches up to maxItems candidates from the source. It never panics
// on fetch or parse failures; they are reported in the result status.
func (s *Scraper) Scrape(ctx context.Context, source *models.Source, maxItems int) Result {
	if maxItems <= 0 {
		maxItems = 10
	}

	fetch, ok := s.fetchers[source.Type]
	if !ok {
		return Result{
			Status: fmt.Sprintf("unknown source_type: %s", source.Type),
			Err:    fmt.Errorf("%w: %q", ErrUnknownSourceType, source.Type),
		}
	}

	outcome, err := fetch(ctx, source, maxItems)

	var authErr *AuthRequiredError
	switch {
	case errors.As(err, &authErr):
		return Result{
			Status:     "auth_required: " + authErr.Reason,
			AuthReason: authErr.Reason,
			AuthURL:    authErr.URL,
			Err:        err,
		}
	case err != nil:
		return Result{Status: "error: " + ErrorKind(err), Err: err}
	}

	result := Result{Items: outcome.items, Status: StatusOK}
	if d := outcome.detection; d != nil {
		result.Status = "auth_required: " + d.Reason
		result.AuthReason = d.Reason
		result.AuthURL = d.URL
	}
	return result
}

// ShouldScrape reports whether a source is due. A source that was never
// scraped is always due; otherwise the full interval must have elapsed.
func ShouldScrape(source *models.Source, now time.Time) bool {
	if source.LastScrapedAt == nil {
		return true
	}
	return now.Sub(*source.LastScrapedAt) >= source.ScrapeInterval()
}
