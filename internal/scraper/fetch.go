package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"

	"newsmill/internal/models"
)

// maxBodyBytes bounds how much of any response is read
const maxBodyBytes = 10 << 20

// ErrParse marks responses that arrived but could not be understood
var ErrParse = errors.New("parse failed")

// AuthRequiredError reports that a source answered with an auth challenge
// or served a login wall instead of content.
type AuthRequiredError struct {
	Reason string
	URL    string
}

func (e *AuthRequiredError) Error() string {
	return fmt.Sprintf("authentication required (%s) at %s", e.Reason, e.URL)
}

// HTTPStatusError is returned for non-2xx responses that are not auth challenges
type HTTPStatusError struct {
	StatusCode int
	URL        string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.StatusCode, e.URL)
}

// ErrorKind names the class of a scrape failure for the source status line
func ErrorKind(err error) string {
	var (
		statusErr *HTTPStatusError
		authErr   *AuthRequiredError
		netErr    net.Error
		urlErr    *url.Error
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.As(err, &authErr):
		return "auth_required"
	case errors.As(err, &statusErr):
		return fmt.Sprintf("http_%d", statusErr.StatusCode)
	case errors.As(err, &netErr) && netErr.Timeout():
		return "timeout"
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr):
		return "decode"
	case errors.Is(err, ErrParse):
		return "parse"
	case errors.As(err, &urlErr):
		return "network"
	default:
		return "internal"
	}
}

// applyAuth decorates a request with the source's configured credentials
func applyAuth(req *http.Request, cfg models.SourceConfig) {
	if !cfg.AuthRequired {
		return
	}
	switch cfg.AuthType {
	case models.AuthTypeBasic:
		req.SetBasicAuth(cfg.Username, cfg.Password)
	case models.AuthTypeCookie:
		if cfg.Cookie != "" {
			req.Header.Set("Cookie", cfg.Cookie)
		}
	case models.AuthTypeHeader:
		if cfg.HeaderName != "" {
			req.Header.Set(cfg.HeaderName, cfg.HeaderValue)
		}
	}
}

type response struct {
	statusCode int
	finalURL   string
	body       []byte
}

// get performs a GET with the scraper's user agent. A nil auth config sends
// the request anonymously. Auth challenges come back as AuthRequiredError,
// other non-2xx responses as HTTPStatusError.
func (s *Scraper) get(ctx context.Context, target, accept string, auth *models.SourceConfig) (*response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", s.config.UserAgent)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	if auth != nil {
		applyAuth(req, *auth)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	finalURL := target
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, &AuthRequiredError{Reason: fmt.Sprintf("http_%d", resp.StatusCode), URL: finalURL}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPStatusError{StatusCode: resp.StatusCode, URL: finalURL}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	return &response{statusCode: resp.StatusCode, finalURL: finalURL, body: body}, nil
}
