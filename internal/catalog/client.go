// Package catalog implements lookups against public bibliographic catalogs.
//
// Each client is rate limited and applies a per-request timeout. Lookup
// methods return (nil, nil) when a catalog has no record for a query.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultTimeout bounds a single catalog request.
	DefaultTimeout = 10 * time.Second

	// DefaultRateLimit is the default requests per second for one client.
	DefaultRateLimit = 5.0

	// DefaultUserAgent identifies bibcheck to catalog operators.
	DefaultUserAgent = "bibcheck/1.0 (+https://github.com/matsen/bibcheck)"

	// DefaultRows is how many hits a search asks for. Only the best is used.
	DefaultRows = 3

	// maxBodyBytes caps how much of a response body is read.
	maxBodyBytes = 8 << 20
)

// client holds the transport shared by every catalog.
type client struct {
	name       string
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	userAgent  string
	mailto     string
	timeout    time.Duration
}

// Option configures a catalog client.
type Option func(*client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) {
		c.httpClient = hc
	}
}

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) Option {
	return func(c *client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithRateLimit sets the sustained request rate in requests per second.
// A non-positive value disables limiting.
func WithRateLimit(rps float64) Option {
	return func(c *client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithLimiter shares a limiter between several clients.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *client) {
		if l != nil {
			c.limiter = l
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithMailto sets the contact address sent to catalogs with a polite pool
// (CrossRef, OpenAlex).
func WithMailto(addr string) Option {
	return func(c *client) {
		c.mailto = addr
	}
}

func newClient(name, baseURL string, timeout time.Duration, opts []Option) client {
	c := client{
		name:       name,
		httpClient: &http.Client{Timeout: time.Minute},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), 1),
		baseURL:    baseURL,
		userAgent:  DefaultUserAgent,
		timeout:    timeout,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// checkHTTPErrors returns an error if the HTTP response indicates a problem.
func (c *client) checkHTTPErrors(resp *http.Response) error {
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s status %d", ErrNotFound, c.name, resp.StatusCode)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %s status %d", ErrRateLimited, c.name, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		msg := strings.TrimSpace(string(snippet))
		if msg == "" {
			msg = fmt.Sprintf("HTTP %d", resp.StatusCode)
		}
		return &APIError{
			Provider:   c.name,
			StatusCode: resp.StatusCode,
			Message:    msg,
		}
	}
	return nil
}

// get performs a rate-limited GET of path relative to the base URL.
func (c *client) get(ctx context.Context, path string, query url.Values, accept string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	defer resp.Body.Close()

	if err := c.checkHTTPErrors(resp); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", ErrNetworkError, err)
	}
	return body, nil
}

// getJSON performs a GET and decodes the JSON body into v.
func (c *client) getJSON(ctx context.Context, path string, query url.Values, v any) error {
	body, err := c.get(ctx, path, query, "application/json")
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: parsing %s response: %v", ErrInvalidResponse, c.name, err)
	}
	return nil
}
