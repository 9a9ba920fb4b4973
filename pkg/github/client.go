// Package github builds the authenticated GitHub REST client used by the
// publishers and classifies the errors it returns.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"
	gh "github.com/google/go-github/v68/github"
	"github.com/gregjones/httpcache"
	"github.com/gregjones/httpcache/diskcache"
	"golang.org/x/oauth2"
)

const (
	// DefaultBaseURL is the public GitHub REST endpoint.
	DefaultBaseURL = "https://api.github.com"

	defaultTimeout = 30 * time.Second
)

// ErrMissingToken is returned when no token is supplied.
var ErrMissingToken = errors.New("a GitHub token is required")

// Client wraps a go-github client with the transport stack reportbot needs.
type Client struct {
	gh         *gh.Client
	baseURL    string
	cacheDir   string
	timeout    time.Duration
	httpClient *http.Client
	rateLimit  *RateLimitTracker
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL points the client at a GitHub Enterprise or test server.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithCacheDir stores cached responses on disk under dir, so separate
// processes sharing dir revalidate each other's responses. An empty dir
// keeps the cache in memory.
func WithCacheDir(dir string) ClientOption {
	return func(c *Client) {
		c.cacheDir = dir
	}
}

// WithHTTPClient replaces the caching and rate-limit layers with the given
// client. Authentication and rate limit tracking are still layered on top.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a GitHub API client with the following transport stack:
//  1. httpcache (ETag-based conditional request caching, in memory or on disk)
//  2. revalidation (cached GETs are always checked with If-None-Match)
//  3. go-github-ratelimit (secondary rate limit middleware, sleeps on 429)
//  4. rate limit tracking (records X-RateLimit-* headers)
//  5. oauth2 static token source
//
// A 304 answer does not count against the primary rate limit.
func NewClient(token string, opts ...ClientOption) (*Client, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrMissingToken
	}

	c := &Client{
		baseURL:   DefaultBaseURL,
		timeout:   defaultTimeout,
		rateLimit: NewRateLimitTracker(),
	}
	for _, opt := range opts {
		opt(c)
	}

	base := c.httpClient
	if base == nil {
		base = github_ratelimit.NewClient(&revalidatingTransport{base: c.cacheTransport()})
	}
	baseTransport := base.Transport
	if baseTransport == nil {
		baseTransport = http.DefaultTransport
	}

	tracked := &http.Client{
		Transport: &trackingTransport{base: baseTransport, tracker: c.rateLimit},
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	tc := oauth2.NewClient(context.WithValue(context.Background(), oauth2.HTTPClient, tracked), ts)
	tc.Timeout = c.timeout

	client := gh.NewClient(tc)
	u, err := parseBaseURL(c.baseURL)
	if err != nil {
		return nil, err
	}
	client.BaseURL = u
	c.gh = client

	return c, nil
}

func (c *Client) cacheTransport() *httpcache.Transport {
	if c.cacheDir == "" {
		return httpcache.NewMemoryCacheTransport()
	}
	t := httpcache.NewTransport(diskcache.New(c.cacheDir))
	t.Transport = &varyFilterTransport{base: http.DefaultTransport}
	return t
}

// varyFilterTransport drops Authorization from the Vary header of
// responses. httpcache records the request value of every varied header
// next to the stored response, and the disk cache must not hold the token.
type varyFilterTransport struct {
	base http.RoundTripper
}

func (t *varyFilterTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil || resp.Header.Get("Vary") == "" {
		return resp, err
	}
	var kept []string
	for _, v := range resp.Header.Values("Vary") {
		for _, field := range strings.Split(v, ",") {
			field = strings.TrimSpace(field)
			if field != "" && !strings.EqualFold(field, "Authorization") {
				kept = append(kept, field)
			}
		}
	}
	resp.Header.Del("Vary")
	if len(kept) > 0 {
		resp.Header.Set("Vary", strings.Join(kept, ", "))
	}
	return resp, nil
}

// revalidatingTransport marks GETs with max-age=0. httpcache then never
// serves a stored response without asking the server, which keeps the
// comment list current across runs.
type revalidatingTransport struct {
	base http.RoundTripper
}

func (t *revalidatingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodGet {
		return t.base.RoundTrip(req)
	}
	req2 := req.Clone(req.Context())
	req2.Header.Set("Cache-Control", "max-age=0")
	return t.base.RoundTrip(req2)
}

// parseBaseURL parses an API root and guarantees the trailing slash go-github requires.
func parseBaseURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("parsing base URL: %q is not an absolute URL", raw)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u, nil
}

// GitHubClient returns the underlying go-github client.
func (c *Client) GitHubClient() *gh.Client {
	return c.gh
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string {
	return c.gh.BaseURL.String()
}

// RateLimit returns the most recent rate limit status seen on a response.
func (c *Client) RateLimit() RateLimitStatus {
	return c.rateLimit.GetStatus()
}

// RateLimitObserved reports whether any response carried rate limit headers.
func (c *Client) RateLimitObserved() bool {
	return c.rateLimit.Observed()
}
