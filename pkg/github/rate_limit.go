package github

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	rblog "github.com/holon-run/reportbot/pkg/log"
)

const (
	// Default primary rate limit for authenticated requests
	defaultRateLimit = 5000
)

// RateLimitStatus represents the current rate limit status
type RateLimitStatus struct {
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	Reset     time.Time `json:"reset"`
	Used      int       `json:"used"`
}

// RateLimitTracker tracks rate limit information from GitHub API responses
type RateLimitTracker struct {
	mu    sync.RWMutex
	limit RateLimitStatus
	seen  bool
}

// NewRateLimitTracker creates a new rate limit tracker
func NewRateLimitTracker() *RateLimitTracker {
	return &RateLimitTracker{
		limit: RateLimitStatus{
			Limit: defaultRateLimit,
		},
	}
}

// Update updates the rate limit status from HTTP response headers.
// Responses without rate limit headers leave the status untouched.
func (r *RateLimitTracker) Update(resp *http.Response) {
	if resp == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if limit := resp.Header.Get("X-RateLimit-Limit"); limit != "" {
		if val, err := strconv.Atoi(limit); err == nil {
			r.limit.Limit = val
			r.seen = true
		}
	}

	if remaining := resp.Header.Get("X-RateLimit-Remaining"); remaining != "" {
		if val, err := strconv.Atoi(remaining); err == nil {
			r.limit.Remaining = val
			r.seen = true
		}
	}

	if reset := resp.Header.Get("X-RateLimit-Reset"); reset != "" {
		if val, err := strconv.ParseInt(reset, 10, 64); err == nil {
			r.limit.Reset = time.Unix(val, 0)
		}
	}

	if used := resp.Header.Get("X-RateLimit-Used"); used != "" {
		if val, err := strconv.Atoi(used); err == nil {
			r.limit.Used = val
		}
	}
}

// GetStatus returns a copy of the current rate limit status
func (r *RateLimitTracker) GetStatus() RateLimitStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.limit
}

// Observed reports whether any response carried rate limit headers.
func (r *RateLimitTracker) Observed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.seen
}

// trackingTransport feeds every response through a RateLimitTracker.
type trackingTransport struct {
	base    http.RoundTripper
	tracker *RateLimitTracker
}

func (t *trackingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if resp != nil {
		t.tracker.Update(resp)
		status := t.tracker.GetStatus()
		rblog.Debug("github api response",
			"method", req.Method,
			"path", req.URL.Path,
			"status", resp.StatusCode,
			"rate_remaining", status.Remaining,
		)
	}
	return resp, err
}
