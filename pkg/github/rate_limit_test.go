package github

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// TestNewRateLimitTracker tests rate limit tracker initialization
func TestNewRateLimitTracker(t *testing.T) {
	tracker := NewRateLimitTracker()

	status := tracker.GetStatus()

	if status.Limit != defaultRateLimit {
		t.Errorf("Limit = %v, want %v", status.Limit, defaultRateLimit)
	}

	if status.Remaining != 0 {
		t.Errorf("Remaining = %v, want %v", status.Remaining, 0)
	}

	if tracker.Observed() {
		t.Error("Observed() = true before any response")
	}
}

// TestRateLimitTracker_Update tests updating rate limit from response headers
func TestRateLimitTracker_Update(t *testing.T) {
	tracker := NewRateLimitTracker()

	h := make(http.Header)
	h.Add("X-RateLimit-Limit", "5000")
	h.Add("X-RateLimit-Remaining", "4999")
	h.Add("X-RateLimit-Used", "1")
	h.Add("X-RateLimit-Reset", "1234567890")

	tracker.Update(&http.Response{Header: h})

	status := tracker.GetStatus()

	if status.Limit != 5000 {
		t.Errorf("Limit = %v, want %v", status.Limit, 5000)
	}

	if status.Remaining != 4999 {
		t.Errorf("Remaining = %v, want %v", status.Remaining, 4999)
	}

	if status.Used != 1 {
		t.Errorf("Used = %v, want %v", status.Used, 1)
	}

	expectedReset := time.Unix(1234567890, 0)
	if !status.Reset.Equal(expectedReset) {
		t.Errorf("Reset = %v, want %v", status.Reset, expectedReset)
	}

	if !tracker.Observed() {
		t.Error("Observed() = false after update with headers")
	}
}

// TestRateLimitTracker_UpdateIgnoresMalformedHeaders keeps previous values
func TestRateLimitTracker_UpdateIgnoresMalformedHeaders(t *testing.T) {
	tracker := NewRateLimitTracker()

	h := make(http.Header)
	h.Add("X-RateLimit-Remaining", "42")
	tracker.Update(&http.Response{Header: h})

	h = make(http.Header)
	h.Add("X-RateLimit-Remaining", "lots")
	h.Add("X-RateLimit-Limit", "")
	tracker.Update(&http.Response{Header: h})
	tracker.Update(nil)

	status := tracker.GetStatus()
	if status.Remaining != 42 {
		t.Errorf("Remaining = %v, want 42", status.Remaining)
	}
	if status.Limit != defaultRateLimit {
		t.Errorf("Limit = %v, want %v", status.Limit, defaultRateLimit)
	}
}

// TestTrackingTransport tests that responses flow through the tracker
func TestTrackingTransport(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-RateLimit-Limit", "1000")
		w.Header().Set("X-RateLimit-Remaining", "998")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	tracker := NewRateLimitTracker()
	client := &http.Client{Transport: &trackingTransport{base: http.DefaultTransport, tracker: tracker}}

	resp, err := client.Get(server.URL + "/rate_limit")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	resp.Body.Close()

	status := tracker.GetStatus()
	if status.Limit != 1000 || status.Remaining != 998 {
		t.Errorf("status = %+v, want limit 1000 remaining 998", status)
	}
}
