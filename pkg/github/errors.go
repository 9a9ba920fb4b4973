package github

import (
	"errors"
	"fmt"
	"net/http"

	gh "github.com/google/go-github/v68/github"
)

// APIError is a GitHub API failure reduced to what callers act on.
type APIError struct {
	StatusCode int
	Message    string
	Errors     []ErrorDetail
	RateLimit  *RateLimitInfo

	// DocumentationURL points at the GitHub docs for the failing endpoint.
	DocumentationURL string
}

// ErrorDetail is one entry of the "errors" array in a GitHub error body.
type ErrorDetail struct {
	Resource string `json:"resource"`
	Field    string `json:"field"`
	Code     string `json:"code"`
	Message  string `json:"message,omitempty"`
}

// RateLimitInfo carries the rate limit headers of a failed response.
type RateLimitInfo struct {
	Limit     int
	Remaining int
	Reset     int64
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("GitHub API error (status %d)", e.StatusCode)
	}
	return fmt.Sprintf("GitHub API error (status %d): %s", e.StatusCode, e.Message)
}

// IsRateLimitError reports whether err is a primary or secondary rate limit rejection.
func IsRateLimitError(err error) bool {
	apiErr := AsAPIError(err)
	if apiErr == nil {
		return false
	}
	if apiErr.StatusCode == http.StatusTooManyRequests {
		return true
	}
	return apiErr.StatusCode == http.StatusForbidden && apiErr.RateLimit != nil && apiErr.RateLimit.Remaining == 0
}

// IsNotFoundError reports whether err is a 404.
func IsNotFoundError(err error) bool {
	apiErr := AsAPIError(err)
	return apiErr != nil && apiErr.StatusCode == http.StatusNotFound
}

// IsAuthenticationError reports whether err is a 401, or a 403 that is not a rate limit.
func IsAuthenticationError(err error) bool {
	apiErr := AsAPIError(err)
	if apiErr == nil {
		return false
	}
	if apiErr.StatusCode == http.StatusUnauthorized {
		return true
	}
	return apiErr.StatusCode == http.StatusForbidden && !IsRateLimitError(apiErr)
}

// StatusCode extracts the HTTP status code carried by err, or 0 when err
// never reached the API (transport failures, cancelled contexts).
func StatusCode(err error) int {
	if apiErr := AsAPIError(err); apiErr != nil {
		return apiErr.StatusCode
	}
	return 0
}

// AsAPIError converts err into an *APIError. go-github error types are
// translated; anything else yields nil.
func AsAPIError(err error) *APIError {
	if err == nil {
		return nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var rateErr *gh.RateLimitError
	if errors.As(err, &rateErr) {
		out := &APIError{
			StatusCode: statusOf(rateErr.Response),
			Message:    rateErr.Message,
			RateLimit: &RateLimitInfo{
				Limit:     rateErr.Rate.Limit,
				Remaining: rateErr.Rate.Remaining,
				Reset:     rateErr.Rate.Reset.Unix(),
			},
		}
		return out
	}

	var abuseErr *gh.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return &APIError{
			StatusCode: statusOf(abuseErr.Response),
			Message:    abuseErr.Message,
		}
	}

	var respErr *gh.ErrorResponse
	if errors.As(err, &respErr) {
		out := &APIError{
			StatusCode:       statusOf(respErr.Response),
			Message:          respErr.Message,
			DocumentationURL: respErr.DocumentationURL,
		}
		for _, e := range respErr.Errors {
			out.Errors = append(out.Errors, ErrorDetail{
				Resource: e.Resource,
				Field:    e.Field,
				Code:     e.Code,
				Message:  e.Message,
			})
		}
		return out
	}

	return nil
}

func statusOf(resp *http.Response) int {
	if resp == nil {
		return 0
	}
	return resp.StatusCode
}
