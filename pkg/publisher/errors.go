package publisher

import (
	"errors"
	"fmt"
	"net/http"

	gh "github.com/google/go-github/v68/github"

	ghclient "github.com/holon-run/reportbot/pkg/github"
)

// Operations named in failure messages.
const (
	OpCreateCheckRun = "create status check"
	OpCreateComment  = "create PR comment"
	OpListComments   = "list PR comments"
	OpUpdateComment  = "update PR comment"
	OpPublishComment = "create the PR comment"
)

var errNoCommitSHA = errors.New("no commit SHA available for this event")

// PublishError describes a failed publish step. StatusCode is set when the
// API answered with an unexpected status; otherwise Err holds the cause.
type PublishError struct {
	Op         string
	StatusCode int
	Err        error

	// Bare reports the cause's message alone, without naming Op.
	Bare bool
}

func (e *PublishError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("Failed to %s. Error code: %d", e.Op, e.StatusCode)
	}
	if e.Bare && e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("An error occurred trying to %s: %v", e.Op, e.Err)
}

func (e *PublishError) Unwrap() error {
	return e.Err
}

// responseStatus returns the status code of a call: from the API error if
// there was one, otherwise from the response.
func responseStatus(resp *gh.Response, err error) int {
	if code := ghclient.StatusCode(err); code != 0 {
		return code
	}
	if resp != nil && resp.Response != nil {
		return resp.StatusCode
	}
	return 0
}

// checkStatus turns a go-github call outcome into a *PublishError unless
// the call succeeded with exactly the expected status.
func checkStatus(op string, want int, resp *gh.Response, err error) (int, error) {
	code := responseStatus(resp, err)
	if err == nil && code == want {
		return code, nil
	}
	if code != 0 {
		return code, &PublishError{Op: op, StatusCode: code, Err: err}
	}
	if err == nil {
		err = fmt.Errorf("no response (expected %d %s)", want, http.StatusText(want))
	}
	return 0, &PublishError{Op: op, Err: err}
}
