package publisher

import (
	"fmt"
	"strings"
)

// Sentinel tags comments this tool owns so later runs can find and update
// them. It must stay byte-identical across releases.
const Sentinel = "<!-- im-open/process-dotnet-test-results -->"

// ReportMetadata names the report being published.
type ReportMetadata struct {
	Title string `json:"title" yaml:"title"`
	Name  string `json:"name" yaml:"name"`
}

// CheckRunName returns the check run name derived from the report name.
func (m ReportMetadata) CheckRunName() string {
	return "status check - " + strings.ToLower(m.Name)
}

// Validate checks that both fields are set.
func (m ReportMetadata) Validate() error {
	if strings.TrimSpace(m.Title) == "" {
		return fmt.Errorf("report title is required")
	}
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("report name is required")
	}
	return nil
}

// Conclusion is the terminal outcome of a check run, passed to GitHub as-is.
type Conclusion string

// Conclusions accepted by the check runs API.
const (
	ConclusionSuccess        Conclusion = "success"
	ConclusionFailure        Conclusion = "failure"
	ConclusionNeutral        Conclusion = "neutral"
	ConclusionCancelled      Conclusion = "cancelled"
	ConclusionTimedOut       Conclusion = "timed_out"
	ConclusionActionRequired Conclusion = "action_required"
	ConclusionSkipped        Conclusion = "skipped"
)

var conclusions = []Conclusion{
	ConclusionSuccess,
	ConclusionFailure,
	ConclusionNeutral,
	ConclusionCancelled,
	ConclusionTimedOut,
	ConclusionActionRequired,
	ConclusionSkipped,
}

// ParseConclusion validates s against the check runs API enumeration.
func ParseConclusion(s string) (Conclusion, error) {
	for _, c := range conclusions {
		if string(c) == s {
			return c, nil
		}
	}
	names := make([]string, len(conclusions))
	for i, c := range conclusions {
		names[i] = string(c)
	}
	return "", fmt.Errorf("invalid conclusion %q (expected one of: %s)", s, strings.Join(names, ", "))
}

// Action types recorded in a Result.
const (
	ActionCreatedCheckRun = "created_check_run"
	ActionCreatedComment  = "created_comment"
	ActionUpdatedComment  = "updated_comment"
	ActionSkippedComment  = "skipped_comment"
)

// Result is the outcome of a publish call.
type Result struct {
	Success bool     `json:"success"`
	Actions []Action `json:"actions"`
	Errors  []Error  `json:"errors,omitempty"`
}

// Action is one change made on GitHub.
type Action struct {
	Type        string            `json:"type"`
	Description string            `json:"description"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Error is a failure recorded in a Result.
type Error struct {
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
}

// NewError creates a result error without an associated action.
func NewError(message string) Error {
	return Error{Message: message}
}

// NewErrorWithAction creates a result error tied to the action that failed.
func NewErrorWithAction(message, action string) Error {
	return Error{Message: message, Action: action}
}

// Merge folds other into r. The merged result succeeds only if both did.
func (r *Result) Merge(other Result) {
	r.Actions = append(r.Actions, other.Actions...)
	r.Errors = append(r.Errors, other.Errors...)
	r.Success = r.Success && other.Success
}
