// Package actions resolves the GitHub Actions execution context and speaks
// the runner's workflow command and output file protocols.
package actions

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	gh "github.com/google/go-github/v68/github"

	ghclient "github.com/holon-run/reportbot/pkg/github"
)

// EventPullRequest is the event name of pull request triggers.
const EventPullRequest = "pull_request"

// Environment variables set by the Actions runner.
const (
	EnvEventName  = "GITHUB_EVENT_NAME"
	EnvEventPath  = "GITHUB_EVENT_PATH"
	EnvRepository = "GITHUB_REPOSITORY"
	EnvSHA        = "GITHUB_SHA"
	EnvAPIURL     = "GITHUB_API_URL"
	EnvOutput     = "GITHUB_OUTPUT"
	EnvActions    = "GITHUB_ACTIONS"
)

// Running reports whether the process runs inside a GitHub Actions job.
func Running() bool {
	return os.Getenv(EnvActions) == "true"
}

// ErrNoRepository is returned when GITHUB_REPOSITORY is missing or malformed.
var ErrNoRepository = errors.New("GITHUB_REPOSITORY must be set to owner/name")

// PullRequestRef is the pull request that triggered the run.
type PullRequestRef struct {
	Number  int
	HeadSHA string
}

// ExecutionContext describes one invocation. It is built once and passed
// explicitly to every publisher.
type ExecutionContext struct {
	EventName   string
	RepoOwner   string
	RepoName    string
	SHA         string
	PullRequest *PullRequestRef
}

// IsPullRequest reports whether the run was triggered by a pull_request event.
func (c *ExecutionContext) IsPullRequest() bool {
	return c.EventName == EventPullRequest
}

// CommitSHA returns the commit a check run should target: the pull request
// head for pull_request events, the event SHA otherwise.
func (c *ExecutionContext) CommitSHA() string {
	if c.IsPullRequest() {
		if c.PullRequest == nil {
			return ""
		}
		return c.PullRequest.HeadSHA
	}
	return c.SHA
}

// PullRequestNumber returns the triggering pull request number, or 0.
func (c *ExecutionContext) PullRequestNumber() int {
	if c.PullRequest == nil {
		return 0
	}
	return c.PullRequest.Number
}

// Repository returns owner/name.
func (c *ExecutionContext) Repository() string {
	return c.RepoOwner + "/" + c.RepoName
}

// eventPayload is the subset of the webhook payload at GITHUB_EVENT_PATH we read.
type eventPayload struct {
	Number      int             `json:"number"`
	PullRequest *gh.PullRequest `json:"pull_request"`
	Issue       *gh.Issue       `json:"issue"`
}

// FromEnv builds an ExecutionContext from the Actions runner environment.
func FromEnv() (*ExecutionContext, error) {
	ctx := &ExecutionContext{
		EventName: os.Getenv(EnvEventName),
		SHA:       os.Getenv(EnvSHA),
	}

	owner, name, err := splitRepository(os.Getenv(EnvRepository))
	if err != nil {
		return nil, err
	}
	ctx.RepoOwner = owner
	ctx.RepoName = name

	path := os.Getenv(EnvEventPath)
	if path == "" {
		if ctx.IsPullRequest() {
			return nil, fmt.Errorf("%s is required for %s events", EnvEventPath, EventPullRequest)
		}
		return ctx, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read event payload: %w", err)
	}
	pr, err := parseEventPayload(data)
	if err != nil {
		return nil, err
	}
	ctx.PullRequest = pr

	if ctx.IsPullRequest() && (pr == nil || pr.Number == 0) {
		return nil, fmt.Errorf("event payload at %s has no pull_request number", path)
	}

	return ctx, nil
}

// parseEventPayload extracts the pull request (or issue) number and head
// SHA from a webhook payload. It returns nil when the payload carries neither.
func parseEventPayload(data []byte) (*PullRequestRef, error) {
	var payload eventPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse event payload: %w", err)
	}

	ref := &PullRequestRef{}
	switch {
	case payload.Issue != nil && payload.Issue.GetNumber() != 0:
		ref.Number = payload.Issue.GetNumber()
	case payload.PullRequest != nil && payload.PullRequest.GetNumber() != 0:
		ref.Number = payload.PullRequest.GetNumber()
	default:
		ref.Number = payload.Number
	}
	if payload.PullRequest != nil {
		ref.HeadSHA = payload.PullRequest.GetHead().GetSHA()
	}

	if ref.Number == 0 && ref.HeadSHA == "" {
		return nil, nil
	}
	return ref, nil
}

// ApplyTarget points the context at an explicit pull request, for runs
// outside Actions. The event becomes pull_request.
func (c *ExecutionContext) ApplyTarget(ref *ghclient.Ref, headSHA string) {
	c.EventName = EventPullRequest
	c.RepoOwner = ref.Owner
	c.RepoName = ref.Repo
	if c.PullRequest == nil {
		c.PullRequest = &PullRequestRef{}
	}
	c.PullRequest.Number = ref.Number
	if headSHA != "" {
		c.PullRequest.HeadSHA = headSHA
	}
}

// Validate checks the fields every publisher needs.
func (c *ExecutionContext) Validate() error {
	if c.RepoOwner == "" || c.RepoName == "" {
		return ErrNoRepository
	}
	if c.IsPullRequest() && c.PullRequestNumber() == 0 {
		return fmt.Errorf("%s event without a pull request number", EventPullRequest)
	}
	return nil
}

func splitRepository(repository string) (string, string, error) {
	parts := strings.SplitN(strings.TrimSpace(repository), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", ErrNoRepository
	}
	return parts[0], parts[1], nil
}

// Resolve returns the context from the environment, or, when target is set,
// a pull_request context for that reference. headSHA overrides the commit
// CommitSHA reports in both cases.
func Resolve(target, headSHA string) (*ExecutionContext, error) {
	if target == "" {
		ctx, err := FromEnv()
		if err != nil {
			return nil, err
		}
		switch {
		case headSHA == "":
		case ctx.IsPullRequest():
			ctx.PullRequest.HeadSHA = headSHA
		default:
			ctx.SHA = headSHA
		}
		return ctx, ctx.Validate()
	}

	ref, err := ghclient.ParseRef(target)
	if err != nil {
		return nil, err
	}
	ctx := &ExecutionContext{SHA: os.Getenv(EnvSHA)}
	ctx.ApplyTarget(ref, headSHA)
	return ctx, ctx.Validate()
}
