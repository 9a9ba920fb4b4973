// Package publisher publishes pre-rendered test reports to GitHub as a
// check run and as a pull request comment.
//
// Comment create-or-update is a read-then-write sequence against the issue
// comments API. Two runs racing on the same pull request can both miss the
// other's comment and each create one; GitHub offers no conditional write
// to prevent that.
package publisher

import (
	"context"
	"fmt"
	"time"

	gh "github.com/google/go-github/v68/github"
	"go.uber.org/zap"

	ghclient "github.com/holon-run/reportbot/pkg/github"
	rblog "github.com/holon-run/reportbot/pkg/log"
)

const defaultPerPage = 100

// ChecksAPI is the part of the checks API the status publisher uses.
// *github.ChecksService satisfies it.
type ChecksAPI interface {
	CreateCheckRun(ctx context.Context, owner, repo string, opts gh.CreateCheckRunOptions) (*gh.CheckRun, *gh.Response, error)
}

// IssuesAPI is the part of the issues API the comment publisher uses.
// *github.IssuesService satisfies it.
type IssuesAPI interface {
	CreateComment(ctx context.Context, owner, repo string, number int, comment *gh.IssueComment) (*gh.IssueComment, *gh.Response, error)
	ListComments(ctx context.Context, owner, repo string, number int, opts *gh.IssueListCommentsOptions) ([]*gh.IssueComment, *gh.Response, error)
	EditComment(ctx context.Context, owner, repo string, commentID int64, comment *gh.IssueComment) (*gh.IssueComment, *gh.Response, error)
}

// Publisher publishes reports through the GitHub API.
type Publisher struct {
	checks ChecksAPI
	issues IssuesAPI

	now      func() time.Time
	logger   *zap.SugaredLogger
	perPage  int
	allPages bool
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithClock overrides the time source used for the check run summary.
func WithClock(now func() time.Time) Option {
	return func(p *Publisher) {
		p.now = now
	}
}

// WithLogger sets the logger. Defaults to the global logger.
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithListOptions controls how existing comments are listed: the page
// size, and whether to follow every page or read only the first one.
func WithListOptions(perPage int, allPages bool) Option {
	return func(p *Publisher) {
		if perPage > 0 {
			p.perPage = perPage
		}
		p.allPages = allPages
	}
}

// New creates a Publisher over the given API surfaces.
func New(checks ChecksAPI, issues IssuesAPI, opts ...Option) *Publisher {
	p := &Publisher{
		checks:   checks,
		issues:   issues,
		now:      time.Now,
		perPage:  defaultPerPage,
		allPages: true,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewFromClient creates a Publisher backed by a pkg/github client.
func NewFromClient(client *ghclient.Client, opts ...Option) *Publisher {
	c := client.GitHubClient()
	return New(c.Checks, c.Issues, opts...)
}

func (p *Publisher) log() *zap.SugaredLogger {
	if p.logger != nil {
		return p.logger
	}
	return rblog.Get()
}

// fail records err on result and logs it.
func (p *Publisher) fail(result *Result, action string, err error) {
	result.Success = false
	result.Errors = append(result.Errors, NewErrorWithAction(err.Error(), action))
	p.log().Errorw(err.Error(), "action", action)
}

// recoverInto converts a panic in a publish flow into a failed result so
// nothing escapes the public entry points.
func (p *Publisher) recoverInto(op string, result *Result, err *error) {
	r := recover()
	if r == nil {
		return
	}
	pe := &PublishError{Op: op, Err: fmt.Errorf("panic: %v", r)}
	*err = pe
	p.fail(result, op, pe)
}
