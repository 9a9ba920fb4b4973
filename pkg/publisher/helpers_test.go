package publisher

import (
	"context"
	"errors"
	"time"

	gh "github.com/google/go-github/v68/github"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/holon-run/reportbot/pkg/actions"
)

// fixedNow is Tue, 05 Mar 2024 13:07:09 GMT expressed in a non-UTC zone.
var fixedNow = time.Date(2024, 3, 5, 14, 7, 9, 0, time.FixedZone("CET", 3600))

func pullRequestContext() *actions.ExecutionContext {
	return &actions.ExecutionContext{
		EventName: actions.EventPullRequest,
		RepoOwner: "octo",
		RepoName:  "repo",
		SHA:       "merge-sha",
		PullRequest: &actions.PullRequestRef{
			Number:  7,
			HeadSHA: "head-sha",
		},
	}
}

func pushContext() *actions.ExecutionContext {
	return &actions.ExecutionContext{
		EventName: "push",
		RepoOwner: "octo",
		RepoName:  "repo",
		SHA:       "push-sha",
	}
}

// observedLogger returns a logger that records every entry.
func observedLogger() (*zap.SugaredLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core).Sugar(), logs
}

func messages(logs *observer.ObservedLogs) []string {
	var out []string
	for _, entry := range logs.All() {
		out = append(out, entry.Message)
	}
	return out
}

// fakeChecks is a ChecksAPI whose behavior is set per test.
type fakeChecks struct {
	create func(opts gh.CreateCheckRunOptions) (*gh.CheckRun, *gh.Response, error)
}

func (f *fakeChecks) CreateCheckRun(_ context.Context, _, _ string, opts gh.CreateCheckRunOptions) (*gh.CheckRun, *gh.Response, error) {
	return f.create(opts)
}

// fakeIssues is an IssuesAPI that fails every call with err, or panics
// when panicValue is set.
type fakeIssues struct {
	err        error
	panicValue interface{}
}

func (f *fakeIssues) fail() error {
	if f.panicValue != nil {
		panic(f.panicValue)
	}
	return f.err
}

func (f *fakeIssues) CreateComment(context.Context, string, string, int, *gh.IssueComment) (*gh.IssueComment, *gh.Response, error) {
	return nil, nil, f.fail()
}

func (f *fakeIssues) ListComments(context.Context, string, string, int, *gh.IssueListCommentsOptions) ([]*gh.IssueComment, *gh.Response, error) {
	return nil, nil, f.fail()
}

func (f *fakeIssues) EditComment(context.Context, string, string, int64, *gh.IssueComment) (*gh.IssueComment, *gh.Response, error) {
	return nil, nil, f.fail()
}

var errConnRefused = errors.New("dial tcp 127.0.0.1:443: connect: connection refused")
