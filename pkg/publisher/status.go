package publisher

import (
	"context"
	"fmt"
	"net/http"
	"time"

	gh "github.com/google/go-github/v68/github"

	"github.com/holon-run/reportbot/pkg/actions"
)

const checkStatusCompleted = "completed"

// FormatCheckTime renders t the way the check run summary shows it:
// RFC 1123 in UTC with a GMT zone, e.g. "Mon, 02 Jan 2006 15:04:05 GMT".
func FormatCheckTime(t time.Time) string {
	return t.UTC().Format(http.TimeFormat)
}

// PublishStatusCheck creates one completed check run carrying the report.
// For pull_request events the check targets the pull request head commit;
// for every other event it targets the event commit. Each call creates a
// new check run.
//
// Failures never panic out; they are returned as a *PublishError next to
// an unsuccessful Result.
func (p *Publisher) PublishStatusCheck(ctx context.Context, exec *actions.ExecutionContext, meta ReportMetadata, body string, conclusion Conclusion) (result Result, err error) {
	defer p.recoverInto(OpCreateCheckRun, &result, &err)

	log := p.log()
	log.Infof("Creating status check for %s...", meta.Title)

	sha := exec.CommitSHA()
	if sha == "" {
		err = &PublishError{Op: OpCreateCheckRun, Err: errNoCommitSHA}
		p.fail(&result, OpCreateCheckRun, err)
		return result, err
	}
	log.Infof("Creating status check for GitSha: %s on a %s event.", sha, exec.EventName)

	checkTime := FormatCheckTime(p.now())
	log.Infof("Check time is: %s", checkTime)

	opts := gh.CreateCheckRunOptions{
		Name:       meta.CheckRunName(),
		HeadSHA:    sha,
		Status:     gh.Ptr(checkStatusCompleted),
		Conclusion: gh.Ptr(string(conclusion)),
		Output: &gh.CheckRunOutput{
			Title:   gh.Ptr(meta.Title),
			Summary: gh.Ptr(fmt.Sprintf("This test run completed at `%s`", checkTime)),
			Text:    gh.Ptr(body),
		},
	}

	run, resp, callErr := p.checks.CreateCheckRun(ctx, exec.RepoOwner, exec.RepoName, opts)
	code, err := checkStatus(OpCreateCheckRun, http.StatusCreated, resp, callErr)
	if err != nil {
		// Transport failures surface the client's own message.
		if pe, ok := err.(*PublishError); ok && pe.StatusCode == 0 && callErr != nil {
			pe.Bare = true
		}
		p.fail(&result, OpCreateCheckRun, err)
		return result, err
	}

	log.Infof("Created check: %s with response status %d", run.GetName(), code)

	result.Success = true
	result.Actions = append(result.Actions, Action{
		Type:        ActionCreatedCheckRun,
		Description: fmt.Sprintf("Created check run %q on %s", run.GetName(), sha),
		Metadata: map[string]string{
			"name":         run.GetName(),
			"check_run_id": fmt.Sprintf("%d", run.GetID()),
			"head_sha":     sha,
		},
	})
	return result, nil
}
