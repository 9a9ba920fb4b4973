package publisher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	gh "github.com/google/go-github/v68/github"

	"github.com/holon-run/reportbot/pkg/actions"
)

// ManagedBody returns the body of a managed comment: the sentinel, a
// newline, then the markup.
func ManagedBody(markup string) string {
	return Sentinel + "\n" + markup
}

// PublishComment posts the report on the triggering pull request. With
// updateIfExists it edits the managed comment whose body already starts
// with the same prefixed report instead of adding another one.
//
// Events other than pull_request are skipped without any API call and
// count as success.
func (p *Publisher) PublishComment(ctx context.Context, exec *actions.ExecutionContext, body string, updateIfExists bool) (result Result, err error) {
	defer p.recoverInto(OpPublishComment, &result, &err)

	if !exec.IsPullRequest() {
		p.log().Info("This event was not triggered by a pull_request.  No comment will be created.")
		result.Success = true
		result.Actions = append(result.Actions, Action{
			Type:        ActionSkippedComment,
			Description: fmt.Sprintf("Skipped PR comment on a %s event", exec.EventName),
		})
		return result, nil
	}

	var action Action
	if updateIfExists {
		action, err = p.createOrUpdateComment(ctx, exec, body)
	} else {
		action, err = p.createComment(ctx, exec, body)
	}
	if err != nil {
		var pe *PublishError
		if !errors.As(err, &pe) || pe.StatusCode == 0 {
			err = &PublishError{Op: OpPublishComment, Err: unwrapCause(err)}
		}
		p.fail(&result, OpPublishComment, err)
		return result, err
	}

	result.Success = true
	result.Actions = append(result.Actions, action)
	return result, nil
}

// unwrapCause strips a status-less *PublishError so the boundary message
// names the underlying failure once.
func unwrapCause(err error) error {
	var pe *PublishError
	if errors.As(err, &pe) && pe.StatusCode == 0 && pe.Err != nil {
		return pe.Err
	}
	return err
}

// createComment adds a new comment to the pull request with body verbatim.
func (p *Publisher) createComment(ctx context.Context, exec *actions.ExecutionContext, body string) (Action, error) {
	p.log().Info("Creating PR Comment...")

	comment, resp, callErr := p.issues.CreateComment(ctx, exec.RepoOwner, exec.RepoName, exec.PullRequestNumber(),
		&gh.IssueComment{Body: gh.Ptr(body)})
	code, err := checkStatus(OpCreateComment, http.StatusCreated, resp, callErr)
	if err != nil {
		return Action{}, err
	}

	p.log().Infof("Created PR comment: %d with response status %d", comment.GetID(), code)
	return Action{
		Type:        ActionCreatedComment,
		Description: fmt.Sprintf("Created comment on PR #%d", exec.PullRequestNumber()),
		Metadata: map[string]string{
			"comment_id": strconv.FormatInt(comment.GetID(), 10),
		},
	}, nil
}

// createOrUpdateComment edits the first listed comment that starts with
// the managed body, or creates one when none does.
func (p *Publisher) createOrUpdateComment(ctx context.Context, exec *actions.ExecutionContext, body string) (Action, error) {
	prefixed := ManagedBody(body)

	existing, err := p.findManagedComment(ctx, exec, prefixed)
	if err != nil {
		return Action{}, err
	}

	if existing == nil {
		return p.createComment(ctx, exec, prefixed)
	}

	p.log().Info("Updating PR Comment...")
	comment, resp, callErr := p.issues.EditComment(ctx, exec.RepoOwner, exec.RepoName, existing.GetID(),
		&gh.IssueComment{Body: gh.Ptr(prefixed)})
	code, err := checkStatus(OpUpdateComment, http.StatusOK, resp, callErr)
	if err != nil {
		return Action{}, err
	}

	p.log().Infof("Updated PR comment: %d with response status %d", comment.GetID(), code)
	return Action{
		Type:        ActionUpdatedComment,
		Description: fmt.Sprintf("Updated comment on PR #%d", exec.PullRequestNumber()),
		Metadata: map[string]string{
			"comment_id": strconv.FormatInt(comment.GetID(), 10),
		},
	}, nil
}

// findManagedComment lists the pull request comments in API order and
// returns the first whose body starts with prefixed. Any page answered
// with a status other than 200 aborts the search.
func (p *Publisher) findManagedComment(ctx context.Context, exec *actions.ExecutionContext, prefixed string) (*gh.IssueComment, error) {
	opts := &gh.IssueListCommentsOptions{
		ListOptions: gh.ListOptions{PerPage: p.perPage},
	}

	for {
		comments, resp, callErr := p.issues.ListComments(ctx, exec.RepoOwner, exec.RepoName, exec.PullRequestNumber(), opts)
		if _, err := checkStatus(OpListComments, http.StatusOK, resp, callErr); err != nil {
			return nil, err
		}

		for _, comment := range comments {
			if strings.HasPrefix(comment.GetBody(), prefixed) {
				return comment, nil
			}
		}

		if !p.allPages || resp == nil || resp.NextPage == 0 {
			return nil, nil
		}
		opts.Page = resp.NextPage
	}
}
