package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/holon-run/reportbot/pkg/actions"
	ghclient "github.com/holon-run/reportbot/pkg/github"
	rblog "github.com/holon-run/reportbot/pkg/log"
	"github.com/holon-run/reportbot/pkg/logs/redact"
	"github.com/holon-run/reportbot/pkg/publisher"
)

// Step outputs written to $GITHUB_OUTPUT.
const (
	outputStatusCheckName = "status-check-name"
	outputPRCommentID     = "pr-comment-id"
)

// errPublishFailed is returned once a failure has been reported to the
// runner, so main only sets the exit code.
var errPublishFailed = errors.New("publish failed")

// invocation carries everything a command needs to publish.
type invocation struct {
	cfg      *Config
	exec     *actions.ExecutionContext
	pub      *publisher.Publisher
	redactor *redact.Redactor
	outputs  *actions.OutputWriter
	stdout   io.Writer
	stdin    io.Reader
}

// newInvocation resolves the execution context and the GitHub client.
// When skipWithoutPR is set and the event is not a pull request, no
// client is built and a missing token is not an error: the comment flow
// skips such events without calling the API.
func newInvocation(cmd *cobra.Command, a *app, skipWithoutPR bool) (*invocation, error) {
	cfg := a.cfg
	inv := &invocation{
		cfg:      cfg,
		redactor: a.redactor,
		outputs:  actions.OutputWriterFromEnv(),
		stdout:   cmd.OutOrStdout(),
		stdin:    cmd.InOrStdin(),
	}

	var err error
	inv.exec, err = actions.Resolve(cfg.Target, cfg.HeadSHA)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve execution context: %w", err)
	}

	opts := []publisher.Option{publisher.WithLogger(rblog.Get())}
	if cfg.CommentsPerPage > 0 || cfg.CommentsSinglePage {
		opts = append(opts, publisher.WithListOptions(cfg.CommentsPerPage, !cfg.CommentsSinglePage))
	}

	if skipWithoutPR && !inv.exec.IsPullRequest() {
		inv.pub = publisher.New(nil, nil, opts...)
		return inv, nil
	}
	if cfg.Token == "" {
		return nil, ghclient.ErrMissingToken
	}

	client, err := ghclient.NewClient(cfg.Token,
		ghclient.WithBaseURL(cfg.APIURL),
		ghclient.WithTimeout(cfg.Timeout),
		ghclient.WithCacheDir(cfg.CacheDir),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub client: %w", err)
	}
	inv.pub = publisher.NewFromClient(client, opts...)

	rblog.Debug("resolved execution context",
		"event", inv.exec.EventName,
		"repository", inv.exec.Repository(),
		"pr", inv.exec.PullRequestNumber(),
		"sha", inv.exec.CommitSHA(),
		"cache_dir", cfg.CacheDir,
	)
	return inv, nil
}

// withTimeout returns a context bounded by the configured timeout.
func (inv *invocation) withTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	if inv.cfg.Timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, inv.cfg.Timeout)
}

// finish writes step outputs and the result file, then reports failure
// to the runner. It returns errPublishFailed when the result failed.
func (inv *invocation) finish(result publisher.Result) error {
	inv.writeOutputs(result)

	if err := writeResultFile(inv.cfg.ResultFile, result, inv.redactor); err != nil {
		rblog.Warn("failed to write result file", "path", inv.cfg.ResultFile, "error", err)
	}

	if result.Success {
		return nil
	}
	for _, e := range result.Errors {
		actions.SetFailed(inv.stdout, inv.redactor.String(e.Message))
	}
	return errPublishFailed
}

func (inv *invocation) writeOutputs(result publisher.Result) {
	for _, action := range result.Actions {
		var err error
		switch action.Type {
		case publisher.ActionCreatedCheckRun:
			err = inv.outputs.WriteOutput(outputStatusCheckName, action.Metadata["name"])
		case publisher.ActionCreatedComment, publisher.ActionUpdatedComment:
			err = inv.outputs.WriteOutput(outputPRCommentID, action.Metadata["comment_id"])
		}
		if err != nil {
			rblog.Warn("failed to write step output", "type", action.Type, "error", err)
		}
	}
}

// writeResultFile writes result as indented JSON. An empty path is a no-op.
func writeResultFile(path string, result publisher.Result, redactor *redact.Redactor) error {
	if path == "" {
		return nil
	}
	if result.Actions == nil {
		result.Actions = []publisher.Action{}
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal publish result: %w", err)
	}
	if err := os.WriteFile(path, append(redactor.Bytes(data), '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write publish result: %w", err)
	}
	return nil
}

// reportSetupError surfaces an error raised before publishing started.
func reportSetupError(w io.Writer, err error) {
	redactor := redact.FromEnv(
		os.Getenv("REPORTBOT_TOKEN"),
		os.Getenv("INPUT_GITHUB-TOKEN"),
		os.Getenv("INPUT_GITHUB_TOKEN"),
		os.Getenv("GITHUB_TOKEN"),
	)
	msg := redactor.String(err.Error())
	rblog.Error(msg)
	actions.SetFailed(w, msg)
}

// summarize prints the actions taken, one per line.
func summarize(w io.Writer, result publisher.Result) {
	for i, action := range result.Actions {
		fmt.Fprintf(w, "  %d. %s: %s\n", i+1, action.Type, action.Description)
	}
}
