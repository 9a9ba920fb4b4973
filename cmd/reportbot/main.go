// Command reportbot publishes a pre-rendered test report to GitHub as a
// check run and as a pull request comment.
package main

import (
	"errors"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/holon-run/reportbot/pkg/actions"
	rblog "github.com/holon-run/reportbot/pkg/log"
	"github.com/holon-run/reportbot/pkg/logs/redact"
)

// app holds state shared by the subcommands of one execution.
type app struct {
	cfg      *Config
	redactor *redact.Redactor
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "reportbot",
		Short: "Publish test reports to GitHub check runs and pull request comments",
		Long: `reportbot publishes a pre-rendered test report to GitHub.

It creates a completed check run carrying the report, and posts the report
as a pull request comment, optionally updating the comment a previous run
left for the same report.

Inside GitHub Actions the repository, event and commit are read from the
runner environment. Outside Actions, pass --target owner/repo#123.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if actions.Running() {
				actions.AddMask(cmd.OutOrStdout(), cfg.Token)
			}
			redactor := redact.FromEnv(cfg.Token)
			if err := rblog.Init(rblog.Config{
				Level:  rblog.LogLevel(cfg.LogLevel),
				Format: cfg.LogFmt,
				Output: cmd.OutOrStdout(),
				Redact: redactor.String,
			}); err != nil {
				return err
			}
			a.cfg = cfg
			a.redactor = redactor
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.String("log-level", string(rblog.LevelProgress), "Log level: debug, info, progress, minimal, warn, error")
	flags.String("log-format", rblog.FormatConsole, "Log format: console or json")
	flags.String("config", "", "Path to config file (default: ./.reportbot.yaml)")
	flags.String("result-file", "", "Write the publish result as JSON to this path")
	flags.String("target", "", "Pull request to publish to when running outside Actions (owner/repo#123)")
	flags.Duration("timeout", 2*time.Minute, "Overall timeout for GitHub API calls")
	flags.String("token", "", "GitHub token (default: $GITHUB_TOKEN)")
	flags.String("api-url", "", "GitHub API base URL (default: $GITHUB_API_URL or https://api.github.com)")
	flags.String("head-sha", "", "Override the commit the check run targets")
	flags.String("http-cache-dir", "", "Directory for cached GitHub responses, revalidated with ETags (default: $RUNNER_TEMP/reportbot-http-cache)")

	root.AddCommand(
		newStatusCheckCmd(a),
		newCommentCmd(a),
		newPublishCmd(a),
		newVersionCmd(),
	)
	return root
}

func addBodyFlags(fs *pflag.FlagSet) {
	fs.String("body-file", "", "Path to the report markup, or - to read stdin")
}

func addCheckFlags(fs *pflag.FlagSet) {
	fs.String("title", "", "Report title, used as the check run output title")
	fs.String("name", "", "Report name, used in the check run name")
	fs.String("metadata-file", "", "YAML or JSON file with the report title and name")
	fs.String("conclusion", "", "Check run conclusion: success, failure, neutral, cancelled, timed_out, action_required or skipped")
}

func addCommentFlags(fs *pflag.FlagSet) {
	fs.Bool("update-comment-if-one-exists", false, "Update the comment a previous run left for the same report instead of adding one")
	fs.Int("comments-per-page", 0, "Page size when listing existing comments (default 100)")
	fs.Bool("comments-single-page", false, "Only search the first page of existing comments")
}

// execute runs the CLI and returns the process exit code.
func execute(args []string, stdin io.Reader, stdout io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stdout)

	err := root.Execute()
	defer func() { _ = rblog.Sync() }()

	if err == nil {
		return 0
	}
	if !errors.Is(err, errPublishFailed) {
		reportSetupError(stdout, err)
	}
	return 1
}

func main() {
	os.Exit(execute(os.Args[1:], os.Stdin, os.Stdout))
}
