package main

import (
	"github.com/spf13/cobra"
)

func newStatusCheckCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status-check",
		Short: "Create a completed check run carrying the report",
		Long: `Create one completed check run named "status check - <name>".

On pull_request events the check targets the pull request head commit;
on every other event it targets the event commit. Every run creates a new
check run.

Examples:
  reportbot status-check --title "Unit Tests" --name UnitTests \
    --conclusion success --body-file report.md
  reportbot status-check --metadata-file report.json --conclusion failure --body-file -`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conclusion, err := a.cfg.validateCheck()
			if err != nil {
				return err
			}
			body, err := readBody(a.cfg.BodyFile, cmd.InOrStdin())
			if err != nil {
				return err
			}

			inv, err := newInvocation(cmd, a, false)
			if err != nil {
				return err
			}
			ctx, cancel := inv.withTimeout(cmd.Context())
			defer cancel()

			result, _ := inv.pub.PublishStatusCheck(ctx, inv.exec, a.cfg.Metadata, body, conclusion)
			summarize(inv.stdout, result)
			return inv.finish(result)
		},
	}

	addBodyFlags(cmd.Flags())
	addCheckFlags(cmd.Flags())
	return cmd
}
