package main

import (
	"github.com/spf13/cobra"

	"github.com/holon-run/reportbot/pkg/publisher"
)

func newPublishCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Post the pull request comment, then create the check run",
		Long: `Run both publishing flows with one report body: the pull request
comment first, then the status check. A failure in the first flow does not
stop the second; the command fails if either did.`,
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

			result := publisher.Result{Success: true}
			comment, _ := inv.pub.PublishComment(ctx, inv.exec, body, a.cfg.UpdateCommentIfOneExists)
			result.Merge(comment)
			check, _ := inv.pub.PublishStatusCheck(ctx, inv.exec, a.cfg.Metadata, body, conclusion)
			result.Merge(check)

			summarize(inv.stdout, result)
			return inv.finish(result)
		},
	}

	addBodyFlags(cmd.Flags())
	addCheckFlags(cmd.Flags())
	addCommentFlags(cmd.Flags())
	return cmd
}
