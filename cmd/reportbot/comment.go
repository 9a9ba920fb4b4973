package main

import (
	"github.com/spf13/cobra"
)

func newCommentCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "comment",
		Short: "Post the report as a pull request comment",
		Long: `Post the report as a comment on the triggering pull request.

With --update-comment-if-one-exists the body is prefixed with a hidden
marker, and a comment that already starts with the same marked report is
edited instead of adding another one.

Events other than pull_request are skipped and exit successfully.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := readBody(a.cfg.BodyFile, cmd.InOrStdin())
			if err != nil {
				return err
			}

			inv, err := newInvocation(cmd, a, true)
			if err != nil {
				return err
			}
			ctx, cancel := inv.withTimeout(cmd.Context())
			defer cancel()

			result, _ := inv.pub.PublishComment(ctx, inv.exec, body, a.cfg.UpdateCommentIfOneExists)
			summarize(inv.stdout, result)
			return inv.finish(result)
		},
	}

	addBodyFlags(cmd.Flags())
	addCommentFlags(cmd.Flags())
	return cmd
}
