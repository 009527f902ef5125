package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"taskflow/internal/model"
	"taskflow/internal/service"
	"taskflow/internal/store"
)

func newDigestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "digest",
		Short: "Print today's summary: overdue, due today, in progress and important tasks",
		Args:  cobra.NoArgs,
		RunE:  runDigest,
	}
}

func runDigest(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(ctx context.Context, a *app, sess *store.Session) error {
		d := service.NewDigestService(time.Local).Collect(sess.Tasks.Tasks(), time.Now())
		out := cmd.OutOrStdout()
		if d.Empty() {
			fmt.Fprintln(out, "Nothing pending today.")
			return nil
		}
		section := func(title string, tasks []model.Task) {
			if len(tasks) == 0 {
				return
			}
			fmt.Fprintf(out, "== %s (%d)\n", title, len(tasks))
			for _, t := range tasks {
				fmt.Fprintln(out, "  "+taskLine(t))
			}
		}
		section("overdue", d.Overdue)
		section("due today", d.DueToday)
		section("in progress", d.InProgress)
		section("important", d.Important)
		return nil
	})
}
