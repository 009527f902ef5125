package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"taskflow/internal/model"
	"taskflow/internal/prefs"
	"taskflow/internal/service"
	"taskflow/internal/store"
)

func newTasksCmd() *cobra.Command {
	tasksCmd := &cobra.Command{
		Use:   "tasks",
		Short: "List and change tasks",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Show tasks as a board, a calendar or a flat list",
		Args:  cobra.NoArgs,
		RunE:  runTasksList,
	}
	listCmd.Flags().String("view", "", "kanban, calendar or list (default: the saved preference)")

	addCmd := &cobra.Command{
		Use:   "add TITLE",
		Short: "Create a task",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runTasksAdd,
	}
	addCmd.Flags().String("desc", "", "Description")
	addCmd.Flags().String("due", "", "Due date: YYYY-MM-DD, DD/MM, hoje, amanhã")
	addCmd.Flags().String("priority", "", "Alta, Média or Baixa (default Média)")
	addCmd.Flags().String("category", "", "Category name")
	addCmd.Flags().String("status", "", "todo, in_progress or completed (default todo)")
	addCmd.Flags().Bool("important", false, "Mark as important")

	editCmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Change fields of a task",
		Args:  cobra.ExactArgs(1),
		RunE:  runTasksEdit,
	}
	editCmd.Flags().String("title", "", "New title")
	editCmd.Flags().String("desc", "", "New description")
	editCmd.Flags().String("due", "", "New due date")
	editCmd.Flags().Bool("clear-due", false, "Remove the due date")
	editCmd.Flags().String("priority", "", "New priority")
	editCmd.Flags().String("category", "", "New category name")
	editCmd.Flags().Bool("important", false, "Set the important flag (use --important=false to clear)")

	statusCmd := &cobra.Command{
		Use:   "status ID STATUS",
		Short: "Move a task to another column",
		Args:  cobra.ExactArgs(2),
		RunE:  runTasksStatus,
	}

	nextDayCmd := &cobra.Command{
		Use:   "next-day ID",
		Short: "Postpone a task to tomorrow and raise its priority",
		Args:  cobra.ExactArgs(1),
		RunE:  runTasksNextDay,
	}

	rmCmd := &cobra.Command{
		Use:   "rm ID",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE:  runTasksRemove,
	}

	tasksCmd.AddCommand(listCmd, addCmd, editCmd, statusCmd, nextDayCmd, rmCmd)
	return tasksCmd
}

func runTasksList(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(ctx context.Context, a *app, sess *store.Session) error {
		view, _ := cmd.Flags().GetString("view")
		if view == "" {
			view = string(savedView(a))
		}
		tasks := sess.Tasks.Tasks()
		out := cmd.OutOrStdout()
		if len(tasks) == 0 {
			fmt.Fprintln(out, "No tasks yet. Create one with: taskflow tasks add TITLE")
			return nil
		}
		switch model.View(view) {
		case model.ViewKanban:
			printKanban(out, tasks)
		case model.ViewCalendar:
			printCalendar(out, tasks)
		case model.ViewList:
			printTaskTable(out, tasks)
		default:
			return fmt.Errorf("unknown view %q", view)
		}
		return nil
	})
}

// savedView is the locally stored view, or the account default when the
// preferences file has never been written.
func savedView(a *app) model.View {
	if path, err := a.prefsPath(); err == nil {
		if p, err := prefs.Load(path); err == nil && p.SelectedView != "" {
			return p.SelectedView
		}
	}
	return model.ViewKanban
}

func runTasksAdd(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(ctx context.Context, a *app, sess *store.Session) error {
		in := model.TaskInput{Title: strings.Join(args, " ")}
		in.Description, _ = cmd.Flags().GetString("desc")
		in.Category, _ = cmd.Flags().GetString("category")
		in.Important, _ = cmd.Flags().GetBool("important")

		if raw, _ := cmd.Flags().GetString("due"); raw != "" {
			due, err := service.ParseDueDate(raw, time.Now())
			if err != nil {
				return err
			}
			in.DueDate = &due
		}
		if raw, _ := cmd.Flags().GetString("priority"); raw != "" {
			p, ok := service.ParsePriority(raw)
			if !ok {
				return fmt.Errorf("unknown priority %q", raw)
			}
			in.Priority = p
		}
		if raw, _ := cmd.Flags().GetString("status"); raw != "" {
			st, ok := model.ParseStatus(raw)
			if !ok {
				return fmt.Errorf("unknown status %q", raw)
			}
			in.Status = st
		}

		task, err := sess.Tasks.Create(ctx, in)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created %s  %s\n", shortID(task.ID), task.Title)
		return nil
	})
}

func runTasksEdit(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(ctx context.Context, a *app, sess *store.Session) error {
		task, err := resolveTask(sess, args[0])
		if err != nil {
			return err
		}

		var patch model.TaskPatch
		flags := cmd.Flags()
		if flags.Changed("title") {
			v, _ := flags.GetString("title")
			patch.Title = &v
		}
		if flags.Changed("desc") {
			v, _ := flags.GetString("desc")
			patch.Description = &v
		}
		if flags.Changed("category") {
			v, _ := flags.GetString("category")
			patch.Category = &v
		}
		if flags.Changed("important") {
			v, _ := flags.GetBool("important")
			patch.Important = &v
		}
		if flags.Changed("priority") {
			raw, _ := flags.GetString("priority")
			p, ok := service.ParsePriority(raw)
			if !ok {
				return fmt.Errorf("unknown priority %q", raw)
			}
			patch.Priority = &p
		}
		if clearDue, _ := flags.GetBool("clear-due"); clearDue {
			patch.ClearDueDate = true
		} else if flags.Changed("due") {
			raw, _ := flags.GetString("due")
			due, err := service.ParseDueDate(raw, time.Now())
			if err != nil {
				return err
			}
			patch.DueDate = &due
		}
		if patch.Empty() {
			return fmt.Errorf("nothing to change")
		}

		updated, err := sess.Tasks.Update(ctx, task.ID, patch)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Updated %s  %s\n", shortID(updated.ID), updated.Title)
		return nil
	})
}

func runTasksStatus(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(ctx context.Context, a *app, sess *store.Session) error {
		task, err := resolveTask(sess, args[0])
		if err != nil {
			return err
		}
		status, ok := model.ParseStatus(args[1])
		if !ok {
			return fmt.Errorf("unknown status %q", args[1])
		}
		updated, err := sess.Tasks.SetStatus(ctx, task.ID, status)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s  %s -> %s\n", shortID(updated.ID), updated.Title, updated.Status)
		return nil
	})
}

func runTasksNextDay(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(ctx context.Context, a *app, sess *store.Session) error {
		task, err := resolveTask(sess, args[0])
		if err != nil {
			return err
		}
		updated, err := sess.Tasks.MoveToNextDay(ctx, task.ID)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s  due %s, priority %s\n", shortID(updated.ID), formatDue(updated.DueDate), updated.Priority)
		return nil
	})
}

func runTasksRemove(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(ctx context.Context, a *app, sess *store.Session) error {
		task, err := resolveTask(sess, args[0])
		if err != nil {
			return err
		}
		if err := sess.Tasks.Delete(ctx, task.ID); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s  %s\n", shortID(task.ID), task.Title)
		return nil
	})
}

// resolveTask accepts a full id or an unambiguous prefix of at least four
// characters.
func resolveTask(sess *store.Session, ref string) (model.Task, error) {
	ref = strings.TrimSpace(ref)
	if task, ok := sess.Tasks.Get(ref); ok {
		return task, nil
	}
	if len(ref) < 4 {
		return model.Task{}, fmt.Errorf("%w: %q", store.ErrTaskNotFound, ref)
	}
	var found []model.Task
	for _, t := range sess.Tasks.Tasks() {
		if strings.HasPrefix(t.ID, ref) {
			found = append(found, t)
		}
	}
	switch len(found) {
	case 0:
		return model.Task{}, fmt.Errorf("%w: %q", store.ErrTaskNotFound, ref)
	case 1:
		return found[0], nil
	default:
		return model.Task{}, fmt.Errorf("id prefix %q matches %d tasks", ref, len(found))
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatDue(due *time.Time) string {
	if due == nil {
		return "-"
	}
	return due.Local().Format("2006-01-02 15:04")
}

func taskLine(t model.Task) string {
	var flags []string
	if t.Important {
		flags = append(flags, "*")
	}
	if t.Category != "" {
		flags = append(flags, "["+t.Category+"]")
	}
	line := fmt.Sprintf("%s  %-5s  %s", shortID(t.ID), t.Priority, t.Title)
	if len(flags) > 0 {
		line += "  " + strings.Join(flags, " ")
	}
	if t.DueDate != nil {
		line += "  due " + formatDue(t.DueDate)
	}
	return line
}

func printKanban(w io.Writer, tasks []model.Task) {
	for i, col := range store.Columns(tasks) {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "== %s (%d)\n", col.Status, len(col.Tasks))
		for _, t := range col.Tasks {
			fmt.Fprintln(w, "  "+taskLine(t))
		}
	}
}

func printCalendar(w io.Writer, tasks []model.Task) {
	days, undated := store.Calendar(tasks, time.Local)
	for _, d := range days {
		fmt.Fprintf(w, "== %s\n", d.Date.Format("Mon 2006-01-02"))
		for _, t := range d.Tasks {
			fmt.Fprintf(w, "  %-11s  %s\n", t.Status, taskLine(t))
		}
	}
	if len(undated) > 0 {
		fmt.Fprintln(w, "== no date")
		for _, t := range undated {
			fmt.Fprintf(w, "  %-11s  %s\n", t.Status, taskLine(t))
		}
	}
}

func printTaskTable(w io.Writer, tasks []model.Task) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tPRIORITY\tDUE\tCATEGORY\tTITLE")
	for _, t := range tasks {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", shortID(t.ID), t.Status, t.Priority, formatDue(t.DueDate), t.Category, t.Title)
	}
	tw.Flush()
}
