package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"taskflow/internal/model"
	"taskflow/internal/store"
)

func newCategoriesCmd() *cobra.Command {
	categoriesCmd := &cobra.Command{
		Use:     "categories",
		Aliases: []string{"cat"},
		Short:   "Manage categories",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List categories by name",
		Args:  cobra.NoArgs,
		RunE:  runCategoriesList,
	}

	addCmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Create a category",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runCategoriesAdd,
	}
	addCmd.Flags().String("color", "", "Display color, e.g. #3b82f6")

	editCmd := &cobra.Command{
		Use:   "edit NAME",
		Short: "Rename or recolor a category. Tasks keep the old name.",
		Args:  cobra.ExactArgs(1),
		RunE:  runCategoriesEdit,
	}
	editCmd.Flags().String("name", "", "New name")
	editCmd.Flags().String("color", "", "New color")

	rmCmd := &cobra.Command{
		Use:   "rm NAME",
		Short: "Delete a category. Tasks that use it keep the name.",
		Args:  cobra.ExactArgs(1),
		RunE:  runCategoriesRemove,
	}

	categoriesCmd.AddCommand(listCmd, addCmd, editCmd, rmCmd)
	return categoriesCmd
}

func runCategoriesList(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(ctx context.Context, a *app, sess *store.Session) error {
		categories := sess.Categories.Categories()
		out := cmd.OutOrStdout()
		if len(categories) == 0 {
			fmt.Fprintln(out, "No categories yet.")
			return nil
		}
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tCOLOR\tTASKS")
		counts := make(map[string]int)
		for _, t := range sess.Tasks.Tasks() {
			counts[t.Category]++
		}
		for _, c := range categories {
			fmt.Fprintf(tw, "%s\t%s\t%d\n", c.Name, c.Color, counts[c.Name])
		}
		return tw.Flush()
	})
}

func runCategoriesAdd(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(ctx context.Context, a *app, sess *store.Session) error {
		color, _ := cmd.Flags().GetString("color")
		c, err := sess.Categories.Create(ctx, strings.Join(args, " "), color)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created category %s\n", c.Name)
		return nil
	})
}

func runCategoriesEdit(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(ctx context.Context, a *app, sess *store.Session) error {
		c, err := findCategory(sess, args[0])
		if err != nil {
			return err
		}
		var patch model.CategoryPatch
		if cmd.Flags().Changed("name") {
			v, _ := cmd.Flags().GetString("name")
			patch.Name = &v
		}
		if cmd.Flags().Changed("color") {
			v, _ := cmd.Flags().GetString("color")
			patch.Color = &v
		}
		updated, err := sess.Categories.Update(ctx, c.ID, patch)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Updated category %s\n", updated.Name)
		return nil
	})
}

func runCategoriesRemove(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(ctx context.Context, a *app, sess *store.Session) error {
		c, err := findCategory(sess, args[0])
		if err != nil {
			return err
		}
		if err := sess.Categories.Delete(ctx, c.ID); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted category %s\n", c.Name)
		return nil
	})
}

func findCategory(sess *store.Session, name string) (model.Category, error) {
	if c, ok := sess.Categories.ByName(name); ok {
		return c, nil
	}
	for _, c := range sess.Categories.Categories() {
		if strings.EqualFold(c.Name, name) || c.ID == name {
			return c, nil
		}
	}
	return model.Category{}, fmt.Errorf("%w: %q", store.ErrCategoryNotFound, name)
}
