package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"taskflow/internal/model"
	"taskflow/internal/store"
)

func newSettingsCmd() *cobra.Command {
	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "Account settings synced with the data service",
	}
	settingsCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show theme, default view and palette",
		Args:  cobra.NoArgs,
		RunE:  runSettingsShow,
	}, &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Set theme (light|dark), default_view (kanban|calendar) or color_theme",
		Args:  cobra.ExactArgs(2),
		RunE:  runSettingsSet,
	})
	return settingsCmd
}

func runSettingsShow(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(ctx context.Context, a *app, sess *store.Session) error {
		s, err := sess.Settings.Fetch(ctx)
		if err != nil {
			return err
		}
		printSettings(cmd.OutOrStdout(), s)
		return nil
	})
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(ctx context.Context, a *app, sess *store.Session) error {
		if _, ok := sess.Settings.Settings(); !ok {
			if _, err := sess.Settings.Fetch(ctx); err != nil {
				return err
			}
		}
		var (
			s   model.UserSettings
			err error
		)
		switch args[0] {
		case "theme":
			s, err = sess.Settings.UpdateTheme(ctx, model.Theme(args[1]))
		case "default_view", "view":
			s, err = sess.Settings.UpdateDefaultView(ctx, model.View(args[1]))
		case "color_theme", "palette":
			s, err = sess.Settings.UpdateColorTheme(ctx, args[1])
		default:
			return fmt.Errorf("unknown setting %q", args[0])
		}
		if err != nil {
			return err
		}
		printSettings(cmd.OutOrStdout(), s)
		return nil
	})
}

func printSettings(w io.Writer, s model.UserSettings) {
	fmt.Fprintf(w, "theme:        %s\n", s.Theme)
	fmt.Fprintf(w, "default_view: %s\n", s.DefaultView)
	fmt.Fprintf(w, "color_theme:  %s\n", s.ColorTheme)
}
