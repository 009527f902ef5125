package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"taskflow/internal/config"
	"taskflow/internal/prefs"
)

func newPrefsCmd() *cobra.Command {
	prefsCmd := &cobra.Command{
		Use:   "prefs",
		Short: "Preferences stored on this machine only",
	}
	prefsCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show local preferences",
		Args:  cobra.NoArgs,
		RunE:  runPrefsShow,
	}, &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Set selected_view, color_theme or news_read (comma separated ids)",
		Args:  cobra.ExactArgs(2),
		RunE:  runPrefsSet,
	})
	return prefsCmd
}

func localPrefsPath() (string, error) {
	cfg, err := config.Load()
	if err != nil {
		return "", err
	}
	if cfg.PrefsPath != "" {
		return cfg.PrefsPath, nil
	}
	return prefs.DefaultPath()
}

func runPrefsShow(cmd *cobra.Command, args []string) error {
	path, err := localPrefsPath()
	if err != nil {
		return err
	}
	p, err := prefs.Load(path)
	if err != nil {
		return err
	}
	printPrefs(cmd.OutOrStdout(), path, p)
	return nil
}

func runPrefsSet(cmd *cobra.Command, args []string) error {
	path, err := localPrefsPath()
	if err != nil {
		return err
	}
	p, err := prefs.Load(path)
	if err != nil {
		return err
	}
	if err := p.Set(args[0], args[1]); err != nil {
		return err
	}
	if err := prefs.Save(path, p); err != nil {
		return err
	}
	printPrefs(cmd.OutOrStdout(), path, p)
	return nil
}

func printPrefs(w io.Writer, path string, p prefs.Prefs) {
	fmt.Fprintf(w, "# %s\n", path)
	fmt.Fprintf(w, "selected_view: %s\n", p.SelectedView)
	fmt.Fprintf(w, "color_theme:   %s\n", p.ColorTheme)
	fmt.Fprintf(w, "news_read:     %d item(s)\n", len(p.NewsRead))
}
