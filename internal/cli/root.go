package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd builds the command tree. Each call returns a fresh tree so
// flags never leak between runs.
func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "taskflow",
		Short: "TaskFlow - tasks, categories and settings kept in sync with the data service",
		Long: `TaskFlow keeps a local mirror of your tasks, categories, settings and profile
and writes every change through to the data service.

Run "taskflow serve" to start the Telegram bot and the daily digest.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}

	rootCmd.PersistentFlags().String("email", "", "Sign in as this email (default $TASKFLOW_EMAIL)")
	rootCmd.PersistentFlags().String("log-level", "", "Override LOG_LEVEL")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newTasksCmd())
	rootCmd.AddCommand(newCategoriesCmd())
	rootCmd.AddCommand(newSettingsCmd())
	rootCmd.AddCommand(newProfileCmd())
	rootCmd.AddCommand(newPrefsCmd())
	rootCmd.AddCommand(newDigestCmd())
	return rootCmd
}

// Execute runs the root command
func Execute(version string) error {
	if err := NewRootCmd(version).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}
