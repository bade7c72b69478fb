package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gmarini/reviewdesk/internal/app"
)

var rootCmd = &cobra.Command{
	Use:     "reviewdesk",
	Short:   "Spaced-repetition study manager backed by Google Drive and Calendar",
	Version: app.BuildVersion(),
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the reviewdesk version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(app.BuildVersion())
	},
}

func init() {
	rootCmd.AddCommand(
		versionCmd,
		authCmd,
		syncCmd,
		topicsCmd,
		filesCmd,
		reviewCmd,
		scheduleCmd,
		logCmd,
		dashboardCmd,
	)
}

// withApp builds the application, aligns the ledger, cache and reminders,
// runs fn and drains background work before returning.
func withApp(fn func(ctx context.Context, a *app.App) error) error {
	ctx := context.Background()

	a, err := app.New(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Load(ctx); err != nil {
		return err
	}
	return fn(ctx, a)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
