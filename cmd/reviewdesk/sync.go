package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gmarini/reviewdesk/internal/app"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile the ledger, local cache and calendar reminders",
	Long: `Aligns the three stores: ledger rows whose remote folder is gone are
pruned, new remote folders become topics due today, missing documents are
downloaded into the local cache and absent reminders are recreated.
Every command performs this alignment on startup; sync just does nothing else.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			records, err := a.Session.Records(ctx)
			if err != nil {
				return err
			}

			due, err := a.Review.DueTopics(ctx)
			if err != nil {
				return err
			}

			fmt.Printf("%d topics in sync, %d due for review\n", len(records), len(due))
			return nil
		})
	},
}
