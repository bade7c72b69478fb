package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/gmarini/reviewdesk/internal/app"
	"github.com/gmarini/reviewdesk/internal/domain"
)

var topicsCmd = &cobra.Command{
	Use:   "topics",
	Short: "Manage study topics",
}

var topicsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all topics with their schedule",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		search, _ := cmd.Flags().GetString("search")
		return withApp(func(ctx context.Context, a *app.App) error {
			records, err := a.Topics.List(ctx, search)
			if err != nil {
				return err
			}
			printRecords(records)
			return nil
		})
	},
}

var topicsAddCmd = &cobra.Command{
	Use:   "add [name]",
	Short: "Create a new topic folder in the remote store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			rec, err := a.Topics.Add(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("added topic %q, due %s\n", rec.Topic, domain.FormatDate(*rec.NextReview))
			return nil
		})
	},
}

var topicsRemoveCmd = &cobra.Command{
	Use:   "remove [name]",
	Short: "Delete a topic, its remote folder, history and reminders",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			if err := a.Topics.Remove(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("removed topic %q\n", args[0])
			return nil
		})
	},
}

var topicsOpenCmd = &cobra.Command{
	Use:   "open [name]",
	Short: "Fetch a topic's documents into the local cache and print the directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			dir, err := a.OpenTopic(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Println(dir)
			return nil
		})
	},
}

func init() {
	topicsListCmd.Flags().String("search", "", "filter topics by a name substring")
	topicsCmd.AddCommand(topicsListCmd, topicsAddCmd, topicsRemoveCmd, topicsOpenCmd)
}

func printRecords(records []domain.TopicRecord) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TOPIC\tFILES\tLAST REVIEW\tNEXT REVIEW")
	for _, rec := range records {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\n",
			rec.Topic,
			len(rec.Files),
			formatDate(rec.LastReview),
			formatDate(rec.NextReview),
		)
	}
	w.Flush()
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return domain.FormatDate(*t)
}
