package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gmarini/reviewdesk/internal/app"
	"github.com/gmarini/reviewdesk/internal/domain"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "List topics that are due for review",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			due, err := a.Review.DueTopics(ctx)
			if err != nil {
				return err
			}
			if len(due) == 0 {
				fmt.Println("nothing to review today")
				return nil
			}
			printRecords(due)
			return nil
		})
	},
}

var reviewMarkCmd = &cobra.Command{
	Use:   "mark [topic]",
	Short: "Record a finished review and schedule the next one",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		difficultyFlag, _ := cmd.Flags().GetString("difficulty")
		comment, _ := cmd.Flags().GetString("comment")

		difficulty, ok := domain.ParseDifficulty(difficultyFlag)
		if !ok {
			return fmt.Errorf("unknown difficulty %q, expected Difficult, Medium or Easy", difficultyFlag)
		}

		return withApp(func(ctx context.Context, a *app.App) error {
			res, err := a.Review.MarkReviewed(ctx, args[0], difficulty, comment)
			if err != nil {
				return err
			}
			fmt.Printf("reviewed %q, next review on %s\n", args[0], domain.FormatDate(*res.Record.NextReview))

			if _, err := res.Reschedule.Wait(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "warning: reminder not rescheduled: %v\n", err)
			}
			return nil
		})
	},
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule [topic] [date]",
	Short: "Manually set a topic's next review date (YYYY-MM-DD)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		day, err := domain.ParseDate(args[1])
		if err != nil {
			return fmt.Errorf("invalid date %q, expected YYYY-MM-DD: %w", args[1], err)
		}

		return withApp(func(ctx context.Context, a *app.App) error {
			res, err := a.Review.SetNextReview(ctx, args[0], day)
			if err != nil {
				return err
			}
			fmt.Printf("next review of %q set to %s\n", args[0], domain.FormatDate(*res.Record.NextReview))

			if _, err := res.Reschedule.Wait(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "warning: reminder not rescheduled: %v\n", err)
			}
			return nil
		})
	},
}

var logCmd = &cobra.Command{
	Use:   "log [topic]",
	Short: "Show the review history, optionally for one topic",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		topic := ""
		if len(args) == 1 {
			topic = args[0]
		}
		return withApp(func(ctx context.Context, a *app.App) error {
			entries, err := a.Review.History(ctx, topic)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "DATE\tTOPIC\tDIFFICULTY\tCOMMENT")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					domain.FormatDate(e.ReviewDate), e.Topic, e.Difficulty, e.Comment)
			}
			return w.Flush()
		})
	},
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Show aggregate review statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			d, err := a.Review.Dashboard(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("topics:           %d\n", d.TotalTopics)
			fmt.Printf("due within a week: %d\n", d.DueWithinWeek)
			fmt.Printf("avg interval:     %.1f days\n", d.AvgIntervalDays)
			return nil
		})
	},
}

func init() {
	reviewMarkCmd.Flags().String("difficulty", "", "how the review went: Difficult, Medium or Easy")
	reviewMarkCmd.Flags().String("comment", "", "optional note stored in the review log")
	reviewMarkCmd.MarkFlagRequired("difficulty")
	reviewCmd.AddCommand(reviewMarkCmd)
}
