package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gmarini/reviewdesk/internal/app"
)

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "Manage documents attached to a topic",
}

var filesAddCmd = &cobra.Command{
	Use:   "add [topic] [path]",
	Short: "Upload a local file into a topic's remote folder",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			ref, err := a.Topics.AddFile(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Printf("uploaded %q to topic %q\n", ref.Name, args[0])
			return nil
		})
	},
}

var filesRemoveCmd = &cobra.Command{
	Use:   "remove [topic] [file-name]",
	Short: "Delete a document from a topic",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			if err := a.Topics.RemoveFile(ctx, args[0], args[1]); err != nil {
				return err
			}
			fmt.Printf("removed %q from topic %q\n", args[1], args[0])
			return nil
		})
	},
}

func init() {
	filesCmd.AddCommand(filesAddCmd, filesRemoveCmd)
}
