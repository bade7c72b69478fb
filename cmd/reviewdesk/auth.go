package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/gmarini/reviewdesk/internal/adapter/googleauth"
	"github.com/gmarini/reviewdesk/internal/config"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authorize access to Google Drive and Calendar",
	Long: `Runs the Google OAuth flow: prints a consent URL, reads the authorization
code from stdin and caches the resulting token next to the credentials file.
Run this once on a fresh machine before any other command.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		return googleauth.Authorize(cmd.Context(), cfg.Drive.CredentialsFile, cfg.Drive.TokenFile, os.Stdin, os.Stdout)
	},
}
