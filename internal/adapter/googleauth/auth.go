// Package googleauth acquires and caches the OAuth user credentials shared by
// the Drive and Calendar clients.
package googleauth

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	gdrive "google.golang.org/api/drive/v3"
)

var scopes = []string{gdrive.DriveScope, gcal.CalendarScope}

// TokenSource loads the cached token and returns a self-refreshing token
// source. It fails with an instruction to run the auth flow when no token has
// been cached yet.
func TokenSource(ctx context.Context, credentialsFile, tokenFile string) (oauth2.TokenSource, error) {
	conf, err := readConfig(credentialsFile)
	if err != nil {
		return nil, err
	}

	tok, err := readToken(tokenFile)
	if err != nil {
		return nil, fmt.Errorf("googleauth: no cached token (%w); run the auth command first", err)
	}

	return conf.TokenSource(ctx, tok), nil
}

// Authorize runs the installed-app authorization code flow: it prints the
// consent URL, reads the code from in, exchanges it, and caches the token.
func Authorize(ctx context.Context, credentialsFile, tokenFile string, in io.Reader, out io.Writer) error {
	conf, err := readConfig(credentialsFile)
	if err != nil {
		return err
	}

	url := conf.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	fmt.Fprintf(out, "Open the following link in your browser, then paste the authorization code:\n%s\n> ", url)

	code, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && code == "" {
		return fmt.Errorf("googleauth: read code: %w", err)
	}
	code = strings.TrimSpace(code)

	tok, err := conf.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("googleauth: exchange code: %w", err)
	}

	if err := writeToken(tokenFile, tok); err != nil {
		return err
	}
	fmt.Fprintf(out, "Token cached in %s\n", tokenFile)
	return nil
}

func readConfig(credentialsFile string) (*oauth2.Config, error) {
	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("googleauth: read credentials: %w", err)
	}
	conf, err := google.ConfigFromJSON(b, scopes...)
	if err != nil {
		return nil, fmt.Errorf("googleauth: parse credentials: %w", err)
	}
	return conf, nil
}

func readToken(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var tok oauth2.Token
	if err := json.NewDecoder(f).Decode(&tok); err != nil {
		return nil, fmt.Errorf("decode token: %w", err)
	}
	return &tok, nil
}

func writeToken(path string, tok *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("googleauth: cache token: %w", err)
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(tok); err != nil {
		return fmt.Errorf("googleauth: encode token: %w", err)
	}
	return nil
}
