package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Check the configured credentials by logging in",
		RunE:  runLogin,
	}
}

// loginJSON is the JSON output schema of the login command. Tokens are
// never printed.
type loginJSON struct {
	Identity   string `json:"identity"`
	Expiry     string `json:"expiry,omitempty"`
	CanRefresh bool   `json:"can_refresh"`
	APIURL     string `json:"api_url"`
}

func runLogin(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	app := NewAppSession(resolvedCfg, buildLogger())

	if err := app.Session.Login(ctx, resolvedCfg.Username, resolvedCfg.Password); err != nil {
		return err
	}

	tok, err := app.Session.Token()
	if err != nil {
		return err
	}

	out := loginJSON{
		Identity:   resolvedCfg.Username,
		CanRefresh: tok.RefreshToken != "",
		APIURL:     resolvedCfg.APIURL,
	}

	if !tok.Expiry.IsZero() {
		out.Expiry = tok.Expiry.Format(time.RFC3339)
	}

	if flagJSON {
		return printJSON(os.Stdout, out)
	}

	statusf("Logged in to %s as %s.\n", out.APIURL, out.Identity)

	if out.Expiry != "" {
		fmt.Printf("Access token expires %s\n", out.Expiry)
	}

	if !out.CanRefresh {
		statusf("The server issued no refresh token; the session will not be renewed.\n")
	}

	return nil
}
