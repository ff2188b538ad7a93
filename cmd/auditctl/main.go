package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"vpfs.org/internal/audit"
	"vpfs.org/internal/auditclient"
	"vpfs.org/internal/fleet"
	"vpfs.org/internal/obs"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "auditctl",
	Short:        "Browse the VPFS audit log",
	SilenceUsage: true,
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and store the session token in the profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, path, err := loadProfile()
		if err != nil {
			return err
		}
		if s, _ := cmd.Flags().GetString("server"); s != "" {
			p.Server = s
		}
		if u, _ := cmd.Flags().GetString("user"); u != "" {
			p.Username = u
		}
		if p.Username == "" {
			return errors.New("a username is required (--user)")
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Password for %s: ", p.Username)
		pw, err := readPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(cmd.OutOrStdout())
		if err != nil {
			return fmt.Errorf("reading password: %w", err)
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
		defer cancel()
		client := auditclient.New(p.Server, auditclient.WithLoginHistory(p.LoginAttempts))
		token, err := client.Login(ctx, p.Username, string(pw))
		if err != nil {
			if serr := rememberAttempts(path, p.Username, client.LoginHistory(p.Username)); serr != nil {
				obs.Logger().WithError(serr).Warn("login attempts not saved")
			}
			return fmt.Errorf("login: %w", err)
		}
		p.Token = token
		p.setAttempts(p.Username, nil)
		if err := p.save(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Logged in to %s as %s\n", p.Server, p.Username)
		return nil
	},
}

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "List audit log entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, client, err := session()
		if err != nil {
			return err
		}
		loc, err := p.location()
		if err != nil {
			return err
		}
		q, page, ref, err := logsQuery(cmd, loc)
		if err != nil {
			return err
		}

		res := client.Logs(cmd.Context(), q, page, ref)
		out := cmd.OutOrStdout()
		if len(res.Logs) == 0 {
			fmt.Fprintln(out, "No entries.")
			return nil
		}
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "TIME\tUSER\tACTION\tRESOURCE\tNAME\tDETAILS")
		for _, e := range res.Logs {
			name := "-"
			if e.ResourceName != nil {
				name = *e.ResourceName
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
				e.CreatedAt.In(loc).Format("2006-01-02 15:04:05"),
				e.Username, e.Action, e.Resource, name, audit.RenderDetails(e))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		switch {
		case ref.Active():
			fmt.Fprintf(out, "%d matching entries (refined over the latest %d)\n", len(res.Logs), audit.RefineLimit)
		case res.HasMore:
			fmt.Fprintf(out, "Page %d. More entries may follow: --page %d\n", res.Page, res.Page+1)
		default:
			fmt.Fprintf(out, "Page %d.\n", res.Page)
		}
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show audit log totals",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, client, err := session()
		if err != nil {
			return err
		}
		st := client.Stats(cmd.Context())
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Total entries: %d\n", st.Total)
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		for _, c := range st.ByAction {
			fmt.Fprintf(tw, "action\t%s\t%d\n", c.Action, c.Count)
		}
		for _, c := range st.ByResource {
			fmt.Fprintf(tw, "resource\t%s\t%d\n", c.Resource, c.Count)
		}
		return tw.Flush()
	},
}

// rememberAttempts stores the failed attempts without taking over the
// server or user given on the command line.
func rememberAttempts(path, username string, attempts []time.Time) error {
	p, _, err := loadProfile()
	if err != nil {
		return err
	}
	p.setAttempts(username, attempts)
	return p.save(path)
}

func session() (*profile, *auditclient.Client, error) {
	p, _, err := loadProfile()
	if err != nil {
		return nil, nil, err
	}
	if p.Token == "" {
		return nil, nil, errors.New("not logged in; run `auditctl login` first")
	}
	return p, auditclient.New(p.Server, auditclient.WithToken(p.Token)), nil
}

func logsQuery(cmd *cobra.Command, loc *time.Location) (audit.Query, int, audit.RefineOptions, error) {
	var (
		q   audit.Query
		ref audit.RefineOptions
	)
	flags := cmd.Flags()
	q.UserID, _ = flags.GetInt64("user")
	q.Limit, _ = flags.GetInt("limit")
	page, _ := flags.GetInt("page")

	if a, _ := flags.GetString("action"); a != "" {
		q.Action = audit.Action(strings.ToUpper(a))
		if !q.Action.Valid() {
			return q, 0, ref, fmt.Errorf("unknown action %q", a)
		}
	}
	if r, _ := flags.GetString("resource"); r != "" {
		q.Resource = audit.Resource(strings.ToLower(r))
		if !q.Resource.Valid() {
			return q, 0, ref, fmt.Errorf("unknown resource %q", r)
		}
	}

	ref.Search, _ = flags.GetString("search")
	ref.DateStart, _ = flags.GetString("from")
	ref.DateEnd, _ = flags.GetString("to")
	ref.Location = loc
	for name, v := range map[string]string{"from": ref.DateStart, "to": ref.DateEnd} {
		if v == "" {
			continue
		}
		if _, err := time.Parse(fleet.DateLayout, v); err != nil {
			return q, 0, ref, fmt.Errorf("--%s must be YYYY-MM-DD", name)
		}
	}
	return q, page, ref, nil
}

func init() {
	loginCmd.Flags().String("server", "", "API base URL (default from profile)")
	loginCmd.Flags().StringP("user", "u", "", "username (default from profile)")

	logsCmd.Flags().Int64("user", 0, "only entries by this user id")
	logsCmd.Flags().String("action", "", "VIEW, CREATE, UPDATE, DELETE, LOGIN or LOGOUT")
	logsCmd.Flags().String("resource", "", "aircraft, pilot, user or auth")
	logsCmd.Flags().String("from", "", "first local day to include (YYYY-MM-DD)")
	logsCmd.Flags().String("to", "", "last local day to include (YYYY-MM-DD)")
	logsCmd.Flags().StringP("search", "s", "", "free-text filter over user, IP, resource, action and details")
	logsCmd.Flags().IntP("page", "p", 1, "page number")
	logsCmd.Flags().IntP("limit", "n", audit.DefaultLimit, "entries per page")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(statsCmd)
}
