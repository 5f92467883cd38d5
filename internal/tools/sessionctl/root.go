// Package sessionctl is a terminal client for an admin session: sign in,
// inspect and revoke sessions, and hold a watched session open.
package sessionctl

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/youthorg/admingate/internal/client"
	"github.com/youthorg/admingate/internal/domain"
	"github.com/youthorg/admingate/internal/tools/common"
	"github.com/youthorg/admingate/internal/tools/loadgen"
	"github.com/youthorg/admingate/internal/tools/ui"
)

type options struct {
	envFile   string
	baseURL   string
	tokenFile string
}

func (o *options) session() (*client.Client, tokenStore, error) {
	store := tokenStore{path: o.tokenFile}
	c, err := client.New(o.baseURL, nil)
	if err != nil {
		return nil, store, err
	}
	tok, err := store.Load()
	if err != nil {
		return nil, store, err
	}
	c.SetToken(tok)
	return c, store, nil
}

func NewRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "sessionctl",
		Short:         "Terminal client for admin sessions",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := common.LoadEnvFile(opts.envFile); err != nil {
				return err
			}
			if !cmd.Flags().Changed("base-url") {
				opts.baseURL = common.EnvOr("ADMINGATE_URL", opts.baseURL)
			}
			if !cmd.Flags().Changed("token-file") {
				opts.tokenFile = defaultTokenPath()
			}
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".sessionctl.env", "optional env file")
	cmd.PersistentFlags().StringVar(&opts.baseURL, "base-url", "http://localhost:8080", "gate base URL (ADMINGATE_URL)")
	cmd.PersistentFlags().StringVar(&opts.tokenFile, "token-file", "", "where the session token is kept (ADMINGATE_TOKEN_FILE)")
	cmd.AddCommand(
		newLoginCommand(opts),
		newLogoutCommand(opts),
		newStatusCommand(opts),
		newSessionsCommand(opts),
		newRevokeCommand(opts),
		newWatchCommand(opts),
		newLoadCommand(opts),
	)
	return cmd
}

func newLoginCommand(opts *options) *cobra.Command {
	var credential, address string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Exchange an identity provider credential for a session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if credential == "" {
				credential = os.Getenv("ADMINGATE_CREDENTIAL")
			}
			if credential == "" {
				return errors.New("a credential is required (--credential or ADMINGATE_CREDENTIAL)")
			}
			c, store, err := opts.session()
			if err != nil {
				return err
			}
			var loc *domain.Location
			if address != "" {
				loc = &domain.Location{Address: &address}
			}
			res, err := c.Login(cmd.Context(), credential, loc)
			if err != nil {
				return err
			}
			if err := store.Save(c.Token()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s signed in as %s (session %s, expires %s)\n",
				ui.OKStyle.Render("ok"), res.Session.Username, res.Session.SessionID, res.ExpiresAt.Local().Format(time.RFC1123))
			return nil
		},
	}
	cmd.Flags().StringVar(&credential, "credential", "", "identity provider credential")
	cmd.Flags().StringVar(&address, "address", "", "optional human-readable location")
	return cmd
}

func newLogoutCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, store, err := opts.session()
			if err != nil {
				return err
			}
			err = c.Logout(cmd.Context(), nil)
			if clearErr := store.Clear(); clearErr != nil {
				return clearErr
			}
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s server logout failed: %v (local token removed)\n", ui.ErrStyle.Render("warn"), err)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.OKStyle.Render("signed out"))
			return nil
		},
	}
}

func newStatusCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Ask the server whether the stored session is still live",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := opts.session()
			if err != nil {
				return err
			}
			if c.Token() == "" {
				fmt.Fprintln(cmd.OutOrStdout(), ui.MutedStyle.Render("not signed in"))
				return nil
			}
			valid, err := c.SessionStatus(cmd.Context())
			if err != nil {
				return err
			}
			if valid {
				fmt.Fprintln(cmd.OutOrStdout(), ui.OKStyle.Render("session valid"))
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), ui.ErrStyle.Render("session revoked"))
			}
			return nil
		},
	}
}

func newSessionsCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List visible sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := opts.session()
			if err != nil {
				return err
			}
			sessions, err := c.ListSessions(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), renderSessions(sessions))
			return nil
		},
	}
}

func newRevokeCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <sessionId>",
		Short: "Revoke a session (your own, or any with elevated authority)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := opts.session()
			if err != nil {
				return err
			}
			if err := c.RevokeSession(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.OKStyle.Render("revoked "+args[0]))
			return nil
		},
	}
}

func newWatchCommand(opts *options) *cobra.Command {
	var cfg watchConfig
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Hold the session open with idle, revocation and liveness monitors",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, store, err := opts.session()
			if err != nil {
				return err
			}
			if c.Token() == "" {
				return errors.New("not signed in")
			}
			reason, err := runWatch(cmd.Context(), c, store, cfg)
			if err != nil {
				return err
			}
			if reason != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "redirect: /login?error=%s\n", reason)
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&cfg.idle, "idle", 15*time.Minute, "sign out after this long without a key press")
	cmd.Flags().DurationVar(&cfg.poll, "poll", 15*time.Second, "session status poll interval")
	cmd.Flags().StringVar(&cfg.locationFile, "location-file", "", "require a readable location fix in this JSON file")
	return cmd
}

func newLoadCommand(opts *options) *cobra.Command {
	cfg := loadgen.Config{}
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Generate admin API traffic with the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, store, err := opts.session()
			if err != nil {
				return err
			}
			cfg.BaseURL = opts.baseURL
			cfg.Token, err = store.Load()
			if err != nil {
				return err
			}
			res, err := loadgen.Run(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}
	cmd.Flags().StringVar(&cfg.Profile, "profile", "read", "read, write, delete or mixed")
	cmd.Flags().DurationVar(&cfg.Duration, "duration", 10*time.Second, "how long to run")
	cmd.Flags().IntVar(&cfg.RPS, "rps", 5, "requests per second")
	cmd.Flags().IntVar(&cfg.Concurrency, "concurrency", 2, "concurrent workers")
	cmd.Flags().Uint64Var(&cfg.Seed, "seed", 42, "random seed")
	return cmd
}

func renderSessions(sessions []client.Session) string {
	if len(sessions) == 0 {
		return ui.MutedStyle.Render("no sessions") + "\n"
	}
	var b strings.Builder
	for _, s := range sessions {
		marker := " "
		if s.IsCurrent {
			marker = ui.OKStyle.Render("*")
		}
		line := fmt.Sprintf("%s %-36s %-20s %-28s %s", marker, s.SessionID, s.UserName, s.DeviceInfo.Describe(),
			time.UnixMilli(s.CreatedAt).Format(time.DateTime))
		if s.Location != nil && s.Location.Address != nil {
			line += "  " + *s.Location.Address
		}
		if s.IsStale {
			line += "  " + ui.MutedStyle.Render("(stale)")
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}
