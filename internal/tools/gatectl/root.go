// Package gatectl is the server binary's command tree.
package gatectl

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/youthorg/admingate/internal/config"
	"github.com/youthorg/admingate/internal/di"
	"github.com/youthorg/admingate/internal/tools/common"
	"github.com/youthorg/admingate/internal/tools/doctor"
	"github.com/youthorg/admingate/internal/tools/ui"
)

type options struct {
	envFile string
	ci      bool
}

func NewRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "gate",
		Short:         "Admin session gate",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "optional env file read before the environment")
	cmd.PersistentFlags().BoolVar(&opts.ci, "ci", false, "non-interactive machine-readable output")
	cmd.AddCommand(
		newServeCommand(opts),
		newMigrateCommand(opts),
		newSweepCommand(opts),
		newUnblockCommand(opts),
		newProtectCommand(opts),
		doctor.NewCommand(),
	)
	return cmd
}

func newServeCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.envFile)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv, cleanup, err := di.InitializeServer(ctx, cfg)
			if err != nil {
				return fmt.Errorf("initialize: %w", err)
			}
			defer cleanup()

			missing, err := srv.Accounts.EnsureProtected(ctx, cfg.ProtectedPrincipals)
			if err != nil {
				return fmt.Errorf("seed protected principals: %w", err)
			}
			for _, email := range missing {
				srv.App.Logger.Warn("protected principal has no account yet", "email", email)
			}
			return srv.App.Run(ctx)
		},
	}
}

// withMaintenance loads config and the offline service graph, then runs fn
// behind the spinner or, with --ci, as a JSON line.
func withMaintenance(cmd *cobra.Command, opts *options, title string, fn func(context.Context, *di.Maintenance) ([]string, error)) error {
	cfg, err := config.Load(opts.envFile)
	if err != nil {
		return err
	}
	m, cleanup, err := di.InitializeMaintenance(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	defer cleanup()

	task := func(ctx context.Context) ([]string, error) { return fn(ctx, m) }
	var details []string
	if opts.ci {
		details, err = task(cmd.Context())
		common.PrintCIResult(err == nil, title, details, err)
		return err
	}
	_, err = ui.Run(title, task)
	return err
}

func newMigrateCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMaintenance(cmd, opts, "gate migrate", func(context.Context, *di.Maintenance) ([]string, error) {
				return []string{"schema up to date"}, nil
			})
		},
	}
}

func newSweepCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Delete stale session records for every user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMaintenance(cmd, opts, "gate sweep", func(ctx context.Context, m *di.Maintenance) ([]string, error) {
				removed, err := m.Sessions.SweepStale(ctx)
				return []string{fmt.Sprintf("removed %d stale sessions", removed)}, err
			})
		},
	}
}

func newUnblockCommand(opts *options) *cobra.Command {
	var operator string
	cmd := &cobra.Command{
		Use:   "unblock <userId>",
		Short: "Lift a kill switch block",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID := strings.TrimSpace(args[0])
			return withMaintenance(cmd, opts, "gate unblock", func(ctx context.Context, m *di.Maintenance) ([]string, error) {
				if err := m.Accounts.Unblock(ctx, userID, operator); err != nil {
					return nil, err
				}
				return []string{"unblocked " + userID}, nil
			})
		},
	}
	cmd.Flags().StringVar(&operator, "operator", os.Getenv("USER"), "operator name recorded in the activity log")
	return cmd
}

func newProtectCommand(opts *options) *cobra.Command {
	var unset bool
	cmd := &cobra.Command{
		Use:   "protect <email>...",
		Short: "Mark accounts as protected principals, exempt from the kill switch",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			emails := make([]string, 0, len(args))
			for _, a := range args {
				emails = append(emails, strings.ToLower(strings.TrimSpace(a)))
			}
			return withMaintenance(cmd, opts, "gate protect", func(ctx context.Context, m *di.Maintenance) ([]string, error) {
				return applyProtection(ctx, m, emails, unset)
			})
		},
	}
	cmd.Flags().BoolVar(&unset, "unset", false, "clear the flag instead of setting it")
	return cmd
}

func applyProtection(ctx context.Context, m *di.Maintenance, emails []string, unset bool) ([]string, error) {
	if !unset {
		missing, err := m.Accounts.EnsureProtected(ctx, emails)
		details := []string{fmt.Sprintf("protected %d of %d", len(emails)-len(missing), len(emails))}
		for _, e := range missing {
			details = append(details, "no account: "+e)
		}
		return details, err
	}
	var details []string
	for _, e := range emails {
		ok, err := m.Accounts.Unprotect(ctx, e)
		if err != nil {
			return details, err
		}
		if ok {
			details = append(details, "unprotected "+e)
		} else {
			details = append(details, "no account: "+e)
		}
	}
	return details, nil
}
