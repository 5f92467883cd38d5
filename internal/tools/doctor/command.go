// Package doctor checks a running gate from the outside: liveness,
// readiness and, given a session token, the session endpoints.
package doctor

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/youthorg/admingate/internal/client"
	"github.com/youthorg/admingate/internal/tools/common"
	"github.com/youthorg/admingate/internal/tools/ui"
)

type options struct {
	baseURL string
	token   string
	ci      bool
	timeout time.Duration
}

func NewCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Probe a running gate's health and session endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			details, err := run(opts, "gate doctor", func(ctx context.Context) ([]string, error) {
				return check(ctx, *opts)
			})
			if opts.ci {
				common.PrintCIResult(err == nil, "gate doctor", details, err)
			}
			if err != nil {
				os.Exit(4)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.baseURL, "base-url", common.EnvOr("ADMINGATE_URL", "http://localhost:8080"), "gate base URL")
	cmd.Flags().StringVar(&opts.token, "token", os.Getenv("ADMINGATE_TOKEN"), "session token for the authenticated checks")
	cmd.Flags().BoolVar(&opts.ci, "ci", false, "non-interactive machine-readable output")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "overall timeout")
	return cmd
}

func run(opts *options, title string, fn func(context.Context) ([]string, error)) ([]string, error) {
	if opts.ci {
		ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
		defer cancel()
		return fn(ctx)
	}
	return ui.Run(title, fn)
}

type readiness struct {
	Status string `json:"status"`
	Checks []struct {
		Name    string `json:"name"`
		Healthy bool   `json:"healthy"`
		Error   string `json:"error"`
	} `json:"checks"`
}

func check(ctx context.Context, opts options) ([]string, error) {
	c, err := client.New(opts.baseURL, nil)
	if err != nil {
		return nil, err
	}
	var details []string

	status, err := c.Do(ctx, http.MethodGet, "/health/live", nil, nil)
	if err != nil {
		return details, fmt.Errorf("liveness: %w", err)
	}
	details = append(details, fmt.Sprintf("live: %d", status))

	var ready readiness
	if _, err := c.Do(ctx, http.MethodGet, "/health/ready", nil, &ready); err != nil {
		return details, fmt.Errorf("readiness: %w", err)
	}
	for _, ck := range ready.Checks {
		state := "ok"
		if !ck.Healthy {
			state = "down: " + ck.Error
		}
		details = append(details, fmt.Sprintf("ready/%s: %s", ck.Name, state))
	}

	if opts.token == "" {
		details = append(details, "session checks skipped (no token)")
		return details, nil
	}
	c.SetToken(opts.token)
	valid, err := c.SessionStatus(ctx)
	if err != nil {
		return details, fmt.Errorf("session status: %w", err)
	}
	if !valid {
		return details, fmt.Errorf("session token is not valid")
	}
	sessions, err := c.ListSessions(ctx)
	if err != nil {
		return details, fmt.Errorf("list sessions: %w", err)
	}
	details = append(details, fmt.Sprintf("session valid, %d visible sessions", len(sessions)))
	return details, nil
}
