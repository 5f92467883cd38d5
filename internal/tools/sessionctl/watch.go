package sessionctl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/youthorg/admingate/internal/client"
	"github.com/youthorg/admingate/internal/domain"
	"github.com/youthorg/admingate/internal/tools/ui"
)

const refreshInterval = 10 * time.Second

type watchConfig struct {
	idle         time.Duration
	poll         time.Duration
	locationFile string
}

type sessionLister interface {
	ListSessions(ctx context.Context) ([]client.Session, error)
}

type endMsg struct {
	reason string
	notice string
}

type sessionsMsg struct {
	sessions []client.Session
	err      error
}

type refreshMsg struct{}

type watchModel struct {
	lister   sessionLister
	touch    func()
	events   <-chan endMsg
	sessions []client.Session
	lastErr  error
	ended    *endMsg
}

func newWatchModel(lister sessionLister, touch func(), events <-chan endMsg) watchModel {
	return watchModel{lister: lister, touch: touch, events: events}
}

func (m watchModel) Init() tea.Cmd {
	return tea.Batch(waitForEnd(m.events), fetchSessions(m.lister), scheduleRefresh())
}

func waitForEnd(events <-chan endMsg) tea.Cmd {
	return func() tea.Msg { return <-events }
}

func fetchSessions(lister sessionLister) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		sessions, err := lister.ListSessions(ctx)
		return sessionsMsg{sessions: sessions, err: err}
	}
}

func scheduleRefresh() tea.Cmd {
	return tea.Tick(refreshInterval, func(time.Time) tea.Msg { return refreshMsg{} })
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		m.touch()
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "r":
			return m, fetchSessions(m.lister)
		}
	case tea.MouseMsg:
		m.touch()
	case sessionsMsg:
		if msg.err != nil {
			m.lastErr = msg.err
			if client.IsRevoked(msg.err) {
				m.ended = &endMsg{reason: "session_revoked", notice: "this session was revoked"}
				return m, tea.Quit
			}
			return m, nil
		}
		m.lastErr = nil
		m.sessions = msg.sessions
	case refreshMsg:
		return m, tea.Batch(fetchSessions(m.lister), scheduleRefresh())
	case endMsg:
		m.ended = &msg
		return m, tea.Quit
	}
	return m, nil
}

func (m watchModel) View() string {
	var b strings.Builder
	b.WriteString(ui.TitleStyle.Render("admin session") + "  " + ui.MutedStyle.Render("q quit · r refresh · any key keeps the session alive") + "\n\n")
	if m.ended != nil {
		b.WriteString(ui.BoxStyle.Render(ui.ErrStyle.Render(m.ended.notice)) + "\n")
		return b.String()
	}
	b.WriteString(renderSessions(m.sessions))
	if m.lastErr != nil {
		b.WriteString("\n" + ui.ErrStyle.Render("refresh failed: "+m.lastErr.Error()) + "\n")
	}
	return b.String()
}

// runWatch holds the session open until the user quits or a monitor ends it.
// It returns the reason code for the login redirect, or "" on a plain quit.
func runWatch(ctx context.Context, c *client.Client, store tokenStore, cfg watchConfig) (string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := make(chan endMsg, 1)
	var endOnce sync.Once
	end := func(reason, notice string, logout bool) {
		endOnce.Do(func() {
			if logout {
				logoutCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
				_ = c.Logout(logoutCtx, nil)
				cancel()
			}
			c.SetToken("")
			_ = store.Clear()
			events <- endMsg{reason: reason, notice: notice}
		})
	}

	idle := client.NewIdleMonitor(cfg.idle, func() {
		end("idle_timeout", "signed out after inactivity", true)
	})
	defer idle.Stop()

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	poller := client.NewRevocationPoller(c, cfg.poll, func() {
		end("session_revoked", "this session was revoked", false)
	}, quiet)
	poller.Start(ctx)
	defer poller.Stop()

	if cfg.locationFile != "" {
		watch := client.NewLivenessWatch(newLocationProbe(cfg.locationFile, c), cfg.poll, func(err error) {
			end("location_unavailable", "location signal lost: "+err.Error(), true)
		})
		watch.Start(ctx)
		defer watch.Stop()
	}

	final, err := tea.NewProgram(newWatchModel(c, idle.Touch, events), tea.WithMouseCellMotion()).Run()
	if err != nil {
		return "", err
	}
	if m, ok := final.(watchModel); ok && m.ended != nil {
		return m.ended.reason, nil
	}
	return "", nil
}

type locationUpdater interface {
	sessionLister
	UpdateLocation(ctx context.Context, sessionID string, loc domain.Location) (*domain.SessionRecord, error)
}

var errNoFix = errors.New("no location fix")

// newLocationProbe reads a location fix from path on every check. A missing
// or incomplete fix counts as a denied sensor. Fresh fixes are pushed to the
// current session.
func newLocationProbe(path string, api locationUpdater) client.SignalProbe {
	var (
		sessionID string
		last      domain.Location
	)
	return func(ctx context.Context) error {
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("%w: %v", errNoFix, err)
		}
		var loc domain.Location
		if err := json.Unmarshal(raw, &loc); err != nil {
			return fmt.Errorf("%w: %v", errNoFix, err)
		}
		if loc.Latitude == nil || loc.Longitude == nil {
			return errNoFix
		}
		if sameFix(loc, last) {
			return nil
		}
		if sessionID == "" {
			sessions, err := api.ListSessions(ctx)
			if err != nil {
				return nil
			}
			for _, s := range sessions {
				if s.IsCurrent {
					sessionID = s.SessionID
				}
			}
		}
		if sessionID != "" {
			if _, err := api.UpdateLocation(ctx, sessionID, loc); err == nil {
				last = loc
			}
		}
		return nil
	}
}

func sameFix(a, b domain.Location) bool {
	eq := func(x, y *float64) bool { return (x == nil && y == nil) || (x != nil && y != nil && *x == *y) }
	return eq(a.Latitude, b.Latitude) && eq(a.Longitude, b.Longitude)
}
