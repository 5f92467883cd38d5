// Package ui renders operator command progress in the terminal.
package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	OKStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	ErrStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	MutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	BoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("63")).Padding(0, 1)
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

type tickMsg struct{}

type doneMsg struct {
	details []string
	err     error
}

type taskModel struct {
	title   string
	frame   int
	done    bool
	details []string
	err     error
	run     tea.Cmd
}

func (m taskModel) Init() tea.Cmd {
	return tea.Batch(m.run, tick())
}

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(time.Time) tea.Msg { return tickMsg{} })
}

func (m taskModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		if m.done {
			return m, nil
		}
		m.frame = (m.frame + 1) % len(spinnerFrames)
		return m, tick()
	case doneMsg:
		m.done = true
		m.details = msg.details
		m.err = msg.err
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.done = true
			m.err = context.Canceled
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m taskModel) View() string {
	var b strings.Builder
	if !m.done {
		fmt.Fprintf(&b, "%s %s\n", spinnerFrames[m.frame], TitleStyle.Render(m.title))
		return b.String()
	}
	status := OKStyle.Render("ok")
	if m.err != nil {
		status = ErrStyle.Render("failed")
	}
	fmt.Fprintf(&b, "%s %s\n", TitleStyle.Render(m.title), status)
	for _, d := range m.details {
		fmt.Fprintf(&b, "  %s\n", MutedStyle.Render(d))
	}
	if m.err != nil {
		fmt.Fprintf(&b, "  %s\n", ErrStyle.Render(m.err.Error()))
	}
	return b.String()
}

// Run executes fn behind a spinner and prints its details when it finishes.
func Run(title string, fn func(context.Context) ([]string, error)) ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	model := taskModel{
		title: title,
		run: func() tea.Msg {
			details, err := fn(ctx)
			return doneMsg{details: details, err: err}
		},
	}
	final, err := tea.NewProgram(model).Run()
	if err != nil {
		return nil, err
	}
	m := final.(taskModel)
	return m.details, m.err
}
