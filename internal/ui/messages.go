package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/yildizm/AttendSum/internal/dashboard"
)

// actionMsg carries the outcome of a finished dashboard request
type actionMsg struct {
	action dashboard.Action
}

// changedMsg signals that the controller state changed outside Update,
// for example after a session change
type changedMsg struct{}

// commands runs every dashboard Cmd as its own tea.Cmd so requests for
// different concerns finish independently
func commands(ctx context.Context, cmds []dashboard.Cmd) tea.Cmd {
	if len(cmds) == 0 {
		return nil
	}
	batch := make([]tea.Cmd, 0, len(cmds))
	for _, cmd := range cmds {
		if cmd == nil {
			continue
		}
		batch = append(batch, func() tea.Msg {
			return actionMsg{action: cmd(ctx)}
		})
	}
	return tea.Batch(batch...)
}

// waitForChange blocks until the controller reports a change
func waitForChange(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return changedMsg{}
	}
}
