package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Update handles messages and updates the model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case SnapshotMsg:
		m.snapshot = msg.Snapshot
		if m.ExitOnSettle && m.snapshot.State.IsTerminal() {
			m.quitting = true
			return m, tea.Quit
		}
		return m, waitForChange(m.updates, m.ctrl)

	case SubmitDoneMsg:
		m.submitErr = msg.Err
		return m, nil

	case cancelledMsg:
		if m.quitting {
			return m, tea.Quit
		}
		return m, nil
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		m.quitting = true
		if m.snapshot.State.IsActive() {
			return m, cancelCmd(m.ctrl)
		}
		return m, tea.Quit

	case "c":
		if m.snapshot.State.IsActive() {
			return m, cancelCmd(m.ctrl)
		}

	case "r":
		if !m.snapshot.State.IsActive() {
			m.submitErr = nil
			return m, submitCmd(m.ctx, m.ctrl, m.req)
		}
	}
	return m, nil
}
