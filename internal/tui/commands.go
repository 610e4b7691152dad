package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/psantana5/vidgen/pkg/models"
)

// SnapshotMsg carries the latest job snapshot
type SnapshotMsg struct {
	Snapshot models.JobSnapshot
}

// SubmitDoneMsg is sent when the submit call returns
type SubmitDoneMsg struct {
	Err error
}

type cancelledMsg struct{}

func submitCmd(ctx context.Context, ctrl Controller, req models.GenerationRequest) tea.Cmd {
	return func() tea.Msg {
		return SubmitDoneMsg{Err: ctrl.Submit(ctx, req)}
	}
}

// waitForChange blocks until the controller published something new
func waitForChange(updates <-chan struct{}, ctrl Controller) tea.Cmd {
	return func() tea.Msg {
		<-updates
		return SnapshotMsg{Snapshot: ctrl.Snapshot()}
	}
}

// Cancel publishes synchronously, so it must not run on the update loop
func cancelCmd(ctrl Controller) tea.Cmd {
	return func() tea.Msg {
		ctrl.Cancel()
		return cancelledMsg{}
	}
}
