// Package tui renders a live terminal view of one video generation job.
package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/psantana5/vidgen/pkg/models"
)

// Controller is the part of the orchestrator the view drives
type Controller interface {
	Submit(ctx context.Context, req models.GenerationRequest) error
	Cancel()
	Snapshot() models.JobSnapshot
	Subscribe(fn func(models.JobSnapshot)) (unsubscribe func())
}

// Model is the bubbletea model for the generate view
type Model struct {
	ctx     context.Context
	ctrl    Controller
	req     models.GenerationRequest
	updates chan struct{}

	snapshot  models.JobSnapshot
	submitErr error
	width     int

	// ExitOnSettle quits as soon as the job completes or fails
	ExitOnSettle bool
	quitting     bool
}

// NewModel creates a model that submits req through ctrl once started
func NewModel(ctx context.Context, ctrl Controller, req models.GenerationRequest) *Model {
	return &Model{
		ctx:      ctx,
		ctrl:     ctrl,
		req:      req,
		updates:  make(chan struct{}, 1),
		snapshot: ctrl.Snapshot(),
		width:    80,
	}
}

// Watch subscribes the model to controller changes. The observer never
// blocks: it marks the model dirty and the view reads the latest snapshot.
func (m *Model) Watch() (unsubscribe func()) {
	return m.ctrl.Subscribe(func(models.JobSnapshot) {
		select {
		case m.updates <- struct{}{}:
		default:
		}
	})
}

// Snapshot returns the last snapshot the view rendered
func (m *Model) Snapshot() models.JobSnapshot {
	return m.snapshot
}

// Init submits the request and starts listening for changes
func (m *Model) Init() tea.Cmd {
	return tea.Batch(submitCmd(m.ctx, m.ctrl, m.req), waitForChange(m.updates, m.ctrl))
}
