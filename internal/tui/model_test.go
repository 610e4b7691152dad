package tui

import (
	"context"
	"errors"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psantana5/vidgen/pkg/models"
)

type fakeController struct {
	mu        sync.Mutex
	snap      models.JobSnapshot
	observers []func(models.JobSnapshot)
	submits   int
	cancels   int
	submitErr error
}

func (f *fakeController) Submit(context.Context, models.GenerationRequest) error {
	f.mu.Lock()
	f.submits++
	f.mu.Unlock()
	f.set(models.JobSnapshot{JobID: "job-1", State: models.StatePolling, Message: "Submitted"})
	return f.submitErr
}

func (f *fakeController) Cancel() {
	f.mu.Lock()
	f.cancels++
	f.mu.Unlock()
	f.set(models.JobSnapshot{JobID: "job-1", State: models.StateIdle, Message: "Cancelled"})
}

func (f *fakeController) Snapshot() models.JobSnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

func (f *fakeController) Subscribe(fn func(models.JobSnapshot)) func() {
	f.mu.Lock()
	f.observers = append(f.observers, fn)
	f.mu.Unlock()
	return func() {}
}

func (f *fakeController) set(s models.JobSnapshot) {
	f.mu.Lock()
	f.snap = s
	obs := append([]func(models.JobSnapshot){}, f.observers...)
	f.mu.Unlock()
	for _, fn := range obs {
		fn(s)
	}
}

func testRequest() models.GenerationRequest {
	return models.GenerationRequest{
		Prompt: "sunset over the sea", Style: models.StyleCinematic, NumScenes: 5,
		DurationPerScene: 3, FPS: 24, Voice: "en",
	}
}

func TestModel_SubmitAndRender(t *testing.T) {
	ctrl := &fakeController{}
	m := NewModel(context.Background(), ctrl, testRequest())
	m.Watch()

	msg := submitCmd(m.ctx, ctrl, m.req)()
	require.IsType(t, SubmitDoneMsg{}, msg)
	m.Update(msg)

	next := waitForChange(m.updates, ctrl)()
	_, cmd := m.Update(next)
	assert.NotNil(t, cmd)
	assert.Equal(t, models.StatePolling, m.Snapshot().State)

	view := m.View()
	assert.Contains(t, view, "POLLING")
	assert.Contains(t, view, "job-1")
	assert.Contains(t, view, "sunset over the sea")
	assert.Contains(t, view, "c: cancel")
}

func TestModel_CompletedView(t *testing.T) {
	ctrl := &fakeController{}
	m := NewModel(context.Background(), ctrl, testRequest())
	m.ExitOnSettle = true

	_, cmd := m.Update(SnapshotMsg{Snapshot: models.JobSnapshot{
		JobID: "job-1", State: models.StateCompleted, Progress: 100,
		Message: "Done", VideoURL: "http://localhost:8000/media/videos/job-1.mp4",
	}})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())

	view := m.View()
	assert.Contains(t, view, "COMPLETED")
	assert.Contains(t, view, "Video ready")
	assert.Contains(t, view, "/media/videos/job-1.mp4")
	assert.Contains(t, view, "100%")
}

func TestModel_FailedShowsMessage(t *testing.T) {
	m := NewModel(context.Background(), &fakeController{}, testRequest())
	m.Update(SnapshotMsg{Snapshot: models.JobSnapshot{State: models.StateFailed, Message: "Submission failed: boom"}})
	m.Update(SubmitDoneMsg{Err: errors.New("submission failed: boom")})

	view := m.View()
	assert.Contains(t, view, "FAILED")
	assert.Contains(t, view, "Submission failed: boom")
	assert.Contains(t, view, "r: run again")
}

func TestModel_QuitCancelsActiveJob(t *testing.T) {
	ctrl := &fakeController{}
	m := NewModel(context.Background(), ctrl, testRequest())
	m.Update(SnapshotMsg{Snapshot: models.JobSnapshot{JobID: "job-1", State: models.StatePolling}})

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	msg := cmd()
	assert.Equal(t, 1, ctrl.cancels)

	_, cmd = m.Update(msg)
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestModel_QuitWhenSettled(t *testing.T) {
	ctrl := &fakeController{}
	m := NewModel(context.Background(), ctrl, testRequest())

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Zero(t, ctrl.cancels)
}

func TestModel_RerunAfterSettle(t *testing.T) {
	ctrl := &fakeController{}
	m := NewModel(context.Background(), ctrl, testRequest())
	m.Update(SnapshotMsg{Snapshot: models.JobSnapshot{State: models.StateFailed, Message: "Generation failed"}})

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	require.NotNil(t, cmd)
	cmd()
	assert.Equal(t, 1, ctrl.submits)

	m.Update(SnapshotMsg{Snapshot: ctrl.Snapshot()})
	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	assert.Nil(t, cmd)
}

func TestRenderBarAndTruncate(t *testing.T) {
	assert.Equal(t, barWidth, len([]rune(stripBar(renderBar(50)))))
	assert.Equal(t, barWidth, len([]rune(stripBar(renderBar(250)))))
	assert.Equal(t, "abcd...", truncate("abcdefghij", 7))
	assert.Equal(t, "abc", truncate("abc", 7))
}

// stripBar keeps only the bar glyphs of a rendered bar
func stripBar(s string) string {
	var out []rune
	for _, r := range s {
		if r == '█' || r == '░' {
			out = append(out, r)
		}
	}
	return string(out)
}
