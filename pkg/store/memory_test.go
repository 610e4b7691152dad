package store

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psantana5/vidgen/pkg/models"
)

func newJob(id string) *models.Job {
	return &models.Job{
		ID:      id,
		Request: models.GenerationRequest{Prompt: "sunset", Style: models.StyleCinematic, NumScenes: 2},
		Scenes:  []string{"sunset", "sunset"},
	}
}

func TestMemoryStore_Lifecycle(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.CreateJob(newJob("abc")))
	assert.Equal(t, 1, s.ActiveCount())

	job, err := s.GetJob("abc")
	require.NoError(t, err)
	assert.Equal(t, models.RemoteStatusPending, job.Status)
	assert.Equal(t, "Queued", job.Message)
	assert.False(t, job.CreatedAt.IsZero())

	require.NoError(t, s.StartJob("abc", "Initializing", 2))
	require.NoError(t, s.UpdateProgress("abc", "Generating scene 1/2", 45))
	require.NoError(t, s.UpdateProgress("abc", "Assembling video", 30))

	job, err = s.GetJob("abc")
	require.NoError(t, err)
	assert.Equal(t, models.RemoteStatusRunning, job.Status)
	assert.Equal(t, 45.0, job.Progress, "progress must not go backwards")
	assert.Equal(t, "Assembling video", job.Message)
	require.NotNil(t, job.StartedAt)

	require.NoError(t, s.CompleteJob("abc", "/media/videos/abc.mp4"))
	job, err = s.GetJob("abc")
	require.NoError(t, err)

	st := job.RemoteStatus()
	assert.True(t, st.IsCompleted())
	assert.Equal(t, 100.0, st.Progress)
	assert.Equal(t, "/media/videos/abc.mp4", st.VideoURL)
	assert.Zero(t, s.ActiveCount())

	require.Len(t, job.Transitions, 2)
	assert.Equal(t, models.RemoteStatusPending, job.Transitions[0].From)
	assert.Equal(t, models.RemoteStatusCompleted, job.Transitions[1].To)
}

func TestMemoryStore_InvalidTransitions(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.CreateJob(newJob("abc")))

	assert.ErrorIs(t, s.CompleteJob("abc", "/x.mp4"), ErrInvalidTransition)
	assert.ErrorIs(t, s.UpdateProgress("abc", "x", 10), ErrInvalidTransition)

	require.NoError(t, s.FailJob("abc", "Out of memory"))
	assert.ErrorIs(t, s.StartJob("abc", "Initializing", 2), ErrInvalidTransition)
	assert.ErrorIs(t, s.FailJob("abc", "again"), ErrInvalidTransition)

	job, err := s.GetJob("abc")
	require.NoError(t, err)
	assert.Equal(t, "Out of memory", job.Message)
	assert.Empty(t, job.VideoURL)
}

func TestMemoryStore_NotFoundAndDuplicate(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.GetJob("missing")
	assert.True(t, errors.Is(err, ErrJobNotFound))
	assert.ErrorIs(t, s.StartJob("missing", "", 0), ErrJobNotFound)

	require.NoError(t, s.CreateJob(newJob("abc")))
	assert.ErrorIs(t, s.CreateJob(newJob("abc")), ErrJobExists)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.CreateJob(newJob("a")))
	require.NoError(t, s.CreateJob(newJob("b")))

	job, err := s.GetJob("a")
	require.NoError(t, err)
	job.Scenes[0] = "mutated"
	job.Progress = 99

	again, err := s.GetJob("a")
	require.NoError(t, err)
	assert.Equal(t, "sunset", again.Scenes[0])
	assert.Zero(t, again.Progress)

	all := s.GetAllJobs()
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].ID)
	assert.Equal(t, "b", all[1].ID)
	assert.Equal(t, 2, s.Count())
}

func TestMemoryStore_FinishedBeforeAndDelete(t *testing.T) {
	clock := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewMemoryStore()
	s.now = func() time.Time { return clock }

	for _, id := range []string{"old", "running", "new"} {
		require.NoError(t, s.CreateJob(newJob(id)))
		require.NoError(t, s.StartJob(id, "Initializing", 2))
	}
	require.NoError(t, s.CompleteJob("old", "/media/videos/old.mp4"))
	clock = clock.Add(time.Hour)
	require.NoError(t, s.FailJob("new", "boom"))

	assert.Equal(t, []string{"old"}, s.FinishedBefore(clock))
	assert.Equal(t, []string{"old", "new"}, s.FinishedBefore(clock.Add(time.Second)))

	require.NoError(t, s.DeleteJob("old"))
	assert.ErrorIs(t, s.DeleteJob("old"), ErrJobNotFound)
	assert.ErrorIs(t, s.DeleteJob("running"), ErrInvalidTransition)
	assert.Equal(t, 2, s.Count())
	assert.Len(t, s.GetAllJobs(), 2)
}
