package cleanup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psantana5/vidgen/pkg/models"
	"github.com/psantana5/vidgen/pkg/store"
)

type flakyStore struct {
	ids []string
}

func (f *flakyStore) FinishedBefore(time.Time) []string { return f.ids }
func (f *flakyStore) DeleteJob(id string) error {
	if id == "stuck" {
		return errors.New("locked")
	}
	return nil
}

func TestRunOnce_DeletesExpiredJobs(t *testing.T) {
	s := store.NewMemoryStore()
	for _, id := range []string{"done", "active"} {
		require.NoError(t, s.CreateJob(&models.Job{ID: id}))
		require.NoError(t, s.StartJob(id, "Initializing", 2))
	}
	require.NoError(t, s.CompleteJob("done", "/media/videos/done.mp4"))

	m := NewManager(Config{Enabled: true, Retention: time.Minute, Interval: time.Minute}, s, zerolog.Nop())
	assert.Zero(t, m.RunOnce(), "job is younger than the retention")

	m.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	assert.Equal(t, 1, m.RunOnce())
	assert.Equal(t, 1, s.Count())

	stats := m.GetStats()
	assert.Equal(t, int64(2), stats.Runs)
	assert.Equal(t, int64(1), stats.TotalJobsDeleted)
}

func TestRunOnce_SkipsFailedDeletes(t *testing.T) {
	m := NewManager(DefaultConfig(), &flakyStore{ids: []string{"a", "stuck", "b"}}, zerolog.Nop())
	assert.Equal(t, 2, m.RunOnce())
}

func TestRun_DisabledReturns(t *testing.T) {
	m := NewManager(Config{}, &flakyStore{}, zerolog.Nop())
	done := make(chan struct{})
	go func() {
		m.Run(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("disabled manager should return immediately")
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	fs := &flakyStore{}
	m := NewManager(Config{Enabled: true, Retention: time.Second, Interval: time.Millisecond}, fs, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return m.GetStats().Runs > 0 }, time.Second, time.Millisecond)
	cancel()
	<-done
}
