package shutdown

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShutdownRunsLIFO(t *testing.T) {
	m := New(time.Second, zerolog.Nop())

	var order []string
	m.Register("first", func(context.Context) error { order = append(order, "first"); return nil })
	m.Register("second", func(context.Context) error { order = append(order, "second"); return errors.New("boom") })
	m.Register("third", func(context.Context) error { order = append(order, "third"); return nil })

	err := m.Shutdown()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, []string{"third", "second", "first"}, order)

	select {
	case <-m.Done():
	default:
		t.Fatal("Done should be closed after Shutdown")
	}
}

func TestWaitWithContext(t *testing.T) {
	m := New(time.Second, zerolog.Nop())
	var ran atomic.Bool
	m.Register("step", func(context.Context) error { ran.Store(true); return nil })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, m.WaitWithContext(ctx), context.Canceled)
	assert.False(t, ran.Load())

	m.Trigger()
	require.NoError(t, m.WaitWithContext(context.Background()))
	assert.True(t, ran.Load())
}

func TestWaitForJobs(t *testing.T) {
	var remaining atomic.Int32
	remaining.Store(2)
	check := func() bool { return remaining.Add(-1) <= 0 }

	require.NoError(t, WaitForJobs(check, time.Millisecond, "jobs")(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	err := WaitForJobs(func() bool { return false }, time.Millisecond, "jobs")(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
