// Package orchestrator drives one video generation job at a time from
// submission to a terminal state and publishes snapshots of its progress.
//
// A job cycle owns a generation number and a context. Cancel, Close and a
// new cycle bump the generation, so a status response that arrives for an
// older cycle is dropped without touching the snapshot. Only one status
// query is in flight at a time: the loop arms its timer again only after
// the previous query returned.
package orchestrator

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/psantana5/vidgen/pkg/builder"
	"github.com/psantana5/vidgen/pkg/genclient"
	"github.com/psantana5/vidgen/pkg/metrics"
	"github.com/psantana5/vidgen/pkg/models"
)

// Service is the remote generation service. Implementations must honor
// context cancellation.
type Service interface {
	Submit(ctx context.Context, req models.GenerationRequest) (models.JobHandle, error)
	Status(ctx context.Context, job models.JobHandle) (models.RemoteStatus, error)
}

// Orchestrator owns the single JobSnapshot of one job cycle. It is safe for
// concurrent use. Observers are called synchronously, one notification at a
// time and in order; they may call Snapshot or Subscribe but must not call
// Submit, Cancel or Close.
type Orchestrator struct {
	svc      Service
	interval time.Duration
	baseURL  string
	logger   zerolog.Logger
	metrics  *metrics.Orchestrator
	now      func() time.Time

	mu        sync.Mutex
	snap      models.JobSnapshot
	gen       uint64
	cancel    context.CancelFunc
	loopDone  chan struct{} // closed when the current cycle stopped working
	changed   chan struct{} // closed and replaced on every snapshot change
	started   time.Time
	closed    bool
	observers []observer
	nextObs   int
	ticket    uint64 // next notification number, guarded by mu

	// Notifications are delivered one at a time in ticket order
	notifyMu   sync.Mutex
	notifyCond *sync.Cond
	served     uint64
}

type observer struct {
	id int
	fn func(models.JobSnapshot)
}

// New creates an idle orchestrator for svc
func New(svc Service, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		svc:      svc,
		interval: DefaultPollInterval,
		logger:   zerolog.Nop(),
		now:      time.Now,
		changed:  make(chan struct{}),
	}
	o.notifyCond = sync.NewCond(&o.notifyMu)
	for _, opt := range opts {
		opt(o)
	}
	if o.baseURL == "" {
		if b, ok := svc.(interface{ BaseURL() string }); ok {
			o.baseURL = b.BaseURL()
		}
	}
	o.snap = models.JobSnapshot{State: models.StateIdle, UpdatedAt: o.now()}
	return o
}

// Snapshot returns a copy of the current job snapshot
func (o *Orchestrator) Snapshot() models.JobSnapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snap
}

// Subscribe registers fn to receive a copy of every new snapshot. The
// returned function removes it.
func (o *Orchestrator) Subscribe(fn func(models.JobSnapshot)) (unsubscribe func()) {
	o.mu.Lock()
	id := o.nextObs
	o.nextObs++
	o.observers = append(o.observers, observer{id: id, fn: fn})
	o.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			o.mu.Lock()
			defer o.mu.Unlock()
			for i, obs := range o.observers {
				if obs.id == id {
					o.observers = append(o.observers[:i:i], o.observers[i+1:]...)
					return
				}
			}
		})
	}
}

// Submit starts a new job cycle for req. It returns once the service has
// accepted or rejected the job; polling then continues in the background.
// A rejected job leaves the snapshot Failed and returns a *SubmissionError.
func (o *Orchestrator) Submit(ctx context.Context, req models.GenerationRequest) error {
	if err := builder.Validate(req); err != nil {
		return err
	}

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return ErrClosed
	}
	if o.snap.State.IsActive() {
		state := o.snap.State
		o.mu.Unlock()
		o.metrics.Submission("conflict")
		return fmt.Errorf("%w: job is %s", ErrConflict, state)
	}

	o.gen++
	gen := o.gen
	cycleCtx, cancel := context.WithCancel(context.Background())
	prevDone := o.loopDone
	done := make(chan struct{})
	o.cancel = cancel
	o.loopDone = done
	o.started = o.now()
	o.transitionLocked(models.JobSnapshot{
		State:    models.StateSubmitting,
		Progress: 0,
		Message:  "Queued",
	})
	o.publishLocked()

	// A previous loop may still be returning from its final response
	if prevDone != nil {
		<-prevDone
	}
	if cycleCtx.Err() != nil {
		close(done)
		o.metrics.Submission("cancelled")
		return ErrCancelled
	}

	submitCtx, stop := context.WithCancel(ctx)
	stopAfter := context.AfterFunc(cycleCtx, stop)
	job, err := o.svc.Submit(submitCtx, req)
	stopAfter()
	stop()

	o.mu.Lock()
	if gen != o.gen || o.snap.State != models.StateSubmitting {
		o.mu.Unlock()
		close(done)
		o.metrics.Submission("cancelled")
		return ErrCancelled
	}

	if err != nil {
		cancel()
		o.metrics.Submission("rejected")
		o.metrics.Finished(string(models.StateFailed), o.now().Sub(o.started))
		o.logger.Error().Err(err).Msg("job submission failed")
		o.transitionLocked(models.JobSnapshot{
			State:   models.StateFailed,
			Message: "Submission failed: " + err.Error(),
		})
		o.publishLocked()
		close(done)
		return &SubmissionError{Err: err}
	}

	o.metrics.Submission("accepted")
	o.logger.Info().Str("job_id", string(job)).Msg("job accepted")
	o.transitionLocked(models.JobSnapshot{
		JobID:    job,
		State:    models.StatePolling,
		Progress: 0,
		Message:  "Queued",
	})
	go o.pollLoop(cycleCtx, gen, job, done)
	o.publishLocked()
	return nil
}

// Cancel stops the active job cycle, if any, and moves the snapshot to Idle.
// The service is not told. A status query still in flight is left to
// return on its own and its response is discarded.
func (o *Orchestrator) Cancel() {
	o.stop(false)
}

// Close cancels the active cycle and rejects further submissions. It waits
// for the polling goroutine to exit.
func (o *Orchestrator) Close() error {
	o.stop(true)
	return nil
}

func (o *Orchestrator) stop(closing bool) {
	o.mu.Lock()
	if closing {
		o.closed = true
	}
	done := o.loopDone

	if !o.snap.State.IsActive() {
		o.mu.Unlock()
		if closing && done != nil {
			<-done
		}
		return
	}

	o.gen++
	if o.cancel != nil {
		o.cancel()
	}
	o.metrics.Finished("cancelled", o.now().Sub(o.started))
	o.logger.Info().Str("job_id", string(o.snap.JobID)).Msg("job cancelled")
	o.transitionLocked(models.JobSnapshot{
		JobID:    o.snap.JobID,
		State:    models.StateIdle,
		Progress: o.snap.Progress,
		Message:  "Cancelled",
	})
	o.publishLocked()

	if closing && done != nil {
		<-done
	}
}

// Wait blocks until no job is submitting or polling and returns that
// snapshot.
func (o *Orchestrator) Wait(ctx context.Context) (models.JobSnapshot, error) {
	for {
		o.mu.Lock()
		snap, changed := o.snap, o.changed
		o.mu.Unlock()

		if snap.State.IsSettled() {
			return snap, nil
		}
		select {
		case <-ctx.Done():
			return snap, ctx.Err()
		case <-changed:
		}
	}
}

func (o *Orchestrator) pollLoop(ctx context.Context, gen uint64, job models.JobHandle, done chan struct{}) {
	defer close(done)

	timer := time.NewTimer(o.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		start := time.Now()
		status, err := o.svc.Status(ctx, job)
		if !o.apply(gen, job, status, err, time.Since(start)) {
			return
		}
		timer.Reset(o.interval)
	}
}

// apply folds one status response into the snapshot and reports whether
// polling should continue
func (o *Orchestrator) apply(gen uint64, job models.JobHandle, st models.RemoteStatus, err error, latency time.Duration) bool {
	o.mu.Lock()
	if gen != o.gen || o.snap.State != models.StatePolling {
		o.mu.Unlock()
		o.metrics.Poll("discarded", latency)
		return false
	}

	if err != nil {
		pollErr := &TransientPollError{JobID: job, Err: err}
		o.metrics.Poll("transient_error", latency)
		o.logger.Warn().Err(pollErr).Msg("status check failed")
		next := o.snap
		next.Message = fmt.Sprintf("Status check failed: %v; retrying", err)
		o.transitionLocked(next)
		o.publishLocked()
		return true
	}
	o.metrics.Poll("ok", latency)

	next := o.snap
	next.Progress = mergeProgress(o.snap.Progress, st.Progress)
	next.Message = st.Message

	switch {
	case st.IsCompleted():
		videoURL := genclient.ResolveVideoURL(o.baseURL, st.VideoURL)
		if videoURL == "" {
			next.State = models.StateFailed
			next.Message = "Service reported completion without a video URL"
			break
		}
		next.State = models.StateCompleted
		next.Progress = 100
		next.VideoURL = videoURL
		if next.Message == "" {
			next.Message = "Done"
		}
	case st.IsFailed():
		next.State = models.StateFailed
		if next.Message == "" {
			next.Message = "Generation failed"
		}
	}

	if next.State.IsTerminal() {
		o.cancel()
		o.metrics.Finished(string(next.State), o.now().Sub(o.started))
		if next.State == models.StateFailed {
			o.logger.Error().Str("job_id", string(job)).Str("reason", next.Message).Msg("job failed")
		} else {
			o.logger.Info().Str("job_id", string(job)).Str("video_url", next.VideoURL).Msg("job completed")
		}
	}
	o.transitionLocked(next)
	o.publishLocked()
	return !next.State.IsTerminal()
}

// transitionLocked replaces the snapshot. Must hold o.mu.
func (o *Orchestrator) transitionLocked(next models.JobSnapshot) {
	if next.State != o.snap.State {
		if err := models.ValidateTransition(o.snap.State, next.State); err != nil {
			o.logger.Error().Err(err).Msg("unexpected job state transition")
		}
		o.logger.Debug().
			Str("job_id", string(next.JobID)).
			Str("from", string(o.snap.State)).
			Str("to", string(next.State)).
			Msg("job state changed")
	}
	next.UpdatedAt = o.now()
	o.snap = next
}

// publishLocked wakes waiters and hands a copy of the snapshot to every
// observer. Must hold o.mu; releases it.
func (o *Orchestrator) publishLocked() {
	snap := o.snap
	close(o.changed)
	o.changed = make(chan struct{})
	observers := make([]observer, len(o.observers))
	copy(observers, o.observers)
	ticket := o.ticket
	o.ticket++
	o.mu.Unlock()

	o.notifyMu.Lock()
	defer o.notifyMu.Unlock()
	for o.served != ticket {
		o.notifyCond.Wait()
	}
	for _, obs := range observers {
		obs.fn(snap)
	}
	o.served++
	o.notifyCond.Broadcast()
}

// mergeProgress clamps a reported value to [0,100] and never goes below
// the current value
func mergeProgress(current, reported float64) float64 {
	if math.IsNaN(reported) {
		return current
	}
	reported = math.Max(0, math.Min(100, reported))
	return math.Max(current, reported)
}
