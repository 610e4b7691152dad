// Package pipeline plans and walks the stages of a generation job for the
// reference service. Stages report progress the way a real renderer would;
// no frames or audio are produced.
package pipeline

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/psantana5/vidgen/pkg/metrics"
	"github.com/psantana5/vidgen/pkg/models"
)

// Stage is one step of a job with the status it reports when entered
type Stage struct {
	Name     string // metrics label
	Message  string
	Progress float64
	Scene    int // scene index for scene stages, -1 otherwise
}

// SplitScenes cuts prompt into sentences and truncates or repeats them to
// exactly n scenes
func SplitScenes(prompt string, n int) []string {
	if n < 1 {
		return nil
	}
	var raw []string
	for _, part := range strings.FieldsFunc(prompt, func(r rune) bool {
		return r == '.' || r == '?' || r == '!'
	}) {
		if s := strings.TrimSpace(part); s != "" {
			raw = append(raw, s)
		}
	}
	if len(raw) == 0 {
		raw = []string{strings.TrimSpace(prompt)}
	}
	if len(raw) >= n {
		return raw[:n]
	}

	out := make([]string, 0, n)
	for i := 0; len(out) < n; i++ {
		out = append(out, raw[i%len(raw)])
	}
	return out
}

// Plan lists the stages for req. Scene steps share the progress range with
// assembling, audio and writing.
func Plan(req models.GenerationRequest) []Stage {
	n := req.NumScenes
	per := math.Max(100/float64(max(n+3, 1)), 1)

	stages := []Stage{{Name: "init", Message: "Initializing", Progress: 2, Scene: -1}}
	progress := 2.0
	for i := 0; i < n; i++ {
		progress = math.Min(95, 5+float64(i+1)*per)
		stages = append(stages, Stage{
			Name:     "scene",
			Message:  fmt.Sprintf("Generating scene %d/%d", i+1, n),
			Progress: progress,
			Scene:    i,
		})
	}
	progress = math.Min(98, progress+per)
	stages = append(stages, Stage{Name: "assemble", Message: "Assembling video", Progress: progress, Scene: -1})
	if req.AddTTS {
		stages = append(stages, Stage{Name: "tts", Message: "Synthesizing voiceover", Progress: progress, Scene: -1})
	}
	if req.AddMusic {
		stages = append(stages, Stage{Name: "music", Message: "Generating background music", Progress: progress, Scene: -1})
	}
	stages = append(stages, Stage{Name: "write", Message: "Writing video", Progress: progress, Scene: -1})
	return stages
}

// JobStore is the part of the job registry the runner drives
type JobStore interface {
	StartJob(id, message string, progress float64) error
	UpdateProgress(id, message string, progress float64) error
	CompleteJob(id, videoURL string) error
	FailJob(id, reason string) error
}

// Config tunes the simulated renderer
type Config struct {
	StepDelay time.Duration  // time spent in each stage
	FailRate  float64        // probability in [0,1] that a job fails midway
	Rand      func() float64 // defaults to math/rand/v2
}

// Runner executes job plans in background goroutines
type Runner struct {
	store   JobStore
	cfg     Config
	metrics *metrics.Service
	logger  zerolog.Logger
	wg      sync.WaitGroup
}

// NewRunner creates a runner that reports through store
func NewRunner(store JobStore, cfg Config, m *metrics.Service, logger zerolog.Logger) *Runner {
	if cfg.Rand == nil {
		cfg.Rand = rand.Float64
	}
	return &Runner{store: store, cfg: cfg, metrics: m, logger: logger}
}

// Go runs job in a new goroutine
func (r *Runner) Go(ctx context.Context, job *models.Job) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.Run(ctx, job); err != nil {
			r.logger.Warn().Err(err).Str("job_id", job.ID).Msg("job did not complete")
		}
	}()
}

// Wait blocks until every job started with Go has returned
func (r *Runner) Wait() {
	r.wg.Wait()
}

// Run walks the plan for job and leaves it completed or failed
func (r *Runner) Run(ctx context.Context, job *models.Job) error {
	stages := Plan(job.Request)
	failAt := -1
	if r.cfg.FailRate > 0 && r.cfg.Rand() < r.cfg.FailRate {
		failAt = int(r.cfg.Rand() * float64(len(stages)))
	}
	style := job.Request.Style.Prompt()

	for i, stage := range stages {
		var err error
		if i == 0 {
			err = r.store.StartJob(job.ID, stage.Message, stage.Progress)
		} else {
			err = r.store.UpdateProgress(job.ID, stage.Message, stage.Progress)
		}
		if err != nil {
			return fmt.Errorf("failed to record stage %s: %w", stage.Name, err)
		}

		if stage.Scene >= 0 && stage.Scene < len(job.Scenes) {
			ev := r.logger.Debug().
				Str("job_id", job.ID).
				Str("scene_prompt", job.Scenes[stage.Scene]+", "+style.Add).
				Str("negative_prompt", style.Negative)
			if seed := job.Request.SeedFor(stage.Scene); seed != nil {
				ev = ev.Int64("seed", *seed)
			}
			ev.Msg("rendering scene")
		}

		start := time.Now()
		if err := sleep(ctx, r.cfg.StepDelay); err != nil {
			reason := "Cancelled: service shutting down"
			r.finish(job.ID, models.RemoteStatusFailed, r.store.FailJob(job.ID, reason))
			return err
		}
		r.metrics.ObserveStage(stage.Name, time.Since(start))

		if i == failAt {
			reason := fmt.Sprintf("Simulated failure while %s", strings.ToLower(stage.Message))
			r.finish(job.ID, models.RemoteStatusFailed, r.store.FailJob(job.ID, reason))
			return nil
		}
	}

	videoURL := fmt.Sprintf("/media/videos/%s.mp4", job.ID)
	r.finish(job.ID, models.RemoteStatusCompleted, r.store.CompleteJob(job.ID, videoURL))
	return nil
}

func (r *Runner) finish(id string, status models.RemoteStatusValue, err error) {
	if err != nil {
		r.logger.Error().Err(err).Str("job_id", id).Msg("failed to record final status")
		return
	}
	r.metrics.JobFinished(string(status))
	r.logger.Info().Str("job_id", id).Str("status", string(status)).Msg("job finished")
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
