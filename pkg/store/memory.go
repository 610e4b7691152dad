package store

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/psantana5/vidgen/pkg/models"
)

var (
	ErrJobNotFound       = errors.New("job not found")
	ErrJobExists         = errors.New("job already exists")
	ErrInvalidTransition = errors.New("invalid job status transition")
)

// allowed server-side status transitions
var transitions = map[models.RemoteStatusValue][]models.RemoteStatusValue{
	models.RemoteStatusPending: {models.RemoteStatusRunning, models.RemoteStatusFailed},
	models.RemoteStatusRunning: {models.RemoteStatusCompleted, models.RemoteStatusFailed},
}

// MemoryStore is the in-memory job registry of the reference service.
// Jobs are lost on restart.
type MemoryStore struct {
	jobs  map[string]*models.Job
	order []string // creation order
	mu    sync.RWMutex
	now   func() time.Time
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs: make(map[string]*models.Job),
		now:  time.Now,
	}
}

// CreateJob registers a new pending job
func (s *MemoryStore) CreateJob(job *models.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[job.ID]; ok {
		return fmt.Errorf("%w: %s", ErrJobExists, job.ID)
	}
	if job.Status == "" {
		job.Status = models.RemoteStatusPending
	}
	if job.Message == "" {
		job.Message = "Queued"
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = s.now()
	}
	s.jobs[job.ID] = cloneJob(job)
	s.order = append(s.order, job.ID)
	return nil
}

// GetJob returns a copy of the job
func (s *MemoryStore) GetJob(id string) (*models.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	return cloneJob(job), nil
}

// GetAllJobs returns copies of all jobs in creation order
func (s *MemoryStore) GetAllJobs() []*models.Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]*models.Job, 0, len(s.order))
	for _, id := range s.order {
		jobs = append(jobs, cloneJob(s.jobs[id]))
	}
	return jobs
}

// Count returns the number of known jobs
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

// ActiveCount returns the number of pending or running jobs
func (s *MemoryStore) ActiveCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, job := range s.jobs {
		if job.Status == models.RemoteStatusPending || job.Status == models.RemoteStatusRunning {
			n++
		}
	}
	return n
}

// StartJob moves a pending job to running
func (s *MemoryStore) StartJob(id, message string, progress float64) error {
	return s.update(id, func(job *models.Job) error {
		if err := s.transitionLocked(job, models.RemoteStatusRunning, "picked up"); err != nil {
			return err
		}
		now := s.now()
		job.StartedAt = &now
		job.Message = message
		job.Progress = progress
		return nil
	})
}

// UpdateProgress sets the message and progress of a running job. Progress
// never moves backwards.
func (s *MemoryStore) UpdateProgress(id, message string, progress float64) error {
	return s.update(id, func(job *models.Job) error {
		if job.Status != models.RemoteStatusRunning {
			return fmt.Errorf("%w: job %s is %s", ErrInvalidTransition, id, job.Status)
		}
		job.Message = message
		if progress > job.Progress {
			job.Progress = min(progress, 100)
		}
		return nil
	})
}

// CompleteJob marks a running job completed with its video location
func (s *MemoryStore) CompleteJob(id, videoURL string) error {
	return s.update(id, func(job *models.Job) error {
		if err := s.transitionLocked(job, models.RemoteStatusCompleted, "rendered"); err != nil {
			return err
		}
		now := s.now()
		job.CompletedAt = &now
		job.Progress = 100
		job.Message = "Done"
		job.VideoURL = videoURL
		return nil
	})
}

// FailJob marks a pending or running job failed
func (s *MemoryStore) FailJob(id, reason string) error {
	return s.update(id, func(job *models.Job) error {
		if err := s.transitionLocked(job, models.RemoteStatusFailed, reason); err != nil {
			return err
		}
		now := s.now()
		job.CompletedAt = &now
		job.Message = reason
		return nil
	})
}

// FinishedBefore returns the IDs of completed or failed jobs that finished
// before cutoff, oldest first
func (s *MemoryStore) FinishedBefore(cutoff time.Time) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for _, id := range s.order {
		job := s.jobs[id]
		if job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
			ids = append(ids, id)
		}
	}
	return ids
}

// DeleteJob removes a finished job. Pending and running jobs are kept.
func (s *MemoryStore) DeleteJob(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return ErrJobNotFound
	}
	if job.CompletedAt == nil {
		return fmt.Errorf("%w: job %s is still %s", ErrInvalidTransition, id, job.Status)
	}
	delete(s.jobs, id)
	for i, other := range s.order {
		if other == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *MemoryStore) update(id string, fn func(*models.Job) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return ErrJobNotFound
	}
	return fn(job)
}

func (s *MemoryStore) transitionLocked(job *models.Job, to models.RemoteStatusValue, reason string) error {
	allowed := false
	for _, next := range transitions[job.Status] {
		if next == to {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("%w: %s -> %s for job %s", ErrInvalidTransition, job.Status, to, job.ID)
	}

	job.Transitions = append(job.Transitions, models.StatusTransition{
		From:      job.Status,
		To:        to,
		Timestamp: s.now(),
		Reason:    reason,
	})
	job.Status = to
	return nil
}

func cloneJob(job *models.Job) *models.Job {
	c := *job
	c.Scenes = append([]string(nil), job.Scenes...)
	c.Transitions = append([]models.StatusTransition(nil), job.Transitions...)
	if job.Request.Seed != nil {
		seed := *job.Request.Seed
		c.Request.Seed = &seed
	}
	if job.StartedAt != nil {
		t := *job.StartedAt
		c.StartedAt = &t
	}
	if job.CompletedAt != nil {
		t := *job.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}
