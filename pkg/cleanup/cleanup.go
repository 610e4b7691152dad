// Package cleanup evicts finished jobs from the development service's
// registry once they are older than the retention period.
package cleanup

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config defines the retention policy and how often it is applied
type Config struct {
	Enabled   bool
	Retention time.Duration // finished jobs older than this are deleted
	Interval  time.Duration
}

// DefaultConfig returns sensible defaults for cleanup
func DefaultConfig() Config {
	return Config{
		Enabled:   true,
		Retention: time.Hour,
		Interval:  5 * time.Minute,
	}
}

// Store is the part of the job registry the manager needs
type Store interface {
	FinishedBefore(cutoff time.Time) []string
	DeleteJob(id string) error
}

// Stats tracks cleanup runs
type Stats struct {
	LastRun          time.Time
	LastRunDuration  time.Duration
	TotalJobsDeleted int64
	Runs             int64
}

// Manager periodically deletes expired jobs
type Manager struct {
	config Config
	store  Store
	logger zerolog.Logger
	now    func() time.Time

	mu    sync.RWMutex
	stats Stats
}

// NewManager creates a new cleanup manager
func NewManager(config Config, store Store, logger zerolog.Logger) *Manager {
	return &Manager{
		config: config,
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// Run applies the policy every interval until ctx is done
func (m *Manager) Run(ctx context.Context) {
	if !m.config.Enabled || m.config.Retention <= 0 || m.config.Interval <= 0 {
		m.logger.Debug().Msg("job cleanup disabled")
		return
	}

	m.logger.Info().
		Dur("retention", m.config.Retention).
		Dur("interval", m.config.Interval).
		Msg("starting job cleanup")

	ticker := time.NewTicker(m.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.RunOnce()
		}
	}
}

// RunOnce deletes every job that finished before now minus the retention
// and returns how many were removed
func (m *Manager) RunOnce() int {
	start := m.now()
	cutoff := start.Add(-m.config.Retention)

	deleted := 0
	for _, id := range m.store.FinishedBefore(cutoff) {
		if err := m.store.DeleteJob(id); err != nil {
			m.logger.Warn().Err(err).Str("job_id", id).Msg("failed to delete job")
			continue
		}
		deleted++
	}

	elapsed := m.now().Sub(start)
	m.mu.Lock()
	m.stats.LastRun = start
	m.stats.LastRunDuration = elapsed
	m.stats.TotalJobsDeleted += int64(deleted)
	m.stats.Runs++
	m.mu.Unlock()

	if deleted > 0 {
		m.logger.Info().Int("deleted", deleted).Dur("took", elapsed).Msg("expired jobs removed")
	}
	return deleted
}

// GetStats returns current cleanup statistics
func (m *Manager) GetStats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats
}
