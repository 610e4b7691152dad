package orchestrator

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/psantana5/vidgen/pkg/metrics"
)

// DefaultPollInterval is the period between status queries
const DefaultPollInterval = 1500 * time.Millisecond

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithPollInterval sets the period between status queries. Non-positive
// values are ignored.
func WithPollInterval(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.interval = d
		}
	}
}

// WithBaseURL sets the URL relative video locations are resolved against.
// Without it a service exposing BaseURL() string is asked instead.
func WithBaseURL(base string) Option {
	return func(o *Orchestrator) {
		o.baseURL = base
	}
}

// WithLogger sets the logger used for transitions and poll faults
func WithLogger(l zerolog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = l
	}
}

// WithMetrics records job lifecycle metrics
func WithMetrics(m *metrics.Orchestrator) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

func withClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}
