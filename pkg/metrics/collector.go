package metrics

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
)

const namespace = "vidgen"

// Orchestrator records client-side job lifecycle metrics. A nil
// *Orchestrator is valid and records nothing.
type Orchestrator struct {
	submissions *prometheus.CounterVec
	polls       *prometheus.CounterVec
	finished    *prometheus.CounterVec
	pollLatency prometheus.Histogram
	jobDuration prometheus.Histogram
}

// NewOrchestrator registers the orchestrator metrics with reg
func NewOrchestrator(reg prometheus.Registerer) *Orchestrator {
	f := promauto.With(reg)
	return &Orchestrator{
		submissions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orchestrator",
			Name:      "submissions_total",
			Help:      "Submit attempts by result",
		}, []string{"result"}), // accepted, rejected, conflict
		polls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orchestrator",
			Name:      "polls_total",
			Help:      "Status queries by result",
		}, []string{"result"}), // ok, transient_error, discarded
		finished: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orchestrator",
			Name:      "jobs_finished_total",
			Help:      "Jobs that left the active states, by final state",
		}, []string{"state"}), // completed, failed, cancelled
		pollLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "orchestrator",
			Name:      "poll_latency_seconds",
			Help:      "Latency of status queries",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
		}),
		jobDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "orchestrator",
			Name:      "job_duration_seconds",
			Help:      "Time from submit to the final state",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~34m
		}),
	}
}

// Submission counts a submit attempt
func (m *Orchestrator) Submission(result string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(result).Inc()
}

// Poll counts a status query and its latency
func (m *Orchestrator) Poll(result string, latency time.Duration) {
	if m == nil {
		return
	}
	m.polls.WithLabelValues(result).Inc()
	if latency > 0 {
		m.pollLatency.Observe(latency.Seconds())
	}
}

// Finished counts a job leaving the active states
func (m *Orchestrator) Finished(state string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.finished.WithLabelValues(state).Inc()
	m.jobDuration.Observe(elapsed.Seconds())
}

// Service records metrics for the reference generation service. A nil
// *Service is valid and records nothing.
type Service struct {
	jobsCreated  prometheus.Counter
	jobsFinished *prometheus.CounterVec
	stageLatency *prometheus.HistogramVec
	requests     *prometheus.CounterVec
	bytesSent    *prometheus.CounterVec
}

// NewService registers the service metrics with reg. activeJobs is sampled
// on every scrape.
func NewService(reg prometheus.Registerer, activeJobs func() float64) *Service {
	f := promauto.With(reg)
	if activeJobs != nil {
		f.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "service",
			Name:      "active_jobs",
			Help:      "Jobs that are pending or running",
		}, activeJobs)
	}
	return &Service{
		jobsCreated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "service",
			Name:      "jobs_created_total",
			Help:      "Generation jobs accepted",
		}),
		jobsFinished: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "service",
			Name:      "jobs_finished_total",
			Help:      "Generation jobs finished, by status",
		}, []string{"status"}),
		stageLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "service",
			Name:      "stage_seconds",
			Help:      "Time spent per pipeline stage",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"stage"}),
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "service",
			Name:      "http_requests_total",
			Help:      "API requests by route and status code",
		}, []string{"route", "code"}),
		bytesSent: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "service",
			Name:      "response_bytes_total",
			Help:      "Response body bytes sent, by route",
		}, []string{"route"}),
	}
}

// JobCreated counts an accepted job
func (m *Service) JobCreated() {
	if m == nil {
		return
	}
	m.jobsCreated.Inc()
}

// JobFinished counts a job reaching a terminal status
func (m *Service) JobFinished(status string) {
	if m == nil {
		return
	}
	m.jobsFinished.WithLabelValues(status).Inc()
}

// ObserveStage records how long a pipeline stage took
func (m *Service) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.stageLatency.WithLabelValues(stage).Observe(d.Seconds())
}

// Request counts an API request and the body bytes it sent
func (m *Service) Request(route string, code, sent int) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, fmt.Sprintf("%d", code)).Inc()
	if sent > 0 {
		m.bytesSent.WithLabelValues(route).Add(float64(sent))
	}
}

// WriteText dumps everything g gathers in the Prometheus text format,
// families sorted by name
func WriteText(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	sort.Slice(families, func(i, j int) bool {
		return families[i].GetName() < families[j].GetName()
	})
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("failed to write %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
