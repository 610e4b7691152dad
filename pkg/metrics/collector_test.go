package metrics

import (
	"bytes"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrchestratorCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOrchestrator(reg)

	m.Submission("accepted")
	m.Submission("accepted")
	m.Submission("conflict")
	m.Poll("ok", 20*time.Millisecond)
	m.Poll("transient_error", 0)
	m.Finished("completed", 3*time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.submissions.WithLabelValues("accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.submissions.WithLabelValues("conflict")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.polls.WithLabelValues("transient_error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.finished.WithLabelValues("completed")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.pollLatency))
}

func TestNilRecordersAreSafe(t *testing.T) {
	var o *Orchestrator
	o.Submission("accepted")
	o.Poll("ok", time.Second)
	o.Finished("failed", time.Second)

	var s *Service
	s.JobCreated()
	s.JobFinished("completed")
	s.ObserveStage("render", time.Second)
	s.Request("status", 200, 10)
}

func TestServiceMetricsAndWriteText(t *testing.T) {
	reg := prometheus.NewRegistry()
	active := 3.0
	m := NewService(reg, func() float64 { return active })

	m.JobCreated()
	m.JobFinished("failed")
	m.Request("generate", 201, 64)
	m.ObserveStage("scene", 40*time.Millisecond)

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, reg))
	out := buf.String()

	assert.Contains(t, out, "vidgen_service_active_jobs 3")
	assert.Contains(t, out, "vidgen_service_jobs_created_total 1")
	assert.Contains(t, out, `vidgen_service_jobs_finished_total{status="failed"} 1`)
	assert.Contains(t, out, `vidgen_service_http_requests_total{code="201",route="generate"} 1`)
	assert.Contains(t, out, `vidgen_service_response_bytes_total{route="generate"} 64`)
}
