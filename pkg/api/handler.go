// Package api serves the video generation HTTP API used by the vidgen
// client: job submission, status polling, health and rendered media.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/psantana5/vidgen/pkg/builder"
	"github.com/psantana5/vidgen/pkg/metrics"
	"github.com/psantana5/vidgen/pkg/models"
	"github.com/psantana5/vidgen/pkg/pipeline"
	"github.com/psantana5/vidgen/pkg/store"
	"github.com/psantana5/vidgen/pkg/tracing"
)

// Runner starts background work for an accepted job
type Runner interface {
	Go(ctx context.Context, job *models.Job)
}

// Options configures a Handler
type Options struct {
	MediaDir string // served under /media/ when set
	Renderer string // reported by /api/health
	Metrics  *metrics.Service
	Logger   zerolog.Logger
}

// Handler handles generation service API requests
type Handler struct {
	ctx      context.Context
	store    *store.MemoryStore
	runner   Runner
	opts     Options
	hostInfo func() (*models.HostInfo, error)
}

// NewHandler creates a handler. Jobs it starts run until ctx is cancelled.
func NewHandler(ctx context.Context, s *store.MemoryStore, runner Runner, opts Options) *Handler {
	if opts.Renderer == "" {
		opts.Renderer = "simulated"
	}
	return &Handler{
		ctx:      ctx,
		store:    s,
		runner:   runner,
		opts:     opts,
		hostInfo: probeHost,
	}
}

// RegisterRoutes registers all API routes
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/generate-video", h.instrument("generate", h.GenerateVideo)).Methods(http.MethodPost)
	r.HandleFunc("/api/status/{job_id}", h.instrument("status", h.GetStatus)).Methods(http.MethodGet)
	r.HandleFunc("/api/jobs", h.instrument("jobs", h.ListJobs)).Methods(http.MethodGet)
	r.HandleFunc("/api/health", h.instrument("health", h.Health)).Methods(http.MethodGet)

	if h.opts.MediaDir != "" {
		media := http.StripPrefix("/media/", http.FileServer(http.Dir(h.opts.MediaDir)))
		r.PathPrefix("/media/").HandlerFunc(h.instrument("media", media.ServeHTTP)).Methods(http.MethodGet, http.MethodHead)
	}
}

// GenerateVideo accepts a generation request and starts the job
func (h *Handler) GenerateVideo(w http.ResponseWriter, r *http.Request) {
	req := defaultRequest()
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Prompt = strings.TrimSpace(req.Prompt)
	if req.Prompt == "" {
		writeError(w, http.StatusBadRequest, "Prompt cannot be empty")
		return
	}
	if err := builder.Validate(req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	job := &models.Job{
		ID:        strings.ReplaceAll(uuid.NewString(), "-", ""),
		Request:   req,
		Status:    models.RemoteStatusPending,
		Message:   "Queued",
		Scenes:    pipeline.SplitScenes(req.Prompt, req.NumScenes),
		CreatedAt: time.Now(),
	}
	if err := h.store.CreateJob(job); err != nil {
		h.opts.Logger.Error().Err(err).Msg("failed to create job")
		writeError(w, http.StatusInternalServerError, "Failed to create job")
		return
	}
	h.opts.Metrics.JobCreated()
	h.opts.Logger.Info().
		Str("job_id", job.ID).
		Str("style", string(req.Style)).
		Int("scenes", req.NumScenes).
		Float64("duration", req.TotalDuration()).
		Msg("job created")

	h.runner.Go(h.ctx, job)
	writeJSON(w, http.StatusOK, job.RemoteStatus())
}

// GetStatus returns the status document of a job
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	job, err := h.store.GetJob(mux.Vars(r)["job_id"])
	if err != nil {
		if errors.Is(err, store.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "Job not found")
			return
		}
		h.opts.Logger.Error().Err(err).Msg("failed to get job")
		writeError(w, http.StatusInternalServerError, "Failed to get job")
		return
	}

	status := job.RemoteStatus()
	if status.IsCompleted() {
		status.VideoURL = strings.ReplaceAll(status.VideoURL, "\\", "/")
	}
	writeJSON(w, http.StatusOK, status)
}

// ListJobs returns every job with its request and transitions
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	jobs := h.store.GetAllJobs()
	writeJSON(w, http.StatusOK, map[string]any{
		"jobs":  jobs,
		"count": len(jobs),
	})
}

// Health reports service and host status
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	health := models.HealthStatus{
		Status:   "ok",
		MediaDir: h.opts.MediaDir,
		Renderer: h.opts.Renderer,
		Jobs:     h.store.Count(),
	}
	if host, err := h.hostInfo(); err == nil {
		health.Host = host
	} else {
		h.opts.Logger.Debug().Err(err).Msg("host probe failed")
	}
	writeJSON(w, http.StatusOK, health)
}

func (h *Handler) instrument(route string, fn http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &tracing.StatusRecorder{ResponseWriter: w, StatusCode: http.StatusOK}
		fn(rec, r)
		h.opts.Metrics.Request(route, rec.StatusCode, rec.Bytes)
	}
}

// CORS allows any origin, like the development backend the web front-end
// talks to
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-API-Key")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func defaultRequest() models.GenerationRequest {
	return models.GenerationRequest{
		Style:            models.DefaultStyle,
		NumScenes:        models.DefaultNumScenes,
		DurationPerScene: models.DefaultDurationPerScene,
		FPS:              models.DefaultFPS,
		AddMusic:         models.DefaultAddMusic,
		AddTTS:           models.DefaultAddTTS,
		Voice:            models.DefaultVoice,
	}
}

func probeHost() (*models.HostInfo, error) {
	threads, err := cpu.Counts(true)
	if err != nil {
		return nil, err
	}
	vm, err := mem.VirtualMemory()
	if err != nil {
		return nil, err
	}
	return &models.HostInfo{
		CPUThreads:     threads,
		RAMTotalBytes:  vm.Total,
		RAMUsedPercent: vm.UsedPercent,
	}, nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, detail string) {
	writeJSON(w, code, map[string]string{"detail": detail})
}
