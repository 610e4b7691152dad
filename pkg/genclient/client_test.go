package genclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psantana5/vidgen/pkg/models"
	"github.com/psantana5/vidgen/pkg/retry"
)

func testConfig(baseURL string) Config {
	cfg := DefaultConfig(baseURL)
	cfg.PollRetry.InitialBackoff = time.Millisecond
	cfg.PollRetry.MaxBackoff = 5 * time.Millisecond
	return cfg
}

func sunsetRequest() models.GenerationRequest {
	return models.GenerationRequest{
		Prompt:           "sunset",
		Style:            models.StyleCinematic,
		NumScenes:        5,
		DurationPerScene: 3,
		FPS:              24,
		AddMusic:         true,
		AddTTS:           false,
		Voice:            "en",
	}
}

func TestSubmit_SendsWireFields(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/generate-video", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"job_id":"abc","status":"pending","progress":0,"message":"Queued"}`))
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL + "/")
	cfg.APIKey = "secret"
	c, err := New(cfg)
	require.NoError(t, err)
	assert.Equal(t, srv.URL, c.BaseURL())

	job, err := c.Submit(context.Background(), sunsetRequest())
	require.NoError(t, err)
	assert.Equal(t, models.JobHandle("abc"), job)

	assert.Equal(t, "sunset", got["prompt"])
	assert.Equal(t, "cinematic", got["style"])
	assert.EqualValues(t, 5, got["num_scenes"])
	assert.EqualValues(t, 3, got["duration_per_scene"])
	assert.EqualValues(t, 24, got["fps"])
	assert.Equal(t, true, got["add_music"])
	assert.Equal(t, false, got["add_tts"])
	assert.Equal(t, "en", got["voice"])
	assert.NotContains(t, got, "seed")
}

func TestSubmit_Failures(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		sentinel error
	}{
		{"rejected", http.StatusBadRequest, `{"detail":"Prompt is required"}`, ErrRejected},
		{"server error", http.StatusInternalServerError, "boom", ErrRejected},
		{"malformed json", http.StatusOK, "not json", ErrBadResponse},
		{"missing job id", http.StatusOK, `{"status":"pending"}`, ErrBadResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			cfg := testConfig(srv.URL)
			cfg.SubmitRetry = retry.DefaultConfig()
			c, err := New(cfg)
			require.NoError(t, err)

			_, err = c.Submit(context.Background(), sunsetRequest())
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.sentinel), "got %v", err)
			assert.EqualValues(t, 1, atomic.LoadInt32(&calls), "submissions must not be resent")
		})
	}
}

func TestSubmit_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := New(testConfig(url))
	require.NoError(t, err)

	_, err = c.Submit(context.Background(), sunsetRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.True(t, IsTemporary(err))
}

func TestStatus_Decodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/status/abc", r.URL.Path)
		_, _ = w.Write([]byte(`{"job_id":"abc","status":"processing","progress":40,"message":"Rendering"}`))
	}))
	defer srv.Close()

	c, err := New(testConfig(srv.URL))
	require.NoError(t, err)

	st, err := c.Status(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, models.RemoteStatusProcessing, st.Status)
	assert.Equal(t, 40.0, st.Progress)
	assert.Equal(t, "Rendering", st.Message)
	assert.Empty(t, st.VideoURL)
}

func TestStatus_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"status":"completed","progress":100,"video_url":"/media/videos/abc.mp4"}`))
	}))
	defer srv.Close()

	c, err := New(testConfig(srv.URL))
	require.NoError(t, err)

	st, err := c.Status(context.Background(), "abc")
	require.NoError(t, err)
	assert.True(t, st.IsCompleted())
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestStatus_NotFoundIsNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, `{"detail":"Job not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	c, err := New(testConfig(srv.URL))
	require.NoError(t, err)

	_, err = c.Status(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)

	var ge *Error
	require.True(t, errors.As(err, &ge))
	assert.Equal(t, http.StatusNotFound, ge.Status)
	assert.Equal(t, "status", ge.Operation)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestStatus_CancelledContext(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c, err := New(testConfig(srv.URL))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = c.Status(ctx, "abc")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/health", r.URL.Path)
		_, _ = w.Write([]byte(`{"status":"ok","renderer":"simulated","jobs":2}`))
	}))
	defer srv.Close()

	c, err := New(testConfig(srv.URL))
	require.NoError(t, err)

	h, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", h.Status)
	assert.Equal(t, 2, h.Jobs)
}

func TestNew_InvalidBaseURL(t *testing.T) {
	for _, base := range []string{"", "localhost:8000", "://x"} {
		_, err := New(DefaultConfig(base))
		assert.Error(t, err, base)
	}
}

func TestErrorMessage(t *testing.T) {
	err := &Error{Sentinel: ErrRejected, Operation: "submit", Status: 400, Body: "bad prompt"}
	assert.Equal(t, "submit: generation service: request rejected (HTTP 400): bad prompt", err.Error())
	assert.False(t, err.Temporary())

	err = &Error{Sentinel: ErrRejected, Operation: "status", Status: 502}
	assert.True(t, err.Temporary())
}

func TestResolveVideoURL(t *testing.T) {
	tests := []struct {
		base, in, want string
	}{
		{"http://localhost:8000", "/videos/abc.mp4", "http://localhost:8000/videos/abc.mp4"},
		{"http://localhost:8000/", "/videos/abc.mp4", "http://localhost:8000/videos/abc.mp4"},
		{"http://localhost:8000", "media\\videos\\abc.mp4", "http://localhost:8000/media/videos/abc.mp4"},
		{"http://localhost:8000", "https://cdn.example.com/abc.mp4", "https://cdn.example.com/abc.mp4"},
		{"", "/videos/abc.mp4", "/videos/abc.mp4"},
		{"http://localhost:8000", "", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ResolveVideoURL(tt.base, tt.in), "%s + %s", tt.base, tt.in)
	}
}
