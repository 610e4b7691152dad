// Package genclient talks to a remote video generation service over its
// JSON HTTP API.
package genclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/psantana5/vidgen/pkg/models"
	"github.com/psantana5/vidgen/pkg/retry"
)

const maxErrorBody = 512

// Config configures a Client
type Config struct {
	BaseURL string
	APIKey  string        // sent as a bearer token when set
	Timeout time.Duration // per HTTP request, defaults to 30s

	// SubmitRetry only retries failures where the request was never sent
	SubmitRetry retry.Config
	PollRetry   retry.Config

	// RequestsPerSecond caps outgoing requests; 0 disables the limiter
	RequestsPerSecond float64

	TLSConfig      *tls.Config          // e.g. a private CA for the service
	TracerProvider trace.TracerProvider // nil uses the global provider
	Logger         *zerolog.Logger
	HTTPClient     *http.Client // transport override for tests
}

// DefaultConfig returns the client defaults for baseURL
func DefaultConfig(baseURL string) Config {
	poll := retry.DefaultConfig()
	poll.MaxRetries = 2
	return Config{
		BaseURL:     baseURL,
		Timeout:     30 * time.Second,
		SubmitRetry: retry.None(),
		PollRetry:   poll,
	}
}

// Client implements the orchestrator's remote service contract
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	submit     retry.Config
	poll       retry.Config
	logger     zerolog.Logger
}

// New creates a client for the service at cfg.BaseURL
func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", cfg.BaseURL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		opts := []otelhttp.Option{
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return "genclient " + r.Method + " " + r.URL.Path
			}),
		}
		if cfg.TracerProvider != nil {
			opts = append(opts, otelhttp.WithTracerProvider(cfg.TracerProvider))
		}
		transport := http.DefaultTransport.(*http.Transport).Clone()
		if cfg.TLSConfig != nil {
			transport.TLSClientConfig = cfg.TLSConfig
		}
		httpClient = &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(transport, opts...),
		}
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	submit := cfg.SubmitRetry
	submit.ShouldRetry = unsentOnly
	poll := cfg.PollRetry
	if poll.ShouldRetry == nil {
		poll.ShouldRetry = IsTemporary
	}

	return &Client{
		baseURL:    base,
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
		limiter:    limiter,
		submit:     submit,
		poll:       poll,
		logger:     logger,
	}, nil
}

// BaseURL returns the normalized service base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Submit posts a generation request and returns the job handle
func (c *Client) Submit(ctx context.Context, req models.GenerationRequest) (models.JobHandle, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	var resp models.SubmitResponse
	err = retry.Do(ctx, c.submit, func() error {
		return c.do(ctx, "submit", http.MethodPost, "/api/generate-video", data, &resp)
	})
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(resp.JobID) == "" {
		return "", &Error{Sentinel: ErrBadResponse, Operation: "submit", Body: "missing job_id"}
	}

	c.logger.Debug().Str("job_id", resp.JobID).Msg("job submitted")
	return models.JobHandle(resp.JobID), nil
}

// Status fetches the current status of a job
func (c *Client) Status(ctx context.Context, job models.JobHandle) (models.RemoteStatus, error) {
	if job == "" {
		return models.RemoteStatus{}, errors.New("empty job handle")
	}
	path := "/api/status/" + url.PathEscape(string(job))

	var status models.RemoteStatus
	err := retry.Do(ctx, c.poll, func() error {
		status = models.RemoteStatus{}
		return c.do(ctx, "status", http.MethodGet, path, nil, &status)
	})
	if err != nil {
		return models.RemoteStatus{}, err
	}
	if status.Status == "" {
		return models.RemoteStatus{}, &Error{Sentinel: ErrBadResponse, Operation: "status", Body: "missing status"}
	}
	return status, nil
}

// Health queries the service health endpoint
func (c *Client) Health(ctx context.Context) (models.HealthStatus, error) {
	var health models.HealthStatus
	err := retry.Do(ctx, c.poll, func() error {
		return c.do(ctx, "health", http.MethodGet, "/api/health", nil, &health)
	})
	return health, err
}

func (c *Client) do(ctx context.Context, op, method, path string, body []byte, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return &Error{Sentinel: ErrUnavailable, Operation: op, Err: err}
		}
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return retry.Permanent(&Error{Sentinel: ErrUnavailable, Operation: op, Err: ctxErr})
		}
		return &Error{Sentinel: ErrUnavailable, Operation: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		sentinel := ErrRejected
		if resp.StatusCode == http.StatusNotFound && op == "status" {
			sentinel = ErrNotFound
		}
		return &Error{
			Sentinel:  sentinel,
			Operation: op,
			Status:    resp.StatusCode,
			Body:      strings.TrimSpace(string(snippet)),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Sentinel: ErrBadResponse, Operation: op, Status: resp.StatusCode, Err: err}
	}
	return nil
}

// unsentOnly retries a submission only when the connection was never
// established
func unsentOnly(err error) bool {
	var e *Error
	if !errors.As(err, &e) || !errors.Is(e.Sentinel, ErrUnavailable) || e.Err == nil {
		return false
	}
	msg := strings.ToLower(e.Err.Error())
	return strings.Contains(msg, "connection refused") || strings.Contains(msg, "no such host")
}
