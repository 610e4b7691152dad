package cmd

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/psantana5/vidgen/pkg/api"
	"github.com/psantana5/vidgen/pkg/auth"
	"github.com/psantana5/vidgen/pkg/cleanup"
	"github.com/psantana5/vidgen/pkg/logging"
	"github.com/psantana5/vidgen/pkg/metrics"
	"github.com/psantana5/vidgen/pkg/pipeline"
	"github.com/psantana5/vidgen/pkg/ratelimit"
	"github.com/psantana5/vidgen/pkg/shutdown"
	"github.com/psantana5/vidgen/pkg/store"
	vtls "github.com/psantana5/vidgen/pkg/tls"
	"github.com/psantana5/vidgen/pkg/tracing"
)

// serveConfig holds the development service options
type serveConfig struct {
	Addr            string
	MediaDir        string
	StepDelay       time.Duration
	FailRate        float64
	APIKey          string
	RateLimit       float64
	RateBurst       int
	OTLPEndpoint    string
	JobRetention    time.Duration
	TLSCert         string
	TLSKey          string
	TLSGenerate     bool
	ShutdownTimeout time.Duration
}

var serveOpts = serveConfig{
	Addr:            ":8000",
	MediaDir:        "media",
	StepDelay:       400 * time.Millisecond,
	RateLimit:       20,
	RateBurst:       40,
	JobRetention:    time.Hour,
	ShutdownTimeout: 30 * time.Second,
}

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the development generation service",
	Long: `Run an in-memory generation service that speaks the same HTTP API as
the production renderer. Jobs walk through the rendering stages on a timer
without producing frames, which is enough to exercise clients end to end.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	flags := serveCmd.Flags()
	flags.StringVar(&serveOpts.Addr, "addr", serveOpts.Addr, "listen address")
	flags.StringVar(&serveOpts.MediaDir, "media-dir", serveOpts.MediaDir, "directory served under /media/")
	flags.DurationVar(&serveOpts.StepDelay, "step-delay", serveOpts.StepDelay, "simulated duration of each pipeline stage")
	flags.Float64Var(&serveOpts.FailRate, "fail-rate", 0, "fraction of jobs that fail at a random stage (0-1)")
	flags.StringVar(&serveOpts.APIKey, "api-key", "", `require this API key; "auto" generates one`)
	flags.Float64Var(&serveOpts.RateLimit, "rate-limit", serveOpts.RateLimit, "requests per second per client, 0 disables")
	flags.IntVar(&serveOpts.RateBurst, "rate-burst", serveOpts.RateBurst, "rate limit burst size")
	flags.DurationVar(&serveOpts.JobRetention, "job-retention", serveOpts.JobRetention, "forget finished jobs after this long, 0 keeps them")
	flags.StringVar(&serveOpts.TLSCert, "tls-cert", "", "serve HTTPS with this certificate")
	flags.StringVar(&serveOpts.TLSKey, "tls-key", "", "private key for --tls-cert")
	flags.BoolVar(&serveOpts.TLSGenerate, "tls-generate", false, "write a self-signed --tls-cert/--tls-key pair if missing")
	flags.StringVar(&serveOpts.OTLPEndpoint, "otlp-endpoint", "", "OTLP HTTP collector (host:port); empty disables tracing")
	flags.DurationVar(&serveOpts.ShutdownTimeout, "shutdown-timeout", serveOpts.ShutdownTimeout, "time allowed for running jobs on shutdown")
}

func runServe(cmd *cobra.Command, args []string) error {
	srv, err := newServer(serveOpts, logging.WithComponent("server"))
	if err != nil {
		return err
	}
	ln, err := net.Listen("tcp", serveOpts.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", serveOpts.Addr, err)
	}
	return srv.run(cmd.Context(), ln)
}

type server struct {
	cfg       serveConfig
	logger    zerolog.Logger
	store     *store.MemoryStore
	runner    *pipeline.Runner
	tracer    *tracing.Provider
	limiter   *ratelimit.Limiter
	cleanup   *cleanup.Manager
	tlsConfig *tls.Config
	http      *http.Server
	jobsCtx   context.Context
	stopJobs  context.CancelFunc
}

func newServer(cfg serveConfig, logger zerolog.Logger) (*server, error) {
	if cfg.FailRate < 0 || cfg.FailRate > 1 {
		return nil, fmt.Errorf("fail rate %.2f out of range [0,1]", cfg.FailRate)
	}
	if cfg.MediaDir != "" {
		if err := os.MkdirAll(filepath.Join(cfg.MediaDir, "videos"), 0755); err != nil {
			return nil, fmt.Errorf("failed to create media dir: %w", err)
		}
	}

	tracer, err := tracing.InitTracer(tracing.Config{
		ServiceName:    "vidgen-serve",
		ServiceVersion: version,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.OTLPEndpoint != "",
	}, logger)
	if err != nil {
		return nil, err
	}

	keys, err := apiKeys(cfg.APIKey, logger)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	s := &server{cfg: cfg, logger: logger, store: store.NewMemoryStore(), tracer: tracer}
	m := metrics.NewService(reg, func() float64 { return float64(s.store.ActiveCount()) })
	s.runner = pipeline.NewRunner(s.store, pipeline.Config{
		StepDelay: cfg.StepDelay,
		FailRate:  cfg.FailRate,
	}, m, logging.WithComponent("pipeline"))
	s.jobsCtx, s.stopJobs = context.WithCancel(context.Background())

	s.cleanup = cleanup.NewManager(cleanup.Config{
		Enabled:   cfg.JobRetention > 0,
		Retention: cfg.JobRetention,
		Interval:  max(cfg.JobRetention/10, time.Second),
	}, s.store, logging.WithComponent("cleanup"))

	if cfg.RateLimit > 0 {
		s.limiter = ratelimit.NewLimiter(cfg.RateLimit, max(cfg.RateBurst, 1))
	}

	h := api.NewHandler(s.jobsCtx, s.store, s.runner, api.Options{
		MediaDir: cfg.MediaDir,
		Metrics:  m,
		Logger:   logging.WithComponent("api"),
	})
	if cfg.TLSCert != "" || cfg.TLSKey != "" {
		tlsConfig, err := serverTLS(cfg, logger)
		if err != nil {
			return nil, err
		}
		s.tlsConfig = tlsConfig
	}

	s.http = &http.Server{
		Handler: api.NewRouter(h, api.RouterConfig{
			Tracer:  tracer,
			Limiter: s.limiter,
			Keys:    keys,
			Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		}),
		TLSConfig:         s.tlsConfig,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// run serves on ln until ctx is cancelled, a signal arrives or the server
// fails, then shuts down: stop accepting requests, let running jobs finish
// within the timeout, flush traces.
func (s *server) run(ctx context.Context, ln net.Listener) error {
	mgr := shutdown.New(s.cfg.ShutdownTimeout, s.logger)
	mgr.Register("tracer", s.tracer.Shutdown)
	mgr.Register("jobs", func(ctx context.Context) error {
		err := shutdown.WaitForJobs(func() bool { return s.store.ActiveCount() == 0 }, 100*time.Millisecond, "jobs")(ctx)
		s.stopJobs()
		s.runner.Wait()
		return err
	})
	mgr.Register("http", shutdown.StopHTTPServer(s.http, "api"))

	background, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info().
			Str("addr", ln.Addr().String()).
			Str("media_dir", s.cfg.MediaDir).
			Bool("tls", s.tlsConfig != nil).
			Msg("generation service listening")
		var err error
		if s.tlsConfig != nil {
			err = s.http.ServeTLS(ln, "", "")
		} else {
			err = s.http.Serve(ln)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server failed: %w", err)
		}
		return nil
	})
	if s.limiter != nil {
		g.Go(func() error {
			ticker := time.NewTicker(time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-background.Done():
					return nil
				case <-ticker.C:
					if n := s.limiter.CleanupOldLimiters(10 * time.Minute); n > 0 {
						s.logger.Debug().Int("removed", n).Msg("cleaned up idle rate limiters")
					}
				}
			}
		})
	}
	g.Go(func() error {
		s.cleanup.Run(background)
		return nil
	})
	g.Go(func() error {
		select {
		case <-gctx.Done():
			mgr.Trigger()
		case <-mgr.Done():
		}
		stopBackground()
		return nil
	})

	shutdownErr := mgr.WaitWithContext(context.Background())
	if err := g.Wait(); err != nil {
		return err
	}
	return shutdownErr
}

func serverTLS(cfg serveConfig, logger zerolog.Logger) (*tls.Config, error) {
	if cfg.TLSCert == "" || cfg.TLSKey == "" {
		return nil, errors.New("--tls-cert and --tls-key must be set together")
	}
	if cfg.TLSGenerate {
		if _, err := os.Stat(cfg.TLSCert); errors.Is(err, os.ErrNotExist) {
			if err := vtls.GenerateSelfSigned(cfg.TLSCert, cfg.TLSKey, 0); err != nil {
				return nil, err
			}
			logger.Warn().Str("cert", cfg.TLSCert).Msg("generated self-signed certificate, clients need --ca-file")
		}
	}
	return vtls.ServerConfig(cfg.TLSCert, cfg.TLSKey)
}

func apiKeys(key string, logger zerolog.Logger) (*auth.KeyVerifier, error) {
	if key == "" {
		return nil, nil
	}
	if key == "auto" {
		generated, err := auth.GenerateAPIKey()
		if err != nil {
			return nil, err
		}
		key = generated
		logger.Warn().Str("api_key", key).Msg("generated API key, pass it to clients with --api-key")
	}
	return auth.NewKeyVerifier(key)
}
