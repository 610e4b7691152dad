package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/psantana5/vidgen/pkg/auth"
	"github.com/psantana5/vidgen/pkg/ratelimit"
	"github.com/psantana5/vidgen/pkg/tracing"
)

// RouterConfig selects the optional middleware around the API
type RouterConfig struct {
	Tracer  *tracing.Provider
	Limiter *ratelimit.Limiter
	Keys    *auth.KeyVerifier
	Metrics http.Handler // mounted at /metrics when set
}

// NewRouter wires h behind CORS, tracing, rate limiting and API key checks.
// Health, metrics and media stay reachable without a key.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	r := mux.NewRouter()
	h.RegisterRoutes(r)
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics).Methods(http.MethodGet)
	}

	var handler http.Handler = r
	if cfg.Keys != nil {
		handler = cfg.Keys.Middleware("/api/health", "/metrics", "/media/")(handler)
	}
	if cfg.Limiter != nil {
		handler = cfg.Limiter.Middleware(ratelimit.IPKeyFunc)(handler)
	}
	if cfg.Tracer != nil {
		handler = tracing.HTTPMiddleware(cfg.Tracer)(handler)
	}
	return CORS(handler)
}
