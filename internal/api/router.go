package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sydlexius/artistlink/internal/api/middleware"
	"github.com/sydlexius/artistlink/internal/logging"
	"github.com/sydlexius/artistlink/internal/metrics"
	"github.com/sydlexius/artistlink/internal/profile"
	"github.com/sydlexius/artistlink/internal/resolve"
)

// RouterDeps bundles all dependencies needed by the HTTP router.
type RouterDeps struct {
	Resolver   *resolve.Service
	Profiles   profile.Store
	Metrics    *metrics.Manager
	LogManager *logging.Manager
	Logger     *slog.Logger
	BasePath   string
	RateLimit  float64 // requests per second per client on the API; 0 disables
	RateBurst  int
}

// Router sets up all HTTP routes for the application.
type Router struct {
	resolver   *resolve.Service
	profiles   profile.Store
	metrics    *metrics.Manager
	logManager *logging.Manager
	logger     *slog.Logger
	basePath   string
	rateLimit  float64
	rateBurst  int
}

// NewRouter creates a new Router with all routes configured.
func NewRouter(deps RouterDeps) *Router {
	return &Router{
		resolver:   deps.Resolver,
		profiles:   deps.Profiles,
		metrics:    deps.Metrics,
		logManager: deps.LogManager,
		logger:     deps.Logger.With(slog.String("component", "api")),
		basePath:   deps.BasePath,
		rateLimit:  deps.RateLimit,
		rateBurst:  deps.RateBurst,
	}
}

// Handler returns the fully configured HTTP handler with middleware applied.
// ctx bounds background work such as rate-limiter cleanup.
func (r *Router) Handler(ctx context.Context) http.Handler {
	limited := middleware.NewRateLimiter(ctx, r.rateLimit, r.rateBurst).Middleware
	mux := http.NewServeMux()
	bp := r.basePath

	mux.HandleFunc("GET "+bp+"/api/v1/health", r.handleHealth)
	mux.HandleFunc("GET "+bp+"/api/v1/platforms", r.handleListPlatforms)
	mux.HandleFunc("POST "+bp+"/api/v1/validate-url", r.handleValidateURL)
	mux.HandleFunc("POST "+bp+"/api/v1/popularity", r.handlePopularity)
	mux.Handle("POST "+bp+"/api/v1/resolve", limited(http.HandlerFunc(r.handleResolve)))
	mux.Handle("POST "+bp+"/api/v1/search", limited(http.HandlerFunc(r.handleSearch)))
	mux.HandleFunc("GET "+bp+"/api/v1/logging", r.handleGetLogging)
	mux.HandleFunc("PUT "+bp+"/api/v1/logging", r.handleUpdateLogging)

	if r.profiles != nil {
		mux.Handle("POST "+bp+"/api/v1/profiles", limited(http.HandlerFunc(r.handleCreateProfile)))
		mux.HandleFunc("GET "+bp+"/api/v1/profiles", r.handleListProfiles)
		mux.HandleFunc("GET "+bp+"/api/v1/profiles/{id}", r.handleGetProfile)
	}

	mux.Handle("GET "+bp+"/metrics", r.metrics.Handler())

	var h http.Handler = mux
	h = middleware.Metrics(r.metrics)(h)
	h = middleware.Logging(r.logger)(h)
	h = middleware.SecurityHeaders(h)
	h = middleware.RequestID(h)
	return h
}
