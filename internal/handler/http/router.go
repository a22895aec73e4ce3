package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/returns-service/internal/service"
	"github.com/utafrali/returns-service/pkg/health"
	"github.com/utafrali/returns-service/pkg/middleware"
)

// NewRouter creates a chi router with all returns service routes registered.
func NewRouter(
	returnsService *service.ReturnsService,
	healthHandler *health.Handler,
	validateToken middleware.TokenValidator,
	corsCfg middleware.CORSConfig,
	logger *slog.Logger,
	pprofCIDRs []string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CORS(corsCfg))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("returns"))
	r.Use(middleware.Tracing("returns"))
	r.Use(middleware.RequestLogger(logger))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	// Pprof debug endpoints with IP allowlist.
	middleware.RegisterPprof(r, pprofCIDRs, logger)

	returnsHandler := NewReturnsHandler(returnsService, logger)
	adminHandler := NewAdminHandler(returnsService, logger)

	// Shopper endpoints. Auth is optional here: a logged-in shopper is
	// identified by their token, a guest proves access with the order token.
	r.Group(func(r chi.Router) {
		r.Use(middleware.OptionalAuth(validateToken))

		r.With(ContentTypeJSON).Post(SearchPath, returnsHandler.Search)

		r.Route("/api/v1/orders/{number}/return-request", func(r chi.Router) {
			r.Get("/new", returnsHandler.NewRequest)
			r.With(ContentTypeJSON).Post("/", returnsHandler.CreateReturn)
		})

		r.Get("/api/v1/return-authorizations/{number}/labels", returnsHandler.Labels)
	})

	// Admin endpoints
	r.Route("/api/v1/admin", func(r chi.Router) {
		r.Use(middleware.Auth(validateToken))
		r.Use(middleware.RequireRole("admin"))

		r.Get("/returns/settings", adminHandler.GetSettings)
		r.With(ContentTypeJSON).Put("/returns/settings", adminHandler.UpdateSettings)
		r.Get("/return-authorizations/expired", adminHandler.ListExpired)
	})

	return r
}
