package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"scamlens/internal/api/handlers"
	apimiddleware "scamlens/internal/api/middleware"
	"scamlens/internal/config"
	"scamlens/pkg/logger"
)

// Router holds dependencies for the API router
type Router struct {
	config   config.Config
	handlers *handlers.Handlers
	limiter  apimiddleware.Limiter
	logger   *logger.Logger
}

// NewRouter creates a new Router instance. limiter may be nil, in which
// case rate limiting is off regardless of configuration.
func NewRouter(cfg config.Config, h *handlers.Handlers, limiter apimiddleware.Limiter, log *logger.Logger) *Router {
	return &Router{
		config:   cfg,
		handlers: h,
		limiter:  limiter,
		logger:   log.WithComponent("router"),
	}
}

// Setup sets up the Chi router with all routes and middleware
func (r *Router) Setup() http.Handler {
	router := chi.NewRouter()

	timeout := r.config.Server.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	// Core middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(apimiddleware.ClientIdentity)
	router.Use(apimiddleware.Logger(r.logger))
	router.Use(apimiddleware.Metrics)
	router.Use(middleware.Recoverer)

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   r.config.CORS.AllowedOrigins,
		AllowedMethods:   r.config.CORS.AllowedMethods,
		AllowedHeaders:   r.config.CORS.AllowedHeaders,
		AllowCredentials: r.config.CORS.AllowCredentials,
		MaxAge:           r.config.CORS.MaxAge,
	}))

	router.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSONError(w, http.StatusNotFound, "Not found")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	// Public routes
	router.Group(func(pub chi.Router) {
		pub.Get("/health", r.handlers.Health.Check)
		pub.Get("/ready", r.handlers.Health.Ready)
		pub.Handle("/metrics", promhttp.Handler())

		// live feed, long-lived so no request timeout
		pub.Get("/ws/scans", r.handlers.Streaming.HandleWebSocket)
	})

	router.Route("/api", func(api chi.Router) {
		api.Use(middleware.Timeout(timeout))
		if r.config.RateLimit.Enabled && r.limiter != nil {
			api.Use(apimiddleware.RateLimiter(r.limiter, r.config.RateLimit, r.logger))
		}

		// Scans
		api.Post("/analyze-email", r.handlers.Scans.AnalyzeEmail)
		api.Post("/analyze-job-listing", r.handlers.Scans.AnalyzeJobListing)
		api.Post("/verify-address-domain", r.handlers.Scans.VerifyAddressDomain)
		api.Post("/calculate-fraud-score", r.handlers.Scans.CalculateFraudScore)
		api.Post("/detect-red-flags", r.handlers.Scans.DetectRedFlags)
		api.Get("/quota", r.handlers.Scans.Quota)

		// Users
		api.Route("/users", func(users chi.Router) {
			users.Get("/", r.handlers.Users.List)
			users.Post("/", r.handlers.Users.Create)
			users.Get("/{id}", r.handlers.Users.Get)
			users.Put("/{id}", r.handlers.Users.Update)
			users.Delete("/{id}", r.handlers.Users.Delete)
		})

		// Flagged emails
		api.Route("/flagged-emails", func(flagged chi.Router) {
			flagged.Get("/", r.handlers.Users.ListFlagged)
			flagged.Post("/", r.handlers.Users.CreateFlagged)
			flagged.Put("/{id}", r.handlers.Users.UpdateFlagged)
			flagged.Delete("/{id}", r.handlers.Users.DeleteFlagged)
		})

		api.Get("/stream/stats", r.handlers.Streaming.GetStats)
		api.Get("/stream/recent", r.handlers.Streaming.GetRecent)
	})

	return router
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(`{"error":"` + msg + `"}`))
}
