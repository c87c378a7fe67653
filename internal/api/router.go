package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	mw "github.com/edugen-platform/edugen/internal/middleware"
)

// HandlerSet holds handler functions injected from main.go to avoid import cycles.
type HandlerSet struct {
	// Generation endpoints authenticate inside the pipeline, after
	// validating the body.
	GenerateMCQ       http.HandlerFunc
	GeneratePaper     http.HandlerFunc
	ProcessVoiceNotes http.HandlerFunc

	// Payments
	CreateOrder   http.HandlerFunc
	VerifyPayment http.HandlerFunc

	GetUsage http.HandlerFunc

	// Saved content
	CreateContent       http.HandlerFunc
	ListContent         http.HandlerFunc
	GetContent          http.HandlerFunc
	DeleteContent       http.HandlerFunc
	OwnershipMiddleware func(http.Handler) http.Handler

	ListAuditLogs http.HandlerFunc

	AuthMiddleware func(http.Handler) http.Handler
}

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	CORSAllowedOrigins []string
	// TrustedProxyHops is the number of reverse proxies whose
	// X-Forwarded-For entries are believed.
	TrustedProxyHops int
	// PaymentRateLimiter limits the payment functions per client IP.
	PaymentRateLimiter func(http.Handler) http.Handler
	// Checks are run by the readiness probe, keyed by dependency name.
	// A nil check reports the dependency as not configured.
	Checks map[string]HealthCheck
}

var functionPaths = []string{
	"/generate-mcq",
	"/generate-paper",
	"/process-voice-notes",
	"/create-razorpay-order",
	"/verify-razorpay-payment",
}

func NewRouter(cfg RouterConfig, h HandlerSet) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.ClientIP(cfg.TrustedProxyHops))
	r.Use(mw.SecurityHeaders)
	r.Use(mw.Logging)
	r.Use(mw.Recovery)
	r.Use(mw.Metrics)
	r.Use(cors.Handler(mw.CORS(cfg.CORSAllowedOrigins)))

	// Liveness probe: always 200, no dependency checks
	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		JSON(w, http.StatusOK, map[string]string{"status": "alive"})
	})

	readinessHandler := func(w http.ResponseWriter, r *http.Request) {
		health := map[string]string{"status": "healthy"}
		status := http.StatusOK

		for name, check := range cfg.Checks {
			switch {
			case check == nil:
				health[name] = "not configured"
			case check(r.Context()) != nil:
				health[name] = "unhealthy"
				health["status"] = "degraded"
				status = http.StatusServiceUnavailable
			default:
				health[name] = "healthy"
			}
		}

		JSON(w, status, health)
	}

	r.Get("/health/ready", readinessHandler)
	r.Get("/health", readinessHandler)

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler())

	// Functions keep the paths the dashboard already calls.
	r.Route("/functions/v1", func(r chi.Router) {
		for _, path := range functionPaths {
			r.Options(path, EmptyOK)
		}

		r.Post("/generate-mcq", h.GenerateMCQ)
		r.Post("/generate-paper", h.GeneratePaper)
		r.Post("/process-voice-notes", h.ProcessVoiceNotes)

		r.Group(func(r chi.Router) {
			if cfg.PaymentRateLimiter != nil {
				r.Use(cfg.PaymentRateLimiter)
			}
			r.Use(h.AuthMiddleware)
			r.Post("/create-razorpay-order", h.CreateOrder)
			r.Post("/verify-razorpay-payment", h.VerifyPayment)
		})
	})

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(h.AuthMiddleware)

		r.Get("/usage", h.GetUsage)
		r.Get("/audit", h.ListAuditLogs)

		r.Route("/content", func(r chi.Router) {
			r.Post("/", h.CreateContent)
			r.Get("/", h.ListContent)

			r.Route("/{contentID}", func(r chi.Router) {
				r.Use(h.OwnershipMiddleware)
				r.Get("/", h.GetContent)
				r.Delete("/", h.DeleteContent)
			})
		})
	})

	return r
}
