package router

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/wolfman30/cybersathi/internal/channels/whatsapp"
	"github.com/wolfman30/cybersathi/internal/complaints"
	httpmiddleware "github.com/wolfman30/cybersathi/internal/http/middleware"
	"github.com/wolfman30/cybersathi/internal/messagelog"
	"github.com/wolfman30/cybersathi/pkg/logging"
)

// HealthCheck probes one backing service for GET /health.
type HealthCheck func(ctx context.Context) error

// Config holds router configuration
type Config struct {
	Logger     *logging.Logger
	Webhook    *whatsapp.WebhookHandler
	Complaints *complaints.Handler
	// Messages is nil when no message log database is configured.
	Messages *messagelog.Handler

	AdminAuthSecret    string
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
	LookupLimiter      *httpmiddleware.RateLimiter
	HealthChecks       map[string]HealthCheck
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	if cfg == nil || cfg.Webhook == nil || cfg.Complaints == nil {
		panic("router: webhook and complaints handlers required")
	}
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}

	// Public endpoints (webhooks, health checks)
	r.Group(func(public chi.Router) {
		public.Get("/health", healthHandler(cfg.HealthChecks))
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		public.Get("/webhook", cfg.Webhook.HandleVerification)
		public.Post("/webhook", cfg.Webhook.HandleInbound)

		lookup := http.Handler(http.HandlerFunc(cfg.Complaints.Lookup))
		if cfg.LookupLimiter != nil {
			lookup = cfg.LookupLimiter.Middleware(lookup)
		}
		public.Method(http.MethodGet, "/api/complaints/lookup", lookup)
	})

	// Officer endpoints
	r.Route("/admin", func(admin chi.Router) {
		admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
		admin.Use(middleware.Compress(5))
		admin.Get("/complaints", cfg.Complaints.List)
		admin.Get("/complaints/{ticket}", cfg.Complaints.Get)
		admin.Put("/complaints/{ticket}/status", cfg.Complaints.UpdateStatus)
		if cfg.Messages != nil {
			admin.Get("/messages", cfg.Messages.Recent)
		}
	})

	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "ok"}
		code := http.StatusOK
		if len(names) > 0 {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			resp.Checks = make(map[string]string, len(names))
			for _, name := range names {
				if err := checks[name](ctx); err != nil {
					resp.Checks[name] = err.Error()
					resp.Status = "degraded"
					code = http.StatusServiceUnavailable
					continue
				}
				resp.Checks[name] = "ok"
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(resp)
	}
}
