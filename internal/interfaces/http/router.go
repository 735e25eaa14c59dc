package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/aonawunmi/New-MinRisk-sub016/internal/infrastructure/monitoring/logging"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/infrastructure/monitoring/prometheus"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/interfaces/http/handlers"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the handlers and middleware that make up the API.
// Nil handlers leave their routes unmounted.
type RouterConfig struct {
	RiskHandler      *handlers.RiskHandler
	AlertHandler     *handlers.AlertHandler
	TreatmentHandler *handlers.TreatmentHandler
	PeriodHandler    *handlers.PeriodHandler
	HeatmapHandler   *handlers.HeatmapHandler
	HealthHandler    *handlers.HealthHandler

	CORS         func(http.Handler) http.Handler
	RateLimit    func(http.Handler) http.Handler
	Organization func(http.Handler) http.Handler

	Logger           logging.Logger
	LoggingConfig    middleware.LoggingConfig
	MetricsCollector prometheus.MetricsCollector
	Metrics          *prometheus.AppMetrics
}

// NewRouter builds the route tree: probes and /metrics at the root, the
// organization-scoped API under /api/v1.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	if cfg.CORS != nil {
		r.Use(cfg.CORS)
	}
	if cfg.Logger != nil {
		r.Use(middleware.RequestLogging(cfg.Logger, cfg.LoggingConfig))
	}
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}

	if cfg.HealthHandler != nil {
		cfg.HealthHandler.RegisterRoutes(r)
	}
	if cfg.MetricsCollector != nil {
		r.Handle("/metrics", cfg.MetricsCollector.Handler())
	}

	r.Route("/api/v1", func(api chi.Router) {
		if cfg.Organization != nil {
			api.Use(cfg.Organization)
		}
		if cfg.RateLimit != nil {
			api.Use(cfg.RateLimit)
		}

		if cfg.RiskHandler != nil {
			cfg.RiskHandler.RegisterRoutes(api)
		}
		if cfg.AlertHandler != nil {
			cfg.AlertHandler.RegisterRoutes(api)
		}
		if cfg.TreatmentHandler != nil {
			cfg.TreatmentHandler.RegisterRoutes(api)
		}
		if cfg.PeriodHandler != nil {
			cfg.PeriodHandler.RegisterRoutes(api)
		}
		if cfg.HeatmapHandler != nil {
			cfg.HeatmapHandler.RegisterRoutes(api)
		}
	})

	return r
}

//Personal.AI order the ending
