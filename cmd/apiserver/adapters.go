package main

import (
	"github.com/aonawunmi/New-MinRisk-sub016/internal/bootstrap"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/config"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/infrastructure/monitoring/logging"
	httpserver "github.com/aonawunmi/New-MinRisk-sub016/internal/interfaces/http"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/interfaces/http/handlers"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/interfaces/http/middleware"
)

// healthCheckers exposes each connected backend to the readiness probe.
func healthCheckers(infra *bootstrap.Infrastructure) []handlers.HealthChecker {
	checks := []handlers.HealthChecker{
		handlers.CheckFunc{Label: "postgres", Fn: infra.Postgres.HealthCheck},
		handlers.CheckFunc{Label: "redis", Fn: infra.Redis.Ping},
	}
	if infra.MinIO != nil {
		checks = append(checks, handlers.CheckFunc{Label: "minio", Fn: infra.MinIO.HealthCheck, Optional: true})
	}
	return checks
}

func buildRouterConfig(cfg *config.Config, infra *bootstrap.Infrastructure, svcs *bootstrap.Services, logger logging.Logger) httpserver.RouterConfig {
	maxBody := cfg.Server.MaxBodySize

	cors := middleware.DefaultCORSConfig().WithIdentityHeaders(cfg.Server.OrgHeader, cfg.Server.ActorHeader)
	if len(cfg.Server.CORSOrigins) > 0 {
		cors.AllowedOrigins = cfg.Server.CORSOrigins
	}

	rc := httpserver.RouterConfig{
		RiskHandler:      handlers.NewRiskHandler(svcs.Risks, logger, maxBody),
		AlertHandler:     handlers.NewAlertHandler(svcs.Alerts, logger, maxBody),
		TreatmentHandler: handlers.NewTreatmentHandler(svcs.Treatment, logger, maxBody),
		PeriodHandler:    handlers.NewPeriodHandler(svcs.Periods, logger, maxBody),
		HeatmapHandler:   handlers.NewHeatmapHandler(svcs.Heatmaps, logger),
		HealthHandler:    handlers.NewHealthHandler(config.Version, healthCheckers(infra)...),

		CORS: middleware.CORS(cors),
		Organization: middleware.Organization(middleware.OrganizationConfig{
			OrgHeader:   cfg.Server.OrgHeader,
			ActorHeader: cfg.Server.ActorHeader,
		}, logger),

		Logger:           logger,
		LoggingConfig:    middleware.DefaultLoggingConfig(),
		MetricsCollector: infra.Collector,
		Metrics:          infra.Metrics,
	}
	rc.LoggingConfig.OrgHeader = cfg.Server.OrgHeader

	if cfg.Server.RateLimitRPS > 0 {
		rl := middleware.DefaultRateLimitConfig()
		rl.RequestsPerSecond = cfg.Server.RateLimitRPS
		rl.BurstSize = cfg.Server.RateLimitBurst
		rl.KeyFunc = middleware.OrgKeyFunc(cfg.Server.OrgHeader)
		limiter := middleware.NewKeyedLimiter(rl.RequestsPerSecond, rl.BurstSize, rl.CleanupInterval)
		rc.RateLimit = middleware.RateLimit(limiter, rl)
	}
	return rc
}

//Personal.AI order the ending
