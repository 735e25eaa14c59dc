// Package bootstrap assembles infrastructure clients and application services
// from configuration. The API server, the ingestion worker and the CLI share
// it so that every process wires the engine the same way.
package bootstrap

import (
	"context"
	"fmt"

	alertapp "github.com/aonawunmi/New-MinRisk-sub016/internal/application/alert"
	heatmapapp "github.com/aonawunmi/New-MinRisk-sub016/internal/application/heatmap"
	periodapp "github.com/aonawunmi/New-MinRisk-sub016/internal/application/period"
	riskapp "github.com/aonawunmi/New-MinRisk-sub016/internal/application/risk"
	treatmentapp "github.com/aonawunmi/New-MinRisk-sub016/internal/application/treatment"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/config"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/domain/intelligence"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/domain/store"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/infrastructure/classifier"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/infrastructure/database/postgres"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/infrastructure/database/postgres/repositories"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/infrastructure/database/redis"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/infrastructure/messaging/kafka"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/infrastructure/monitoring/logging"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/infrastructure/monitoring/prometheus"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/infrastructure/monitoring/tracing"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/infrastructure/storage/minio"
)

// Infrastructure holds the external clients of one process. Optional
// clients (Kafka, MinIO, classifier) are nil when disabled in config.
type Infrastructure struct {
	Postgres   *postgres.Connection
	Redis      *redis.Client
	MinIO      *minio.Client
	Producer   *kafka.Producer
	Classifier *classifier.Client

	Collector prometheus.MetricsCollector
	Metrics   *prometheus.AppMetrics

	shutdownTracing tracing.Shutdown
	logger          logging.Logger
}

// NewInfrastructure connects every configured backend. On failure the
// clients opened so far are closed before returning.
func NewInfrastructure(cfg *config.Config, logger logging.Logger) (infra *Infrastructure, err error) {
	infra = &Infrastructure{logger: logger}
	defer func() {
		if err != nil {
			infra.Close(context.Background())
			infra = nil
		}
	}()

	if cfg.Metrics.Enabled {
		infra.Collector, err = prometheus.NewMetricsCollector(prometheus.CollectorConfig{
			Namespace: cfg.Metrics.Namespace,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("metrics: %w", err)
		}
		infra.Metrics = prometheus.NewAppMetrics(infra.Collector)
	} else {
		infra.Metrics = prometheus.NewNopAppMetrics()
	}

	infra.shutdownTracing, err = tracing.Setup(cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("tracing: %w", err)
	}

	infra.Postgres, err = postgres.NewConnection(cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}

	infra.Redis, err = redis.NewClient(cfg.Redis, logger)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}

	if cfg.MinIO.Enabled {
		infra.MinIO, err = minio.NewClient(cfg.MinIO, logger)
		if err != nil {
			return nil, fmt.Errorf("minio: %w", err)
		}
	}

	if cfg.Kafka.Enabled {
		infra.Producer, err = kafka.NewProducer(kafka.ProducerConfig{Brokers: cfg.Kafka.Brokers}, logger)
		if err != nil {
			return nil, fmt.Errorf("kafka producer: %w", err)
		}
	}

	if cfg.Classifier.BaseURL != "" {
		infra.Classifier, err = classifier.NewClient(cfg.Classifier, logger, classifier.WithMetrics(infra.Metrics))
		if err != nil {
			return nil, fmt.Errorf("classifier: %w", err)
		}
	}

	logger.Info("Infrastructure initialized",
		logging.Bool("minio", infra.MinIO != nil),
		logging.Bool("kafka", infra.Producer != nil),
		logging.Bool("classifier", infra.Classifier != nil))
	return infra, nil
}

// Dependencies maps the connected clients onto the service inputs.
func (i *Infrastructure) Dependencies() Dependencies {
	deps := Dependencies{
		Store:   repositories.NewStore(i.Postgres, i.logger, i.Metrics),
		Metrics: i.Metrics,
	}
	if i.Redis != nil {
		deps.HeatmapCache = redis.NewRedisCache(i.Redis, i.logger, redis.WithNamespace("heatmap:"))
		deps.PeriodCache = redis.NewRedisCache(i.Redis, i.logger, redis.WithNamespace("period:"))
		deps.Locks = redis.NewLockFactory(i.Redis, i.logger)
	}
	if i.MinIO != nil {
		deps.Archive = minio.NewSnapshotArchive(i.MinIO, i.logger)
	}
	if i.Producer != nil {
		deps.Publisher = kafka.NewEnvelopePublisher(i.Producer, "minrisk-engine", i.logger)
	}
	if i.Classifier != nil {
		deps.Classifier = i.Classifier
	}
	return deps
}

// Close releases every client in reverse dependency order.
func (i *Infrastructure) Close(ctx context.Context) {
	if i.Producer != nil {
		if err := i.Producer.Close(); err != nil {
			i.logger.Warn("Kafka producer close failed", logging.Err(err))
		}
	}
	if i.MinIO != nil {
		_ = i.MinIO.Close()
	}
	if i.Redis != nil {
		if err := i.Redis.Close(); err != nil {
			i.logger.Warn("Redis close failed", logging.Err(err))
		}
	}
	if i.Postgres != nil {
		if err := i.Postgres.Close(); err != nil {
			i.logger.Warn("PostgreSQL close failed", logging.Err(err))
		}
	}
	if i.shutdownTracing != nil {
		if err := i.shutdownTracing(ctx); err != nil {
			i.logger.Warn("Tracer shutdown failed", logging.Err(err))
		}
	}
}

// Dependencies are the service inputs. Only Store is required.
type Dependencies struct {
	Store        store.Store
	Classifier   intelligence.Classifier
	Publisher    alertapp.EventPublisher
	Archive      periodapp.SnapshotArchiver
	HeatmapCache redis.Cache
	PeriodCache  redis.Cache
	Locks        redis.LockFactory
	Metrics      *prometheus.AppMetrics
}

// Services is the full set of application services.
type Services struct {
	Risks     riskapp.Service
	Alerts    alertapp.Service
	Treatment treatmentapp.Service
	Periods   periodapp.Service
	Heatmaps  heatmapapp.Service
}

// NewServices builds every service from the engine section of cfg.
func NewServices(cfg *config.Config, deps Dependencies, logger logging.Logger) (*Services, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("bootstrap: a store is required")
	}
	engine := cfg.Engine

	heatmaps := heatmapapp.NewService(deps.Store, deps.HeatmapCache, deps.Metrics, logger.Named("heatmap"), heatmapapp.ServiceConfig{
		MatrixSize: engine.MatrixSize,
		CurrentTTL: engine.CacheTTL,
	})

	risks, err := riskapp.NewService(deps.Store, heatmaps, deps.Metrics, logger.Named("risk"), riskapp.ServiceConfig{
		MatrixSize:     engine.MatrixSize,
		FormulaVersion: engine.ResidualFormula,
	})
	if err != nil {
		return nil, fmt.Errorf("risk service: %w", err)
	}

	alerts, err := alertapp.NewService(deps.Store, deps.Classifier, deps.Publisher, heatmaps, deps.Metrics, logger.Named("alert"), alertapp.ServiceConfig{
		MatrixSize:          engine.MatrixSize,
		FormulaVersion:      engine.ResidualFormula,
		ConfidenceThreshold: engine.ConfidenceThreshold,
	})
	if err != nil {
		return nil, fmt.Errorf("alert service: %w", err)
	}

	periods := periodapp.NewService(deps.Store, deps.Locks, deps.PeriodCache, deps.Archive, deps.Publisher, deps.Metrics, logger.Named("period"), periodapp.ServiceConfig{
		FormulaVersion: engine.ResidualFormula,
		CommitLockTTL:  engine.CommitLockTTL,
		TrendsTTL:      engine.CacheTTL,
		PresignExpiry:  cfg.MinIO.PresignExpiry,
	})

	return &Services{
		Risks:     risks,
		Alerts:    alerts,
		Treatment: treatmentapp.NewService(deps.Store, deps.Metrics, logger.Named("treatment")),
		Periods:   periods,
		Heatmaps:  heatmaps,
	}, nil
}

//Personal.AI order the ending
