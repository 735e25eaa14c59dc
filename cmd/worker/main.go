// Ingestion worker entry point. Consumes external_event.ingested envelopes,
// scans each event against the risk register and parks messages that still
// fail after retries on the dead-letter topic.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/aonawunmi/New-MinRisk-sub016/internal/bootstrap"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/config"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/infrastructure/messaging/kafka"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/infrastructure/monitoring/logging"
	httpserver "github.com/aonawunmi/New-MinRisk-sub016/internal/interfaces/http"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/interfaces/http/handlers"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/interfaces/worker"
)

const (
	defaultWorkerConfigPath = "configs/config.yaml"
	cleanupTimeout          = 10 * time.Second
)

func main() {
	configPath := flag.String("config", defaultWorkerConfigPath, "path to configuration file")
	workerCount := flag.Int("workers", 0, "number of consumers in the group (overrides config)")
	flag.Parse()

	if err := run(*configPath, *workerCount); err != nil {
		fmt.Fprintf(os.Stderr, "worker: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, workerCount int) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if workerCount > 0 {
		cfg.Worker.Concurrency = workerCount
	}
	if !cfg.Kafka.Enabled {
		return fmt.Errorf("kafka.enabled is false; the worker has nothing to consume")
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logging.SetDefault(logger)
	logger.Info("Starting MinRisk ingestion worker",
		logging.String("version", config.Version),
		logging.Int("consumers", cfg.Worker.Concurrency),
		logging.String("topic", kafka.TopicEventsIngested))

	infra, err := bootstrap.NewInfrastructure(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
		defer cancel()
		infra.Close(ctx)
	}()

	svcs, err := bootstrap.NewServices(cfg, infra.Dependencies(), logger)
	if err != nil {
		return err
	}
	ingest := worker.NewIngestHandler(svcs.Alerts, logger.Named("ingest"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < cfg.Worker.Concurrency; i++ {
		consumer, err := kafka.NewConsumer(kafka.ConsumerConfig{
			Brokers:         cfg.Kafka.Brokers,
			GroupID:         cfg.Kafka.GroupID,
			Topics:          []string{ingest.Topic()},
			AutoOffsetReset: cfg.Kafka.AutoOffsetReset,
			HandlerTimeout:  cfg.Worker.HandlerTimeout,
			RetryConfig: kafka.RetryConfig{
				MaxRetries:      cfg.Kafka.MaxRetries,
				RetryBackoff:    cfg.Kafka.RetryBackoff,
				DeadLetterTopic: kafka.DeadLetterTopic(ingest.Topic()),
			},
		}, logger.With(logging.Int("consumer", i)))
		if err != nil {
			stop()
			_ = g.Wait()
			return fmt.Errorf("kafka consumer: %w", err)
		}
		consumer.Subscribe(ingest.Topic(), ingest.Handle)
		g.Go(func() error { return consumer.Run(gctx) })
	}

	health := healthRouter(infra)
	srv := httpserver.NewServer(config.ServerConfig{Port: cfg.Worker.HealthPort}, health, logger)
	g.Go(func() error { return srv.Run(gctx) })

	err = g.Wait()
	logger.Info("MinRisk ingestion worker stopped")
	return err
}

// healthRouter serves the probes and /metrics for the worker pod.
func healthRouter(infra *bootstrap.Infrastructure) chi.Router {
	r := chi.NewRouter()
	handlers.NewHealthHandler(config.Version,
		handlers.CheckFunc{Label: "postgres", Fn: infra.Postgres.HealthCheck},
		handlers.CheckFunc{Label: "redis", Fn: infra.Redis.Ping},
	).RegisterRoutes(r)
	if infra.Collector != nil {
		r.Handle("/metrics", infra.Collector.Handler())
	}
	return r
}

//Personal.AI order the ending
