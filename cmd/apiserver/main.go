// API server entry point for the MinRisk scoring engine.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aonawunmi/New-MinRisk-sub016/internal/bootstrap"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/config"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/infrastructure/database/postgres"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/infrastructure/monitoring/logging"
	httpserver "github.com/aonawunmi/New-MinRisk-sub016/internal/interfaces/http"
)

const (
	defaultConfigPath = "configs/config.yaml"
	cleanupTimeout    = 10 * time.Second
)

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file")
	httpPort := flag.Int("http-port", 0, "HTTP server port (overrides config)")
	migrate := flag.Bool("migrate", false, "apply pending migrations before serving")
	flag.Parse()

	if err := run(*configPath, *httpPort, *migrate); err != nil {
		fmt.Fprintf(os.Stderr, "apiserver: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, httpPort int, migrate bool) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: using default configuration: %v\n", err)
		cfg = config.NewDefaultConfig()
	}
	if httpPort > 0 {
		cfg.Server.Port = httpPort
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	logging.SetDefault(logger)
	logger.Info("Starting MinRisk API server",
		logging.String("version", config.Version),
		logging.Int("http_port", cfg.Server.Port),
		logging.String("residual_formula", cfg.Engine.ResidualFormula),
		logging.Int("matrix_size", cfg.Engine.MatrixSize))

	infra, err := bootstrap.NewInfrastructure(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
		defer cancel()
		infra.Close(ctx)
	}()

	if migrate || cfg.Database.AutoMigrate {
		if err := applyMigrations(infra.Postgres, cfg.Database.MigrationPath, logger); err != nil {
			return err
		}
	}

	svcs, err := bootstrap.NewServices(cfg, infra.Dependencies(), logger)
	if err != nil {
		return err
	}

	router := httpserver.NewRouter(buildRouterConfig(cfg, infra, svcs, logger))
	srv := httpserver.NewServer(cfg.Server, router, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go config.Watch(configPath, func(*config.Config) {
		logger.Warn("Configuration file changed; restart to apply", logging.String("path", configPath))
	}, func(err error) {
		logger.Warn("Configuration reload failed", logging.Err(err))
	})

	if err := srv.Run(ctx); err != nil {
		return err
	}
	logger.Info("MinRisk API server stopped")
	return nil
}

func applyMigrations(conn *postgres.Connection, source string, logger logging.Logger) error {
	m, err := postgres.NewMigratorForConnection(conn, source, logger)
	if err != nil {
		return fmt.Errorf("migrator: %w", err)
	}
	defer m.Close()
	return m.Up()
}

// loadConfig attempts to load configuration from file, returns error if not found.
func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}
	return config.LoadFromFile(path)
}

//Personal.AI order the ending
