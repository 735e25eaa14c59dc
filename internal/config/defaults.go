package config

import "time"

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultServerPort   = 8080
	DefaultServerMode   = "release"
	DefaultOrgHeader    = "X-Organization-ID"
	DefaultActorHeader  = "X-Actor-ID"
	DefaultMaxBodySize  = 1 << 20
	DefaultReadTimeout  = 15 * time.Second
	DefaultWriteTimeout = 30 * time.Second

	DefaultDBDriver      = "pgx"
	DefaultDBHost        = "localhost"
	DefaultDBPort        = 5432
	DefaultDBName        = "minrisk"
	DefaultDBMaxConns    = 25
	DefaultMigrationPath = "file://migrations"

	DefaultRedisAddr   = "localhost:6379"
	DefaultRedisPrefix = "minrisk:"

	DefaultKafkaBroker  = "localhost:9092"
	DefaultKafkaGroupID = "minrisk-engine"

	DefaultMinIOEndpoint = "localhost:9000"
	DefaultMinIOBucket   = "minrisk-snapshots"

	DefaultClassifierTimeout = 20 * time.Second

	DefaultMatrixSize          = 5
	DefaultConfidenceThreshold = 70
	DefaultResidualFormula     = "dime-multiplicative-v1"
	DefaultCacheTTL            = 5 * time.Minute
	DefaultCommitLockTTL       = 2 * time.Minute

	DefaultWorkerConcurrency = 4
	DefaultHandlerTimeout    = 2 * time.Minute
	DefaultHealthPort        = 8081

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultMetricsNamespace = "minrisk"
	DefaultMetricsPath      = "/metrics"

	DefaultTracingService  = "minrisk"
	DefaultTracingExporter = "none"
)

// ApplyDefaults fills every zero-value field in cfg with the platform default.
// Explicit configuration always wins.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Server ────────────────────────────────────────────────────────────────
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = DefaultServerMode
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 15 * time.Second
	}
	if cfg.Server.MaxBodySize == 0 {
		cfg.Server.MaxBodySize = DefaultMaxBodySize
	}
	if cfg.Server.OrgHeader == "" {
		cfg.Server.OrgHeader = DefaultOrgHeader
	}
	if cfg.Server.ActorHeader == "" {
		cfg.Server.ActorHeader = DefaultActorHeader
	}
	if cfg.Server.RateLimitRPS > 0 && cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = int(cfg.Server.RateLimitRPS * 2)
	}

	// ── Database ──────────────────────────────────────────────────────────────
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = DefaultDBDriver
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = DefaultDBHost
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = DefaultDBPort
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = DefaultDBName
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = DefaultDBMaxConns
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = cfg.Database.MaxConns / 2
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 30 * time.Minute
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MigrationPath == "" {
		cfg.Database.MigrationPath = DefaultMigrationPath
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = DefaultRedisPrefix
	}

	// ── Kafka ─────────────────────────────────────────────────────────────────
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = DefaultKafkaGroupID
	}
	if cfg.Kafka.AutoOffsetReset == "" {
		cfg.Kafka.AutoOffsetReset = "earliest"
	}
	if cfg.Kafka.MaxRetries == 0 {
		cfg.Kafka.MaxRetries = 3
	}
	if cfg.Kafka.RetryBackoff == 0 {
		cfg.Kafka.RetryBackoff = time.Second
	}

	// ── MinIO ─────────────────────────────────────────────────────────────────
	if cfg.MinIO.Endpoint == "" {
		cfg.MinIO.Endpoint = DefaultMinIOEndpoint
	}
	if cfg.MinIO.Bucket == "" {
		cfg.MinIO.Bucket = DefaultMinIOBucket
	}
	if cfg.MinIO.PresignExpiry == 0 {
		cfg.MinIO.PresignExpiry = time.Hour
	}

	// ── Classifier ────────────────────────────────────────────────────────────
	if cfg.Classifier.Timeout == 0 {
		cfg.Classifier.Timeout = DefaultClassifierTimeout
	}

	// ── Engine ────────────────────────────────────────────────────────────────
	if cfg.Engine.MatrixSize == 0 {
		cfg.Engine.MatrixSize = DefaultMatrixSize
	}
	// confidence_threshold is defaulted by the loader: 0 is a valid setting.
	if cfg.Engine.ResidualFormula == "" {
		cfg.Engine.ResidualFormula = DefaultResidualFormula
	}
	if cfg.Engine.CacheTTL == 0 {
		cfg.Engine.CacheTTL = DefaultCacheTTL
	}
	if cfg.Engine.CommitLockTTL == 0 {
		cfg.Engine.CommitLockTTL = DefaultCommitLockTTL
	}

	// ── Worker ────────────────────────────────────────────────────────────────
	if cfg.Worker.Concurrency == 0 {
		cfg.Worker.Concurrency = DefaultWorkerConcurrency
	}
	if cfg.Worker.HandlerTimeout == 0 {
		cfg.Worker.HandlerTimeout = DefaultHandlerTimeout
	}
	if cfg.Worker.HealthPort == 0 {
		cfg.Worker.HealthPort = DefaultHealthPort
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}

	// ── Metrics ───────────────────────────────────────────────────────────────
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}

	// ── Tracing ───────────────────────────────────────────────────────────────
	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = DefaultTracingService
	}
	if cfg.Tracing.Exporter == "" {
		cfg.Tracing.Exporter = DefaultTracingExporter
	}
}

//Personal.AI order the ending
