package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aonawunmi/New-MinRisk-sub016/internal/domain/store"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/infrastructure/database/postgres"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/infrastructure/monitoring/logging"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/infrastructure/monitoring/prometheus"
)

// Store is the PostgreSQL unit of work.
type Store struct {
	db      *sql.DB
	log     logging.Logger
	metrics *prometheus.AppMetrics
	repos   store.Repositories
}

var _ store.Store = (*Store)(nil)

func NewStore(conn *postgres.Connection, log logging.Logger, metrics *prometheus.AppMetrics) *Store {
	return NewStoreWithDB(conn.DB(), log, metrics)
}

// NewStoreWithDB builds a store over an existing pool.
func NewStoreWithDB(db *sql.DB, log logging.Logger, metrics *prometheus.AppMetrics) *Store {
	if metrics == nil {
		metrics = prometheus.NewNopAppMetrics()
	}
	return &Store{db: db, log: log, metrics: metrics, repos: reposFor(db, log)}
}

func reposFor(exec queryExecutor, log logging.Logger) store.Repositories {
	return store.Repositories{
		Risks:     NewRiskRepo(exec, log),
		Alerts:    NewAlertRepo(exec, log),
		Events:    NewEventRepo(exec, log),
		Treatment: NewTreatmentRepo(exec, log),
		Periods:   NewPeriodRepo(exec, log),
	}
}

// Repos returns repositories that run each call on its own connection.
func (s *Store) Repos() store.Repositories { return s.repos }

// WithTx runs fn in a READ COMMITTED transaction. A panic in fn rolls back
// and is re-raised.
func (s *Store) WithTx(ctx context.Context, fn func(tx store.Repositories) error) error {
	start := time.Now()
	defer func() {
		s.metrics.DBQueryDuration.WithLabelValues("tx").Observe(time.Since(start).Seconds())
	}()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return dbError(err, "failed to begin transaction")
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(reposFor(tx, s.log)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.log.Error("Rollback failed", logging.Err(rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return dbError(fmt.Errorf("commit: %w", err), "failed to commit transaction")
	}
	return nil
}

//Personal.AI order the ending
