package postgres

import (
	stderrors "errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/aonawunmi/New-MinRisk-sub016/internal/infrastructure/monitoring/logging"
	"github.com/aonawunmi/New-MinRisk-sub016/pkg/errors"
)

// MigrationState is the schema version recorded by golang-migrate.
type MigrationState struct {
	Version uint `json:"version"`
	Dirty   bool `json:"dirty"`
}

// Migrator applies the SQL files under a file:// source.
type Migrator struct {
	m      *migrate.Migrate
	logger logging.Logger
}

// NewMigrator opens a migrator over a database URL.
func NewMigrator(sourceURL, dbURL string, log logging.Logger) (*Migrator, error) {
	m, err := migrate.New(sourceURL, dbURL)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to create migrate instance")
	}
	return &Migrator{m: m, logger: log}, nil
}

// NewMigratorForConnection reuses an open pool instead of dialling again.
func NewMigratorForConnection(conn *Connection, sourceURL string, log logging.Logger) (*Migrator, error) {
	driver, err := postgres.WithInstance(conn.DB(), &postgres.Config{})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to create migration driver")
	}
	m, err := migrate.NewWithDatabaseInstance(sourceURL, "postgres", driver)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to create migrate instance")
	}
	return &Migrator{m: m, logger: log}, nil
}

// Up applies all pending migrations. No pending migrations is not an error.
func (mg *Migrator) Up() error {
	if err := mg.m.Up(); err != nil && !stderrors.Is(err, migrate.ErrNoChange) {
		state, _ := mg.Status()
		return errors.Wrap(err, errors.ErrCodeDatabaseError,
			fmt.Sprintf("failed to run migrations (current version: %d)", state.Version))
	}
	state, err := mg.Status()
	if err != nil {
		return err
	}
	mg.logger.Info("Database migrations applied",
		logging.Int64("version", int64(state.Version)), logging.Bool("dirty", state.Dirty))
	return nil
}

// Down rolls back steps migrations.
func (mg *Migrator) Down(steps int) error {
	if steps <= 0 {
		return errors.NewValidation("steps must be greater than 0, got %d", steps)
	}
	if err := mg.m.Steps(-steps); err != nil {
		if stderrors.Is(err, migrate.ErrNoChange) {
			return errors.New(errors.ErrCodeDatabaseError, "no migrations to roll back")
		}
		return errors.Wrap(err, errors.ErrCodeDatabaseError, fmt.Sprintf("failed to roll back %d step(s)", steps))
	}
	mg.logger.Info("Database migrations rolled back", logging.Int("steps", steps))
	return nil
}

// Status reports version 0 when nothing has been applied.
func (mg *Migrator) Status() (MigrationState, error) {
	v, dirty, err := mg.m.Version()
	if err != nil {
		if stderrors.Is(err, migrate.ErrNilVersion) {
			return MigrationState{}, nil
		}
		return MigrationState{}, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to read migration version")
	}
	return MigrationState{Version: v, Dirty: dirty}, nil
}

// Force marks version as applied without running it. Used to clear a dirty
// state after a failed migration has been repaired by hand.
func (mg *Migrator) Force(version int) error {
	if err := mg.m.Force(version); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, fmt.Sprintf("failed to force version %d", version))
	}
	mg.logger.Warn("Forced migration version", logging.Int("version", version))
	return nil
}

// Close releases the source and database handles. A migrator built over a
// shared Connection closes that pool too.
func (mg *Migrator) Close() error {
	srcErr, dbErr := mg.m.Close()
	if srcErr != nil {
		return srcErr
	}
	return dbErr
}

//Personal.AI order the ending
