// Package repositories implements the domain repositories on PostgreSQL.
package repositories

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"github.com/aonawunmi/New-MinRisk-sub016/pkg/errors"
)

// queryExecutor abstracts sql.DB and sql.Tx.
type queryExecutor interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// txBeginner is satisfied by *sql.DB but not by *sql.Tx.
type txBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// scanner abstracts sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

const uniqueViolation = "23505"

// uniqueConstraint returns the violated constraint name when err is a unique
// violation from either lib/pq or pgx.
func uniqueConstraint(err error) (string, bool) {
	var pqErr *pq.Error
	if stderrors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
		return pqErr.Constraint, true
	}
	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return pgErr.ConstraintName, true
	}
	return "", false
}

func isNoRows(err error) bool { return stderrors.Is(err, sql.ErrNoRows) }

func dbError(err error, msg string) error {
	return errors.Wrap(err, errors.ErrCodeDatabaseError, msg)
}

// atomically runs fn inside exec's transaction, or opens one when exec is the
// pool itself.
func atomically(ctx context.Context, exec queryExecutor, fn func(queryExecutor) error) error {
	db, ok := exec.(txBeginner)
	if !ok {
		return fn(exec)
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return dbError(err, "failed to begin transaction")
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return dbError(err, "failed to commit transaction")
	}
	return nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}

//Personal.AI order the ending
