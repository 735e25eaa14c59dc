package repositories

import (
	"context"
	"database/sql"

	"github.com/aonawunmi/New-MinRisk-sub016/internal/domain/treatment"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/infrastructure/monitoring/logging"
	"github.com/aonawunmi/New-MinRisk-sub016/pkg/errors"
)

const entryColumns = `seq, id, organization_id, risk_code, alert_id, action_taken,
	previous_likelihood, new_likelihood, previous_impact, new_impact,
	notes, actor, applied_at, prev_hash, entry_hash, deleted_at`

type postgresTreatmentRepo struct {
	executor queryExecutor
	log      logging.Logger
}

func NewTreatmentRepo(exec queryExecutor, log logging.Logger) treatment.Repository {
	return &postgresTreatmentRepo{executor: exec, log: log}
}

// Append serializes writers of one chain with a transaction-scoped advisory
// lock, then seals the entry against the current head.
func (r *postgresTreatmentRepo) Append(ctx context.Context, e *treatment.Entry) error {
	return atomically(ctx, r.executor, func(exec queryExecutor) error {
		if _, err := exec.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`,
			e.OrganizationID+"/"+e.RiskCode); err != nil {
			return dbError(err, "failed to lock treatment chain")
		}

		head := treatment.GenesisHash
		err := exec.QueryRowContext(ctx,
			`SELECT entry_hash FROM risk_intelligence_treatment_log
			 WHERE organization_id = $1 AND risk_code = $2 ORDER BY seq DESC LIMIT 1`,
			e.OrganizationID, e.RiskCode).Scan(&head)
		if err != nil && !isNoRows(err) {
			return dbError(err, "failed to read treatment chain head")
		}
		if err := e.Seal(head); err != nil {
			return err
		}

		err = exec.QueryRowContext(ctx, `INSERT INTO risk_intelligence_treatment_log (
				id, organization_id, risk_code, alert_id, action_taken,
				previous_likelihood, new_likelihood, previous_impact, new_impact,
				notes, actor, applied_at, prev_hash, entry_hash
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
			RETURNING seq`,
			e.ID, e.OrganizationID, e.RiskCode, e.AlertID, string(e.Action),
			e.PreviousLikelihood, e.NewLikelihood, e.PreviousImpact, e.NewImpact,
			e.Notes, e.Actor, e.AppliedAt, e.PrevHash, e.EntryHash,
		).Scan(&e.Seq)
		if err != nil {
			return dbError(err, "failed to append treatment entry")
		}
		return nil
	})
}

func (r *postgresTreatmentRepo) GetByID(ctx context.Context, orgID, id string) (*treatment.Entry, error) {
	e, err := scanEntry(r.executor.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM risk_intelligence_treatment_log WHERE organization_id = $1 AND id = $2`, orgID, id))
	if err != nil {
		if isNoRows(err) {
			return nil, errors.New(errors.ErrCodeTreatmentEntryNotFound, "treatment entry not found").WithDetail("id=" + id)
		}
		return nil, dbError(err, "failed to load treatment entry")
	}
	return e, nil
}

func (r *postgresTreatmentRepo) ListByRisk(ctx context.Context, orgID, riskCode string, includeArchived bool) ([]*treatment.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM risk_intelligence_treatment_log
		WHERE organization_id = $1 AND risk_code = $2`
	if !includeArchived {
		query += ` AND deleted_at IS NULL`
	}
	query += ` ORDER BY applied_at DESC, seq DESC`
	return r.query(ctx, query, orgID, riskCode)
}

func (r *postgresTreatmentRepo) ListChain(ctx context.Context, orgID, riskCode string) ([]*treatment.Entry, error) {
	return r.query(ctx, `SELECT `+entryColumns+` FROM risk_intelligence_treatment_log
		WHERE organization_id = $1 AND risk_code = $2 ORDER BY seq`, orgID, riskCode)
}

// Archive sets deleted_at once. Archiving an archived entry is a no-op.
func (r *postgresTreatmentRepo) Archive(ctx context.Context, orgID, id string) error {
	res, err := r.executor.ExecContext(ctx,
		`UPDATE risk_intelligence_treatment_log SET deleted_at = NOW()
		 WHERE organization_id = $1 AND id = $2 AND deleted_at IS NULL`, orgID, id)
	if err != nil {
		return dbError(err, "failed to archive treatment entry")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetByID(ctx, orgID, id); err != nil {
			return err
		}
	}
	return nil
}

func (r *postgresTreatmentRepo) query(ctx context.Context, query string, args ...interface{}) ([]*treatment.Entry, error) {
	rows, err := r.executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dbError(err, "failed to query treatment log")
	}
	defer rows.Close()

	var out []*treatment.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, dbError(err, "failed to scan treatment entry")
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError(err, "failed to iterate treatment log")
	}
	return out, nil
}

func scanEntry(row scanner) (*treatment.Entry, error) {
	var (
		e       treatment.Entry
		action  string
		deleted sql.NullTime
	)
	err := row.Scan(&e.Seq, &e.ID, &e.OrganizationID, &e.RiskCode, &e.AlertID, &action,
		&e.PreviousLikelihood, &e.NewLikelihood, &e.PreviousImpact, &e.NewImpact,
		&e.Notes, &e.Actor, &e.AppliedAt, &e.PrevHash, &e.EntryHash, &deleted)
	if err != nil {
		return nil, err
	}
	e.Action = treatment.Action(action)
	e.AppliedAt = e.AppliedAt.UTC()
	e.DeletedAt = timePtr(deleted)
	return &e, nil
}

//Personal.AI order the ending
