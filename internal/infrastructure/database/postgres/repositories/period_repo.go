package repositories

import (
	"context"

	"github.com/aonawunmi/New-MinRisk-sub016/internal/domain/period"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/domain/risk"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/infrastructure/monitoring/logging"
	"github.com/aonawunmi/New-MinRisk-sub016/pkg/errors"
)

const commitColumns = `id, organization_id, year, quarter, committed_at, committed_by, risks_count,
	notes, formula_version, archive_key`

const snapshotColumns = `id, commit_id, organization_id, year, quarter, risk_id, risk_code, title, category,
	division, department, owner, status, likelihood_inherent, impact_inherent, score_inherent,
	likelihood_residual, impact_residual, residual_score, formula_version, created_at`

type postgresPeriodRepo struct {
	executor queryExecutor
	log      logging.Logger
}

func NewPeriodRepo(exec queryExecutor, log logging.Logger) period.Repository {
	return &postgresPeriodRepo{executor: exec, log: log}
}

func (r *postgresPeriodRepo) Create(ctx context.Context, c *period.Commit, snaps []*period.Snapshot) error {
	return atomically(ctx, r.executor, func(exec queryExecutor) error {
		_, err := exec.ExecContext(ctx, `INSERT INTO period_commits (`+commitColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			c.ID, c.OrganizationID, c.Period.Year, c.Period.Quarter, c.CommittedAt, c.CommittedBy,
			c.RisksCount, c.Notes, c.FormulaVersion, c.ArchiveKey)
		if err != nil {
			if _, ok := uniqueConstraint(err); ok {
				return errors.Wrap(err, errors.ErrCodePeriodAlreadyCommitted, "period already committed").
					WithDetail("period=" + c.Period.String())
			}
			return dbError(err, "failed to create period commit")
		}

		for _, s := range snaps {
			_, err := exec.ExecContext(ctx, `INSERT INTO risk_snapshots (`+snapshotColumns+`)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`,
				s.ID, s.CommitID, s.OrganizationID, s.Period.Year, s.Period.Quarter, s.RiskID, s.RiskCode, s.Title, s.Category,
				s.Division, s.Department, s.Owner, string(s.Status), s.LikelihoodInherent, s.ImpactInherent, s.InherentScore,
				s.ResidualLikelihood, s.ResidualImpact, s.ResidualScore, s.FormulaVersion, s.CreatedAt)
			if err != nil {
				return dbError(err, "failed to insert risk snapshot")
			}
		}
		r.log.Info("Period committed",
			logging.String("organization_id", c.OrganizationID),
			logging.String("period", c.Period.String()),
			logging.Int("risks", len(snaps)))
		return nil
	})
}

func (r *postgresPeriodRepo) GetCommit(ctx context.Context, orgID string, p period.Period) (*period.Commit, error) {
	c, err := scanCommit(r.executor.QueryRowContext(ctx,
		`SELECT `+commitColumns+` FROM period_commits WHERE organization_id = $1 AND year = $2 AND quarter = $3`,
		orgID, p.Year, p.Quarter))
	if err != nil {
		if isNoRows(err) {
			return nil, errors.New(errors.ErrCodePeriodNotFound, "period not committed").WithDetail("period=" + p.String())
		}
		return nil, dbError(err, "failed to load period commit")
	}
	return c, nil
}

// ListCommits returns commits oldest period first.
func (r *postgresPeriodRepo) ListCommits(ctx context.Context, orgID string) ([]*period.Commit, error) {
	rows, err := r.executor.QueryContext(ctx,
		`SELECT `+commitColumns+` FROM period_commits WHERE organization_id = $1 ORDER BY year, quarter`, orgID)
	if err != nil {
		return nil, dbError(err, "failed to list period commits")
	}
	defer rows.Close()

	var out []*period.Commit
	for rows.Next() {
		c, err := scanCommit(rows)
		if err != nil {
			return nil, dbError(err, "failed to scan period commit")
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError(err, "failed to iterate period commits")
	}
	return out, nil
}

func (r *postgresPeriodRepo) GetSnapshots(ctx context.Context, orgID string, p period.Period) ([]*period.Snapshot, error) {
	return r.snapshots(ctx, `SELECT `+snapshotColumns+` FROM risk_snapshots
		WHERE organization_id = $1 AND year = $2 AND quarter = $3 ORDER BY risk_code`, orgID, p.Year, p.Quarter)
}

func (r *postgresPeriodRepo) ListAllSnapshots(ctx context.Context, orgID string) ([]*period.Snapshot, error) {
	return r.snapshots(ctx, `SELECT `+snapshotColumns+` FROM risk_snapshots
		WHERE organization_id = $1 ORDER BY year, quarter, risk_code`, orgID)
}

func (r *postgresPeriodRepo) SetArchiveKey(ctx context.Context, commitID, key string) error {
	res, err := r.executor.ExecContext(ctx, `UPDATE period_commits SET archive_key = $2 WHERE id = $1`, commitID, key)
	if err != nil {
		return dbError(err, "failed to record archive key")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.New(errors.ErrCodePeriodNotFound, "period commit not found").WithDetail("commit_id=" + commitID)
	}
	return nil
}

func (r *postgresPeriodRepo) snapshots(ctx context.Context, query string, args ...interface{}) ([]*period.Snapshot, error) {
	rows, err := r.executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dbError(err, "failed to query snapshots")
	}
	defer rows.Close()

	var out []*period.Snapshot
	for rows.Next() {
		var (
			s      period.Snapshot
			status string
		)
		if err := rows.Scan(&s.ID, &s.CommitID, &s.OrganizationID, &s.Period.Year, &s.Period.Quarter,
			&s.RiskID, &s.RiskCode, &s.Title, &s.Category, &s.Division, &s.Department, &s.Owner, &status,
			&s.LikelihoodInherent, &s.ImpactInherent, &s.InherentScore,
			&s.ResidualLikelihood, &s.ResidualImpact, &s.ResidualScore, &s.FormulaVersion, &s.CreatedAt); err != nil {
			return nil, dbError(err, "failed to scan snapshot")
		}
		s.Status = risk.Status(status)
		s.CreatedAt = s.CreatedAt.UTC()
		out = append(out, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError(err, "failed to iterate snapshots")
	}
	return out, nil
}

func scanCommit(row scanner) (*period.Commit, error) {
	var c period.Commit
	if err := row.Scan(&c.ID, &c.OrganizationID, &c.Period.Year, &c.Period.Quarter, &c.CommittedAt,
		&c.CommittedBy, &c.RisksCount, &c.Notes, &c.FormulaVersion, &c.ArchiveKey); err != nil {
		return nil, err
	}
	c.CommittedAt = c.CommittedAt.UTC()
	return &c, nil
}

//Personal.AI order the ending
