package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/aonawunmi/New-MinRisk-sub016/internal/domain/intelligence"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/infrastructure/monitoring/logging"
	"github.com/aonawunmi/New-MinRisk-sub016/pkg/errors"
)

const alertColumns = `id, organization_id, event_id, risk_id, risk_code, confidence_score,
	suggested_likelihood_change, impact_change, reasoning, impact_assessment, suggested_controls,
	status, reviewed_by, reviewed_at, applied_at, version, created_at, updated_at`

type postgresAlertRepo struct {
	executor queryExecutor
	log      logging.Logger
}

func NewAlertRepo(exec queryExecutor, log logging.Logger) intelligence.AlertRepository {
	return &postgresAlertRepo{executor: exec, log: log}
}

func (r *postgresAlertRepo) Create(ctx context.Context, a *intelligence.Alert) error {
	controls, err := json.Marshal(nonNil(a.SuggestedControls))
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode suggested controls")
	}
	query := `INSERT INTO risk_intelligence_alerts (` + alertColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`
	_, err = r.executor.ExecContext(ctx, query,
		a.ID, a.OrganizationID, a.EventID, a.RiskID, a.RiskCode, a.ConfidenceScore,
		a.SuggestedLikelihoodChange, a.ImpactChange, a.Reasoning, a.ImpactAssessment, controls,
		string(a.Status), a.ReviewedBy, nullTime(a.ReviewedAt), nullTime(a.AppliedAt),
		a.Version, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		if _, ok := uniqueConstraint(err); ok {
			return errors.Wrap(err, errors.ErrCodeConflict, "alert already exists for event and risk").
				WithDetail(fmt.Sprintf("event_id=%s risk_id=%s", a.EventID, a.RiskID))
		}
		return dbError(err, "failed to create alert")
	}
	return nil
}

func (r *postgresAlertRepo) GetByID(ctx context.Context, orgID, id string) (*intelligence.Alert, error) {
	a, err := scanAlert(r.executor.QueryRowContext(ctx,
		`SELECT `+alertColumns+` FROM risk_intelligence_alerts WHERE organization_id = $1 AND id = $2`, orgID, id))
	if err != nil {
		if isNoRows(err) {
			return nil, errors.New(errors.ErrCodeAlertNotFound, "alert not found").WithDetail("id=" + id)
		}
		return nil, dbError(err, "failed to load alert")
	}
	return a, nil
}

func (r *postgresAlertRepo) List(ctx context.Context, orgID string, f intelligence.AlertFilter) ([]*intelligence.Alert, int64, error) {
	where := []string{"organization_id = $1"}
	args := []interface{}{orgID}
	add := func(cond string, v interface{}) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		add("status = ANY($%d)", pq.Array(statuses))
	}
	if f.RiskCode != "" {
		add("risk_code = $%d", f.RiskCode)
	}
	if f.MinConfidence > 0 {
		add("confidence_score >= $%d", f.MinConfidence)
	}
	cond := strings.Join(where, " AND ")

	var total int64
	if err := r.executor.QueryRowContext(ctx, `SELECT COUNT(*) FROM risk_intelligence_alerts WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, dbError(err, "failed to count alerts")
	}

	p := f.Pagination.Normalize()
	query := fmt.Sprintf(`SELECT %s FROM risk_intelligence_alerts WHERE %s ORDER BY created_at DESC, id LIMIT %d OFFSET %d`,
		alertColumns, cond, p.PageSize, p.Offset())
	alerts, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return alerts, total, nil
}

// Update writes the mutable lifecycle fields when the stored version matches.
func (r *postgresAlertRepo) Update(ctx context.Context, a *intelligence.Alert) error {
	query := `UPDATE risk_intelligence_alerts SET
			status = $4, reviewed_by = $5, reviewed_at = $6, applied_at = $7,
			version = version + 1, updated_at = NOW()
		WHERE organization_id = $1 AND id = $2 AND version = $3
		RETURNING version, updated_at`
	var updatedAt time.Time
	err := r.executor.QueryRowContext(ctx, query,
		a.OrganizationID, a.ID, a.Version,
		string(a.Status), a.ReviewedBy, nullTime(a.ReviewedAt), nullTime(a.AppliedAt),
	).Scan(&a.Version, &updatedAt)
	if err == nil {
		a.UpdatedAt = updatedAt.UTC()
		return nil
	}
	if !isNoRows(err) {
		return dbError(err, "failed to update alert")
	}
	if _, getErr := r.GetByID(ctx, a.OrganizationID, a.ID); getErr != nil {
		return getErr
	}
	return errors.New(errors.ErrCodeConflict, "alert was modified concurrently").WithDetail("id=" + a.ID)
}

func (r *postgresAlertRepo) ListApplied(ctx context.Context, riskID string) ([]*intelligence.Alert, error) {
	return r.query(ctx,
		`SELECT `+alertColumns+` FROM risk_intelligence_alerts WHERE risk_id = $1 AND status = 'Applied' ORDER BY applied_at, id`,
		riskID)
}

func (r *postgresAlertRepo) ExistsForEventRisk(ctx context.Context, eventID, riskID string) (bool, error) {
	var exists bool
	err := r.executor.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM risk_intelligence_alerts WHERE event_id = $1 AND risk_id = $2)`,
		eventID, riskID).Scan(&exists)
	if err != nil {
		return false, dbError(err, "failed to check alert")
	}
	return exists, nil
}

func (r *postgresAlertRepo) query(ctx context.Context, query string, args ...interface{}) ([]*intelligence.Alert, error) {
	rows, err := r.executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dbError(err, "failed to query alerts")
	}
	defer rows.Close()

	var out []*intelligence.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, dbError(err, "failed to scan alert")
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError(err, "failed to iterate alerts")
	}
	return out, nil
}

func scanAlert(row scanner) (*intelligence.Alert, error) {
	var (
		a          intelligence.Alert
		controls   []byte
		status     string
		reviewedAt sql.NullTime
		appliedAt  sql.NullTime
	)
	err := row.Scan(&a.ID, &a.OrganizationID, &a.EventID, &a.RiskID, &a.RiskCode, &a.ConfidenceScore,
		&a.SuggestedLikelihoodChange, &a.ImpactChange, &a.Reasoning, &a.ImpactAssessment, &controls,
		&status, &a.ReviewedBy, &reviewedAt, &appliedAt, &a.Version, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.Status = intelligence.AlertStatus(status)
	a.ReviewedAt = timePtr(reviewedAt)
	a.AppliedAt = timePtr(appliedAt)
	a.CreatedAt = a.CreatedAt.UTC()
	a.UpdatedAt = a.UpdatedAt.UTC()
	a.SuggestedControls = []string{}
	if len(controls) > 0 {
		if err := json.Unmarshal(controls, &a.SuggestedControls); err != nil {
			return nil, fmt.Errorf("decode suggested_controls: %w", err)
		}
	}
	return &a, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

//Personal.AI order the ending
