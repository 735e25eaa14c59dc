package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/aonawunmi/New-MinRisk-sub016/internal/domain/risk"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/infrastructure/monitoring/logging"
	"github.com/aonawunmi/New-MinRisk-sub016/pkg/errors"
)

const riskColumns = `id, organization_id, risk_code, title, description, category, division, department, owner, status,
	likelihood_inherent, impact_inherent, score_inherent, baseline_likelihood, baseline_impact,
	likelihood_residual, impact_residual, residual_score, formula_version, last_residual_calc,
	version, created_at, updated_at`

const controlColumns = `id, risk_id, name, description, target, design, implementation, monitoring, evaluation,
	created_at, updated_at, deleted_at`

type postgresRiskRepo struct {
	executor queryExecutor
	log      logging.Logger
}

// NewRiskRepo returns a risk.Repository running on exec.
func NewRiskRepo(exec queryExecutor, log logging.Logger) risk.Repository {
	return &postgresRiskRepo{executor: exec, log: log}
}

func (r *postgresRiskRepo) Create(ctx context.Context, rk *risk.Risk) error {
	query := `INSERT INTO risks (` + riskColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)`
	_, err := r.executor.ExecContext(ctx, query,
		rk.ID, rk.OrganizationID, rk.RiskCode, rk.Title, rk.Description, rk.Category, rk.Division, rk.Department, rk.Owner, string(rk.Status),
		rk.LikelihoodInherent, rk.ImpactInherent, rk.InherentScore, rk.BaselineLikelihood, rk.BaselineImpact,
		rk.ResidualLikelihood, rk.ResidualImpact, rk.ResidualScore, rk.FormulaVersion, nullTime(rk.LastResidualCalc),
		rk.Version, rk.CreatedAt, rk.UpdatedAt,
	)
	if err != nil {
		if _, ok := uniqueConstraint(err); ok {
			return errors.Wrap(err, errors.ErrCodeRiskCodeExists, "risk code already exists").
				WithDetail("risk_code=" + rk.RiskCode)
		}
		return dbError(err, "failed to create risk")
	}
	return nil
}

func (r *postgresRiskRepo) GetByID(ctx context.Context, orgID, id string) (*risk.Risk, error) {
	query := `SELECT ` + riskColumns + ` FROM risks WHERE organization_id = $1 AND id = $2`
	return r.getOne(ctx, "id="+id, query, orgID, id)
}

func (r *postgresRiskRepo) GetByCode(ctx context.Context, orgID, code string) (*risk.Risk, error) {
	query := `SELECT ` + riskColumns + ` FROM risks WHERE organization_id = $1 AND risk_code = $2`
	return r.getOne(ctx, "risk_code="+code, query, orgID, code)
}

func (r *postgresRiskRepo) LockForUpdate(ctx context.Context, orgID, id string) (*risk.Risk, error) {
	query := `SELECT ` + riskColumns + ` FROM risks WHERE organization_id = $1 AND id = $2 FOR UPDATE`
	return r.getOne(ctx, "id="+id, query, orgID, id)
}

func (r *postgresRiskRepo) getOne(ctx context.Context, detail, query string, args ...interface{}) (*risk.Risk, error) {
	rk, err := scanRisk(r.executor.QueryRowContext(ctx, query, args...))
	if err != nil {
		if isNoRows(err) {
			return nil, errors.New(errors.ErrCodeRiskNotFound, "risk not found").WithDetail(detail)
		}
		return nil, dbError(err, "failed to load risk")
	}
	return rk, nil
}

func (r *postgresRiskRepo) List(ctx context.Context, orgID string, opts ...risk.ListOption) ([]*risk.Risk, int64, error) {
	o := risk.ApplyListOptions(opts...)

	where := []string{"organization_id = $1"}
	args := []interface{}{orgID}
	add := func(cond string, v interface{}) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if len(o.Statuses) > 0 {
		statuses := make([]string, len(o.Statuses))
		for i, s := range o.Statuses {
			statuses[i] = string(s)
		}
		add("status = ANY($%d)", pq.Array(statuses))
	} else if !o.IncludeArchived {
		add("status <> $%d", string(risk.StatusArchived))
	}
	if o.Category != "" {
		add("category = $%d", o.Category)
	}
	if o.Owner != "" {
		add("owner = $%d", o.Owner)
	}
	cond := strings.Join(where, " AND ")

	var total int64
	if err := r.executor.QueryRowContext(ctx, `SELECT COUNT(*) FROM risks WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, dbError(err, "failed to count risks")
	}

	query := `SELECT ` + riskColumns + ` FROM risks WHERE ` + cond + ` ORDER BY risk_code`
	if o.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", o.Limit, o.Offset)
	}
	rows, err := r.executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, dbError(err, "failed to list risks")
	}
	defer rows.Close()

	var out []*risk.Risk
	for rows.Next() {
		rk, err := scanRisk(rows)
		if err != nil {
			return nil, 0, dbError(err, "failed to scan risk")
		}
		out = append(out, rk)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, dbError(err, "failed to iterate risks")
	}
	return out, total, nil
}

func (r *postgresRiskRepo) Update(ctx context.Context, rk *risk.Risk) error {
	query := `UPDATE risks SET
			title = $4, description = $5, category = $6, division = $7, department = $8, owner = $9, status = $10,
			likelihood_inherent = $11, impact_inherent = $12, score_inherent = $13,
			baseline_likelihood = $14, baseline_impact = $15,
			likelihood_residual = $16, impact_residual = $17, residual_score = $18,
			formula_version = $19, last_residual_calc = $20,
			version = version + 1, updated_at = NOW()
		WHERE organization_id = $1 AND id = $2 AND version = $3
		RETURNING version, updated_at`

	var updatedAt time.Time
	err := r.executor.QueryRowContext(ctx, query,
		rk.OrganizationID, rk.ID, rk.Version,
		rk.Title, rk.Description, rk.Category, rk.Division, rk.Department, rk.Owner, string(rk.Status),
		rk.LikelihoodInherent, rk.ImpactInherent, rk.InherentScore,
		rk.BaselineLikelihood, rk.BaselineImpact,
		rk.ResidualLikelihood, rk.ResidualImpact, rk.ResidualScore,
		rk.FormulaVersion, nullTime(rk.LastResidualCalc),
	).Scan(&rk.Version, &updatedAt)
	if err == nil {
		rk.UpdatedAt = updatedAt.UTC()
		return nil
	}
	if !isNoRows(err) {
		return dbError(err, "failed to update risk")
	}

	var exists bool
	if err := r.executor.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM risks WHERE organization_id = $1 AND id = $2)`,
		rk.OrganizationID, rk.ID).Scan(&exists); err != nil {
		return dbError(err, "failed to check risk")
	}
	if !exists {
		return errors.New(errors.ErrCodeRiskNotFound, "risk not found").WithDetail("id=" + rk.ID)
	}
	r.log.Debug("Stale risk version", logging.String("risk_code", rk.RiskCode), logging.Int64("version", rk.Version))
	return errors.New(errors.ErrCodeRiskVersionConflict, "risk was modified concurrently").
		WithDetail(fmt.Sprintf("risk_code=%s version=%d", rk.RiskCode, rk.Version))
}

// ─────────────────────────────────────────────────────────────────────────────
// Controls
// ─────────────────────────────────────────────────────────────────────────────

func (r *postgresRiskRepo) CreateControl(ctx context.Context, c *risk.Control) error {
	query := `INSERT INTO controls (` + controlColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.executor.ExecContext(ctx, query,
		c.ID, c.RiskID, c.Name, c.Description, string(c.Target),
		c.Design, c.Implementation, c.Monitoring, c.Evaluation,
		c.CreatedAt, c.UpdatedAt, nullTime(c.DeletedAt),
	)
	if err != nil {
		return dbError(err, "failed to create control")
	}
	return nil
}

func (r *postgresRiskRepo) GetControl(ctx context.Context, riskID, id string) (*risk.Control, error) {
	query := `SELECT ` + controlColumns + ` FROM controls WHERE risk_id = $1 AND id = $2 AND deleted_at IS NULL`
	c, err := scanControl(r.executor.QueryRowContext(ctx, query, riskID, id))
	if err != nil {
		if isNoRows(err) {
			return nil, controlNotFound(id)
		}
		return nil, dbError(err, "failed to load control")
	}
	return c, nil
}

func (r *postgresRiskRepo) UpdateControl(ctx context.Context, c *risk.Control) error {
	query := `UPDATE controls SET
			name = $3, description = $4, target = $5,
			design = $6, implementation = $7, monitoring = $8, evaluation = $9, updated_at = NOW()
		WHERE risk_id = $1 AND id = $2 AND deleted_at IS NULL
		RETURNING updated_at`
	err := r.executor.QueryRowContext(ctx, query,
		c.RiskID, c.ID, c.Name, c.Description, string(c.Target),
		c.Design, c.Implementation, c.Monitoring, c.Evaluation,
	).Scan(&c.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return controlNotFound(c.ID)
		}
		return dbError(err, "failed to update control")
	}
	return nil
}

func (r *postgresRiskRepo) SoftDeleteControl(ctx context.Context, riskID, id string) error {
	res, err := r.executor.ExecContext(ctx,
		`UPDATE controls SET deleted_at = NOW(), updated_at = NOW() WHERE risk_id = $1 AND id = $2 AND deleted_at IS NULL`,
		riskID, id)
	if err != nil {
		return dbError(err, "failed to delete control")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return controlNotFound(id)
	}
	return nil
}

func (r *postgresRiskRepo) ListControls(ctx context.Context, riskID string) ([]risk.Control, error) {
	byRisk, err := r.ListControlsForRisks(ctx, []string{riskID})
	if err != nil {
		return nil, err
	}
	return byRisk[riskID], nil
}

func (r *postgresRiskRepo) ListControlsForRisks(ctx context.Context, riskIDs []string) (map[string][]risk.Control, error) {
	out := make(map[string][]risk.Control, len(riskIDs))
	if len(riskIDs) == 0 {
		return out, nil
	}
	query := `SELECT ` + controlColumns + ` FROM controls
		WHERE risk_id = ANY($1) AND deleted_at IS NULL ORDER BY risk_id, created_at, id`
	rows, err := r.executor.QueryContext(ctx, query, pq.Array(riskIDs))
	if err != nil {
		return nil, dbError(err, "failed to list controls")
	}
	defer rows.Close()
	for rows.Next() {
		c, err := scanControl(rows)
		if err != nil {
			return nil, dbError(err, "failed to scan control")
		}
		out[c.RiskID] = append(out[c.RiskID], *c)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError(err, "failed to iterate controls")
	}
	return out, nil
}

func controlNotFound(id string) error {
	return errors.New(errors.ErrCodeControlNotFound, "control not found").WithDetail("id=" + id)
}

func scanRisk(row scanner) (*risk.Risk, error) {
	var (
		rk       risk.Risk
		status   string
		lastCalc sql.NullTime
	)
	err := row.Scan(
		&rk.ID, &rk.OrganizationID, &rk.RiskCode, &rk.Title, &rk.Description, &rk.Category,
		&rk.Division, &rk.Department, &rk.Owner, &status,
		&rk.LikelihoodInherent, &rk.ImpactInherent, &rk.InherentScore, &rk.BaselineLikelihood, &rk.BaselineImpact,
		&rk.ResidualLikelihood, &rk.ResidualImpact, &rk.ResidualScore, &rk.FormulaVersion, &lastCalc,
		&rk.Version, &rk.CreatedAt, &rk.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	rk.Status = risk.Status(status)
	rk.LastResidualCalc = timePtr(lastCalc)
	rk.CreatedAt = rk.CreatedAt.UTC()
	rk.UpdatedAt = rk.UpdatedAt.UTC()
	return &rk, nil
}

func scanControl(row scanner) (*risk.Control, error) {
	var (
		c       risk.Control
		target  string
		deleted sql.NullTime
	)
	err := row.Scan(&c.ID, &c.RiskID, &c.Name, &c.Description, &target,
		&c.Design, &c.Implementation, &c.Monitoring, &c.Evaluation,
		&c.CreatedAt, &c.UpdatedAt, &deleted)
	if err != nil {
		return nil, err
	}
	c.Target = risk.ControlTarget(target)
	c.DeletedAt = timePtr(deleted)
	return &c, nil
}

//Personal.AI order the ending
