// Package risk is the application service for the risk register: risk and
// control edits, each of which re-derives the residual under the risk's
// version check.
package risk

import (
	"context"
	"strings"
	"time"

	appHeatmap "github.com/aonawunmi/New-MinRisk-sub016/internal/application/heatmap"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/domain/intelligence"
	domainRisk "github.com/aonawunmi/New-MinRisk-sub016/internal/domain/risk"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/domain/store"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/infrastructure/monitoring/logging"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/infrastructure/monitoring/prometheus"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/infrastructure/monitoring/tracing"
	"github.com/aonawunmi/New-MinRisk-sub016/pkg/errors"
	"github.com/aonawunmi/New-MinRisk-sub016/pkg/types/common"
	"github.com/aonawunmi/New-MinRisk-sub016/pkg/validation"
)

// CreateRiskRequest registers a new risk. Likelihood and impact are checked
// against the configured matrix size.
type CreateRiskRequest struct {
	OrganizationID string `json:"organization_id" validate:"required"`
	RiskCode       string `json:"risk_code" validate:"required,max=64"`
	Title          string `json:"title" validate:"required,max=255"`
	Description    string `json:"description" validate:"max=4000"`
	Category       string `json:"category" validate:"required,max=100"`
	Division       string `json:"division" validate:"max=100"`
	Department     string `json:"department" validate:"max=100"`
	Owner          string `json:"owner" validate:"max=255"`
	Likelihood     int    `json:"likelihood" validate:"required,gte=1"`
	Impact         int    `json:"impact" validate:"required,gte=1"`
}

// UpdateRiskRequest edits classification fields and the person-entered
// inherent pair. Nil fields are left unchanged. A non-zero Version must match
// the stored version.
type UpdateRiskRequest struct {
	OrganizationID string  `json:"organization_id" validate:"required"`
	RiskID         string  `json:"risk_id" validate:"required"`
	Version        int64   `json:"version" validate:"gte=0"`
	Title          *string `json:"title" validate:"omitempty,min=1,max=255"`
	Description    *string `json:"description" validate:"omitempty,max=4000"`
	Category       *string `json:"category" validate:"omitempty,min=1,max=100"`
	Division       *string `json:"division" validate:"omitempty,max=100"`
	Department     *string `json:"department" validate:"omitempty,max=100"`
	Owner          *string `json:"owner" validate:"omitempty,max=255"`
	Likelihood     *int    `json:"likelihood" validate:"omitempty,gte=1"`
	Impact         *int    `json:"impact" validate:"omitempty,gte=1"`
}

type ChangeStatusRequest struct {
	OrganizationID string `json:"organization_id" validate:"required"`
	RiskID         string `json:"risk_id" validate:"required"`
	Status         string `json:"status" validate:"required"`
}

type ListRisksRequest struct {
	OrganizationID  string   `json:"organization_id" validate:"required"`
	Statuses        []string `json:"statuses"`
	Category        string   `json:"category"`
	Owner           string   `json:"owner"`
	IncludeArchived bool     `json:"include_archived"`
	common.Pagination
}

// ControlRequest adds a control, or replaces one when ControlID is set.
type ControlRequest struct {
	OrganizationID string `json:"organization_id" validate:"required"`
	RiskID         string `json:"risk_id" validate:"required"`
	ControlID      string `json:"control_id"`
	Name           string `json:"name" validate:"required,max=255"`
	Description    string `json:"description" validate:"max=4000"`
	Target         string `json:"target" validate:"required,target"`
	Design         int    `json:"design" validate:"dime"`
	Implementation int    `json:"implementation" validate:"dime"`
	Monitoring     int    `json:"monitoring" validate:"dime"`
	Evaluation     int    `json:"evaluation" validate:"dime"`
}

// ControlResult is a control together with the risk whose residual it moved.
type ControlResult struct {
	Control *domainRisk.Control `json:"control,omitempty"`
	Risk    *domainRisk.Risk    `json:"risk"`
}

// Service manages the risk register.
type Service interface {
	CreateRisk(ctx context.Context, req *CreateRiskRequest) (*domainRisk.Risk, error)
	GetRisk(ctx context.Context, orgID, riskID string) (*domainRisk.Risk, error)
	GetRiskByCode(ctx context.Context, orgID, code string) (*domainRisk.Risk, error)
	ListRisks(ctx context.Context, req *ListRisksRequest) (*common.PaginatedResult[*domainRisk.Risk], error)
	// UpdateRisk resets the baseline to any submitted likelihood/impact and
	// re-adds the aggregate of still-applied alerts before recomputing the
	// residual.
	UpdateRisk(ctx context.Context, req *UpdateRiskRequest) (*domainRisk.Risk, error)
	ChangeStatus(ctx context.Context, req *ChangeStatusRequest) (*domainRisk.Risk, error)

	AddControl(ctx context.Context, req *ControlRequest) (*ControlResult, error)
	UpdateControl(ctx context.Context, req *ControlRequest) (*ControlResult, error)
	// RemoveControl soft-deletes the control; it stops counting immediately.
	RemoveControl(ctx context.Context, orgID, riskID, controlID string) (*ControlResult, error)
	ListControls(ctx context.Context, orgID, riskID string) ([]domainRisk.Control, error)

	// RecalculateAll re-derives every non-archived residual with the
	// configured formula. Each risk is written independently.
	RecalculateAll(ctx context.Context, orgID string) (*common.BatchResult, error)
}

type ServiceConfig struct {
	MatrixSize     int
	FormulaVersion string
}

type serviceImpl struct {
	store    store.Store
	calc     *domainRisk.Calculator
	heatmaps appHeatmap.Service
	metrics  *prometheus.AppMetrics
	logger   logging.Logger
	cfg      ServiceConfig
}

// NewService resolves the residual formula and wires the register service.
// heatmaps may be nil.
func NewService(st store.Store, heatmaps appHeatmap.Service, metrics *prometheus.AppMetrics, logger logging.Logger, cfg ServiceConfig) (Service, error) {
	if cfg.FormulaVersion == "" {
		cfg.FormulaVersion = domainRisk.FormulaMultiplicativeV1
	}
	if cfg.MatrixSize <= 0 {
		cfg.MatrixSize = 5
	}
	calc, err := domainRisk.NewCalculator(cfg.FormulaVersion, cfg.MatrixSize)
	if err != nil {
		return nil, err
	}
	if metrics == nil {
		metrics = prometheus.NewNopAppMetrics()
	}
	return &serviceImpl{store: st, calc: calc, heatmaps: heatmaps, metrics: metrics, logger: logger, cfg: cfg}, nil
}

// Recompute loads the risk's active controls through repo and stores a fresh
// residual on r. It does not persist r.
func Recompute(ctx context.Context, repo domainRisk.Repository, calc *domainRisk.Calculator, r *domainRisk.Risk) error {
	controls, err := repo.ListControls(ctx, r.ID)
	if err != nil {
		return err
	}
	r.ApplyResidual(calc.Compute(r, controls), time.Now())
	return nil
}

func (s *serviceImpl) CreateRisk(ctx context.Context, req *CreateRiskRequest) (r *domainRisk.Risk, err error) {
	ctx, span := tracing.Start(ctx, "risk.CreateRisk", tracing.Org(req.OrganizationID), tracing.RiskCode(req.RiskCode))
	defer func() { tracing.End(span, err) }()

	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	r, err = domainRisk.NewRisk(req.OrganizationID, req.RiskCode, req.Title, req.Category, req.Likelihood, req.Impact, s.cfg.MatrixSize)
	if err != nil {
		return nil, err
	}
	r.Description = req.Description
	r.Division = req.Division
	r.Department = req.Department
	r.Owner = req.Owner
	r.ApplyResidual(s.calc.Compute(r, nil), r.CreatedAt)

	if err := s.store.Repos().Risks.Create(ctx, r); err != nil {
		return nil, err
	}
	s.invalidate(ctx, r.OrganizationID)
	s.logger.Info("Risk created",
		logging.String("organization_id", r.OrganizationID),
		logging.String("risk_code", r.RiskCode),
		logging.Int("score_inherent", r.InherentScore))
	return r, nil
}

func (s *serviceImpl) GetRisk(ctx context.Context, orgID, riskID string) (*domainRisk.Risk, error) {
	if orgID == "" || riskID == "" {
		return nil, errors.NewValidation("organization and risk id are required")
	}
	return s.store.Repos().Risks.GetByID(ctx, orgID, riskID)
}

func (s *serviceImpl) GetRiskByCode(ctx context.Context, orgID, code string) (*domainRisk.Risk, error) {
	if orgID == "" || strings.TrimSpace(code) == "" {
		return nil, errors.NewValidation("organization and risk code are required")
	}
	return s.store.Repos().Risks.GetByCode(ctx, orgID, strings.TrimSpace(code))
}

func (s *serviceImpl) ListRisks(ctx context.Context, req *ListRisksRequest) (*common.PaginatedResult[*domainRisk.Risk], error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	page := req.Pagination.Normalize()
	opts := []domainRisk.ListOption{domainRisk.WithPage(page)}
	if len(req.Statuses) > 0 {
		statuses := make([]domainRisk.Status, 0, len(req.Statuses))
		for _, raw := range req.Statuses {
			st, err := domainRisk.ParseStatus(raw)
			if err != nil {
				return nil, err
			}
			statuses = append(statuses, st)
		}
		opts = append(opts, domainRisk.WithStatuses(statuses...))
	}
	if req.Category != "" {
		opts = append(opts, domainRisk.WithCategory(req.Category))
	}
	if req.Owner != "" {
		opts = append(opts, domainRisk.WithOwner(req.Owner))
	}
	if req.IncludeArchived {
		opts = append(opts, domainRisk.WithArchived())
	}

	risks, total, err := s.store.Repos().Risks.List(ctx, req.OrganizationID, opts...)
	if err != nil {
		return nil, err
	}
	res := common.NewPaginatedResult(risks, page, int(total))
	return &res, nil
}

func (s *serviceImpl) UpdateRisk(ctx context.Context, req *UpdateRiskRequest) (out *domainRisk.Risk, err error) {
	ctx, span := tracing.Start(ctx, "risk.UpdateRisk", tracing.Org(req.OrganizationID))
	defer func() { tracing.End(span, err) }()

	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if (req.Likelihood == nil) != (req.Impact == nil) {
		return nil, errors.NewValidation("likelihood and impact must be edited together")
	}

	start := time.Now()
	err = s.store.WithTx(ctx, func(tx store.Repositories) error {
		r, err := tx.Risks.LockForUpdate(ctx, req.OrganizationID, req.RiskID)
		if err != nil {
			return err
		}
		if req.Version != 0 && req.Version != r.Version {
			return errors.New(errors.ErrCodeRiskVersionConflict, "risk was modified concurrently").
				WithDetail("risk_code=" + r.RiskCode)
		}
		if r.IsArchived() {
			return errors.NewValidationError("status", "archived risks cannot be edited")
		}
		applyStringEdits(r, req)

		if req.Likelihood != nil {
			r.SetBaseline(*req.Likelihood, *req.Impact)
			if err := r.Validate(s.cfg.MatrixSize); err != nil {
				return err
			}
			applied, err := tx.Alerts.ListApplied(ctx, r.ID)
			if err != nil {
				return err
			}
			d := intelligence.MaxAggregate(applied, "")
			l, i := intelligence.Adjust(r.BaselineLikelihood, r.BaselineImpact, d, s.cfg.MatrixSize)
			r.SetInherent(l, i)
		}
		if err := Recompute(ctx, tx.Risks, s.calc, r); err != nil {
			return err
		}
		if err := r.Validate(s.cfg.MatrixSize); err != nil {
			return err
		}
		if err := tx.Risks.Update(ctx, r); err != nil {
			return err
		}
		out = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.RecordRecalc("risk_edit", 1, time.Since(start))
	s.invalidate(ctx, out.OrganizationID)
	return out, nil
}

func applyStringEdits(r *domainRisk.Risk, req *UpdateRiskRequest) {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
		}
	}
	set(&r.Title, req.Title)
	set(&r.Description, req.Description)
	set(&r.Category, req.Category)
	set(&r.Division, req.Division)
	set(&r.Department, req.Department)
	set(&r.Owner, req.Owner)
}

func (s *serviceImpl) ChangeStatus(ctx context.Context, req *ChangeStatusRequest) (out *domainRisk.Risk, err error) {
	ctx, span := tracing.Start(ctx, "risk.ChangeStatus", tracing.Org(req.OrganizationID))
	defer func() { tracing.End(span, err) }()

	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	status, err := domainRisk.ParseStatus(req.Status)
	if err != nil {
		return nil, err
	}
	err = s.store.WithTx(ctx, func(tx store.Repositories) error {
		r, err := tx.Risks.LockForUpdate(ctx, req.OrganizationID, req.RiskID)
		if err != nil {
			return err
		}
		from := r.Status
		if err := r.TransitionTo(status); err != nil {
			return err
		}
		if err := tx.Risks.Update(ctx, r); err != nil {
			return err
		}
		s.logger.Info("Risk status changed",
			logging.String("risk_code", r.RiskCode),
			logging.String("from", string(from)),
			logging.String("to", string(status)))
		out = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, out.OrganizationID)
	return out, nil
}

func (s *serviceImpl) AddControl(ctx context.Context, req *ControlRequest) (*ControlResult, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	ctl := controlFromRequest(req)
	ctl.ID = string(common.NewID())
	ctl.CreatedAt, ctl.UpdatedAt = now, now
	return s.mutateControls(ctx, "risk.AddControl", req.OrganizationID, req.RiskID, func(tx store.Repositories) (*domainRisk.Control, error) {
		if err := tx.Risks.CreateControl(ctx, ctl); err != nil {
			return nil, err
		}
		return ctl, nil
	})
}

func (s *serviceImpl) UpdateControl(ctx context.Context, req *ControlRequest) (*ControlResult, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if req.ControlID == "" {
		return nil, errors.NewValidationError("control_id", "control id is required")
	}
	ctl := controlFromRequest(req)
	ctl.ID = req.ControlID
	return s.mutateControls(ctx, "risk.UpdateControl", req.OrganizationID, req.RiskID, func(tx store.Repositories) (*domainRisk.Control, error) {
		if err := tx.Risks.UpdateControl(ctx, ctl); err != nil {
			return nil, err
		}
		return ctl, nil
	})
}

func (s *serviceImpl) RemoveControl(ctx context.Context, orgID, riskID, controlID string) (*ControlResult, error) {
	if orgID == "" || riskID == "" || controlID == "" {
		return nil, errors.NewValidation("organization, risk and control ids are required")
	}
	return s.mutateControls(ctx, "risk.RemoveControl", orgID, riskID, func(tx store.Repositories) (*domainRisk.Control, error) {
		return nil, tx.Risks.SoftDeleteControl(ctx, riskID, controlID)
	})
}

func (s *serviceImpl) ListControls(ctx context.Context, orgID, riskID string) ([]domainRisk.Control, error) {
	repos := s.store.Repos()
	if _, err := repos.Risks.GetByID(ctx, orgID, riskID); err != nil {
		return nil, err
	}
	controls, err := repos.Risks.ListControls(ctx, riskID)
	if err != nil {
		return nil, err
	}
	if controls == nil {
		controls = []domainRisk.Control{}
	}
	return controls, nil
}

func controlFromRequest(req *ControlRequest) *domainRisk.Control {
	return &domainRisk.Control{
		RiskID:         req.RiskID,
		Name:           strings.TrimSpace(req.Name),
		Description:    req.Description,
		Target:         domainRisk.ControlTarget(req.Target),
		Design:         req.Design,
		Implementation: req.Implementation,
		Monitoring:     req.Monitoring,
		Evaluation:     req.Evaluation,
	}
}

// mutateControls locks the risk, runs change, recomputes the residual and
// writes the risk back, all in one transaction.
func (s *serviceImpl) mutateControls(ctx context.Context, op, orgID, riskID string, change func(tx store.Repositories) (*domainRisk.Control, error)) (res *ControlResult, err error) {
	ctx, span := tracing.Start(ctx, op, tracing.Org(orgID))
	defer func() { tracing.End(span, err) }()

	start := time.Now()
	err = s.store.WithTx(ctx, func(tx store.Repositories) error {
		r, err := tx.Risks.LockForUpdate(ctx, orgID, riskID)
		if err != nil {
			return err
		}
		if r.IsArchived() {
			return errors.NewValidationError("status", "controls of archived risks cannot be changed")
		}
		ctl, err := change(tx)
		if err != nil {
			return err
		}
		if ctl != nil {
			if err := ctl.Validate(); err != nil {
				return err
			}
		}
		if err := Recompute(ctx, tx.Risks, s.calc, r); err != nil {
			return err
		}
		if err := tx.Risks.Update(ctx, r); err != nil {
			return err
		}
		res = &ControlResult{Control: ctl, Risk: r}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.RecordRecalc("control_change", 1, time.Since(start))
	s.invalidate(ctx, orgID)
	s.logger.Debug("Residual recomputed after control change",
		logging.String("risk_code", res.Risk.RiskCode),
		logging.Int("residual_score", res.Risk.ResidualScore))
	return res, nil
}

func (s *serviceImpl) RecalculateAll(ctx context.Context, orgID string) (result *common.BatchResult, err error) {
	ctx, span := tracing.Start(ctx, "risk.RecalculateAll", tracing.Org(orgID))
	defer func() { tracing.End(span, err) }()

	if orgID == "" {
		return nil, errors.NewValidationError("organization_id", "organization is required")
	}
	risks, _, err := s.store.Repos().Risks.List(ctx, orgID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result = common.NewBatchResult()
	for _, r := range risks {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		riskID := r.ID
		itemErr := s.store.WithTx(ctx, func(tx store.Repositories) error {
			cur, err := tx.Risks.LockForUpdate(ctx, orgID, riskID)
			if err != nil {
				return err
			}
			if err := Recompute(ctx, tx.Risks, s.calc, cur); err != nil {
				return err
			}
			return tx.Risks.Update(ctx, cur)
		})
		if itemErr != nil {
			result.Fail(r.RiskCode, itemErr)
			s.logger.Warn("Residual recalculation failed",
				logging.String("risk_code", r.RiskCode), logging.Err(itemErr))
			continue
		}
		result.Succeed()
	}

	s.metrics.RecordRecalc("formula", result.SuccessCount, time.Since(start))
	s.metrics.RecordBatch("recalculate", result.SuccessCount, result.ErrorCount)
	s.invalidate(ctx, orgID)
	s.logger.Info("Residuals recalculated",
		logging.String("organization_id", orgID),
		logging.String("formula_version", s.calc.FormulaVersion()),
		logging.Int("succeeded", result.SuccessCount),
		logging.Int("failed", result.ErrorCount))
	return result, nil
}

func (s *serviceImpl) invalidate(ctx context.Context, orgID string) {
	if s.heatmaps != nil {
		s.heatmaps.InvalidateCurrent(ctx, orgID)
	}
}

//Personal.AI order the ending
