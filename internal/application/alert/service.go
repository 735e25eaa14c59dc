// Package alert runs the intelligence alert lifecycle: review, apply and undo
// of classifier suggestions against the risk register, plus event scanning.
//
// Every transition updates the alert, the risk (for apply and undo) and the
// treatment log in one transaction. Serialization per risk comes from the
// version checks on both rows, not from in-process locks.
package alert

import (
	"context"
	"time"

	appHeatmap "github.com/aonawunmi/New-MinRisk-sub016/internal/application/heatmap"
	appRisk "github.com/aonawunmi/New-MinRisk-sub016/internal/application/risk"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/domain/intelligence"
	domainRisk "github.com/aonawunmi/New-MinRisk-sub016/internal/domain/risk"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/domain/store"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/domain/treatment"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/infrastructure/messaging/kafka"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/infrastructure/monitoring/logging"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/infrastructure/monitoring/prometheus"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/infrastructure/monitoring/tracing"
	"github.com/aonawunmi/New-MinRisk-sub016/pkg/errors"
	"github.com/aonawunmi/New-MinRisk-sub016/pkg/types/common"
	"github.com/aonawunmi/New-MinRisk-sub016/pkg/validation"
)

// MaxBatchSize bounds batch requests.
const MaxBatchSize = 500

// TransitionRequest drives one lifecycle step of one alert. For Undo, Notes
// carries the reason.
type TransitionRequest struct {
	OrganizationID string `json:"organization_id" validate:"required"`
	AlertID        string `json:"alert_id" validate:"required"`
	Actor          string `json:"actor" validate:"required"`
	Notes          string `json:"notes" validate:"max=2000"`
}

// BatchApplyRequest applies several accepted alerts. NotesByID is optional.
type BatchApplyRequest struct {
	OrganizationID string            `json:"organization_id" validate:"required"`
	Actor          string            `json:"actor" validate:"required"`
	AlertIDs       []string          `json:"alert_ids" validate:"required,min=1,max=500,dive,required"`
	NotesByID      map[string]string `json:"notes"`
}

// BatchRejectRequest rejects several pending alerts with one shared note.
type BatchRejectRequest struct {
	OrganizationID string   `json:"organization_id" validate:"required"`
	Actor          string   `json:"actor" validate:"required"`
	AlertIDs       []string `json:"alert_ids" validate:"required,min=1,max=500,dive,required"`
	Notes          string   `json:"notes" validate:"max=2000"`
}

type ListRequest struct {
	OrganizationID string   `json:"organization_id" validate:"required"`
	Statuses       []string `json:"statuses"`
	RiskCode       string   `json:"risk_code"`
	MinConfidence  int      `json:"min_confidence" validate:"gte=0,lte=100"`
	common.Pagination
}

// TransitionResult is the outcome of one lifecycle step. Risk is set for
// apply and undo only.
type TransitionResult struct {
	Alert *intelligence.Alert `json:"alert"`
	Risk  *domainRisk.Risk    `json:"risk,omitempty"`
	Entry *treatment.Entry    `json:"treatment_entry"`
}

// EventPublisher emits lifecycle notifications after commit.
type EventPublisher interface {
	Publish(ctx context.Context, topic, key, eventType string, payload interface{}) error
}

// Service manages intelligence alerts.
type Service interface {
	// Accept moves a Pending alert to Accepted. Risk values are untouched.
	Accept(ctx context.Context, req *TransitionRequest) (*TransitionResult, error)
	// Reject moves a Pending alert to Rejected. Risk values are untouched.
	Reject(ctx context.Context, req *TransitionRequest) (*TransitionResult, error)
	// Apply adds the alert's deltas to the risk's current inherent pair,
	// clamps, recomputes the residual and marks the alert Applied.
	Apply(ctx context.Context, req *TransitionRequest) (*TransitionResult, error)
	// Undo recomputes the inherent pair from the risk's baseline plus the
	// MAX-aggregated change of every other applied alert, then returns the
	// alert to Accepted.
	Undo(ctx context.Context, req *TransitionRequest) (*TransitionResult, error)
	// BatchApply applies each alert in its own transaction and never stops
	// early. Only an invalid request is returned as an error.
	BatchApply(ctx context.Context, req *BatchApplyRequest) (*common.BatchResult, error)
	BatchReject(ctx context.Context, req *BatchRejectRequest) (*common.BatchResult, error)

	Get(ctx context.Context, orgID, alertID string) (*intelligence.Alert, error)
	List(ctx context.Context, req *ListRequest) (*common.PaginatedResult[*intelligence.Alert], error)

	// ScanEvent stores an external event and creates Pending alerts for the
	// risks the classifier finds relevant.
	ScanEvent(ctx context.Context, ev *intelligence.ExternalEvent) (*ScanResult, error)
}

type ServiceConfig struct {
	MatrixSize          int
	FormulaVersion      string
	ConfidenceThreshold int
}

type serviceImpl struct {
	store      store.Store
	classifier intelligence.Classifier
	calc       *domainRisk.Calculator
	publisher  EventPublisher
	heatmaps   appHeatmap.Service
	metrics    *prometheus.AppMetrics
	logger     logging.Logger
	cfg        ServiceConfig
	now        func() time.Time
}

// NewService wires the alert service. publisher and heatmaps may be nil.
func NewService(
	st store.Store,
	classifier intelligence.Classifier,
	publisher EventPublisher,
	heatmaps appHeatmap.Service,
	metrics *prometheus.AppMetrics,
	logger logging.Logger,
	cfg ServiceConfig,
) (Service, error) {
	if cfg.MatrixSize <= 0 {
		cfg.MatrixSize = 5
	}
	if cfg.FormulaVersion == "" {
		cfg.FormulaVersion = domainRisk.FormulaMultiplicativeV1
	}
	if cfg.ConfidenceThreshold < 0 || cfg.ConfidenceThreshold > 100 {
		return nil, errors.NewValidation("confidence threshold must be within 0..100, got %d", cfg.ConfidenceThreshold)
	}
	calc, err := domainRisk.NewCalculator(cfg.FormulaVersion, cfg.MatrixSize)
	if err != nil {
		return nil, err
	}
	if publisher == nil {
		publisher = kafka.NopPublisher{}
	}
	if metrics == nil {
		metrics = prometheus.NewNopAppMetrics()
	}
	return &serviceImpl{
		store:      st,
		classifier: classifier,
		calc:       calc,
		publisher:  publisher,
		heatmaps:   heatmaps,
		metrics:    metrics,
		logger:     logger,
		cfg:        cfg,
		now:        func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *serviceImpl) Accept(ctx context.Context, req *TransitionRequest) (*TransitionResult, error) {
	return s.review(ctx, req, treatment.ActionAccept)
}

func (s *serviceImpl) Reject(ctx context.Context, req *TransitionRequest) (*TransitionResult, error) {
	return s.review(ctx, req, treatment.ActionReject)
}

func (s *serviceImpl) review(ctx context.Context, req *TransitionRequest, action treatment.Action) (res *TransitionResult, err error) {
	ctx, span := tracing.Start(ctx, "alert."+string(action), tracing.Org(req.OrganizationID))
	defer func() {
		s.metrics.RecordAlertTransition(string(action), err)
		tracing.End(span, err)
	}()

	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	err = s.store.WithTx(ctx, func(tx store.Repositories) error {
		a, err := tx.Alerts.GetByID(ctx, req.OrganizationID, req.AlertID)
		if err != nil {
			return err
		}
		at := s.now()
		if action == treatment.ActionAccept {
			err = a.Accept(req.Actor, at)
		} else {
			err = a.Reject(req.Actor, at)
		}
		if err != nil {
			return err
		}
		r, err := tx.Risks.GetByID(ctx, req.OrganizationID, a.RiskID)
		if err != nil {
			return err
		}
		if err := tx.Alerts.Update(ctx, a); err != nil {
			return err
		}
		values := treatment.Values{Likelihood: r.LikelihoodInherent, Impact: r.ImpactInherent}
		entry := treatment.NewEntry(a.OrganizationID, a.RiskCode, a.ID, action, values, values, req.Notes, req.Actor)
		if err := tx.Treatment.Append(ctx, entry); err != nil {
			return err
		}
		res = &TransitionResult{Alert: a, Entry: entry}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.afterCommit(ctx, res, action, req.Actor)
	return res, nil
}

func (s *serviceImpl) Apply(ctx context.Context, req *TransitionRequest) (res *TransitionResult, err error) {
	ctx, span := tracing.Start(ctx, "alert.apply", tracing.Org(req.OrganizationID))
	defer func() {
		s.metrics.RecordAlertTransition(string(treatment.ActionApply), err)
		tracing.End(span, err)
	}()

	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	err = s.store.WithTx(ctx, func(tx store.Repositories) error {
		a, err := tx.Alerts.GetByID(ctx, req.OrganizationID, req.AlertID)
		if err != nil {
			return err
		}
		at := s.now()
		if err := a.MarkApplied(at); err != nil {
			return err
		}
		r, err := tx.Risks.LockForUpdate(ctx, req.OrganizationID, a.RiskID)
		if err != nil {
			return err
		}
		if r.IsArchived() {
			return errors.NewValidationError("risk", "alerts cannot be applied to archived risks").
				WithDetail("risk_code=" + r.RiskCode)
		}

		before := treatment.Values{Likelihood: r.LikelihoodInherent, Impact: r.ImpactInherent}
		l, i := intelligence.Adjust(r.LikelihoodInherent, r.ImpactInherent,
			intelligence.Deltas{Likelihood: a.SuggestedLikelihoodChange, Impact: a.ImpactChange}, s.cfg.MatrixSize)
		r.SetInherent(l, i)
		if err := s.persistRisk(ctx, tx, r); err != nil {
			return err
		}
		if err := tx.Alerts.Update(ctx, a); err != nil {
			return err
		}
		after := treatment.Values{Likelihood: l, Impact: i}
		entry := treatment.NewEntry(a.OrganizationID, a.RiskCode, a.ID, treatment.ActionApply, before, after, req.Notes, req.Actor)
		if err := tx.Treatment.Append(ctx, entry); err != nil {
			return err
		}
		res = &TransitionResult{Alert: a, Risk: r, Entry: entry}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.afterCommit(ctx, res, treatment.ActionApply, req.Actor)
	return res, nil
}

func (s *serviceImpl) Undo(ctx context.Context, req *TransitionRequest) (res *TransitionResult, err error) {
	ctx, span := tracing.Start(ctx, "alert.undo", tracing.Org(req.OrganizationID))
	defer func() {
		s.metrics.RecordAlertTransition(string(treatment.ActionUndo), err)
		tracing.End(span, err)
	}()

	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	err = s.store.WithTx(ctx, func(tx store.Repositories) error {
		a, err := tx.Alerts.GetByID(ctx, req.OrganizationID, req.AlertID)
		if err != nil {
			return err
		}
		if err := a.MarkUndone(); err != nil {
			return err
		}
		r, err := tx.Risks.LockForUpdate(ctx, req.OrganizationID, a.RiskID)
		if err != nil {
			return err
		}
		if r.IsArchived() {
			return errors.NewValidationError("risk", "alerts cannot be undone on archived risks").
				WithDetail("risk_code=" + r.RiskCode)
		}
		applied, err := tx.Alerts.ListApplied(ctx, r.ID)
		if err != nil {
			return err
		}

		before := treatment.Values{Likelihood: r.LikelihoodInherent, Impact: r.ImpactInherent}
		d := intelligence.MaxAggregate(applied, a.ID)
		l, i := intelligence.Adjust(r.BaselineLikelihood, r.BaselineImpact, d, s.cfg.MatrixSize)
		r.SetInherent(l, i)
		if err := s.persistRisk(ctx, tx, r); err != nil {
			return err
		}
		if err := tx.Alerts.Update(ctx, a); err != nil {
			return err
		}
		after := treatment.Values{Likelihood: l, Impact: i}
		entry := treatment.NewEntry(a.OrganizationID, a.RiskCode, a.ID, treatment.ActionUndo, before, after, req.Notes, req.Actor)
		if err := tx.Treatment.Append(ctx, entry); err != nil {
			return err
		}
		res = &TransitionResult{Alert: a, Risk: r, Entry: entry}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.afterCommit(ctx, res, treatment.ActionUndo, req.Actor)
	return res, nil
}

// persistRisk recomputes the residual and writes r under its version check.
func (s *serviceImpl) persistRisk(ctx context.Context, tx store.Repositories, r *domainRisk.Risk) error {
	if err := appRisk.Recompute(ctx, tx.Risks, s.calc, r); err != nil {
		return err
	}
	if err := r.Validate(s.cfg.MatrixSize); err != nil {
		return err
	}
	return tx.Risks.Update(ctx, r)
}

func (s *serviceImpl) afterCommit(ctx context.Context, res *TransitionResult, action treatment.Action, actor string) {
	a := res.Alert
	s.metrics.TreatmentEntriesTotal.WithLabelValues(string(action)).Inc()
	s.logger.Info("Alert transition",
		logging.String("alert_id", a.ID),
		logging.String("risk_code", a.RiskCode),
		logging.String("action", string(action)),
		logging.String("status", string(a.Status)),
		logging.String("actor", actor))

	if res.Risk != nil && s.heatmaps != nil {
		s.heatmaps.InvalidateCurrent(ctx, a.OrganizationID)
	}

	payload := kafka.AlertTransitionPayload{
		OrganizationID:   a.OrganizationID,
		AlertID:          a.ID,
		RiskCode:         a.RiskCode,
		Status:           string(a.Status),
		Actor:            actor,
		LikelihoodChange: a.SuggestedLikelihoodChange,
		ImpactChange:     a.ImpactChange,
		OccurredAt:       res.Entry.AppliedAt,
	}
	if err := s.publisher.Publish(ctx, kafka.TopicAlertsLifecycle, a.RiskCode, eventTypeFor(action), payload); err != nil {
		s.logger.Warn("Failed to publish alert transition",
			logging.String("alert_id", a.ID), logging.Err(err))
	}
}

func eventTypeFor(action treatment.Action) string {
	switch action {
	case treatment.ActionAccept:
		return kafka.EventTypeAlertAccepted
	case treatment.ActionReject:
		return kafka.EventTypeAlertRejected
	case treatment.ActionApply:
		return kafka.EventTypeAlertApplied
	default:
		return kafka.EventTypeAlertUndone
	}
}

func (s *serviceImpl) BatchApply(ctx context.Context, req *BatchApplyRequest) (*common.BatchResult, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	result := common.NewBatchResult()
	for _, id := range req.AlertIDs {
		_, err := s.Apply(ctx, &TransitionRequest{
			OrganizationID: req.OrganizationID,
			AlertID:        id,
			Actor:          req.Actor,
			Notes:          req.NotesByID[id],
		})
		if err != nil {
			result.Fail(id, err)
			continue
		}
		result.Succeed()
	}
	s.finishBatch("apply", req.OrganizationID, result)
	return result, nil
}

func (s *serviceImpl) BatchReject(ctx context.Context, req *BatchRejectRequest) (*common.BatchResult, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	result := common.NewBatchResult()
	for _, id := range req.AlertIDs {
		_, err := s.Reject(ctx, &TransitionRequest{
			OrganizationID: req.OrganizationID,
			AlertID:        id,
			Actor:          req.Actor,
			Notes:          req.Notes,
		})
		if err != nil {
			result.Fail(id, err)
			continue
		}
		result.Succeed()
	}
	s.finishBatch("reject", req.OrganizationID, result)
	return result, nil
}

func (s *serviceImpl) finishBatch(op, orgID string, result *common.BatchResult) {
	s.metrics.RecordBatch("alert_"+op, result.SuccessCount, result.ErrorCount)
	fields := []logging.Field{
		logging.String("organization_id", orgID),
		logging.Int("succeeded", result.SuccessCount),
		logging.Int("failed", result.ErrorCount),
	}
	if result.ErrorCount > 0 {
		s.logger.Warn("Batch "+op+" finished with failures", fields...)
		return
	}
	s.logger.Info("Batch "+op+" finished", fields...)
}

func (s *serviceImpl) Get(ctx context.Context, orgID, alertID string) (*intelligence.Alert, error) {
	if orgID == "" || alertID == "" {
		return nil, errors.NewValidation("organization and alert id are required")
	}
	return s.store.Repos().Alerts.GetByID(ctx, orgID, alertID)
}

func (s *serviceImpl) List(ctx context.Context, req *ListRequest) (*common.PaginatedResult[*intelligence.Alert], error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	filter := intelligence.AlertFilter{
		RiskCode:      req.RiskCode,
		MinConfidence: req.MinConfidence,
		Pagination:    req.Pagination.Normalize(),
	}
	for _, raw := range req.Statuses {
		st, err := intelligence.ParseAlertStatus(raw)
		if err != nil {
			return nil, err
		}
		filter.Statuses = append(filter.Statuses, st)
	}
	alerts, total, err := s.store.Repos().Alerts.List(ctx, req.OrganizationID, filter)
	if err != nil {
		return nil, err
	}
	res := common.NewPaginatedResult(alerts, filter.Pagination, int(total))
	return &res, nil
}

//Personal.AI order the ending
