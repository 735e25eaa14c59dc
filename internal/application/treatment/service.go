// Package treatment serves the audit trail of alert lifecycle actions.
package treatment

import (
	"context"
	"strings"

	"github.com/aonawunmi/New-MinRisk-sub016/internal/domain/store"
	domainTreatment "github.com/aonawunmi/New-MinRisk-sub016/internal/domain/treatment"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/infrastructure/monitoring/logging"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/infrastructure/monitoring/prometheus"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/infrastructure/monitoring/tracing"
	"github.com/aonawunmi/New-MinRisk-sub016/pkg/errors"
	"github.com/aonawunmi/New-MinRisk-sub016/pkg/types/common"
	"github.com/aonawunmi/New-MinRisk-sub016/pkg/validation"
)

type GetLogRequest struct {
	OrganizationID  string `json:"organization_id" validate:"required"`
	RiskCode        string `json:"risk_code" validate:"required,max=64"`
	IncludeArchived bool   `json:"include_archived"`
}

type BatchArchiveRequest struct {
	OrganizationID string   `json:"organization_id" validate:"required"`
	EntryIDs       []string `json:"entry_ids" validate:"required,min=1,max=500,dive,required"`
}

// Service reads and archives treatment log entries. Entries are written by
// the alert lifecycle, never through this service.
type Service interface {
	// GetLog returns a risk's entries newest-first, archived ones only on
	// request.
	GetLog(ctx context.Context, req *GetLogRequest) ([]*domainTreatment.Entry, error)
	// Archive soft-deletes one entry. Archiving twice is a no-op.
	Archive(ctx context.Context, orgID, entryID string) error
	BatchArchive(ctx context.Context, req *BatchArchiveRequest) (*common.BatchResult, error)
	// VerifyChain recomputes the hash chain of one risk, archived entries
	// included.
	VerifyChain(ctx context.Context, orgID, riskCode string) (*domainTreatment.ChainReport, error)
}

type serviceImpl struct {
	store   store.Store
	metrics *prometheus.AppMetrics
	logger  logging.Logger
}

func NewService(st store.Store, metrics *prometheus.AppMetrics, logger logging.Logger) Service {
	if metrics == nil {
		metrics = prometheus.NewNopAppMetrics()
	}
	return &serviceImpl{store: st, metrics: metrics, logger: logger}
}

func (s *serviceImpl) GetLog(ctx context.Context, req *GetLogRequest) ([]*domainTreatment.Entry, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	repos := s.store.Repos()
	code := strings.TrimSpace(req.RiskCode)
	if _, err := repos.Risks.GetByCode(ctx, req.OrganizationID, code); err != nil {
		return nil, err
	}
	return repos.Treatment.ListByRisk(ctx, req.OrganizationID, code, req.IncludeArchived)
}

func (s *serviceImpl) Archive(ctx context.Context, orgID, entryID string) (err error) {
	ctx, span := tracing.Start(ctx, "treatment.Archive", tracing.Org(orgID))
	defer func() { tracing.End(span, err) }()

	if orgID == "" || entryID == "" {
		return errors.NewValidation("organization and entry id are required")
	}
	if err := s.store.Repos().Treatment.Archive(ctx, orgID, entryID); err != nil {
		return err
	}
	s.logger.Info("Treatment entry archived",
		logging.String("organization_id", orgID),
		logging.String("entry_id", entryID))
	return nil
}

func (s *serviceImpl) BatchArchive(ctx context.Context, req *BatchArchiveRequest) (*common.BatchResult, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	result := common.NewBatchResult()
	for _, id := range req.EntryIDs {
		if err := s.Archive(ctx, req.OrganizationID, id); err != nil {
			result.Fail(id, err)
			continue
		}
		result.Succeed()
	}
	s.metrics.RecordBatch("treatment_archive", result.SuccessCount, result.ErrorCount)
	return result, nil
}

func (s *serviceImpl) VerifyChain(ctx context.Context, orgID, riskCode string) (rep *domainTreatment.ChainReport, err error) {
	ctx, span := tracing.Start(ctx, "treatment.VerifyChain", tracing.Org(orgID), tracing.RiskCode(riskCode))
	defer func() { tracing.End(span, err) }()

	if orgID == "" || strings.TrimSpace(riskCode) == "" {
		return nil, errors.NewValidation("organization and risk code are required")
	}
	entries, err := s.store.Repos().Treatment.ListChain(ctx, orgID, riskCode)
	if err != nil {
		return nil, err
	}
	report := domainTreatment.VerifyChain(orgID, riskCode, entries)
	if !report.Valid {
		s.metrics.RecordError("treatment", string(errors.ErrCodeTreatmentChainBroken))
		s.logger.Error("Treatment chain broken",
			logging.String("organization_id", orgID),
			logging.String("risk_code", riskCode),
			logging.String("entry_id", report.BrokenAt),
			logging.String("reason", report.Reason))
	}
	return &report, nil
}

//Personal.AI order the ending
