package alert

import (
	"context"
	"time"

	"github.com/aonawunmi/New-MinRisk-sub016/internal/domain/intelligence"
	domainRisk "github.com/aonawunmi/New-MinRisk-sub016/internal/domain/risk"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/domain/store"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/infrastructure/messaging/kafka"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/infrastructure/monitoring/logging"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/infrastructure/monitoring/tracing"
	"github.com/aonawunmi/New-MinRisk-sub016/pkg/errors"
)

// ScanResult summarizes one event scan.
type ScanResult struct {
	EventID       string                `json:"event_id"`
	EventCreated  bool                  `json:"event_created"`
	RisksScanned  int                   `json:"risks_scanned"`
	AlertsCreated int                   `json:"alerts_created"`
	Skipped       int                   `json:"skipped_duplicates"`
	BelowCutoff   int                   `json:"below_threshold"`
	Alerts        []*intelligence.Alert `json:"alerts"`
}

// scannedStatuses are the register states the classifier is asked about.
var scannedStatuses = []domainRisk.Status{domainRisk.StatusOpen, domainRisk.StatusMonitoring}

// ScanEvent classifies every active risk before creating anything, so a
// classifier failure on any risk leaves the run without alerts. The event
// row itself is kept; rescanning it later is idempotent.
func (s *serviceImpl) ScanEvent(ctx context.Context, ev *intelligence.ExternalEvent) (res *ScanResult, err error) {
	if ev == nil {
		return nil, errors.NewValidation("event is required")
	}
	ctx, span := tracing.Start(ctx, "alert.ScanEvent", tracing.Org(ev.OrganizationID))
	defer func() {
		s.metrics.EventsIngestedTotal.WithLabelValues(scanOutcome(err)).Inc()
		tracing.End(span, err)
	}()

	if s.classifier == nil {
		return nil, errors.New(errors.ErrCodeClassifierUnavailable, "no classifier configured")
	}
	ev.Normalize()
	if err := ev.Validate(); err != nil {
		return nil, err
	}

	repos := s.store.Repos()
	stored, created, err := repos.Events.Save(ctx, ev)
	if err != nil {
		return nil, err
	}
	risks, _, err := repos.Risks.List(ctx, stored.OrganizationID, domainRisk.WithStatuses(scannedStatuses...))
	if err != nil {
		return nil, err
	}

	res = &ScanResult{EventID: stored.ID, EventCreated: created, RisksScanned: len(risks), Alerts: []*intelligence.Alert{}}
	var pending []*intelligence.Alert
	for _, r := range risks {
		exists, err := repos.Alerts.ExistsForEventRisk(ctx, stored.ID, r.ID)
		if err != nil {
			return nil, err
		}
		if exists {
			res.Skipped++
			continue
		}
		verdict, err := s.classify(ctx, r, stored)
		if err != nil {
			s.logger.Error("Classifier failed, no alerts created for event",
				logging.String("event_id", stored.ID),
				logging.String("risk_code", r.RiskCode),
				logging.Err(err))
			return nil, err
		}
		if !verdict.Relevant(s.cfg.ConfidenceThreshold) {
			res.BelowCutoff++
			continue
		}
		pending = append(pending, intelligence.NewAlert(stored.OrganizationID, stored.ID, r.ID, r.RiskCode, verdict))
	}

	if len(pending) > 0 {
		err = s.store.WithTx(ctx, func(tx store.Repositories) error {
			for _, a := range pending {
				if err := tx.Alerts.Create(ctx, a); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	res.Alerts = append(res.Alerts, pending...)
	res.AlertsCreated = len(pending)

	for _, a := range pending {
		payload := kafka.AlertTransitionPayload{
			OrganizationID:   a.OrganizationID,
			AlertID:          a.ID,
			RiskCode:         a.RiskCode,
			Status:           string(a.Status),
			LikelihoodChange: a.SuggestedLikelihoodChange,
			ImpactChange:     a.ImpactChange,
			OccurredAt:       a.CreatedAt,
		}
		if err := s.publisher.Publish(ctx, kafka.TopicAlertsLifecycle, a.RiskCode, kafka.EventTypeAlertCreated, payload); err != nil {
			s.logger.Warn("Failed to publish alert creation", logging.String("alert_id", a.ID), logging.Err(err))
		}
	}

	s.logger.Info("Event scanned",
		logging.String("event_id", stored.ID),
		logging.Bool("event_created", created),
		logging.Int("risks_scanned", res.RisksScanned),
		logging.Int("alerts_created", res.AlertsCreated),
		logging.Int("skipped", res.Skipped))
	return res, nil
}

func (s *serviceImpl) classify(ctx context.Context, r *domainRisk.Risk, ev *intelligence.ExternalEvent) (*intelligence.ClassificationResult, error) {
	start := time.Now()
	verdict, err := s.classifier.Classify(ctx, r, ev)
	s.logger.Debug("Classifier call",
		logging.String("risk_code", r.RiskCode),
		logging.Duration("elapsed", time.Since(start)))
	if err != nil {
		if errors.IsExternal(err) {
			return nil, err
		}
		return nil, errors.Wrap(err, errors.ErrCodeClassifierUnavailable, "classifier call failed")
	}
	if verdict == nil {
		return nil, errors.New(errors.ErrCodeClassifierUnavailable, "classifier returned no result")
	}
	if err := verdict.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeClassifierUnavailable, "classifier returned an invalid result")
	}
	return verdict, nil
}

func scanOutcome(err error) string {
	switch {
	case err == nil:
		return "scanned"
	case errors.IsExternal(err):
		return "classifier_error"
	case errors.IsValidation(err):
		return "invalid"
	default:
		return "error"
	}
}

//Personal.AI order the ending
