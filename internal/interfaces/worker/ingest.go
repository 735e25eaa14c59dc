// Package worker holds the message handlers run by the ingestion worker.
package worker

import (
	"context"

	alertapp "github.com/aonawunmi/New-MinRisk-sub016/internal/application/alert"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/domain/intelligence"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/infrastructure/messaging/kafka"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/infrastructure/monitoring/logging"
	"github.com/aonawunmi/New-MinRisk-sub016/pkg/errors"
	"github.com/aonawunmi/New-MinRisk-sub016/pkg/types/common"
)

// EventScanner is the part of the alert service the ingestion handler uses.
type EventScanner interface {
	ScanEvent(ctx context.Context, ev *intelligence.ExternalEvent) (*alertapp.ScanResult, error)
}

// IngestHandler turns external_event.ingested envelopes into event scans.
type IngestHandler struct {
	scanner EventScanner
	logger  logging.Logger
}

func NewIngestHandler(scanner EventScanner, logger logging.Logger) *IngestHandler {
	return &IngestHandler{scanner: scanner, logger: logger}
}

func (h *IngestHandler) Topic() string { return kafka.TopicEventsIngested }

// Handle decodes one envelope and scans its event against the register.
// Malformed or invalid messages are marked permanent; classifier and store
// failures are returned as-is so the consumer retries them. Rescanning an
// event never duplicates alerts.
func (h *IngestHandler) Handle(ctx context.Context, msg *common.Message) error {
	env, err := kafka.MessageToEventEnvelope(msg)
	if err != nil {
		return kafka.Permanent(err)
	}
	if env.EventType != kafka.EventTypeExternalEventIngested {
		h.logger.Warn("Ignoring unexpected event type",
			logging.String("event_type", env.EventType),
			logging.String("event_id", env.EventID))
		return nil
	}

	var p kafka.EventIngestedPayload
	if err := env.DecodePayload(&p); err != nil {
		return kafka.Permanent(err)
	}

	res, err := h.scanner.ScanEvent(ctx, &intelligence.ExternalEvent{
		OrganizationID: p.OrganizationID,
		Source:         p.Source,
		ExternalID:     p.ExternalID,
		EventType:      p.EventType,
		Title:          p.Title,
		Summary:        p.Summary,
		URL:            p.URL,
		PublishedDate:  p.PublishedDate,
	})
	if err != nil {
		if permanent(err) {
			h.logger.Warn("Rejected ingested event",
				logging.String("organization_id", p.OrganizationID),
				logging.String("envelope_id", env.EventID),
				logging.Err(err))
			return kafka.Permanent(err)
		}
		return err
	}

	h.logger.Info("Ingested event scanned",
		logging.String("organization_id", p.OrganizationID),
		logging.String("event_id", res.EventID),
		logging.Int("alerts_created", res.AlertsCreated),
		logging.Int("skipped", res.Skipped))
	return nil
}

func permanent(err error) bool {
	switch errors.GetCode(err) {
	case errors.ErrCodeValidation, errors.ErrCodeBadRequest, errors.ErrCodeSerialization:
		return true
	}
	return false
}

//Personal.AI order the ending
