package intelligence

import (
	"context"

	"github.com/aonawunmi/New-MinRisk-sub016/pkg/types/common"
)

// AlertFilter narrows alert listings.
type AlertFilter struct {
	Statuses      []AlertStatus
	RiskCode      string
	MinConfidence int
	Pagination    common.Pagination
}

// AlertRepository persists alerts. Update is a compare-and-set on Version.
type AlertRepository interface {
	Create(ctx context.Context, a *Alert) error
	GetByID(ctx context.Context, orgID, id string) (*Alert, error)
	List(ctx context.Context, orgID string, filter AlertFilter) ([]*Alert, int64, error)
	Update(ctx context.Context, a *Alert) error
	// ListApplied returns every Applied alert of a risk.
	ListApplied(ctx context.Context, riskID string) ([]*Alert, error)
	ExistsForEventRisk(ctx context.Context, eventID, riskID string) (bool, error)
}

// EventRepository stores ingested events. Save is idempotent on
// (organization, source, external_id): a repeat returns the stored event
// with created=false.
type EventRepository interface {
	Save(ctx context.Context, ev *ExternalEvent) (stored *ExternalEvent, created bool, err error)
	GetByID(ctx context.Context, orgID, id string) (*ExternalEvent, error)
}

//Personal.AI order the ending
