package risk

import (
	"context"

	"github.com/aonawunmi/New-MinRisk-sub016/pkg/types/common"
)

// ListOptions filters and pages register queries.
type ListOptions struct {
	Statuses        []Status
	Category        string
	Owner           string
	IncludeArchived bool
	Limit           int
	Offset          int
}

// ListOption is a functional option for List.
type ListOption func(*ListOptions)

// WithStatuses restricts results to the given statuses.
func WithStatuses(statuses ...Status) ListOption {
	return func(o *ListOptions) { o.Statuses = statuses }
}

func WithCategory(category string) ListOption {
	return func(o *ListOptions) { o.Category = category }
}

func WithOwner(owner string) ListOption {
	return func(o *ListOptions) { o.Owner = owner }
}

// WithArchived includes ARCHIVED risks, which are hidden by default.
func WithArchived() ListOption {
	return func(o *ListOptions) { o.IncludeArchived = true }
}

// WithPage converts a page request to limit/offset.
func WithPage(p common.Pagination) ListOption {
	return func(o *ListOptions) {
		p = p.Normalize()
		o.Limit = p.PageSize
		o.Offset = p.Offset()
	}
}

// ApplyListOptions applies opts over defaults. A zero limit means unbounded.
func ApplyListOptions(opts ...ListOption) ListOptions {
	var o ListOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.Limit < 0 {
		o.Limit = 0
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	return o
}

// Repository persists risks and their controls. Every method is scoped to
// one organization by the caller.
type Repository interface {
	Create(ctx context.Context, r *Risk) error
	GetByID(ctx context.Context, orgID, id string) (*Risk, error)
	GetByCode(ctx context.Context, orgID, code string) (*Risk, error)
	List(ctx context.Context, orgID string, opts ...ListOption) ([]*Risk, int64, error)

	// Update writes r if its stored version still equals r.Version, then
	// bumps r.Version and r.UpdatedAt. A stale version yields RSK_002.
	Update(ctx context.Context, r *Risk) error

	// LockForUpdate reads the risk row under a row lock. Only meaningful
	// inside a transaction.
	LockForUpdate(ctx context.Context, orgID, id string) (*Risk, error)

	CreateControl(ctx context.Context, c *Control) error
	GetControl(ctx context.Context, riskID, id string) (*Control, error)
	UpdateControl(ctx context.Context, c *Control) error
	SoftDeleteControl(ctx context.Context, riskID, id string) error
	// ListControls returns the active controls of one risk.
	ListControls(ctx context.Context, riskID string) ([]Control, error)
	// ListControlsForRisks returns active controls grouped by risk ID.
	ListControlsForRisks(ctx context.Context, riskIDs []string) (map[string][]Control, error)
}

//Personal.AI order the ending
