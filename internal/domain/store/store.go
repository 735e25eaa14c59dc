// Package store groups the domain repositories behind a transactional unit
// of work.
package store

import (
	"context"

	"github.com/aonawunmi/New-MinRisk-sub016/internal/domain/intelligence"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/domain/period"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/domain/risk"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/domain/treatment"
)

// Repositories is one consistent view of every repository. Inside WithTx all
// of them share the same transaction.
type Repositories struct {
	Risks     risk.Repository
	Alerts    intelligence.AlertRepository
	Events    intelligence.EventRepository
	Treatment treatment.Repository
	Periods   period.Repository
}

// Store hands out repositories and runs units of work. If fn returns an
// error, nothing it wrote is committed.
type Store interface {
	Repos() Repositories
	WithTx(ctx context.Context, fn func(tx Repositories) error) error
}

//Personal.AI order the ending
