// Package heatmap serves likelihood × impact grids for the live register and
// for committed periods, with a Redis read-through cache in front.
package heatmap

import (
	"context"
	"fmt"
	"time"

	domainHeatmap "github.com/aonawunmi/New-MinRisk-sub016/internal/domain/heatmap"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/domain/period"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/domain/store"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/infrastructure/database/redis"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/infrastructure/monitoring/logging"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/infrastructure/monitoring/prometheus"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/infrastructure/monitoring/tracing"
	"github.com/aonawunmi/New-MinRisk-sub016/pkg/errors"
	"github.com/aonawunmi/New-MinRisk-sub016/pkg/validation"
)

const cacheName = "heatmap"

// CurrentRequest asks for the grid of the live register. A zero MatrixSize
// uses the configured size.
type CurrentRequest struct {
	OrganizationID string `json:"organization_id" validate:"required"`
	MatrixSize     int    `json:"matrix_size" validate:"gte=0,lte=10"`
	View           string `json:"view" validate:"omitempty,oneof=inherent residual"`
}

// PeriodRequest asks for the grid of a committed period.
type PeriodRequest struct {
	OrganizationID string `json:"organization_id" validate:"required"`
	Period         string `json:"period" validate:"required,period"`
	MatrixSize     int    `json:"matrix_size" validate:"gte=0,lte=10"`
	View           string `json:"view" validate:"omitempty,oneof=inherent residual"`
}

// Service builds heatmap grids.
type Service interface {
	// BuildCurrent buckets every non-archived risk of the organization.
	BuildCurrent(ctx context.Context, req *CurrentRequest) (*domainHeatmap.Grid, error)
	// BuildForPeriod buckets the snapshots of one committed period.
	BuildForPeriod(ctx context.Context, req *PeriodRequest) (*domainHeatmap.Grid, error)
	// InvalidateCurrent drops cached live-register grids after a write.
	InvalidateCurrent(ctx context.Context, orgID string)
}

type ServiceConfig struct {
	MatrixSize int
	CurrentTTL time.Duration
	// PeriodTTL applies to committed periods, whose snapshots never change.
	PeriodTTL time.Duration
}

type serviceImpl struct {
	store   store.Store
	cache   redis.Cache
	metrics *prometheus.AppMetrics
	logger  logging.Logger
	cfg     ServiceConfig
}

// NewService wires the heatmap service. cache may be nil, in which case
// every request is built from the store.
func NewService(st store.Store, cache redis.Cache, metrics *prometheus.AppMetrics, logger logging.Logger, cfg ServiceConfig) Service {
	if cfg.MatrixSize <= 0 {
		cfg.MatrixSize = 5
	}
	if cfg.CurrentTTL <= 0 {
		cfg.CurrentTTL = 5 * time.Minute
	}
	if cfg.PeriodTTL <= 0 {
		cfg.PeriodTTL = 24 * time.Hour
	}
	if metrics == nil {
		metrics = prometheus.NewNopAppMetrics()
	}
	return &serviceImpl{store: st, cache: cache, metrics: metrics, logger: logger, cfg: cfg}
}

// CurrentKeyPrefix is the cache prefix shared by every live-register grid of
// one organization.
func CurrentKeyPrefix(orgID string) string {
	return fmt.Sprintf("heatmap:%s:current:", orgID)
}

func periodKey(orgID string, p period.Period, view domainHeatmap.View, size int) string {
	return fmt.Sprintf("heatmap:%s:period:%s:%s:%d", orgID, p, view, size)
}

func (s *serviceImpl) BuildCurrent(ctx context.Context, req *CurrentRequest) (grid *domainHeatmap.Grid, err error) {
	ctx, span := tracing.Start(ctx, "heatmap.BuildCurrent", tracing.Org(req.OrganizationID))
	defer func() { tracing.End(span, err) }()

	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	view, err := domainHeatmap.ParseView(req.View)
	if err != nil {
		return nil, err
	}
	size := s.size(req.MatrixSize)

	build := func(ctx context.Context) (*domainHeatmap.Grid, error) {
		risks, _, err := s.store.Repos().Risks.List(ctx, req.OrganizationID)
		if err != nil {
			return nil, err
		}
		return domainHeatmap.BuildGrid(domainHeatmap.PointsFromRisks(risks, view), size, view)
	}

	key := fmt.Sprintf("%s%s:%d", CurrentKeyPrefix(req.OrganizationID), view, size)
	grid, err = s.cached(ctx, key, s.cfg.CurrentTTL, build)
	if err != nil {
		return nil, err
	}
	s.metrics.HeatmapBuildsTotal.WithLabelValues(string(view), "current").Inc()
	return grid, nil
}

func (s *serviceImpl) BuildForPeriod(ctx context.Context, req *PeriodRequest) (grid *domainHeatmap.Grid, err error) {
	ctx, span := tracing.Start(ctx, "heatmap.BuildForPeriod", tracing.Org(req.OrganizationID))
	defer func() { tracing.End(span, err) }()

	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	p, err := period.Parse(req.Period)
	if err != nil {
		return nil, err
	}
	view, err := domainHeatmap.ParseView(req.View)
	if err != nil {
		return nil, err
	}
	size := s.size(req.MatrixSize)

	build := func(ctx context.Context) (*domainHeatmap.Grid, error) {
		repos := s.store.Repos()
		if _, err := repos.Periods.GetCommit(ctx, req.OrganizationID, p); err != nil {
			return nil, err
		}
		snaps, err := repos.Periods.GetSnapshots(ctx, req.OrganizationID, p)
		if err != nil {
			return nil, err
		}
		g, err := domainHeatmap.BuildGrid(domainHeatmap.PointsFromSnapshots(snaps, view), size, view)
		if err != nil {
			return nil, err
		}
		g.Period = p.String()
		return g, nil
	}

	grid, err = s.cached(ctx, periodKey(req.OrganizationID, p, view, size), s.cfg.PeriodTTL, build)
	if err != nil {
		return nil, err
	}
	s.metrics.HeatmapBuildsTotal.WithLabelValues(string(view), "period").Inc()
	return grid, nil
}

func (s *serviceImpl) InvalidateCurrent(ctx context.Context, orgID string) {
	if s.cache == nil {
		return
	}
	if _, err := s.cache.DeleteByPrefix(ctx, CurrentKeyPrefix(orgID)); err != nil {
		s.logger.Warn("Failed to invalidate heatmap cache",
			logging.String("organization_id", orgID), logging.Err(err))
	}
}

func (s *serviceImpl) size(requested int) int {
	if requested > 0 {
		return requested
	}
	return s.cfg.MatrixSize
}

// cached runs build through the cache. Cache failures fall back to build.
func (s *serviceImpl) cached(ctx context.Context, key string, ttl time.Duration, build func(context.Context) (*domainHeatmap.Grid, error)) (*domainHeatmap.Grid, error) {
	if s.cache == nil {
		return build(ctx)
	}
	hit := true
	var grid domainHeatmap.Grid
	err := s.cache.GetOrSet(ctx, key, &grid, ttl, func(ctx context.Context) (interface{}, error) {
		hit = false
		return build(ctx)
	})
	if err != nil {
		if errors.GetCode(err) == errors.ErrCodeCacheError || errors.GetCode(err) == errors.ErrCodeSerialization {
			s.logger.Warn("Heatmap cache unavailable", logging.String("key", key), logging.Err(err))
			return build(ctx)
		}
		return nil, err
	}
	s.metrics.RecordCacheAccess(cacheName, hit)
	return &grid, nil
}

//Personal.AI order the ending
