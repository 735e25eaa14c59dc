// Package period commits quarterly snapshots of the risk register and serves
// the history, trend, migration and comparison views built on them.
package period

import (
	"context"
	"encoding/json"
	"time"

	domainPeriod "github.com/aonawunmi/New-MinRisk-sub016/internal/domain/period"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/domain/store"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/infrastructure/database/redis"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/infrastructure/messaging/kafka"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/infrastructure/monitoring/logging"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/infrastructure/monitoring/prometheus"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/infrastructure/monitoring/tracing"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/infrastructure/storage/minio"
	"github.com/aonawunmi/New-MinRisk-sub016/pkg/errors"
	"github.com/aonawunmi/New-MinRisk-sub016/pkg/validation"
)

type CommitRequest struct {
	OrganizationID string `json:"organization_id" validate:"required"`
	Period         string `json:"period" validate:"required,period"`
	Notes          string `json:"notes" validate:"max=2000"`
	Actor          string `json:"actor" validate:"required"`
}

// CompareRequest names two committed periods of one organization.
type CompareRequest struct {
	OrganizationID string `json:"organization_id" validate:"required"`
	From           string `json:"from" validate:"required,period"`
	To             string `json:"to" validate:"required,period"`
}

// ArchiveDocument is the JSON object stored for each committed period.
type ArchiveDocument struct {
	Commit    *domainPeriod.Commit     `json:"commit"`
	Snapshots []*domainPeriod.Snapshot `json:"snapshots"`
}

// SnapshotArchiver stores committed snapshot documents.
type SnapshotArchiver interface {
	Put(ctx context.Context, key string, doc []byte) (*minio.ArchivedObject, error)
	PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, topic, key, eventType string, payload interface{}) error
}

// Service manages period commits.
type Service interface {
	// Commit freezes every non-archived risk into one snapshot set. A period
	// commits at most once; the loser of a race gets PRD_003.
	Commit(ctx context.Context, req *CommitRequest) (*domainPeriod.Commit, error)
	// History returns the snapshots of a committed period ordered by risk code.
	History(ctx context.Context, orgID, period string) ([]*domainPeriod.Snapshot, error)
	ListCommits(ctx context.Context, orgID string) ([]*domainPeriod.Commit, error)
	Trends(ctx context.Context, orgID string) ([]domainPeriod.TrendPoint, error)
	Migrations(ctx context.Context, req *CompareRequest) (*domainPeriod.MigrationReport, error)
	Compare(ctx context.Context, req *CompareRequest) (*domainPeriod.Comparison, error)
	// ArchiveURL presigns a download of the archived snapshot document.
	ArchiveURL(ctx context.Context, orgID, period string) (string, error)
}

const commitLockRetryDelay = 25 * time.Millisecond

type ServiceConfig struct {
	FormulaVersion string
	CommitLockTTL  time.Duration
	TrendsTTL      time.Duration
	PresignExpiry  time.Duration
}

type serviceImpl struct {
	store     store.Store
	locks     redis.LockFactory
	cache     redis.Cache
	archive   SnapshotArchiver
	publisher EventPublisher
	metrics   *prometheus.AppMetrics
	logger    logging.Logger
	cfg       ServiceConfig
}

// NewService wires the period service. locks, cache, archive and publisher
// are optional; without locks the unique constraint alone arbitrates races.
func NewService(
	st store.Store,
	locks redis.LockFactory,
	cache redis.Cache,
	archive SnapshotArchiver,
	publisher EventPublisher,
	metrics *prometheus.AppMetrics,
	logger logging.Logger,
	cfg ServiceConfig,
) Service {
	if cfg.CommitLockTTL <= 0 {
		cfg.CommitLockTTL = 2 * time.Minute
	}
	if cfg.TrendsTTL <= 0 {
		cfg.TrendsTTL = 10 * time.Minute
	}
	if cfg.PresignExpiry <= 0 {
		cfg.PresignExpiry = 15 * time.Minute
	}
	if publisher == nil {
		publisher = kafka.NopPublisher{}
	}
	if metrics == nil {
		metrics = prometheus.NewNopAppMetrics()
	}
	return &serviceImpl{
		store:     st,
		locks:     locks,
		cache:     cache,
		archive:   archive,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
		cfg:       cfg,
	}
}

func trendsKey(orgID string) string { return "trends:" + orgID }

func (s *serviceImpl) Commit(ctx context.Context, req *CommitRequest) (commit *domainPeriod.Commit, err error) {
	ctx, span := tracing.Start(ctx, "period.Commit", tracing.Org(req.OrganizationID))
	start := time.Now()
	defer func() {
		risks := 0
		if commit != nil {
			risks = commit.RisksCount
		}
		s.metrics.RecordCommit(req.OrganizationID, risks, time.Since(start), err)
		tracing.End(span, err)
	}()

	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	p, err := domainPeriod.Parse(req.Period)
	if err != nil {
		return nil, err
	}

	unlock, err := s.acquire(ctx, req.OrganizationID, p)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var snaps []*domainPeriod.Snapshot
	err = s.store.WithTx(ctx, func(tx store.Repositories) error {
		if _, err := tx.Periods.GetCommit(ctx, req.OrganizationID, p); err == nil {
			return errors.New(errors.ErrCodePeriodAlreadyCommitted, "period already committed").
				WithDetail("period=" + p.String())
		} else if !errors.IsNotFound(err) {
			return err
		}
		risks, _, err := tx.Risks.List(ctx, req.OrganizationID)
		if err != nil {
			return err
		}
		commit, snaps = domainPeriod.NewCommit(req.OrganizationID, p, req.Notes, req.Actor, s.cfg.FormulaVersion, risks)
		return tx.Periods.Create(ctx, commit, snaps)
	})
	if err != nil {
		commit = nil
		return nil, err
	}

	s.archiveSnapshots(ctx, commit, snaps)
	s.afterCommit(ctx, commit)
	return commit, nil
}

// acquire waits for the per-period commit lock for at most one lock TTL, so a
// concurrent committer sees the winner's commit and gets "already committed".
// Redis trouble or a lock still held after the wait is logged and the commit
// proceeds; the unique constraint decides.
func (s *serviceImpl) acquire(ctx context.Context, orgID string, p domainPeriod.Period) (func(), error) {
	if s.locks == nil {
		return func() {}, nil
	}
	retries := int(s.cfg.CommitLockTTL / commitLockRetryDelay)
	if retries < 1 {
		retries = 1
	}
	m := s.locks.NewMutex("period-commit:"+orgID+":"+p.String(),
		redis.WithLockTTL(s.cfg.CommitLockTTL),
		redis.WithRetryDelay(commitLockRetryDelay),
		redis.WithRetryCount(retries))
	if err := m.Lock(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		s.logger.Warn("Commit lock unavailable, relying on unique constraint",
			logging.String("period", p.String()), logging.Err(err))
		return func() {}, nil
	}
	return func() {
		if err := m.Unlock(context.Background()); err != nil {
			s.logger.Warn("Failed to release commit lock", logging.String("period", p.String()), logging.Err(err))
		}
	}, nil
}

// archiveSnapshots stores the frozen set in object storage. Failures never
// undo the commit.
func (s *serviceImpl) archiveSnapshots(ctx context.Context, commit *domainPeriod.Commit, snaps []*domainPeriod.Snapshot) {
	if s.archive == nil {
		return
	}
	doc, err := json.Marshal(ArchiveDocument{Commit: commit, Snapshots: snaps})
	if err != nil {
		s.logger.Warn("Failed to encode snapshot archive", logging.String("commit_id", commit.ID), logging.Err(err))
		return
	}
	key := minio.ArchiveKey(commit.OrganizationID, commit.Period.String(), commit.ID)
	obj, err := s.archive.Put(ctx, key, doc)
	if err != nil {
		s.metrics.RecordError("period_archive", string(errors.GetCode(err)))
		s.logger.Warn("Snapshot archive upload failed", logging.String("commit_id", commit.ID), logging.Err(err))
		return
	}
	if err := s.store.Repos().Periods.SetArchiveKey(ctx, commit.ID, key); err != nil {
		s.logger.Warn("Failed to record archive key", logging.String("commit_id", commit.ID), logging.Err(err))
		return
	}
	commit.ArchiveKey = key
	s.logger.Info("Snapshot set archived",
		logging.String("commit_id", commit.ID),
		logging.String("key", key),
		logging.Int64("size", obj.Size))
}

func (s *serviceImpl) afterCommit(ctx context.Context, commit *domainPeriod.Commit) {
	if s.cache != nil {
		if err := s.cache.Delete(ctx, trendsKey(commit.OrganizationID)); err != nil {
			s.logger.Warn("Failed to invalidate trends cache", logging.Err(err))
		}
	}
	payload := kafka.PeriodCommittedPayload{
		OrganizationID: commit.OrganizationID,
		CommitID:       commit.ID,
		Period:         commit.Period.String(),
		RisksCount:     commit.RisksCount,
		FormulaVersion: commit.FormulaVersion,
		CommittedBy:    commit.CommittedBy,
		CommittedAt:    commit.CommittedAt,
	}
	if err := s.publisher.Publish(ctx, kafka.TopicPeriodsCommitted, commit.OrganizationID, kafka.EventTypePeriodCommitted, payload); err != nil {
		s.logger.Warn("Failed to publish period commit", logging.String("commit_id", commit.ID), logging.Err(err))
	}
	s.logger.Info("Period committed",
		logging.String("organization_id", commit.OrganizationID),
		logging.String("period", commit.Period.String()),
		logging.Int("risks", commit.RisksCount))
}

func (s *serviceImpl) History(ctx context.Context, orgID, period string) ([]*domainPeriod.Snapshot, error) {
	if orgID == "" {
		return nil, errors.NewValidationError("organization_id", "organization is required")
	}
	p, err := domainPeriod.Parse(period)
	if err != nil {
		return nil, err
	}
	return s.committedSnapshots(ctx, orgID, p)
}

func (s *serviceImpl) committedSnapshots(ctx context.Context, orgID string, p domainPeriod.Period) ([]*domainPeriod.Snapshot, error) {
	repos := s.store.Repos()
	if _, err := repos.Periods.GetCommit(ctx, orgID, p); err != nil {
		return nil, err
	}
	return repos.Periods.GetSnapshots(ctx, orgID, p)
}

func (s *serviceImpl) ListCommits(ctx context.Context, orgID string) ([]*domainPeriod.Commit, error) {
	if orgID == "" {
		return nil, errors.NewValidationError("organization_id", "organization is required")
	}
	return s.store.Repos().Periods.ListCommits(ctx, orgID)
}

func (s *serviceImpl) Trends(ctx context.Context, orgID string) (points []domainPeriod.TrendPoint, err error) {
	ctx, span := tracing.Start(ctx, "period.Trends", tracing.Org(orgID))
	defer func() { tracing.End(span, err) }()

	if orgID == "" {
		return nil, errors.NewValidationError("organization_id", "organization is required")
	}
	load := func(ctx context.Context) ([]domainPeriod.TrendPoint, error) {
		repos := s.store.Repos()
		commits, err := repos.Periods.ListCommits(ctx, orgID)
		if err != nil {
			return nil, err
		}
		snaps, err := repos.Periods.ListAllSnapshots(ctx, orgID)
		if err != nil {
			return nil, err
		}
		return domainPeriod.BuildTrends(commits, snaps), nil
	}
	if s.cache == nil {
		return load(ctx)
	}

	hit := true
	err = s.cache.GetOrSet(ctx, trendsKey(orgID), &points, s.cfg.TrendsTTL, func(ctx context.Context) (interface{}, error) {
		hit = false
		return load(ctx)
	})
	if err != nil {
		if code := errors.GetCode(err); code == errors.ErrCodeCacheError || code == errors.ErrCodeSerialization {
			s.logger.Warn("Trends cache unavailable", logging.Err(err))
			return load(ctx)
		}
		return nil, err
	}
	s.metrics.RecordCacheAccess("trends", hit)
	if points == nil {
		points = []domainPeriod.TrendPoint{}
	}
	return points, nil
}

func (s *serviceImpl) loadPair(ctx context.Context, req *CompareRequest) (from, to domainPeriod.Period, a, b []*domainPeriod.Snapshot, err error) {
	if err = validation.Struct(req); err != nil {
		return
	}
	if from, err = domainPeriod.Parse(req.From); err != nil {
		return
	}
	if to, err = domainPeriod.Parse(req.To); err != nil {
		return
	}
	if a, err = s.committedSnapshots(ctx, req.OrganizationID, from); err != nil {
		return
	}
	b, err = s.committedSnapshots(ctx, req.OrganizationID, to)
	return
}

func (s *serviceImpl) Migrations(ctx context.Context, req *CompareRequest) (*domainPeriod.MigrationReport, error) {
	from, to, a, b, err := s.loadPair(ctx, req)
	if err != nil {
		return nil, err
	}
	rep := domainPeriod.AnalyzeMigrations(from, to, a, b)
	return &rep, nil
}

func (s *serviceImpl) Compare(ctx context.Context, req *CompareRequest) (*domainPeriod.Comparison, error) {
	from, to, a, b, err := s.loadPair(ctx, req)
	if err != nil {
		return nil, err
	}
	cmp := domainPeriod.Compare(from, to, a, b)
	return &cmp, nil
}

func (s *serviceImpl) ArchiveURL(ctx context.Context, orgID, period string) (string, error) {
	p, err := domainPeriod.Parse(period)
	if err != nil {
		return "", err
	}
	commit, err := s.store.Repos().Periods.GetCommit(ctx, orgID, p)
	if err != nil {
		return "", err
	}
	if s.archive == nil || commit.ArchiveKey == "" {
		return "", errors.New(errors.ErrCodeArchiveUnavailable, "no archived snapshot for period").
			WithDetail("period=" + p.String())
	}
	return s.archive.PresignedURL(ctx, commit.ArchiveKey, s.cfg.PresignExpiry)
}

//Personal.AI order the ending
