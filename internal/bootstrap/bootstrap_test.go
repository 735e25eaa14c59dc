package bootstrap

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	heatmapapp "github.com/aonawunmi/New-MinRisk-sub016/internal/application/heatmap"
	periodapp "github.com/aonawunmi/New-MinRisk-sub016/internal/application/period"
	riskapp "github.com/aonawunmi/New-MinRisk-sub016/internal/application/risk"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/config"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/infrastructure/database/redis"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/testutil"
	"github.com/aonawunmi/New-MinRisk-sub016/pkg/errors"
)

func TestNewServices_RequiresStore(t *testing.T) {
	_, err := NewServices(config.NewDefaultConfig(), Dependencies{}, testutil.NewMockLogger())
	assert.Error(t, err)
}

func TestNewServices_RejectsUnknownFormula(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.Engine.ResidualFormula = "no-such-formula"
	_, err := NewServices(cfg, Dependencies{Store: testutil.NewMemStore()}, testutil.NewMockLogger())
	assert.Error(t, err)
}

func TestNewServices_WiresSharedStoreAndCache(t *testing.T) {
	mr := miniredis.RunT(t)
	log := testutil.NewMockLogger()
	client := redis.NewClientFromUniversal(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}), "minrisk:", log)
	t.Cleanup(func() { _ = client.Close() })

	deps := Dependencies{
		Store:        testutil.NewMemStore(),
		HeatmapCache: redis.NewRedisCache(client, log, redis.WithNamespace("heatmap:")),
		PeriodCache:  redis.NewRedisCache(client, log, redis.WithNamespace("period:")),
		Locks:        redis.NewLockFactory(client, log),
	}
	svcs, err := NewServices(config.NewDefaultConfig(), deps, log)
	require.NoError(t, err)

	ctx := context.Background()
	r, err := svcs.Risks.CreateRisk(ctx, &riskapp.CreateRiskRequest{
		OrganizationID: "org-1", RiskCode: "OPS-001", Title: "Vendor outage",
		Category: "Operational", Likelihood: 4, Impact: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, 12, r.InherentScore)

	grid, err := svcs.Heatmaps.BuildCurrent(ctx, &heatmapapp.CurrentRequest{OrganizationID: "org-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, grid.Total)
	assert.NotEmpty(t, mr.Keys())

	commit, err := svcs.Periods.Commit(ctx, &periodapp.CommitRequest{OrganizationID: "org-1", Period: "2026-Q1", Actor: "cro"})
	require.NoError(t, err)
	assert.Equal(t, 1, commit.RisksCount)

	_, err = svcs.Periods.ArchiveURL(ctx, "org-1", "2026-Q1")
	assert.True(t, errors.IsCode(err, errors.ErrCodeArchiveUnavailable))

	report, err := svcs.Treatment.VerifyChain(ctx, "org-1", "OPS-001")
	require.NoError(t, err)
	assert.True(t, report.Valid)
}

//Personal.AI order the ending
