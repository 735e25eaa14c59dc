package heatmap

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainHeatmap "github.com/aonawunmi/New-MinRisk-sub016/internal/domain/heatmap"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/domain/period"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/domain/risk"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/infrastructure/database/redis"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/testutil"
	"github.com/aonawunmi/New-MinRisk-sub016/pkg/errors"
)

const org = "org-1"

func setup(t *testing.T) (Service, *testutil.MemStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	log := testutil.NewMockLogger()
	client := redis.NewClientFromUniversal(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}), "minrisk:", log)
	st := testutil.NewMemStore()
	return NewService(st, redis.NewRedisCache(client, log), nil, log, ServiceConfig{}), st, mr
}

func addRisk(t *testing.T, st *testutil.MemStore, code string, l, i int) *risk.Risk {
	t.Helper()
	r, err := risk.NewRisk(org, code, "Risk "+code, "Strategic", l, i, 5)
	require.NoError(t, err)
	require.NoError(t, st.Repos().Risks.Create(context.Background(), r))
	return r
}

func TestBuildCurrent_ReadThroughCache(t *testing.T) {
	ctx := context.Background()
	svc, st, mr := setup(t)
	addRisk(t, st, "R-1", 4, 4)

	g, err := svc.BuildCurrent(ctx, &CurrentRequest{OrganizationID: org, View: "inherent"})
	require.NoError(t, err)
	assert.Equal(t, 5, g.MatrixSize)
	assert.Equal(t, domainHeatmap.ViewInherent, g.View)
	assert.Equal(t, 1, g.Total)
	assert.Equal(t, []string{"R-1"}, g.Cell(4, 4).RiskCodes)
	assert.True(t, mr.Exists("minrisk:cache:heatmap:org-1:current:inherent:5"))

	addRisk(t, st, "R-2", 1, 1)
	calls := st.Calls("risks.List")
	g, err = svc.BuildCurrent(ctx, &CurrentRequest{OrganizationID: org, View: "inherent"})
	require.NoError(t, err)
	assert.Equal(t, 1, g.Total, "served from cache")
	assert.Equal(t, calls, st.Calls("risks.List"))

	svc.InvalidateCurrent(ctx, org)
	assert.False(t, mr.Exists("minrisk:cache:heatmap:org-1:current:inherent:5"))

	g, err = svc.BuildCurrent(ctx, &CurrentRequest{OrganizationID: org, View: "inherent"})
	require.NoError(t, err)
	assert.Equal(t, 2, g.Total)
	assert.Equal(t, 1, g.Cell(1, 1).Count)
}

func TestBuildCurrent_DefaultsToResidualAndSkipsArchived(t *testing.T) {
	ctx := context.Background()
	svc, st, _ := setup(t)
	r := addRisk(t, st, "R-1", 4, 4)
	r.ApplyResidual(risk.Residual{Likelihood: 2, Impact: 3}, r.CreatedAt)
	require.NoError(t, st.Repos().Risks.Update(ctx, r))
	gone := addRisk(t, st, "R-2", 5, 5)
	require.NoError(t, gone.TransitionTo(risk.StatusArchived))
	require.NoError(t, st.Repos().Risks.Update(ctx, gone))

	g, err := svc.BuildCurrent(ctx, &CurrentRequest{OrganizationID: org})
	require.NoError(t, err)
	assert.Equal(t, domainHeatmap.ViewResidual, g.View)
	assert.Equal(t, 1, g.Total)
	assert.Equal(t, 1, g.Cell(2, 3).Count)
	assert.Zero(t, g.Cell(5, 5).Count)
}

func TestBuildCurrent_SmallerMatrixDropsOutliers(t *testing.T) {
	svc, st, _ := setup(t)
	addRisk(t, st, "R-1", 2, 2)
	addRisk(t, st, "R-2", 5, 1)

	g, err := svc.BuildCurrent(context.Background(), &CurrentRequest{OrganizationID: org, MatrixSize: 3, View: "inherent"})
	require.NoError(t, err)
	assert.Len(t, g.Cells, 9)
	assert.Equal(t, 1, g.Total)
	assert.Equal(t, 1, g.Dropped)
}

func TestBuildCurrent_CacheDown(t *testing.T) {
	svc, st, mr := setup(t)
	addRisk(t, st, "R-1", 3, 3)
	mr.Close()

	g, err := svc.BuildCurrent(context.Background(), &CurrentRequest{OrganizationID: org})
	require.NoError(t, err)
	assert.Equal(t, 1, g.Total)
}

func TestBuildCurrent_InvalidView(t *testing.T) {
	svc, _, _ := setup(t)
	_, err := svc.BuildCurrent(context.Background(), &CurrentRequest{OrganizationID: org, View: "target"})
	assert.True(t, errors.IsValidation(err))
}

func TestBuildForPeriod(t *testing.T) {
	ctx := context.Background()
	svc, st, _ := setup(t)
	r := addRisk(t, st, "R-1", 4, 2)

	p := period.MustParse("2025-Q1")
	commit, snaps := period.NewCommit(org, p, "", "cro", risk.FormulaMultiplicativeV1, []*risk.Risk{r})
	require.NoError(t, st.Repos().Periods.Create(ctx, commit, snaps))

	g, err := svc.BuildForPeriod(ctx, &PeriodRequest{OrganizationID: org, Period: "2025-Q1", View: "inherent"})
	require.NoError(t, err)
	assert.Equal(t, "2025-Q1", g.Period)
	assert.Equal(t, 1, g.Cell(4, 2).Count)
	assert.Equal(t, risk.LevelMedium, g.Cell(4, 2).Level)

	_, err = svc.BuildForPeriod(ctx, &PeriodRequest{OrganizationID: org, Period: "2025-Q2"})
	assert.True(t, errors.IsCode(err, errors.ErrCodePeriodNotFound))
}

func TestNoCache(t *testing.T) {
	st := testutil.NewMemStore()
	svc := NewService(st, nil, nil, testutil.NewMockLogger(), ServiceConfig{MatrixSize: 4})
	addRisk(t, st, "R-1", 1, 1)

	g, err := svc.BuildCurrent(context.Background(), &CurrentRequest{OrganizationID: org})
	require.NoError(t, err)
	assert.Equal(t, 4, g.MatrixSize)
	svc.InvalidateCurrent(context.Background(), org)
}

//Personal.AI order the ending
