// Package apitest runs the full HTTP API over an in-memory store for SDK and
// CLI tests.
package apitest

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	alertapp "github.com/aonawunmi/New-MinRisk-sub016/internal/application/alert"
	heatmapapp "github.com/aonawunmi/New-MinRisk-sub016/internal/application/heatmap"
	periodapp "github.com/aonawunmi/New-MinRisk-sub016/internal/application/period"
	riskapp "github.com/aonawunmi/New-MinRisk-sub016/internal/application/risk"
	treatmentapp "github.com/aonawunmi/New-MinRisk-sub016/internal/application/treatment"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/domain/intelligence"
	domainRisk "github.com/aonawunmi/New-MinRisk-sub016/internal/domain/risk"
	httpserver "github.com/aonawunmi/New-MinRisk-sub016/internal/interfaces/http"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/interfaces/http/handlers"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/interfaces/http/middleware"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/testutil"
)

// Classifier answers with a fixed result per risk code and an empty result
// for every other risk.
type Classifier struct {
	mu      sync.Mutex
	results map[string]intelligence.ClassificationResult
}

func (c *Classifier) Set(riskCode string, res intelligence.ClassificationResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results[riskCode] = res
}

func (c *Classifier) Classify(_ context.Context, r *domainRisk.Risk, _ *intelligence.ExternalEvent) (*intelligence.ClassificationResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	res := c.results[r.RiskCode]
	return &res, nil
}

// Server is a running API backed by a MemStore.
type Server struct {
	URL        string
	BaseURL    string
	Store      *testutil.MemStore
	Classifier *Classifier
	Logger     *testutil.MockLogger
}

// New starts the server and closes it when the test ends.
func New(t *testing.T) *Server {
	t.Helper()
	st := testutil.NewMemStore()
	log := testutil.NewMockLogger()
	cls := &Classifier{results: map[string]intelligence.ClassificationResult{}}

	heatmaps := heatmapapp.NewService(st, nil, nil, log, heatmapapp.ServiceConfig{})
	risks, err := riskapp.NewService(st, heatmaps, nil, log, riskapp.ServiceConfig{MatrixSize: 5})
	require.NoError(t, err)
	alerts, err := alertapp.NewService(st, cls, nil, heatmaps, nil, log,
		alertapp.ServiceConfig{MatrixSize: 5, ConfidenceThreshold: 60})
	require.NoError(t, err)
	periods := periodapp.NewService(st, nil, nil, nil, nil, nil, log, periodapp.ServiceConfig{})

	router := httpserver.NewRouter(httpserver.RouterConfig{
		RiskHandler:      handlers.NewRiskHandler(risks, log, 0),
		AlertHandler:     handlers.NewAlertHandler(alerts, log, 0),
		TreatmentHandler: handlers.NewTreatmentHandler(treatmentapp.NewService(st, nil, log), log, 0),
		PeriodHandler:    handlers.NewPeriodHandler(periods, log, 0),
		HeatmapHandler:   handlers.NewHeatmapHandler(heatmaps, log),
		HealthHandler:    handlers.NewHealthHandler("test"),
		Organization:     middleware.Organization(middleware.DefaultOrganizationConfig(), log),
		Logger:           log,
		LoggingConfig:    middleware.DefaultLoggingConfig(),
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &Server{
		URL:        srv.URL,
		BaseURL:    srv.URL + "/api/v1",
		Store:      st,
		Classifier: cls,
		Logger:     log,
	}
}

//Personal.AI order the ending
