package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	alertapp "github.com/aonawunmi/New-MinRisk-sub016/internal/application/alert"
	heatmapapp "github.com/aonawunmi/New-MinRisk-sub016/internal/application/heatmap"
	periodapp "github.com/aonawunmi/New-MinRisk-sub016/internal/application/period"
	riskapp "github.com/aonawunmi/New-MinRisk-sub016/internal/application/risk"
	treatmentapp "github.com/aonawunmi/New-MinRisk-sub016/internal/application/treatment"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/domain/intelligence"
	domainRisk "github.com/aonawunmi/New-MinRisk-sub016/internal/domain/risk"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/interfaces/http/middleware"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/testutil"
)

const testOrg = "org-1"

type fixedClassifier struct {
	mu      sync.Mutex
	results map[string]*intelligence.ClassificationResult
}

func (c *fixedClassifier) Classify(_ context.Context, r *domainRisk.Risk, _ *intelligence.ExternalEvent) (*intelligence.ClassificationResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if res, ok := c.results[r.RiskCode]; ok {
		cp := *res
		return &cp, nil
	}
	return &intelligence.ClassificationResult{}, nil
}

// testAPI mounts every handler over an in-memory store behind the
// organization middleware.
type testAPI struct {
	store      *testutil.MemStore
	classifier *fixedClassifier
	logger     *testutil.MockLogger
	router     chi.Router
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	st := testutil.NewMemStore()
	log := testutil.NewMockLogger()
	cls := &fixedClassifier{results: map[string]*intelligence.ClassificationResult{}}

	heatmaps := heatmapapp.NewService(st, nil, nil, log, heatmapapp.ServiceConfig{})
	risks, err := riskapp.NewService(st, heatmaps, nil, log, riskapp.ServiceConfig{MatrixSize: 5})
	require.NoError(t, err)
	alerts, err := alertapp.NewService(st, cls, nil, heatmaps, nil, log, alertapp.ServiceConfig{MatrixSize: 5, ConfidenceThreshold: 60})
	require.NoError(t, err)
	periods := periodapp.NewService(st, nil, nil, nil, nil, nil, log, periodapp.ServiceConfig{})

	r := chi.NewRouter()
	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.Organization(middleware.DefaultOrganizationConfig(), log))
		NewRiskHandler(risks, log, 0).RegisterRoutes(api)
		NewAlertHandler(alerts, log, 0).RegisterRoutes(api)
		NewTreatmentHandler(treatmentapp.NewService(st, nil, log), log, 0).RegisterRoutes(api)
		NewPeriodHandler(periods, log, 0).RegisterRoutes(api)
		NewHeatmapHandler(heatmaps, log).RegisterRoutes(api)
	})
	return &testAPI{store: st, classifier: cls, logger: log, router: r}
}

func (a *testAPI) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body == nil {
		req.ContentLength = 0
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Organization-ID", testOrg)
	req.Header.Set("X-Actor-ID", "analyst")
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

// httpRecorder sends a request without the organization headers.
func httpRecorder(a *testAPI, method, path string, body io.Reader) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, httptest.NewRequest(method, path, body))
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (a *testAPI) createRisk(t *testing.T, code string, l, i int) *domainRisk.Risk {
	t.Helper()
	w := a.do(t, http.MethodPost, "/api/v1/risks", map[string]interface{}{
		"risk_code": code, "title": "Risk " + code, "category": "Operational",
		"likelihood": l, "impact": i,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[*domainRisk.Risk](t, w)
}

//Personal.AI order the ending
