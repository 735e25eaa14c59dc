package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const registerUI = "https://register.minrisk.example"

func corsServe(t *testing.T, cfg CORSConfig, method, path, origin string, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	reached := false
	h := CORS(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		w.WriteHeader(http.StatusOK)
	}))
	r := httptest.NewRequest(method, path, nil)
	if origin != "" {
		r.Header.Set("Origin", origin)
	}
	for k, v := range hdr {
		r.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if method == http.MethodOptions && w.Code == http.StatusNoContent {
		assert.False(t, reached, "preflight must not reach the API")
	}
	return w
}

func uiConfig() CORSConfig {
	cfg := DefaultCORSConfig()
	cfg.AllowedOrigins = []string{registerUI}
	return cfg
}

func TestCORS_PreflightForAlertApply(t *testing.T) {
	w := corsServe(t, uiConfig(), http.MethodOptions, "/api/v1/alerts/a-1/apply", registerUI, map[string]string{
		"Access-Control-Request-Method":  http.MethodPost,
		"Access-Control-Request-Headers": "Content-Type, X-Organization-ID, X-Actor-ID",
	})

	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, registerUI, w.Header().Get("Access-Control-Allow-Origin"))
	allowed := w.Header().Get("Access-Control-Allow-Headers")
	assert.Contains(t, allowed, "X-Organization-ID")
	assert.Contains(t, allowed, "X-Actor-ID")
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
	assert.Equal(t, "86400", w.Header().Get("Access-Control-Max-Age"))
	assert.ElementsMatch(t, []string{"Origin", "Access-Control-Request-Method", "Access-Control-Request-Headers"},
		w.Header().Values("Vary"))
}

func TestCORS_HeatmapReadExposesOrgAndRateLimitHeaders(t *testing.T) {
	w := corsServe(t, uiConfig(), http.MethodGet, "/api/v1/heatmap?view=residual", registerUI, nil)

	require.Equal(t, http.StatusOK, w.Code)
	exposed := w.Header().Get("Access-Control-Expose-Headers")
	for _, h := range []string{"X-Organization-ID", "X-Request-ID", "X-RateLimit-Remaining"} {
		assert.Contains(t, exposed, h)
	}
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORS_OriginAdmission(t *testing.T) {
	tests := []struct {
		name        string
		origins     []string
		wildcard    bool
		credentials bool
		origin      string
		wantAllow   string
	}{
		{"exact match is case-insensitive", []string{registerUI}, false, false, "HTTPS://Register.MinRisk.example", "HTTPS://Register.MinRisk.example"},
		{"unknown origin gets no headers", []string{registerUI}, false, false, "https://evil.example", ""},
		{"star without credentials", []string{"*"}, false, false, "https://any.example", "*"},
		{"star with credentials echoes origin", []string{"*"}, false, true, "https://any.example", "https://any.example"},
		{"subdomain pattern", []string{"*.minrisk.example"}, true, false, "https://board.minrisk.example", "https://board.minrisk.example"},
		{"subdomain pattern needs wildcard", []string{"*.minrisk.example"}, false, false, "https://board.minrisk.example", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultCORSConfig()
			cfg.AllowedOrigins = tt.origins
			cfg.AllowWildcard = tt.wildcard
			cfg.AllowCredentials = tt.credentials

			w := corsServe(t, cfg, http.MethodGet, "/api/v1/risks", tt.origin, nil)
			assert.Equal(t, http.StatusOK, w.Code, "requests always reach the API")
			assert.Equal(t, tt.wantAllow, w.Header().Get("Access-Control-Allow-Origin"))
			if tt.credentials && tt.wantAllow != "" {
				assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
			}
		})
	}
}

func TestCORS_ServerToServerCallsUntouched(t *testing.T) {
	w := corsServe(t, uiConfig(), http.MethodPost, "/api/v1/periods", "", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, w.Header().Values("Vary"))
}

func TestCORSConfig_WithIdentityHeaders(t *testing.T) {
	cfg := DefaultCORSConfig().WithIdentityHeaders("X-Tenant", "x-actor-id")

	assert.Contains(t, cfg.AllowedHeaders, "X-Tenant")
	assert.Contains(t, cfg.ExposedHeaders, "X-Tenant")
	n := 0
	for _, h := range cfg.AllowedHeaders {
		if strings.EqualFold(h, "X-Actor-ID") {
			n++
		}
	}
	assert.Equal(t, 1, n, "header names compare case-insensitively")

	cfg.AllowedOrigins = []string{registerUI}
	w := corsServe(t, cfg, http.MethodOptions, "/api/v1/treatment/R-7/verify", registerUI, map[string]string{
		"Access-Control-Request-Method": http.MethodGet,
	})
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "X-Tenant")
}

func TestDefaultCORSConfig(t *testing.T) {
	cfg := DefaultCORSConfig()

	assert.Empty(t, cfg.AllowedOrigins)
	assert.Subset(t, cfg.AllowedHeaders, []string{DefaultOrgHeader, DefaultActorHeader})
	assert.Contains(t, cfg.ExposedHeaders, DefaultOrgHeader)
	assert.False(t, cfg.AllowCredentials)
	assert.False(t, cfg.AllowWildcard)
}

//Personal.AI order the ending
