package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/aonawunmi/New-MinRisk-sub016/internal/testutil"
)

func statusHandler(code int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(code)
		_, _ = w.Write([]byte("body"))
	})
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}

func TestRequestLogging_LevelsByStatus(t *testing.T) {
	cases := []struct {
		status  int
		level   string
		message string
	}{
		{http.StatusOK, "info", "HTTP request completed"},
		{http.StatusNotFound, "warn", "HTTP request completed with client error"},
		{http.StatusInternalServerError, "error", "HTTP request completed with server error"},
	}
	for _, tc := range cases {
		log := testutil.NewMockLogger()
		h := RequestLogging(log, DefaultLoggingConfig())(statusHandler(tc.status))

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/api/v1/risks", nil)
		r.Header.Set("X-Organization-ID", "org-1")
		h.ServeHTTP(w, r)

		assert.Equal(t, tc.status, w.Code)
		assert.True(t, log.HasMessage(tc.level, tc.message), "status %d", tc.status)
	}
}

func TestRequestLogging_SkipsProbes(t *testing.T) {
	log := testutil.NewMockLogger()
	h := RequestLogging(log, DefaultLoggingConfig())(statusHandler(http.StatusOK))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Zero(t, log.Count("info"))
}

func TestRequestLogging_Slow(t *testing.T) {
	log := testutil.NewMockLogger()
	cfg := DefaultLoggingConfig()
	cfg.SlowThreshold = time.Nanosecond
	h := RequestLogging(log, cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Millisecond)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/risks", nil))
	assert.True(t, log.HasMessage("warn", "HTTP request completed (slow)"))
}

func TestStatusRecorder_FirstHeaderWins(t *testing.T) {
	rec := newStatusRecorder(httptest.NewRecorder())
	rec.WriteHeader(http.StatusCreated)
	rec.WriteHeader(http.StatusTeapot)
	n, err := rec.Write([]byte("abc"))
	assert.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, http.StatusCreated, rec.statusCode)
	assert.EqualValues(t, 3, rec.bytesWritten)
}

//Personal.AI order the ending
