package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(server.URL, "org-1", opts...)
	require.NoError(t, err)
	return client
}

type testLogger struct {
	lastMsg string
	count   int32
}

func (l *testLogger) Debugf(format string, args ...interface{}) {
	l.log(format, args...)
}
func (l *testLogger) Infof(format string, args ...interface{}) {
	l.log(format, args...)
}
func (l *testLogger) Errorf(format string, args ...interface{}) {
	l.log(format, args...)
}
func (l *testLogger) log(format string, args ...interface{}) {
	atomic.AddInt32(&l.count, 1)
	l.lastMsg = fmt.Sprintf(format, args...)
}

// ---------------------------------------------------------------------------
// Constructor Tests
// ---------------------------------------------------------------------------

func TestNewClient_Success(t *testing.T) {
	c, err := NewClient("http://api.example.com/api/v1", "org-1")
	assert.NoError(t, err)
	assert.Equal(t, "http://api.example.com/api/v1", c.baseURL)
	assert.Equal(t, "org-1", c.OrganizationID())
	assert.Equal(t, 3, c.retryMax)
	assert.Contains(t, c.userAgent, "minrisk-go-sdk/")
}

func TestNewClient_EmptyBaseURL(t *testing.T) {
	_, err := NewClient("", "org-1")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNewClient_InvalidBaseURL(t *testing.T) {
	_, err := NewClient("ftp://invalid", "org-1")
	assert.ErrorIs(t, err, ErrInvalidConfig)
	_, err = NewClient("invalid-url", "org-1")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNewClient_EmptyOrganization(t *testing.T) {
	_, err := NewClient("http://api.example.com", "")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNewClient_BaseURLTrailingSlash(t *testing.T) {
	c, err := NewClient("http://api.example.com/", "org-1")
	assert.NoError(t, err)
	assert.Equal(t, "http://api.example.com", c.baseURL)
}

func TestNewClient_WithOptions(t *testing.T) {
	customClient := &http.Client{Timeout: 10 * time.Second}
	logger := &testLogger{}
	c, err := NewClient("http://api.example.com", "org-1",
		WithHTTPClient(customClient),
		WithLogger(logger),
		WithRetryMax(5),
		WithActor("analyst@example.com"),
	)
	assert.NoError(t, err)
	assert.Equal(t, customClient, c.httpClient)
	assert.Equal(t, logger, c.logger)
	assert.Equal(t, 5, c.retryMax)
	assert.Equal(t, "analyst@example.com", c.actor)
}

// ---------------------------------------------------------------------------
// Lazy Init Tests
// ---------------------------------------------------------------------------

func TestClient_SubClients_LazyInit(t *testing.T) {
	c, _ := NewClient("http://api.example.com", "org-1")
	assert.Nil(t, c.risks)
	r := c.Risks()
	assert.NotNil(t, r)
	assert.Same(t, r, c.Risks())
	assert.Same(t, c.Alerts(), c.Alerts())
	assert.Same(t, c.Periods(), c.Periods())
	assert.Same(t, c.Treatment(), c.Treatment())
}

func TestClient_SubClients_ConcurrentAccess(t *testing.T) {
	c, _ := NewClient("http://api.example.com", "org-1")
	var wg sync.WaitGroup
	got := make([]*AlertsClient, 50)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i] = c.Alerts()
		}(i)
	}
	wg.Wait()
	for _, a := range got {
		assert.Same(t, got[0], a)
	}
}

// ---------------------------------------------------------------------------
// HTTP Execution Tests (do)
// ---------------------------------------------------------------------------

func TestClient_Do_Success(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"risk_code": "FIN-001"}`))
	}
	c := newTestClient(t, handler)
	var resp Risk
	err := c.get(context.Background(), "/test", &resp)
	assert.NoError(t, err)
	assert.Equal(t, "FIN-001", resp.RiskCode)
}

func TestClient_Do_NilBody(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, int64(0), r.ContentLength)
		assert.Empty(t, r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusOK)
	}
	c := newTestClient(t, handler)
	err := c.post(context.Background(), "/test", nil, nil)
	assert.NoError(t, err)
}

func TestClient_Do_RequestHeaders(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "org-1", r.Header.Get(HeaderOrganization))
		assert.Equal(t, "cro", r.Header.Get(HeaderActor))
		assert.Equal(t, "Bearer gw-token", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Contains(t, r.Header.Get("User-Agent"), "minrisk-go-sdk/")
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		w.WriteHeader(http.StatusOK)
	}
	c := newTestClient(t, handler, WithActor("cro"), WithAPIKey("gw-token"))
	require.NoError(t, c.post(context.Background(), "/test", map[string]string{"a": "b"}, nil))
}

func TestClient_Do_OptionalHeadersOmitted(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get(HeaderActor))
		assert.Empty(t, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
	}
	c := newTestClient(t, handler)
	require.NoError(t, c.get(context.Background(), "/test", nil))
}

func TestClient_Do_RequestID_Unique(t *testing.T) {
	ids := make(chan string, 2)
	handler := func(w http.ResponseWriter, r *http.Request) {
		ids <- r.Header.Get("X-Request-ID")
		w.WriteHeader(http.StatusOK)
	}
	c := newTestClient(t, handler)
	c.get(context.Background(), "/test", nil)
	c.get(context.Background(), "/test", nil)
	close(ids)

	id1 := <-ids
	id2 := <-ids
	assert.NotEqual(t, id1, id2)
}

func TestClient_Do_ErrorEnvelope(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error": {"code": "RSK_001", "message": "risk not found", "detail": "risk_code=FIN-404"}}`))
	}
	c := newTestClient(t, handler)
	err := c.get(context.Background(), "/test", nil)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 404, apiErr.StatusCode)
	assert.Equal(t, "RSK_001", apiErr.Code)
	assert.Equal(t, "risk not found", apiErr.Message)
	assert.Equal(t, "risk_code=FIN-404", apiErr.Detail)
	assert.NotEmpty(t, apiErr.RequestID)
	assert.True(t, apiErr.IsNotFound())
}

func TestClient_Do_PlainTextError(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gateway says no", http.StatusForbidden)
	}
	c := newTestClient(t, handler)
	err := c.get(context.Background(), "/test", nil)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "gateway says no", apiErr.Message)
}

func TestClient_Do_422DecodesBatchResult(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"successCount":0,"errorCount":1,"errors":[{"itemId":"a-1","message":"not accepted"}]}`))
	}
	c := newTestClient(t, handler)
	var res BatchResult
	err := c.post(context.Background(), "/alerts/batch/apply", nil, &res)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	assert.Equal(t, 1, res.ErrorCount)
	assert.Equal(t, "a-1", res.Errors[0].ItemID)
}

func TestClient_Do_4xxNoRetry(t *testing.T) {
	var calls int32
	handler := func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}
	c := newTestClient(t, handler)
	err := c.get(context.Background(), "/test", nil)
	assert.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClient_Do_5xxRetry(t *testing.T) {
	var calls int32
	handler := func(w http.ResponseWriter, r *http.Request) {
		count := atomic.AddInt32(&calls, 1)
		if count < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
	c := newTestClient(t, handler, WithRetryWait(1*time.Millisecond, 2*time.Millisecond))
	err := c.get(context.Background(), "/test", nil)
	assert.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClient_Do_5xxRetryExhausted(t *testing.T) {
	var calls int32
	handler := func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}
	c := newTestClient(t, handler, WithRetryMax(2), WithRetryWait(1*time.Millisecond, 2*time.Millisecond))
	err := c.get(context.Background(), "/test", nil)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsServerError())
	// 1 initial + 2 retries
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClient_Do_RetryResendsBody(t *testing.T) {
	var calls int32
	handler := func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"period":"2025-Q1","notes":""}`, string(body))
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}
	c := newTestClient(t, handler, WithRetryWait(1*time.Millisecond, 2*time.Millisecond))
	require.NoError(t, c.post(context.Background(), "/periods", map[string]string{"period": "2025-Q1", "notes": ""}, nil))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestClient_Do_429RetryAfter(t *testing.T) {
	var calls int32
	handler := func(w http.ResponseWriter, r *http.Request) {
		count := atomic.AddInt32(&calls, 1)
		if count == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
	logger := &testLogger{}
	c := newTestClient(t, handler, WithLogger(logger))
	start := time.Now()
	err := c.get(context.Background(), "/test", nil)
	elapsed := time.Since(start)

	assert.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.True(t, elapsed >= 1*time.Second, "Should wait at least 1s for Retry-After")
	assert.Greater(t, atomic.LoadInt32(&logger.count), int32(0))
}

func TestClient_Do_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	c, _ := NewClient(server.URL, "org-1", WithRetryMax(1), WithRetryWait(1*time.Millisecond, 2*time.Millisecond))
	err := c.get(context.Background(), "/test", nil)
	assert.Error(t, err)
}

func TestClient_Do_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	err := c.get(ctx, "/test", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClient_Do_ContextTimeout(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}
	c := newTestClient(t, handler)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := c.get(ctx, "/test", nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClient_CalculateBackoff_Capped(t *testing.T) {
	c, _ := NewClient("http://api.example.com", "org-1", WithRetryWait(100*time.Millisecond, 300*time.Millisecond))
	first := c.calculateBackoff(1)
	assert.GreaterOrEqual(t, first, 100*time.Millisecond)
	assert.Less(t, first, 126*time.Millisecond)
	late := c.calculateBackoff(10)
	assert.GreaterOrEqual(t, late, 300*time.Millisecond)
	assert.Less(t, late, 376*time.Millisecond)
}

// ---------------------------------------------------------------------------
// APIError Tests
// ---------------------------------------------------------------------------

func TestAPIError_Methods(t *testing.T) {
	assert.True(t, (&APIError{StatusCode: 404}).IsNotFound())
	assert.True(t, (&APIError{StatusCode: 409}).IsConflict())
	assert.True(t, (&APIError{StatusCode: 429}).IsRateLimited())
	assert.True(t, (&APIError{StatusCode: 500}).IsServerError())
	assert.True(t, (&APIError{StatusCode: 503}).IsServerError())
	assert.False(t, (&APIError{StatusCode: 400}).IsServerError())

	eStr := (&APIError{Code: "ALR_002", StatusCode: 409, Message: "Msg", RequestID: "ID"}).Error()
	assert.Equal(t, "minrisk: ALR_002 (HTTP 409): Msg [request_id=ID]", eStr)
}

// ---------------------------------------------------------------------------
// Convenience Methods Tests
// ---------------------------------------------------------------------------

func TestClient_Methods(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodPost || r.Method == http.MethodPut {
			body, _ := io.ReadAll(r.Body)
			w.Write(body)
		}
	}
	c := newTestClient(t, handler)
	ctx := context.Background()

	assert.NoError(t, c.get(ctx, "/get", nil))

	type Payload struct {
		Val string `json:"val"`
	}
	var res Payload
	assert.NoError(t, c.post(ctx, "/post", Payload{Val: "A"}, &res))
	assert.Equal(t, "A", res.Val)

	assert.NoError(t, c.put(ctx, "/put", Payload{Val: "B"}, &res))
	assert.Equal(t, "B", res.Val)

	assert.NoError(t, c.delete(ctx, "/delete", nil))
}

//Personal.AI order the ending
