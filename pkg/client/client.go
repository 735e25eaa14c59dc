package client

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const Version = "0.3.0"

const (
	HeaderOrganization = "X-Organization-ID"
	HeaderActor        = "X-Actor-ID"
)

// ErrInvalidConfig is returned by NewClient for a missing or malformed base
// URL or organization.
var ErrInvalidConfig = stderrors.New("minrisk: invalid client configuration")

// Logger defines the logging interface used by the Client
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

type noopLogger struct{}

func (noopLogger) Debugf(format string, args ...interface{}) {}
func (noopLogger) Infof(format string, args ...interface{})  {}
func (noopLogger) Errorf(format string, args ...interface{}) {}

// Client is the MinRisk REST SDK. Every request is scoped to one
// organization; the actor header is optional and defaults server-side.
type Client struct {
	baseURL        string
	organizationID string
	actor          string
	apiKey         string
	httpClient     *http.Client
	userAgent      string
	logger         Logger
	retryMax       int
	retryWaitMin   time.Duration
	retryWaitMax   time.Duration

	risks         *RisksClient
	risksOnce     sync.Once
	alerts        *AlertsClient
	alertsOnce    sync.Once
	periods       *PeriodsClient
	periodsOnce   sync.Once
	treatment     *TreatmentClient
	treatmentOnce sync.Once
}

// APIError represents an error response from the API
type APIError struct {
	StatusCode int    `json:"status_code"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	Detail     string `json:"detail,omitempty"`
	RequestID  string `json:"request_id"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("minrisk: %s (HTTP %d): %s [request_id=%s]", e.Code, e.StatusCode, e.Message, e.RequestID)
}

func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

func (e *APIError) IsConflict() bool {
	return e.StatusCode == http.StatusConflict
}

func (e *APIError) IsRateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500 && e.StatusCode < 600
}

// errorEnvelope is the server's {"error": {...}} body.
type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Detail  string `json:"detail"`
	} `json:"error"`
}

// NewClient creates a client for baseURL (for example
// http://localhost:8080/api/v1) acting on behalf of organizationID.
func NewClient(baseURL, organizationID string, opts ...Option) (*Client, error) {
	if baseURL == "" || organizationID == "" {
		return nil, ErrInvalidConfig
	}
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid baseURL: %v", ErrInvalidConfig, err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, fmt.Errorf("%w: baseURL scheme must be http or https", ErrInvalidConfig)
	}

	c := &Client{
		baseURL:        strings.TrimSuffix(baseURL, "/"),
		organizationID: organizationID,
		httpClient:     &http.Client{Timeout: 30 * time.Second},
		userAgent:      fmt.Sprintf("minrisk-go-sdk/%s", Version),
		logger:         noopLogger{},
		retryMax:       3,
		retryWaitMin:   500 * time.Millisecond,
		retryWaitMax:   5 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) OrganizationID() string { return c.organizationID }

// Risks returns the risk register sub-client.
func (c *Client) Risks() *RisksClient {
	c.risksOnce.Do(func() { c.risks = &RisksClient{client: c} })
	return c.risks
}

// Alerts returns the intelligence alert sub-client.
func (c *Client) Alerts() *AlertsClient {
	c.alertsOnce.Do(func() { c.alerts = &AlertsClient{client: c} })
	return c.alerts
}

// Periods returns the period snapshot and heatmap sub-client.
func (c *Client) Periods() *PeriodsClient {
	c.periodsOnce.Do(func() { c.periods = &PeriodsClient{client: c} })
	return c.periods
}

// Treatment returns the treatment log sub-client.
func (c *Client) Treatment() *TreatmentClient {
	c.treatmentOnce.Do(func() { c.treatment = &TreatmentClient{client: c} })
	return c.treatment
}

// do performs an HTTP request with retry logic. Batch endpoints answer 422
// when every item failed and chain verification answers 409 when a chain is
// broken; both send a result body rather than an error envelope, which do
// decodes into result alongside the APIError.
func (c *Client) do(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	fullURL := c.baseURL + path

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	var lastErr error
	for attempt := 0; attempt <= c.retryMax; attempt++ {
		if attempt > 0 {
			backoff := c.calculateBackoff(attempt)
			c.logger.Debugf("Retry attempt %d after %v", attempt, backoff)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		var bodyReader io.Reader
		if payload != nil {
			bodyReader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}

		requestID := uuid.New().String()
		req.Header.Set(HeaderOrganization, c.organizationID)
		if c.actor != "" {
			req.Header.Set(HeaderActor, c.actor)
		}
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("X-Request-ID", requestID)

		start := time.Now()
		resp, err := c.httpClient.Do(req)
		duration := time.Since(start)
		if err != nil {
			c.logger.Errorf("Request failed: %v", err)
			lastErr = err
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}

		c.logger.Debugf("%s %s %d (%v)", method, path, resp.StatusCode, duration)

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("failed to read response body: %w", err)
		}

		if resp.StatusCode == http.StatusTooManyRequests && attempt < c.retryMax {
			if seconds, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
				c.logger.Infof("Rate limited, retrying after %d seconds", seconds)
				select {
				case <-time.After(time.Duration(seconds) * time.Second):
					continue
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}

		if resp.StatusCode >= 400 {
			apiErr := &APIError{StatusCode: resp.StatusCode, RequestID: requestID}
			var env errorEnvelope
			if err := json.Unmarshal(respBody, &env); err == nil && env.Error.Code != "" {
				apiErr.Code = env.Error.Code
				apiErr.Message = env.Error.Message
				apiErr.Detail = env.Error.Detail
			} else if bodyCarriesResult(resp.StatusCode) && result != nil && json.Unmarshal(respBody, result) == nil {
				apiErr.Message = http.StatusText(resp.StatusCode)
			} else {
				apiErr.Message = strings.TrimSpace(string(respBody))
			}
			lastErr = apiErr
			if apiErr.IsServerError() {
				continue
			}
			return apiErr
		}

		if result != nil && len(respBody) > 0 {
			if err := json.Unmarshal(respBody, result); err != nil {
				return fmt.Errorf("failed to unmarshal response: %w", err)
			}
		}
		return nil
	}
	return lastErr
}

func bodyCarriesResult(status int) bool {
	return status == http.StatusUnprocessableEntity || status == http.StatusConflict
}

func (c *Client) get(ctx context.Context, path string, result interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, result)
}

func (c *Client) post(ctx context.Context, path string, body interface{}, result interface{}) error {
	return c.do(ctx, http.MethodPost, path, body, result)
}

func (c *Client) put(ctx context.Context, path string, body interface{}, result interface{}) error {
	return c.do(ctx, http.MethodPut, path, body, result)
}

func (c *Client) delete(ctx context.Context, path string, result interface{}) error {
	return c.do(ctx, http.MethodDelete, path, nil, result)
}

func (c *Client) calculateBackoff(attempt int) time.Duration {
	backoff := c.retryWaitMin * time.Duration(1<<uint(attempt-1))
	if backoff > c.retryWaitMax {
		backoff = c.retryWaitMax
	}
	// Add jitter (0-25% of backoff)
	if q := int64(backoff / 4); q > 0 {
		backoff += time.Duration(rand.Int63n(q))
	}
	return backoff
}

//Personal.AI order the ending
