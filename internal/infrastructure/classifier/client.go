// Package classifier calls the external event classifier over HTTP.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aonawunmi/New-MinRisk-sub016/internal/config"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/domain/intelligence"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/domain/risk"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/infrastructure/monitoring/logging"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/infrastructure/monitoring/prometheus"
	apperrors "github.com/aonawunmi/New-MinRisk-sub016/pkg/errors"
)

const classifyPath = "/v1/classify"

// APIError is a non-2xx classifier response.
type APIError struct {
	StatusCode int
	Message    string
	RequestID  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("classifier: HTTP %d: %s [request_id=%s]", e.StatusCode, e.Message, e.RequestID)
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithRetryMax(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.retryMax = n
		}
	}
}

// WithRetryWait sets the backoff window. max is ignored when below min.
func WithRetryWait(min, max time.Duration) Option {
	return func(c *Client) {
		if min > 0 {
			c.retryWaitMin = min
			if max >= min {
				c.retryWaitMax = max
			}
		}
	}
}

func WithMetrics(m *prometheus.AppMetrics) Option {
	return func(c *Client) { c.metrics = m }
}

// Client implements intelligence.Classifier.
type Client struct {
	baseURL      string
	apiKey       string
	httpClient   *http.Client
	logger       logging.Logger
	metrics      *prometheus.AppMetrics
	retryMax     int
	retryWaitMin time.Duration
	retryWaitMax time.Duration
}

var _ intelligence.Classifier = (*Client)(nil)

func NewClient(cfg config.ClassifierConfig, log logging.Logger, opts ...Option) (*Client, error) {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, apperrors.NewValidation("classifier.base_url must be an http(s) URL, got %q", cfg.BaseURL)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.DefaultClassifierTimeout
	}
	c := &Client{
		baseURL:      strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:       cfg.APIKey,
		httpClient:   &http.Client{Timeout: timeout},
		logger:       log,
		metrics:      prometheus.NewNopAppMetrics(),
		retryMax:     2,
		retryWaitMin: 250 * time.Millisecond,
		retryWaitMax: 4 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type riskDoc struct {
	RiskCode    string `json:"risk_code"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category"`
	Likelihood  int    `json:"likelihood"`
	Impact      int    `json:"impact"`
}

type eventDoc struct {
	Source        string    `json:"source"`
	EventType     string    `json:"event_type"`
	Title         string    `json:"title"`
	Summary       string    `json:"summary,omitempty"`
	URL           string    `json:"url,omitempty"`
	PublishedDate time.Time `json:"published_date"`
}

type classifyRequest struct {
	Risk  riskDoc  `json:"risk"`
	Event eventDoc `json:"event"`
}

// Classify asks the classifier how ev bears on r. Transport errors, 5xx and
// 429 responses are retried; any final failure is ALR_003.
func (c *Client) Classify(ctx context.Context, r *risk.Risk, ev *intelligence.ExternalEvent) (*intelligence.ClassificationResult, error) {
	body, err := json.Marshal(classifyRequest{
		Risk: riskDoc{
			RiskCode:    r.RiskCode,
			Title:       r.Title,
			Description: r.Description,
			Category:    r.Category,
			Likelihood:  r.LikelihoodInherent,
			Impact:      r.ImpactInherent,
		},
		Event: eventDoc{
			Source:        ev.Source,
			EventType:     ev.EventType,
			Title:         ev.Title,
			Summary:       ev.Summary,
			URL:           ev.URL,
			PublishedDate: ev.PublishedDate,
		},
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeSerialization, "encode classify request")
	}

	start := time.Now()
	var out intelligence.ClassificationResult
	err = c.do(ctx, body, &out)
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.metrics.ClassifierDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeClassifierUnavailable, "classifier call failed").
			WithDetail("risk_code=" + r.RiskCode)
	}
	if err := out.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeClassifierUnavailable, "classifier returned an invalid result")
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, body []byte, result interface{}) error {
	var lastErr error
	for attempt := 0; attempt <= c.retryMax; attempt++ {
		if attempt > 0 {
			wait := c.backoff(attempt)
			if apiErr, ok := lastErr.(*retryAfterError); ok {
				wait = apiErr.after
			}
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+classifyPath, bytes.NewReader(body))
		if err != nil {
			return err
		}
		requestID := uuid.NewString()
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		req.Header.Set("X-Request-ID", requestID)
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Warn("Classifier request failed", logging.Int("attempt", attempt), logging.Err(err))
			lastErr = err
			continue
		}
		respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode >= 300 {
			apiErr := &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody)), RequestID: requestID}
			if !retryable(resp.StatusCode) {
				return apiErr
			}
			c.logger.Warn("Classifier returned retryable status",
				logging.Int("status", resp.StatusCode), logging.Int("attempt", attempt))
			lastErr = apiErr
			if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs >= 0 {
				lastErr = &retryAfterError{APIError: apiErr, after: time.Duration(secs) * time.Second}
			}
			continue
		}

		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decode classifier response: %w", err)
		}
		return nil
	}
	return lastErr
}

type retryAfterError struct {
	*APIError
	after time.Duration
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// backoff is exponential with full jitter, capped at retryWaitMax.
func (c *Client) backoff(attempt int) time.Duration {
	d := c.retryWaitMin << (attempt - 1)
	if d <= 0 || d > c.retryWaitMax {
		d = c.retryWaitMax
	}
	return c.retryWaitMin/2 + time.Duration(rand.Int63n(int64(d)))
}

//Personal.AI order the ending
