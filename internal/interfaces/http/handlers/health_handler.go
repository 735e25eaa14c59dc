package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"
)

const (
	componentHealthy   = "healthy"
	componentUnhealthy = "unhealthy"

	readinessTimeout = 5 * time.Second
	detailTimeout    = 10 * time.Second
)

// HealthChecker reports on one backend the engine depends on.
type HealthChecker interface {
	Name() string
	Check(ctx context.Context) error
}

// CheckFunc adapts a ping function, such as the Postgres or Redis client
// health checks, to HealthChecker. Optional backends (the snapshot archive)
// are reported but never make the process unready.
type CheckFunc struct {
	Label    string
	Fn       func(ctx context.Context) error
	Optional bool
}

func (c CheckFunc) Name() string                    { return c.Label }
func (c CheckFunc) Check(ctx context.Context) error { return c.Fn(ctx) }

type optionalChecker interface {
	IsOptional() bool
}

func (c CheckFunc) IsOptional() bool { return c.Optional }

// HealthHandler serves the liveness, readiness and detail probes.
type HealthHandler struct {
	checkers []HealthChecker
	version  string
	startAt  time.Time
}

func NewHealthHandler(version string, checkers ...HealthChecker) *HealthHandler {
	return &HealthHandler{checkers: checkers, version: version, startAt: time.Now()}
}

// RegisterRoutes registers the probe routes outside /api/v1.
func (h *HealthHandler) RegisterRoutes(r chi.Router) {
	r.Get("/healthz", h.Liveness)
	r.Get("/readyz", h.Readiness)
	r.Get("/healthz/detail", h.Detailed)
}

type LivenessResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
}

type ReadinessResponse struct {
	Status     string                    `json:"status"`
	Components map[string]ComponentCheck `json:"components,omitempty"`
}

type DetailedResponse struct {
	Status     string                    `json:"status"`
	Version    string                    `json:"version"`
	Uptime     string                    `json:"uptime"`
	Components map[string]ComponentCheck `json:"components"`
}

// ComponentCheck is the outcome of one checker.
type ComponentCheck struct {
	Status   string `json:"status"`
	Latency  string `json:"latency,omitempty"`
	Error    string `json:"error,omitempty"`
	Optional bool   `json:"optional,omitempty"`
}

// Liveness always answers 200 while the process runs.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, LivenessResponse{Status: "alive", Version: h.version, Uptime: h.uptime()})
}

// Readiness answers 503 when a required backend is down.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if len(h.checkers) == 0 {
		writeJSON(w, http.StatusOK, ReadinessResponse{Status: "ready"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	components, ready, _ := h.evaluate(ctx)
	if !ready {
		writeJSON(w, http.StatusServiceUnavailable, ReadinessResponse{Status: "not_ready", Components: components})
		return
	}
	writeJSON(w, http.StatusOK, ReadinessResponse{Status: "ready", Components: components})
}

// Detailed reports every component. An optional backend being down shows as
// "degraded" with a 200; a required one as "unhealthy" with a 503.
func (h *HealthHandler) Detailed(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), detailTimeout)
	defer cancel()

	components, ready, allUp := h.evaluate(ctx)
	resp := DetailedResponse{Status: componentHealthy, Version: h.version, Uptime: h.uptime(), Components: components}
	code := http.StatusOK
	switch {
	case !ready:
		resp.Status = componentUnhealthy
		code = http.StatusServiceUnavailable
	case !allUp:
		resp.Status = "degraded"
	}
	writeJSON(w, code, resp)
}

func (h *HealthHandler) uptime() string {
	return time.Since(h.startAt).Truncate(time.Second).String()
}

// evaluate runs every checker concurrently. ready is false when a required
// checker failed; allUp is false when any checker failed.
func (h *HealthHandler) evaluate(ctx context.Context) (components map[string]ComponentCheck, ready, allUp bool) {
	components = make(map[string]ComponentCheck, len(h.checkers))
	var mu sync.Mutex
	var g errgroup.Group
	for _, c := range h.checkers {
		c := c
		g.Go(func() error {
			start := time.Now()
			err := c.Check(ctx)
			cc := ComponentCheck{
				Status:  componentHealthy,
				Latency: time.Since(start).Truncate(time.Microsecond).String(),
			}
			if oc, ok := c.(optionalChecker); ok {
				cc.Optional = oc.IsOptional()
			}
			if err != nil {
				cc.Status = componentUnhealthy
				cc.Error = err.Error()
			}
			mu.Lock()
			components[c.Name()] = cc
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	ready, allUp = true, true
	for _, cc := range components {
		if cc.Status == componentHealthy {
			continue
		}
		allUp = false
		if !cc.Optional {
			ready = false
		}
	}
	return components, ready, allUp
}

//Personal.AI order the ending
