// Package health serves liveness and readiness probes for the sync service.
package health

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
)

// Pinger is anything the readiness probe can check: the database, redis, the
// target API.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

type CheckResult struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

type Response struct {
	Status     Status                 `json:"status"`
	Version    string                 `json:"version,omitempty"`
	Uptime     string                 `json:"uptime,omitempty"`
	Checks     map[string]CheckResult `json:"checks,omitempty"`
	LastRun    string                 `json:"last_run,omitempty"`
	ReportedAt time.Time              `json:"reported_at"`
}

type Checker struct {
	checks    map[string]Pinger
	lastRun   func(ctx context.Context) string
	startTime time.Time
	version   string
	timeout   time.Duration

	mu    sync.RWMutex
	ready bool
}

func NewChecker(version string) *Checker {
	return &Checker{
		checks:    map[string]Pinger{},
		startTime: time.Now(),
		version:   version,
		timeout:   5 * time.Second,
	}
}

// AddCheck registers a dependency checked on every readiness probe.
func (c *Checker) AddCheck(name string, p Pinger) *Checker {
	c.checks[name] = p
	return c
}

// WithLastRun reports the last batch summary on the readiness response.
func (c *Checker) WithLastRun(fn func(ctx context.Context) string) *Checker {
	c.lastRun = fn
	return c
}

func (c *Checker) SetReady(ready bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ready = ready
}

func (c *Checker) IsReady() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ready
}

func (c *Checker) LivenessHandler(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, Response{
		Status:     StatusHealthy,
		Version:    c.version,
		Uptime:     c.uptime(),
		ReportedAt: time.Now(),
	})
}

func (c *Checker) ReadinessHandler(ctx echo.Context) error {
	if !c.IsReady() {
		return ctx.JSON(http.StatusServiceUnavailable, Response{
			Status:     StatusUnhealthy,
			Version:    c.version,
			Checks:     map[string]CheckResult{"startup": {Status: StatusUnhealthy, Message: "service is still starting up"}},
			ReportedAt: time.Now(),
		})
	}

	reqCtx := ctx.Request().Context()
	checks := c.runChecks(reqCtx)
	status := overallStatus(checks)

	statusCode := http.StatusOK
	if status == StatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	resp := Response{
		Status:     status,
		Version:    c.version,
		Uptime:     c.uptime(),
		Checks:     checks,
		ReportedAt: time.Now(),
	}
	if c.lastRun != nil {
		resp.LastRun = c.lastRun(reqCtx)
	}

	return ctx.JSON(statusCode, resp)
}

func (c *Checker) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", c.LivenessHandler)
	e.GET("/readyz", c.ReadinessHandler)
}

func (c *Checker) runChecks(ctx context.Context) map[string]CheckResult {
	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make(map[string]CheckResult, len(names))
	for _, name := range names {
		results[name] = c.check(ctx, c.checks[name])
	}
	return results
}

func (c *Checker) check(ctx context.Context, p Pinger) CheckResult {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := p.Ping(ctx); err != nil {
		return CheckResult{Status: StatusUnhealthy, Message: err.Error(), Latency: time.Since(start).String()}
	}
	return CheckResult{Status: StatusHealthy, Latency: time.Since(start).String()}
}

func (c *Checker) uptime() string {
	return time.Since(c.startTime).Round(time.Second).String()
}

func overallStatus(checks map[string]CheckResult) Status {
	for _, check := range checks {
		if check.Status == StatusUnhealthy {
			return StatusUnhealthy
		}
	}
	return StatusHealthy
}
