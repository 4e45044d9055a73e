// Package health serves liveness and readiness endpoints for the valuation service.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

// FeedPinger checks that the odds feed is reachable.
type FeedPinger interface {
	Ping(ctx context.Context) error
}

// HealthResponse represents the JSON response for health check endpoints.
type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Timestamp string `json:"timestamp,omitempty"`
	Version   string `json:"version,omitempty"`
}

// ReadyResponse represents the JSON response for readiness check endpoints.
type ReadyResponse struct {
	Status   string            `json:"status"`
	Service  string            `json:"service"`
	Checks   map[string]string `json:"checks,omitempty"`
	Duration string            `json:"duration,omitempty"`
}

// Checker answers /health, /live and /ready.
type Checker struct {
	serviceName string
	version     string
	logger      *logrus.Logger
	feed        FeedPinger
	timeout     time.Duration
	mu          sync.RWMutex
	ready       bool
}

// Config holds the configuration for the health checker.
type Config struct {
	ServiceName string
	Version     string
	Logger      *logrus.Logger
	Feed        FeedPinger
	// PingTimeout bounds the feed check; defaults to 3s.
	PingTimeout time.Duration
}

// NewChecker creates a checker that starts out not ready.
func NewChecker(cfg Config) *Checker {
	timeout := cfg.PingTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	return &Checker{
		serviceName: cfg.ServiceName,
		version:     cfg.Version,
		logger:      cfg.Logger,
		feed:        cfg.Feed,
		timeout:     timeout,
	}
}

// SetReady marks the service as ready to accept traffic.
func (c *Checker) SetReady(ready bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ready = ready
}

// IsReady returns whether the service is ready.
func (c *Checker) IsReady() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ready
}

// Register mounts the health endpoints on r.
func (c *Checker) Register(r chi.Router) {
	r.Get("/health", c.handleHealth)
	r.Get("/live", c.handleLive)
	r.Get("/ready", c.handleReady)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// handleHealth handles the /health endpoint - basic liveness check.
func (c *Checker) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Service:   c.serviceName,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   c.version,
	})
}

func (c *Checker) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Service: c.serviceName})
}

// handleReady handles the /ready endpoint - checks the odds feed.
func (c *Checker) handleReady(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	checks := make(map[string]string)
	allHealthy := true

	if !c.IsReady() {
		allHealthy = false
		checks["service"] = "not_ready"
	} else {
		checks["service"] = "ok"
	}

	if c.feed != nil {
		ctx, cancel := context.WithTimeout(r.Context(), c.timeout)
		defer cancel()

		if err := c.feed.Ping(ctx); err != nil {
			allHealthy = false
			checks["feed"] = fmt.Sprintf("error: %v", err)
			if c.logger != nil {
				c.logger.WithError(err).Warn("Odds feed readiness check failed")
			}
		} else {
			checks["feed"] = "ok"
		}
	}

	response := ReadyResponse{
		Service:  c.serviceName,
		Checks:   checks,
		Duration: time.Since(start).String(),
	}

	if allHealthy {
		response.Status = "ok"
		writeJSON(w, http.StatusOK, response)
		return
	}
	response.Status = "not_ready"
	writeJSON(w, http.StatusServiceUnavailable, response)
}
