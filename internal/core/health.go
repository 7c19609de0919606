package core

import (
	"context"
	"sync"
	"time"

	"github.com/coregx/fluentdb/internal/logger"
)

// healthPingTimeout bounds a single health check.
const healthPingTimeout = 5 * time.Second

// HealthStatus reports the outcome of the background health checks.
type HealthStatus struct {
	Enabled   bool
	Healthy   bool
	LastCheck time.Time
	LastError error
	// Failures counts consecutive failed checks.
	Failures int
}

// healthChecker pings the live session on a ticker so a dropped connection
// is noticed, and re-established, before the next statement needs it.
type healthChecker struct {
	conn     *connManager
	logger   logger.Logger
	interval time.Duration

	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.RWMutex
	status HealthStatus
}

func newHealthChecker(conn *connManager, log logger.Logger, interval time.Duration) *healthChecker {
	return &healthChecker{
		conn:     conn,
		logger:   log,
		interval: interval,
		done:     make(chan struct{}),
		status:   HealthStatus{Enabled: true, Healthy: true},
	}
}

func (h *healthChecker) start() {
	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go h.run(ctx)
}

func (h *healthChecker) run(ctx context.Context) {
	defer close(h.done)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			h.check(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// check pings once. A manager without a live session is not dialed.
func (h *healthChecker) check(parent context.Context) {
	ctx, cancel := context.WithTimeout(parent, healthPingTimeout)
	defer cancel()

	err := h.conn.ping(ctx)
	if parent.Err() != nil {
		// shutdown interrupted the ping
		return
	}

	h.mu.Lock()
	wasHealthy := h.status.Healthy
	h.status.LastCheck = time.Now()
	h.status.LastError = err
	h.status.Healthy = err == nil
	if err != nil {
		h.status.Failures++
	} else {
		h.status.Failures = 0
	}
	failures := h.status.Failures
	h.mu.Unlock()

	switch {
	case err != nil && wasHealthy:
		h.logger.Warn("database health check failed", "error", err, "interval", h.interval)
	case err != nil:
		h.logger.Debug("database still unhealthy", "error", err, "failures", failures)
	case !wasHealthy:
		h.logger.Info("database healthy again")
	}
}

// shutdown stops the loop and waits for it.
func (h *healthChecker) shutdown() {
	if h.cancel == nil {
		return
	}
	h.cancel()
	<-h.done
}

func (h *healthChecker) snapshot() HealthStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.status
}
