package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Probe is a cheap check that the desktop is still reachable
type Probe func(ctx context.Context) error

// UnhealthyCallback is called when the scanner looks unhealthy
type UnhealthyCallback func(reason string, err error)

// HealthChecker watches scan loop progress. The loop reports each
// finished cycle through RecordActivity; silence longer than the stuck
// timeout, repeated stuckThreshold times, is reported as "scanner_stuck".
type HealthChecker struct {
	ctx              context.Context
	cancel           context.CancelFunc
	wg               sync.WaitGroup
	lastActivityTime time.Time
	stuckCount       int
	stuckThreshold   int
	stuckTimeout     time.Duration
	checkInterval    time.Duration
	probe            Probe
	onUnhealthy      UnhealthyCallback
	mu               sync.RWMutex
}

// NewHealthChecker creates a health checker that reports after
// stuckTimeout without activity
func NewHealthChecker(stuckTimeout time.Duration) *HealthChecker {
	ctx, cancel := context.WithCancel(context.Background())
	if stuckTimeout <= 0 {
		stuckTimeout = 30 * time.Second
	}

	return &HealthChecker{
		ctx:              ctx,
		cancel:           cancel,
		lastActivityTime: time.Now(),
		stuckThreshold:   3,
		stuckTimeout:     stuckTimeout,
		checkInterval:    10 * time.Second,
	}
}

// WithUnhealthyCallback sets the callback for unhealthy events
func (hc *HealthChecker) WithUnhealthyCallback(callback UnhealthyCallback) *HealthChecker {
	hc.onUnhealthy = callback
	return hc
}

// WithCheckInterval sets the probe and stuck check interval
func (hc *HealthChecker) WithCheckInterval(interval time.Duration) *HealthChecker {
	if interval > 0 {
		hc.checkInterval = interval
	}
	return hc
}

// WithStuckThreshold sets how many consecutive stale checks trigger a report
func (hc *HealthChecker) WithStuckThreshold(n int) *HealthChecker {
	if n > 0 {
		hc.stuckThreshold = n
	}
	return hc
}

// WithProbe sets a periodic reachability check
func (hc *HealthChecker) WithProbe(probe Probe) *HealthChecker {
	hc.probe = probe
	return hc
}

// Start begins health monitoring
func (hc *HealthChecker) Start() {
	hc.RecordActivity()
	hc.wg.Add(1)
	go hc.monitor()
}

// Stop stops health monitoring
func (hc *HealthChecker) Stop() {
	hc.cancel()
	hc.wg.Wait()
}

// RecordActivity marks progress of the scan loop
func (hc *HealthChecker) RecordActivity() {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.lastActivityTime = time.Now()
	hc.stuckCount = 0
}

// LastActivity returns when progress was last recorded
func (hc *HealthChecker) LastActivity() time.Time {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	return hc.lastActivityTime
}

func (hc *HealthChecker) monitor() {
	defer hc.wg.Done()

	ticker := time.NewTicker(hc.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-hc.ctx.Done():
			return
		case <-ticker.C:
			hc.checkIfStuck()
			hc.runProbe()
		}
	}
}

func (hc *HealthChecker) checkIfStuck() {
	hc.mu.Lock()
	timeSinceActivity := time.Since(hc.lastActivityTime)

	if timeSinceActivity <= hc.stuckTimeout {
		hc.stuckCount = 0
		hc.mu.Unlock()
		return
	}

	hc.stuckCount++
	if hc.stuckCount < hc.stuckThreshold {
		hc.mu.Unlock()
		return
	}
	// Reset counter after triggering
	hc.stuckCount = 0
	hc.mu.Unlock()

	hc.report("scanner_stuck", fmt.Errorf("no completed scan cycle for %v", timeSinceActivity.Round(time.Second)))
}

func (hc *HealthChecker) runProbe() {
	if hc.probe == nil {
		return
	}

	ctx, cancel := context.WithTimeout(hc.ctx, 5*time.Second)
	defer cancel()

	if err := hc.probe(ctx); err != nil && hc.ctx.Err() == nil {
		hc.report("desktop_unreachable", err)
	}
}

func (hc *HealthChecker) report(reason string, err error) {
	if hc.onUnhealthy != nil {
		hc.onUnhealthy(reason, err)
	}
}
