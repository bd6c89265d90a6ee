package monitoring

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"
)

// HealthStatus represents the overall health status
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// ComponentHealth represents the health of a single component
type ComponentHealth struct {
	Status      HealthStatus `json:"status"`
	Message     string       `json:"message,omitempty"`
	Latency     *int64       `json:"latency_ms,omitempty"`
	LastChecked time.Time    `json:"last_checked"`
}

// HealthResponse represents the complete health check response
type HealthResponse struct {
	Status     HealthStatus               `json:"status"`
	Service    string                     `json:"service"`
	Version    string                     `json:"version"`
	Timestamp  time.Time                  `json:"timestamp"`
	Components map[string]ComponentHealth `json:"components"`
	System     SystemInfo                 `json:"system"`
}

// SystemInfo represents process-level information
type SystemInfo struct {
	Goroutines int    `json:"goroutines"`
	CPUCount   int    `json:"cpu_count"`
	GoVersion  string `json:"go_version"`
	AllocBytes uint64 `json:"alloc_bytes"`
}

// CheckFunc checks one dependency; nil means reachable
type CheckFunc func(ctx context.Context) error

type registeredCheck struct {
	check     CheckFunc
	slowAfter time.Duration
}

// HealthChecker runs checks against the backend and the decision store
type HealthChecker struct {
	mu       sync.RWMutex
	service  string
	version  string
	checks   map[string]registeredCheck
	timeout  time.Duration
	lastSeen map[string]ComponentHealth
}

// NewHealthChecker creates a new health checker
func NewHealthChecker(service, version string) *HealthChecker {
	return &HealthChecker{
		service:  service,
		version:  version,
		checks:   make(map[string]registeredCheck),
		timeout:  10 * time.Second,
		lastSeen: make(map[string]ComponentHealth),
	}
}

// RegisterCheck adds a named check. A check that succeeds but takes longer
// than slowAfter reports degraded; zero disables that.
func (hc *HealthChecker) RegisterCheck(name string, check CheckFunc, slowAfter time.Duration) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.checks[name] = registeredCheck{check: check, slowAfter: slowAfter}
}

// Components returns the registered check names in order
func (hc *HealthChecker) Components() []string {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	names := make([]string, 0, len(hc.checks))
	for name := range hc.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Check runs every check concurrently and aggregates the result
func (hc *HealthChecker) Check(ctx context.Context) HealthResponse {
	hc.mu.RLock()
	checks := make(map[string]registeredCheck, len(hc.checks))
	for name, p := range hc.checks {
		checks[name] = p
	}
	timeout := hc.timeout
	hc.mu.RUnlock()

	results := make(map[string]ComponentHealth, len(checks))
	var (
		wg      sync.WaitGroup
		resultM sync.Mutex
	)
	for name, p := range checks {
		wg.Add(1)
		go func(name string, p registeredCheck) {
			defer wg.Done()
			health := runCheck(ctx, p, timeout)
			resultM.Lock()
			results[name] = health
			resultM.Unlock()
		}(name, p)
	}
	wg.Wait()

	overall := HealthStatusHealthy
	for _, component := range results {
		if component.Status == HealthStatusUnhealthy {
			overall = HealthStatusUnhealthy
			break
		} else if component.Status == HealthStatusDegraded {
			overall = HealthStatusDegraded
		}
	}

	hc.mu.Lock()
	for name, health := range results {
		hc.lastSeen[name] = health
	}
	hc.mu.Unlock()

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return HealthResponse{
		Status:     overall,
		Service:    hc.service,
		Version:    hc.version,
		Timestamp:  time.Now(),
		Components: results,
		System: SystemInfo{
			Goroutines: runtime.NumGoroutine(),
			CPUCount:   runtime.NumCPU(),
			GoVersion:  runtime.Version(),
			AllocBytes: memStats.Alloc,
		},
	}
}

// Last returns the most recent result for a component
func (hc *HealthChecker) Last(name string) (ComponentHealth, bool) {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	h, ok := hc.lastSeen[name]
	return h, ok
}

func runCheck(ctx context.Context, p registeredCheck, timeout time.Duration) ComponentHealth {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	err := p.check(ctx)
	latency := time.Since(start).Milliseconds()

	if err != nil {
		return ComponentHealth{
			Status:      HealthStatusUnhealthy,
			Message:     fmt.Sprintf("check failed: %v", err),
			Latency:     &latency,
			LastChecked: time.Now(),
		}
	}

	status := HealthStatusHealthy
	message := "reachable"
	if p.slowAfter > 0 && time.Duration(latency)*time.Millisecond > p.slowAfter {
		status = HealthStatusDegraded
		message = "reachable but slow"
	}
	return ComponentHealth{
		Status:      status,
		Message:     message,
		Latency:     &latency,
		LastChecked: time.Now(),
	}
}
