// Package metrics is a small in-process metrics collector exposed over
// the status API.
package metrics

import (
	"sync"
	"time"
)

// Counter names recorded by the pipeline.
const (
	CounterOrdersProcessed = "orders_processed"
	CounterFilesWritten    = "files_written"
	CounterLabelsReal      = "labels_real"
	CounterLabelsMock      = "labels_mock"
	CounterLabelsEmpty     = "labels_empty"
	CounterPublishFailures = "publish_failures"
	CounterNotifyFailures  = "notify_failures"
	CounterRunFailures     = "run_failures"
)

// TimerMetric captures timing information for one named operation.
type TimerMetric struct {
	Count         int64   `json:"count"`
	TotalTimeMs   int64   `json:"total_time_ms"`
	AverageTimeMs float64 `json:"average_time_ms"`
	MinTimeMs     int64   `json:"min_time_ms"`
	MaxTimeMs     int64   `json:"max_time_ms"`
}

// Metrics is the main metrics collector. Safe for concurrent use.
type Metrics struct {
	mu        sync.RWMutex
	counters  map[string]int64
	timers    map[string]*timerState
	health    map[string]bool
	startTime time.Time
}

type timerState struct {
	count       int64
	totalTimeMs int64
	minTimeMs   int64
	maxTimeMs   int64
}

// NewMetrics creates a new metrics collector
func NewMetrics() *Metrics {
	return &Metrics{
		counters:  make(map[string]int64),
		timers:    make(map[string]*timerState),
		health:    make(map[string]bool),
		startTime: time.Now(),
	}
}

// IncrementCounter increments a counter by 1
func (m *Metrics) IncrementCounter(name string) {
	m.IncrementCounterBy(name, 1)
}

// IncrementCounterBy increments a counter by the specified value
func (m *Metrics) IncrementCounterBy(name string, value int64) {
	m.mu.Lock()
	m.counters[name] += value
	m.mu.Unlock()
}

// RecordTimer records a timing measurement
func (m *Metrics) RecordTimer(name string, duration time.Duration) {
	ms := duration.Milliseconds()

	m.mu.Lock()
	defer m.mu.Unlock()

	timer, ok := m.timers[name]
	if !ok {
		timer = &timerState{minTimeMs: ms, maxTimeMs: ms}
		m.timers[name] = timer
	}
	timer.count++
	timer.totalTimeMs += ms
	if ms < timer.minTimeMs {
		timer.minTimeMs = ms
	}
	if ms > timer.maxTimeMs {
		timer.maxTimeMs = ms
	}
}

// SetHealth sets the health status of a component
func (m *Metrics) SetHealth(component string, healthy bool) {
	m.mu.Lock()
	m.health[component] = healthy
	m.mu.Unlock()
}

// GetCounters returns all counters
func (m *Metrics) GetCounters() map[string]int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counters := make(map[string]int64, len(m.counters))
	for name, value := range m.counters {
		counters[name] = value
	}
	return counters
}

// GetTimers returns all timers
func (m *Metrics) GetTimers() map[string]TimerMetric {
	m.mu.RLock()
	defer m.mu.RUnlock()

	timers := make(map[string]TimerMetric, len(m.timers))
	for name, timer := range m.timers {
		var average float64
		if timer.count > 0 {
			average = float64(timer.totalTimeMs) / float64(timer.count)
		}
		timers[name] = TimerMetric{
			Count:         timer.count,
			TotalTimeMs:   timer.totalTimeMs,
			AverageTimeMs: average,
			MinTimeMs:     timer.minTimeMs,
			MaxTimeMs:     timer.maxTimeMs,
		}
	}
	return timers
}

// GetHealthChecks returns all health checks
func (m *Metrics) GetHealthChecks() map[string]bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	checks := make(map[string]bool, len(m.health))
	for name, healthy := range m.health {
		checks[name] = healthy
	}
	return checks
}

// GetUptimeSeconds returns the service uptime in seconds
func (m *Metrics) GetUptimeSeconds() int64 {
	return int64(time.Since(m.startTime).Seconds())
}

// GetAllMetrics returns all metrics in a structured format
func (m *Metrics) GetAllMetrics() map[string]interface{} {
	return map[string]interface{}{
		"uptime_seconds": m.GetUptimeSeconds(),
		"counters":       m.GetCounters(),
		"timers":         m.GetTimers(),
		"health_checks":  m.GetHealthChecks(),
	}
}
