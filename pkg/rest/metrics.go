package rest

import (
	"sort"
	"sync"
	"time"
)

// Metrics are the counters of one method.
type Metrics struct {
	TotalRequests   int64
	TotalErrors     int64
	TotalFallbacks  int64
	TotalRetries    int64
	TotalLatency    time.Duration
	AverageLatency  time.Duration
	LastRequestTime time.Time
}

// MetricsCollector collects per-descriptor call metrics.
type MetricsCollector struct {
	mutex    sync.Mutex
	metrics  map[string]*Metrics
	onChange func(method string, metrics Metrics)
}

// NewMetricsCollector creates a new metrics collector.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		metrics: make(map[string]*Metrics),
	}
}

// SetOnChange sets a callback for when metrics change. The callback receives
// a copy and runs outside the collector lock.
func (m *MetricsCollector) SetOnChange(fn func(method string, metrics Metrics)) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.onChange = fn
}

// GetMetrics returns a copy of the metrics of a method, or nil.
func (m *MetricsCollector) GetMetrics(method string) *Metrics {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	metrics, ok := m.metrics[method]
	if !ok {
		return nil
	}

	snapshot := *metrics

	return &snapshot
}

// Methods returns the IDs of every method with recorded calls, sorted.
func (m *MetricsCollector) Methods() []string {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	methods := make([]string, 0, len(m.metrics))
	for method := range m.metrics {
		methods = append(methods, method)
	}

	sort.Strings(methods)

	return methods
}

// callRecord is what the invoker reports for one call.
type callRecord struct {
	started  time.Time
	failed   bool
	fallback bool
	retries  int
}

func (m *MetricsCollector) record(method string, call callRecord) {
	if m == nil {
		return
	}

	m.mutex.Lock()

	metrics, ok := m.metrics[method]
	if !ok {
		metrics = &Metrics{}
		m.metrics[method] = metrics
	}

	metrics.TotalRequests++
	metrics.LastRequestTime = time.Now()
	metrics.TotalLatency += metrics.LastRequestTime.Sub(call.started)
	metrics.AverageLatency = metrics.TotalLatency / time.Duration(metrics.TotalRequests)
	metrics.TotalRetries += int64(call.retries)

	if call.failed {
		metrics.TotalErrors++
	}

	if call.fallback {
		metrics.TotalFallbacks++
	}

	snapshot := *metrics
	onChange := m.onChange

	m.mutex.Unlock()

	if onChange != nil {
		onChange(method, snapshot)
	}
}
