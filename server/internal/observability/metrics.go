package observability

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics collects per-strategy turn counters.
type Metrics struct {
	mu sync.Mutex

	requestTotal  atomic.Int64
	requestFailed atomic.Int64
	streamEvents  atomic.Int64

	agentMetrics map[string]*AgentMetrics
}

// AgentMetrics represents metrics for a specific agent type.
type AgentMetrics struct {
	executionCount atomic.Int64
	totalDuration  atomic.Int64 // milliseconds
	errorCount     atomic.Int64
}

// NewMetrics creates a new metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{agentMetrics: make(map[string]*AgentMetrics)}
}

var globalMetrics = NewMetrics()

// GlobalMetrics returns the global metrics instance.
func GlobalMetrics() *Metrics {
	return globalMetrics
}

// RecordTurn records a finished turn for agentType.
func (m *Metrics) RecordTurn(agentType string, duration time.Duration, failed bool) {
	m.requestTotal.Add(1)
	am := m.getAgentMetrics(agentType)
	am.executionCount.Add(1)
	am.totalDuration.Add(duration.Milliseconds())
	if failed {
		m.requestFailed.Add(1)
		am.errorCount.Add(1)
	}
}

// RecordStreamEvent records one client event sent.
func (m *Metrics) RecordStreamEvent() {
	m.streamEvents.Add(1)
}

func (m *Metrics) getAgentMetrics(agentType string) *AgentMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	am, ok := m.agentMetrics[agentType]
	if !ok {
		am = &AgentMetrics{}
		m.agentMetrics[agentType] = am
	}
	return am
}

// Reset resets all metrics (useful for testing).
func (m *Metrics) Reset() {
	m.requestTotal.Store(0)
	m.requestFailed.Store(0)
	m.streamEvents.Store(0)

	m.mu.Lock()
	m.agentMetrics = make(map[string]*AgentMetrics)
	m.mu.Unlock()
}

// Snapshot returns a snapshot of current metrics.
func (m *Metrics) Snapshot() *MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	agents := make(map[string]*AgentMetricsSnapshot, len(m.agentMetrics))
	for agentType, am := range m.agentMetrics {
		s := &AgentMetricsSnapshot{
			ExecutionCount: am.executionCount.Load(),
			TotalDuration:  am.totalDuration.Load(),
			ErrorCount:     am.errorCount.Load(),
		}
		if s.ExecutionCount > 0 {
			s.AverageDuration = s.TotalDuration / s.ExecutionCount
		}
		agents[agentType] = s
	}

	return &MetricsSnapshot{
		RequestTotal:  m.requestTotal.Load(),
		RequestFailed: m.requestFailed.Load(),
		StreamEvents:  m.streamEvents.Load(),
		AgentMetrics:  agents,
	}
}

// MetricsSnapshot represents a point-in-time snapshot of metrics.
type MetricsSnapshot struct {
	RequestTotal  int64                            `json:"request_total"`
	RequestFailed int64                            `json:"request_failed"`
	StreamEvents  int64                            `json:"stream_events"`
	AgentMetrics  map[string]*AgentMetricsSnapshot `json:"agents"`
}

// AgentMetricsSnapshot represents metrics for a specific agent.
type AgentMetricsSnapshot struct {
	ExecutionCount  int64 `json:"execution_count"`
	TotalDuration   int64 `json:"total_duration_ms"`
	ErrorCount      int64 `json:"error_count"`
	AverageDuration int64 `json:"average_duration_ms"`
}

// SuccessRate returns the success rate as a percentage (0-100).
func (s *MetricsSnapshot) SuccessRate() float64 {
	if s.RequestTotal == 0 {
		return 100.0
	}
	return float64(s.RequestTotal-s.RequestFailed) / float64(s.RequestTotal) * 100.0
}
