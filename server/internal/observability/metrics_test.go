package observability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetrics_RecordTurn(t *testing.T) {
	m := NewMetrics()
	m.RecordTurn("charts", 100*time.Millisecond, false)
	m.RecordTurn("charts", 300*time.Millisecond, true)
	m.RecordTurn("general", 50*time.Millisecond, false)
	m.RecordStreamEvent()

	s := m.Snapshot()
	assert.Equal(t, int64(3), s.RequestTotal)
	assert.Equal(t, int64(1), s.RequestFailed)
	assert.Equal(t, int64(1), s.StreamEvents)
	assert.Equal(t, int64(2), s.AgentMetrics["charts"].ExecutionCount)
	assert.Equal(t, int64(200), s.AgentMetrics["charts"].AverageDuration)
	assert.InDelta(t, 66.67, s.SuccessRate(), 0.01)

	m.Reset()
	assert.Equal(t, 100.0, m.Snapshot().SuccessRate())
}
