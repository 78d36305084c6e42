package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/divinecanvas/server/internal/observability"
)

// MetricsOverviewResponse represents the overview response of turn metrics.
type MetricsOverviewResponse struct {
	TotalRequests int64                                          `json:"total_requests"`
	SuccessRate   float64                                        `json:"success_rate"`
	ErrorCount    int64                                          `json:"error_count"`
	StreamEvents  int64                                          `json:"stream_events"`
	Agents        map[string]*observability.AgentMetricsSnapshot `json:"agents"`
}

// GetMetricsOverview returns turn counters since process start.
// GET /api/metrics/overview
func (s *APIV1Service) GetMetricsOverview(c echo.Context) error {
	snapshot := observability.GlobalMetrics().Snapshot()
	return c.JSON(http.StatusOK, MetricsOverviewResponse{
		TotalRequests: snapshot.RequestTotal,
		SuccessRate:   snapshot.SuccessRate(),
		ErrorCount:    snapshot.RequestFailed,
		StreamEvents:  snapshot.StreamEvents,
		Agents:        snapshot.AgentMetrics,
	})
}
