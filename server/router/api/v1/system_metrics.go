package v1

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/studyhub/server/internal/observability"
)

// MetricsOverviewResponse represents the overview response of request metrics.
type MetricsOverviewResponse struct {
	TotalRequests int64                                          `json:"total_requests"`
	SuccessRate   float64                                        `json:"success_rate"`
	P50LatencyMs  int64                                          `json:"p50_latency_ms"`
	P95LatencyMs  int64                                          `json:"p95_latency_ms"`
	ErrorCount    int64                                          `json:"error_count"`
	Routes        map[string]*observability.RouteMetricsSnapshot `json:"routes,omitempty"`
}

// GetMetricsOverview returns request counts and latencies since startup.
// GET /api/v1/system/metrics
func (s *APIV1Service) GetMetricsOverview(c echo.Context) error {
	route := c.QueryParam("route")
	snapshot := s.Metrics.Snapshot()
	response := MetricsOverviewResponse{
		TotalRequests: snapshot.RequestTotal,
		SuccessRate:   snapshot.SuccessRate(),
		P50LatencyMs:  snapshot.P50LatencyMs,
		P95LatencyMs:  snapshot.P95LatencyMs,
		ErrorCount:    snapshot.RequestFailed,
		Routes:        snapshot.Routes,
	}
	if route != "" {
		routeSnapshot, ok := snapshot.Routes[route]
		if !ok {
			slog.Warn("Unknown route in metrics request", "route", route)
			return echo.NewHTTPError(http.StatusNotFound, fmt.Sprintf("no metrics for route %s", route))
		}
		response.Routes = map[string]*observability.RouteMetricsSnapshot{route: routeSnapshot}
	}
	return c.JSON(http.StatusOK, response)
}
