package handlers

import (
	"context"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/shirou/gopsutil/v4/load"
)

// PipelineStatus reports what the health check needs from the running
// capture/identify pipeline. Implemented by pipeline.Pipeline in the
// caller; kept as an interface here so handlers doesn't import pipeline.
type PipelineStatus interface {
	ActiveFlows() int
	IndexLoaded() bool
}

// HealthHandler serves liveness/readiness information.
type HealthHandler struct {
	status    PipelineStatus
	startedAt time.Time
}

// NewHealthHandler constructs a HealthHandler. status may be nil before
// the pipeline has started; Health then reports zero active flows and
// index_loaded false.
func NewHealthHandler(status PipelineStatus) *HealthHandler {
	return &HealthHandler{status: status, startedAt: time.Now()}
}

// HealthOutput is the response body for /healthz.
type HealthOutput struct {
	Body struct {
		Status      string  `json:"status"`
		UptimeS     float64 `json:"uptime_seconds"`
		ActiveFlows int     `json:"active_flows"`
		IndexLoaded bool    `json:"index_loaded"`
		LoadAvg1    float64 `json:"load_avg_1,omitempty"`
	}
}

// Health reports process liveness and basic pipeline status.
func (h *HealthHandler) Health(ctx context.Context, _ *struct{}) (*HealthOutput, error) {
	out := &HealthOutput{}
	out.Body.Status = "ok"
	out.Body.UptimeS = time.Since(h.startedAt).Seconds()

	if h.status != nil {
		out.Body.ActiveFlows = h.status.ActiveFlows()
		out.Body.IndexLoaded = h.status.IndexLoaded()
	}

	if avg, err := load.AvgWithContext(ctx); err == nil {
		out.Body.LoadAvg1 = avg.Load1
	}

	return out, nil
}

// Register registers the health route with the API.
func (h *HealthHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      "GET",
		Path:        "/healthz",
		Summary:     "Health check",
		Description: "Reports process liveness and pipeline status.",
		Tags:        []string{"Health"},
	}, h.Health)
}
