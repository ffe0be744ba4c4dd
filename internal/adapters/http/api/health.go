package api

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bezboss20/Dashboard-sub001/internal/domain/types"
	"github.com/bezboss20/Dashboard-sub001/pkg/metrics"
)

// opsSource is the part of the monitor the operational endpoints read.
type opsSource interface {
	View() *types.View
	Stats(ctx context.Context) map[string]any
}

// OpsHandler serves liveness, runtime stats and metrics.
type OpsHandler struct {
	src opsSource
}

// NewOpsHandler creates an operational endpoints handler.
func NewOpsHandler(src opsSource) *OpsHandler {
	return &OpsHandler{src: src}
}

type healthResponse struct {
	Status    string    `json:"status"`
	Stale     bool      `json:"stale"`
	UpdatedAt time.Time `json:"updatedAt,omitzero"`
}

// HandleHealth handles GET /healthz. A stale view still answers 200; the
// process is alive and serving the last good data.
func (h *OpsHandler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	v := h.src.View()
	resp := healthResponse{Status: "ok", Stale: v.Stale()}
	if v != nil {
		resp.UpdatedAt = v.UpdatedAt
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleStats handles GET /stats.
func (h *OpsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.src.Stats(r.Context()))
}

// Metrics serves the custom registry in the Prometheus exposition format.
func (h *OpsHandler) Metrics() http.Handler {
	return promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{})
}
