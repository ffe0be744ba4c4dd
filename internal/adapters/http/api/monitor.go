package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/bezboss20/Dashboard-sub001/internal/domain/model"
	"github.com/bezboss20/Dashboard-sub001/internal/domain/types"
)

// MonitorHandler serves read models and monitor-wide commands.
type MonitorHandler struct {
	m Monitor
}

// NewMonitorHandler creates a monitor handler.
func NewMonitorHandler(m Monitor) *MonitorHandler {
	return &MonitorHandler{m: m}
}

type overviewResponse struct {
	UpdatedAt    time.Time         `json:"updatedAt"`
	Freshness    time.Time         `json:"freshness,omitzero"`
	Stale        bool              `json:"stale"`
	Summary      model.Record      `json:"summary,omitempty"`
	Patients     int               `json:"patients"`
	Critical     int               `json:"critical"`
	Unresolved   int               `json:"unresolved"`
	ActiveAlerts int               `json:"activeAlerts"`
	Errors       map[string]string `json:"errors,omitempty"`
	Notice       *types.Notice     `json:"notice,omitempty"`
}

// HandleView handles GET /api/view.
func (h *MonitorHandler) HandleView(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.m.View())
}

// HandleOverview handles GET /api/overview.
func (h *MonitorHandler) HandleOverview(w http.ResponseWriter, _ *http.Request) {
	v := h.m.View()
	critical := 0
	for _, p := range v.Patients {
		if p.Severity == model.Critical {
			critical++
		}
	}
	writeJSON(w, http.StatusOK, overviewResponse{
		UpdatedAt:    v.UpdatedAt,
		Freshness:    v.Freshness,
		Stale:        v.Stale(),
		Summary:      v.Summary,
		Patients:     len(v.Patients),
		Critical:     critical,
		Unresolved:   v.Unresolved,
		ActiveAlerts: v.AlertTotal,
		Errors:       v.Errors,
		Notice:       v.Notice,
	})
}

// HandlePatients handles GET /api/patients. With ?signal=heart_rate or
// ?signal=respiratory_rate the patients come ranked by that vital.
func (h *MonitorHandler) HandlePatients(w http.ResponseWriter, r *http.Request) {
	v := h.m.View()
	signal := r.URL.Query().Get("signal")
	if signal == "" {
		writeJSON(w, http.StatusOK, v.Patients)
		return
	}
	for _, kind := range []model.SignalKind{model.HeartRate, model.RespiratoryRate} {
		if kind.String() == signal {
			writeJSON(w, http.StatusOK, v.Ranked(kind))
			return
		}
	}
	writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: unknown signal %q", ErrBadRequest, signal))
}

// HandleDevices handles GET /api/devices.
func (h *MonitorHandler) HandleDevices(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.m.View().Devices)
}

// HandleNotifications handles GET /api/notifications.
func (h *MonitorHandler) HandleNotifications(w http.ResponseWriter, _ *http.Request) {
	entries, ok := h.m.Entries()
	if !ok {
		writeFailure(w, ErrNotKept)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// HandleRefresh handles POST /api/refresh.
func (h *MonitorHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := h.m.Refresh(r.Context()); err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "refreshing"})
}

// HandleNotice handles GET /api/notice.
func (h *MonitorHandler) HandleNotice(w http.ResponseWriter, _ *http.Request) {
	n := h.m.View().Notice
	if n == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// HandleDismissNotice handles DELETE /api/notice.
func (h *MonitorHandler) HandleDismissNotice(w http.ResponseWriter, r *http.Request) {
	if err := h.m.DismissNotice(r.Context()); err != nil {
		writeFailure(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
