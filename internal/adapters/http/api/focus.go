package api

import (
	"fmt"
	"net/http"
	"strings"
)

// FocusHandler serves the live-map focus and its commands.
type FocusHandler struct {
	m Monitor
}

// NewFocusHandler creates a focus handler.
func NewFocusHandler(m Monitor) *FocusHandler {
	return &FocusHandler{m: m}
}

type selectRequest struct {
	DeviceID string `json:"deviceId"`
}

type trackingRequest struct {
	Enabled *bool `json:"enabled"`
}

// HandleGet handles GET /api/focus.
func (h *FocusHandler) HandleGet(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.m.View().Focus)
}

// HandleSelect handles POST /api/focus/select.
func (h *FocusHandler) HandleSelect(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := decode(r, &req); err != nil {
		writeFailure(w, err)
		return
	}
	if strings.TrimSpace(req.DeviceID) == "" {
		writeFailure(w, fmt.Errorf("%w: missing deviceId", ErrBadRequest))
		return
	}
	snap, err := h.m.SelectDevice(r.Context(), req.DeviceID)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// HandleClear handles POST /api/focus/clear.
func (h *FocusHandler) HandleClear(w http.ResponseWriter, r *http.Request) {
	snap, err := h.m.ClearSelection(r.Context())
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// HandleTracking handles POST /api/focus/tracking.
func (h *FocusHandler) HandleTracking(w http.ResponseWriter, r *http.Request) {
	var req trackingRequest
	if err := decode(r, &req); err != nil {
		writeFailure(w, err)
		return
	}
	if req.Enabled == nil {
		writeFailure(w, fmt.Errorf("%w: missing enabled", ErrBadRequest))
		return
	}
	snap, err := h.m.SetSelfTracking(r.Context(), *req.Enabled)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// HandleLocate handles POST /api/focus/locate.
func (h *FocusHandler) HandleLocate(w http.ResponseWriter, r *http.Request) {
	p, err := h.m.LocateSelf(r.Context())
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandleOpenView handles POST /api/tracking-view/open.
func (h *FocusHandler) HandleOpenView(w http.ResponseWriter, r *http.Request) {
	if err := h.m.OpenTrackingView(r.Context()); err != nil {
		writeFailure(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleCloseView handles POST /api/tracking-view/close.
func (h *FocusHandler) HandleCloseView(w http.ResponseWriter, r *http.Request) {
	if err := h.m.CloseTrackingView(r.Context()); err != nil {
		writeFailure(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
