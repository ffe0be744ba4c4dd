package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bezboss20/Dashboard-sub001/internal/adapters/source"
)

// AlertsHandler serves the triaged alert list and alert commands.
type AlertsHandler struct {
	m Monitor
}

// NewAlertsHandler creates an alerts handler.
func NewAlertsHandler(m Monitor) *AlertsHandler {
	return &AlertsHandler{m: m}
}

type transitionRequest struct {
	Actor string `json:"actor"`
	Note  string `json:"note"`
}

func (t transitionRequest) validate() error {
	if strings.TrimSpace(t.Actor) == "" {
		return fmt.Errorf("%w: missing actor", ErrBadRequest)
	}
	return nil
}

type searchRequest struct {
	Search string `json:"search"`
	Page   int    `json:"page"`
	Limit  int    `json:"limit"`
	Start  string `json:"startDate"`
	End    string `json:"endDate"`
}

func (s searchRequest) query() (source.AlertQuery, error) {
	q := source.AlertQuery{Search: strings.TrimSpace(s.Search), Page: s.Page, Limit: s.Limit}
	if q.Page < 0 || q.Limit < 0 {
		return q, fmt.Errorf("%w: page and limit must not be negative", ErrBadRequest)
	}
	var err error
	if q.Start, err = parseDate(s.Start); err != nil {
		return q, err
	}
	if q.End, err = parseDate(s.End); err != nil {
		return q, err
	}
	if !q.Start.IsZero() && !q.End.IsZero() && q.End.Before(q.Start) {
		return q, fmt.Errorf("%w: endDate before startDate", ErrBadRequest)
	}
	return q, nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q; use YYYY-MM-DD or RFC3339", ErrBadRequest, s)
	}
	return t, nil
}

type alertListResponse struct {
	Alerts any `json:"alerts"`
	Total  int `json:"total"`
}

// HandleList handles GET /api/alerts.
func (h *AlertsHandler) HandleList(w http.ResponseWriter, _ *http.Request) {
	v := h.m.View()
	writeJSON(w, http.StatusOK, alertListResponse{Alerts: v.Alerts, Total: v.AlertTotal})
}

// HandleAcknowledge handles POST /api/alerts/{id}/acknowledge.
func (h *AlertsHandler) HandleAcknowledge(w http.ResponseWriter, r *http.Request) {
	var req transitionRequest
	if err := decode(r, &req); err != nil {
		writeFailure(w, err)
		return
	}
	if err := req.validate(); err != nil {
		writeFailure(w, err)
		return
	}
	a, err := h.m.Acknowledge(r.Context(), chi.URLParam(r, "id"), req.Actor, req.Note)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// HandleResolve handles POST /api/alerts/{id}/resolve.
func (h *AlertsHandler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	var req transitionRequest
	if err := decode(r, &req); err != nil {
		writeFailure(w, err)
		return
	}
	if err := req.validate(); err != nil {
		writeFailure(w, err)
		return
	}
	a, err := h.m.Resolve(r.Context(), chi.URLParam(r, "id"), req.Actor)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// HandleSearch handles POST /api/alerts/search. The query runs after the
// debounce window; poll GET /api/alerts/search for the result.
func (h *AlertsHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := decode(r, &req); err != nil {
		writeFailure(w, err)
		return
	}
	q, err := req.query()
	if err != nil {
		writeFailure(w, err)
		return
	}
	if err := h.m.Search(r.Context(), q); err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "scheduled"})
}

// HandleSearchResult handles GET /api/alerts/search.
func (h *AlertsHandler) HandleSearchResult(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.m.View().Search)
}
